// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package integration_test drives a bridge over real HTTP the way a
// viewer does: one request at a time through lib/bridgeclient, against
// the reference analysis engine loaded from a program image.
//
// Most tests run the bridge in process on an ephemeral port. The
// binary tests run a compiled cexbridge named by CEXBRIDGE_BINARY and
// are skipped when it is not set.
package integration_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/bureau-foundation/cexbridge/analysis"
	"github.com/bureau-foundation/cexbridge/analysis/cleanup"
	"github.com/bureau-foundation/cexbridge/bridge"
	"github.com/bureau-foundation/cexbridge/lib/bridgeclient"
)

// programImage is a small export of a GBA game: a few functions, two
// labelled globals and a type name registered in two categories.
func programImage() *analysis.Image {
	return &analysis.Image{
		Name: "tmc_integration",
		Functions: []analysis.ImageFunction{
			{
				Name:      "AgbMain",
				Entry:     0x080003a4,
				Prototype: "void AgbMain(void)",
				Body: []string{
					"  undefined4 uVar1;",
					"",
					"  uVar1 = InitOverlays();",
					"  EntityUpdate((Entity *)0x3003000);",
					"  return;",
				},
			},
			{
				Name:  "InitOverlays",
				Entry: 0x08000500,
				Body:  []string{"  return 0;"},
			},
			{
				Name:      "EntityUpdate",
				Entry:     0x08000600,
				Prototype: "void EntityUpdate(int param_1)",
				Body:      []string{"  return;"},
			},
			{
				Name:                "DecompressTiles",
				Entry:               0x08000700,
				Prototype:           "void DecompressTiles(void)",
				Body:                []string{"  return;"},
				DecompileCostMillis: 2_000,
			},
		},
		Symbols: map[string]analysis.Address{
			"gPlayerEntity": 0x03003000,
			"gSave":         0x02000000,
		},
		DataTypes: []analysis.ImageDataType{
			{Name: "Entity", Category: "/entity", Size: 0x88},
			{Name: "SaveFile", Category: "/save", Size: 0x500},
			{Name: "MyStruct", Category: "/save", Size: 8},
			{Name: "MyStruct", Category: "/legacy", Size: 12},
		},
		Data: []analysis.ImageData{
			{Address: 0x03003000, Type: "u32"},
		},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type bridgeHarness struct {
	server  *bridge.Server
	session *analysis.Session
	client  *bridgeclient.Client
}

// startBridge serves programImage in process on an ephemeral port.
// options.Facade is filled in; zero fields take the server defaults.
func startBridge(t *testing.T, options bridge.Options) *bridgeHarness {
	t.Helper()

	session, err := analysis.NewSession(programImage(), analysis.SessionOptions{Logger: discardLogger()})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	options.Facade = session
	if options.Logger == nil {
		options.Logger = discardLogger()
	}

	server, err := bridge.NewServer(options)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if err := server.Start(context.Background(), 0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { server.Stop(time.Second) })

	return &bridgeHarness{
		server:  server,
		session: session,
		client:  bridgeclient.New(server.Addr().String()),
	}
}

// typeCleanup rewrites Ghidra's placeholder types the way a decomp
// project's rules file does.
func typeCleanup(t *testing.T) *cleanup.Pipeline {
	t.Helper()
	pipeline, err := cleanup.New(cleanup.Options{
		Rules: []cleanup.Rule{
			{Pattern: `\bundefined4\b`, Replacement: "u32"},
			{Pattern: `\n\n+`, Replacement: "\n"},
		},
		Logger: discardLogger(),
	})
	if err != nil {
		t.Fatalf("cleanup.New: %v", err)
	}
	return pipeline
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}
