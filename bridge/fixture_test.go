// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/bureau-foundation/cexbridge/analysis"
	"github.com/bureau-foundation/cexbridge/lib/clock"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixtureImage() *analysis.Image {
	return &analysis.Image{
		Name: "fixture",
		Functions: []analysis.ImageFunction{
			{
				Name:      "main",
				Entry:     0x1000,
				Prototype: "int main(void)",
				Body:      []string{"  undefined4 uVar1;", "", "  uVar1 = Update();", "  return uVar1;"},
			},
			{
				Name:      "Update",
				Entry:     0x1100,
				Prototype: "undefined4 Update(void)",
				Body:      []string{"  return 0;"},
			},
			{
				Name:                "Slow",
				Entry:               0x1200,
				Body:                []string{"  return;"},
				DecompileCostMillis: 60_000,
			},
		},
		Symbols: map[string]analysis.Address{
			"gData":   0x3000000,
			"gScreen": 0x3000100,
		},
		DataTypes: []analysis.ImageDataType{
			{Name: "Entity", Category: "/entity", Size: 0x88},
			{Name: "MyStruct", Category: "/save", Size: 8},
			{Name: "MyStruct", Category: "/legacy", Size: 12},
		},
	}
}

func newSession(t *testing.T, clk clock.Clock) *analysis.Session {
	t.Helper()
	session, err := analysis.NewSession(fixtureImage(), analysis.SessionOptions{Clock: clk, Logger: discardLogger()})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return session
}
