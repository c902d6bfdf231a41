// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/cexbridge/cmd/cexbridge/cli"
	"github.com/bureau-foundation/cexbridge/lib/bridgeclient"
	"github.com/bureau-foundation/cexbridge/lib/config"
)

// clientFlags are shared by every subcommand that talks to a running
// bridge.
type clientFlags struct {
	address string
	timeout time.Duration
}

func defaultAddress() string {
	port := strconv.Itoa(config.DefaultPort)
	if value := os.Getenv("CEXBRIDGE_PORT"); value != "" {
		port = value
	}
	return "127.0.0.1:" + port
}

func (f *clientFlags) register(flagSet *pflag.FlagSet) {
	flagSet.StringVarP(&f.address, "address", "a", defaultAddress(), "bridge address (host:port or URL)")
	flagSet.DurationVar(&f.timeout, "timeout", 30*time.Second, "request timeout")
}

// clientCommand builds a subcommand that takes exactly argCount
// positional arguments and sends one request through call.
func clientCommand(out *output, name, summary, usage string, argCount int, examples []cli.Example,
	call func(ctx context.Context, client *bridgeclient.Client, args []string) error) *cli.Command {
	var flags clientFlags
	return &cli.Command{
		Name:     name,
		Summary:  summary,
		Usage:    usage,
		Examples: examples,
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
			flags.register(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != argCount {
				return fmt.Errorf("expected %d argument(s), got %d\n\nUsage:\n  %s", argCount, len(args), usage)
			}
			ctx, cancel := context.WithTimeout(context.Background(), flags.timeout)
			defer cancel()
			return reportStatus(out, call(ctx, bridgeclient.New(flags.address), args))
		},
	}
}

// reportStatus prints the bridge's message for an error response and
// turns it into exit code 1. Transport errors pass through.
func reportStatus(out *output, err error) error {
	var statusErr *bridgeclient.StatusError
	if errors.As(err, &statusErr) {
		fmt.Fprintln(out.stderr, statusErr.Body)
		return &cli.ExitError{Code: 1}
	}
	return err
}

func decompileCommand(out *output) *cli.Command {
	return clientCommand(out, "decompile", "Print the decompiled C of a function",
		"cexbridge decompile <function> [flags]", 1,
		[]cli.Example{{Description: "Decompile main", Command: "cexbridge decompile main"}},
		func(ctx context.Context, client *bridgeclient.Client, args []string) error {
			text, err := client.Decompile(ctx, args[0])
			if err != nil {
				return err
			}
			return cli.HighlightC(out.stdout, text, out.profile)
		})
}

func gotoCommand(out *output) *cli.Command {
	return clientCommand(out, "goto", "Move the analysis tool's cursor to a function",
		"cexbridge goto <function> [flags]", 1, nil,
		func(ctx context.Context, client *bridgeclient.Client, args []string) error {
			return client.GoTo(ctx, args[0])
		})
}

func functionTypeCommand(out *output) *cli.Command {
	return clientCommand(out, "function-type", "Apply a C signature to the function at a symbol or address",
		"cexbridge function-type <symbol-or-address> <signature> [flags]", 2,
		[]cli.Example{{
			Description: "Retype the function at 0x08000400",
			Command:     `cexbridge function-type 0x08000400 "void Init(void)"`,
		}},
		func(ctx context.Context, client *bridgeclient.Client, args []string) error {
			message, err := client.ApplyFunctionType(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(out.stdout, message)
			return nil
		})
}

func globalTypeCommand(out *output) *cli.Command {
	return clientCommand(out, "global-type", "Apply a data type to a global",
		"cexbridge global-type <symbol-or-address> <type> [flags]", 2,
		[]cli.Example{{Description: "Type gPlayerEntity", Command: "cexbridge global-type gPlayerEntity Entity"}},
		func(ctx context.Context, client *bridgeclient.Client, args []string) error {
			message, err := client.ApplyGlobalType(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(out.stdout, message)
			return nil
		})
}

func shutdownCommand(out *output) *cli.Command {
	return clientCommand(out, "shutdown", "Ask a running bridge to stop",
		"cexbridge shutdown [flags]", 0, nil,
		func(ctx context.Context, client *bridgeclient.Client, args []string) error {
			message, err := client.Shutdown(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(out.stdout, message)
			return nil
		})
}
