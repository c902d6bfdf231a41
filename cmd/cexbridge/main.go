// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/bureau-foundation/cexbridge/cmd/cexbridge/cli"
)

func main() {
	if err := run(); err != nil {
		// Client subcommands print the bridge's message themselves and
		// return an ExitError; don't print a second "error:" line.
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	out := &output{
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		profile: cli.StdoutProfile(),
	}
	return root(out).Execute(os.Args[1:])
}
