// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"

	"github.com/bureau-foundation/cexbridge/cmd/cexbridge/cli"
	"github.com/bureau-foundation/cexbridge/lib/version"
)

// output is where commands write their results. profile is the colour
// profile of stdout.
type output struct {
	stdout  io.Writer
	stderr  io.Writer
	profile termenv.Profile
}

// root builds the cexbridge command tree.
func root(out *output) *cli.Command {
	return &cli.Command{
		Name: "cexbridge",
		Description: `cexbridge: HTTP control bridge for a binary-analysis engine.

Serves decompilation, navigation and type application on a loopback
port so that an external viewer can drive the analysis tool.`,
		HelpOutput: out.stderr,
		Subcommands: []*cli.Command{
			serveCommand(out),
			decompileCommand(out),
			gotoCommand(out),
			functionTypeCommand(out),
			globalTypeCommand(out),
			shutdownCommand(out),
			imageCommand(out),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(args []string) error {
					fmt.Fprintf(out.stdout, "cexbridge %s\n", version.Full())
					return nil
				},
			},
		},
	}
}
