// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"slices"

	"github.com/dustin/go-humanize"

	"github.com/bureau-foundation/cexbridge/analysis"
	"github.com/bureau-foundation/cexbridge/cmd/cexbridge/cli"
)

func imageCommand(out *output) *cli.Command {
	return &cli.Command{
		Name:    "image",
		Summary: "Inspect and convert program images",
		Description: `Program images are exports of an analysis database: functions,
symbols, data types and defined data. They are stored as JSON (with
comments, .jsonc) or CBOR (.cbor), optionally compressed (.zst, .lz4).`,
		Subcommands: []*cli.Command{
			imageInspectCommand(out),
			imagePackCommand(out),
		},
	}
}

func imageInspectCommand(out *output) *cli.Command {
	return &cli.Command{
		Name:    "inspect",
		Summary: "Validate an image and summarize its contents",
		Usage:   "cexbridge image inspect <path>",
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected an image path")
			}
			loaded, err := analysis.LoadImage(args[0])
			if err != nil {
				return err
			}
			// The image must load into an engine to be servable.
			session, err := analysis.NewSession(loaded.Image, analysis.SessionOptions{})
			if err != nil {
				return fmt.Errorf("%s: %w", loaded.Path, err)
			}
			printImage(out, loaded, session)
			return nil
		},
	}
}

func printImage(out *output, loaded *analysis.LoadedImage, session *analysis.Session) {
	styles := cli.NewStyles(out.stdout, out.profile)
	image := loaded.Image

	fmt.Fprintln(out.stdout, styles.Heading(image.Name))
	summary := cli.Table{Indent: "  "}
	summary.Row(styles.Label("path"), loaded.Path)
	summary.Row(styles.Label("format"), loaded.Format)
	summary.Row(styles.Label("compression"), loaded.Compression)
	summary.Row(styles.Label("size"), fmt.Sprintf("%s (%s decoded)",
		humanize.Bytes(uint64(loaded.FileSize)), humanize.Bytes(uint64(loaded.EncodedSize))))
	summary.Row(styles.Label("blake3"), loaded.Digest)
	for _, key := range sortedKeys(image.Metadata) {
		summary.Row(styles.Label(key), image.Metadata[key])
	}
	summary.Write(out.stdout)

	fmt.Fprintf(out.stdout, "\n%s\n", styles.Heading(fmt.Sprintf("Functions (%d)", len(image.Functions))))
	functions := cli.Table{Indent: "  "}
	for _, function := range session.Functions() {
		functions.Row(function.Entry.String(), function.Signature.String(), styles.Label(string(function.Source)))
	}
	functions.Write(out.stdout)

	if len(image.Symbols) > 0 {
		fmt.Fprintf(out.stdout, "\n%s\n", styles.Heading(fmt.Sprintf("Symbols (%d)", len(image.Symbols))))
		symbols := cli.Table{Indent: "  "}
		for _, name := range sortedKeys(image.Symbols) {
			symbols.Row(image.Symbols[name].String(), name)
		}
		symbols.Write(out.stdout)
	}

	if len(image.DataTypes) > 0 {
		fmt.Fprintf(out.stdout, "\n%s\n", styles.Heading(fmt.Sprintf("Data types (%d)", len(image.DataTypes))))
		dataTypes := cli.Table{Indent: "  "}
		for _, dataType := range image.DataTypes {
			path := analysis.DataType{Name: dataType.Name, Category: dataType.Category}.Path()
			dataTypes.Row(path, fmt.Sprintf("%d bytes", dataType.Size))
		}
		dataTypes.Write(out.stdout)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

func imagePackCommand(out *output) *cli.Command {
	return &cli.Command{
		Name:    "pack",
		Summary: "Convert an image to another encoding or compression",
		Usage:   "cexbridge image pack <input> <output>",
		Examples: []cli.Example{
			{
				Description: "Compile a hand-written JSONC image to compressed CBOR",
				Command:     "cexbridge image pack tmc.jsonc tmc.cbor.zst",
			},
		},
		Run: func(args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("expected <input> and <output>")
			}
			loaded, err := analysis.LoadImage(args[0])
			if err != nil {
				return err
			}
			if _, err := analysis.NewSession(loaded.Image, analysis.SessionOptions{}); err != nil {
				return fmt.Errorf("%s: %w", loaded.Path, err)
			}
			digest, err := analysis.WriteImage(args[1], loaded.Image)
			if err != nil {
				return err
			}
			fmt.Fprintf(out.stdout, "%s -> %s (blake3 %s)\n", loaded.Path, args[1], digest)
			return nil
		},
	}
}
