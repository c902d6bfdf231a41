// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the command framework for the cexbridge binary.
//
// A [Command] tree dispatches on the first positional argument, parses
// pflag flags for the leaf, and prints structured help with examples.
// Unknown commands and flags get an edit-distance suggestion.
//
// [NewCommandLogger] picks a text or JSON slog handler depending on
// whether stderr is a terminal. [HighlightC] colours decompiled C for
// the stdout colour profile; [Styles] and [Table] format the image
// reports.
package cli
