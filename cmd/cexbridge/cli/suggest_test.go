// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"testing"

	"github.com/spf13/pflag"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "goto", 4},
		{"goto", "goto", 0},
		{"goto", "gotp", 1},
		{"decompile", "decomple", 1},
		{"shutdown", "shtudown", 2},
		{"kitten", "sitting", 3},
	}
	for _, test := range tests {
		if got := levenshtein(test.a, test.b); got != test.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", test.a, test.b, got, test.want)
		}
		if got := levenshtein(test.b, test.a); got != test.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", test.b, test.a, got, test.want)
		}
	}
}

func TestSuggestCommandThreshold(t *testing.T) {
	commands := []*Command{{Name: "serve"}, {Name: "version"}}
	if got := suggestCommand("serv", commands); got != "serve" {
		t.Errorf("suggestCommand(serv) = %q", got)
	}
	if got := suggestCommand("globalType", commands); got != "" {
		t.Errorf("suggestCommand(globalType) = %q, want no suggestion", got)
	}
}

func TestSuggestFlagSkipsDefined(t *testing.T) {
	flagSet := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	flagSet.StringP("config", "c", "", "")
	flagSet.Int("port", 0, "")

	if got := suggestFlag([]string{"--config", "x", "--prot", "1"}, flagSet); got != "--port" {
		t.Errorf("suggestFlag = %q", got)
	}
	if got := suggestFlag([]string{"-c", "x", "--", "--prot"}, flagSet); got != "" {
		t.Errorf("flags after -- must be ignored, got %q", got)
	}
}
