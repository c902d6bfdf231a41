// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package analysis

import "testing"

func TestParseAddress(t *testing.T) {
	tests := []struct {
		input string
		want  Address
	}{
		{"0x8000134", 0x8000134},
		{"0X1000", 0x1000},
		{"8000134", 0x8000134},
		{"ram:03001000", 0x3001000},
		{"rom:0x08000000", 0x8000000},
		{"ffffffff", 0xffffffff},
	}
	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			got, err := ParseAddress(test.input)
			if err != nil {
				t.Fatalf("ParseAddress(%q): %v", test.input, err)
			}
			if got != test.want {
				t.Errorf("ParseAddress(%q) = %s, want %s", test.input, got, test.want)
			}
		})
	}
}

func TestParseAddressRejects(t *testing.T) {
	for _, input := range []string{"", "0x", "main", ":1000", "0x12zz", "rom:"} {
		t.Run(input, func(t *testing.T) {
			if address, err := ParseAddress(input); err == nil {
				t.Errorf("ParseAddress(%q) = %s, want error", input, address)
			}
		})
	}
}

func TestAddressString(t *testing.T) {
	if got := Address(0x1000).String(); got != "0x00001000" {
		t.Errorf("String() = %q", got)
	}
	if got := Address(0x8000134).String(); got != "0x08000134" {
		t.Errorf("String() = %q", got)
	}
}

func TestAddressTextRoundTrip(t *testing.T) {
	text, err := Address(0x3001f00).MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}
	var address Address
	if err := address.UnmarshalText(text); err != nil {
		t.Fatalf("UnmarshalText(%q): %v", text, err)
	}
	if address != 0x3001f00 {
		t.Errorf("round trip gave %s", address)
	}
}
