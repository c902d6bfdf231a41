// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package analysis

import (
	"fmt"
	"strconv"
	"strings"
)

// Address is a location in the program's address space.
type Address uint64

// String formats the address as 0x-prefixed hex, padded to eight
// digits.
func (a Address) String() string {
	return fmt.Sprintf("0x%08x", uint64(a))
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler using
// [ParseAddress].
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAddress parses a literal address. Accepted forms are
// "0x8000134", bare hex "8000134", and an address-space-qualified
// "rom:8000134".
func ParseAddress(text string) (Address, error) {
	digits := text
	if space, rest, ok := strings.Cut(digits, ":"); ok {
		if space == "" {
			return 0, fmt.Errorf("invalid address %q: empty address space", text)
		}
		digits = rest
	}
	if len(digits) > 2 && (digits[:2] == "0x" || digits[:2] == "0X") {
		digits = digits[2:]
	}
	if digits == "" {
		return 0, fmt.Errorf("invalid address %q", text)
	}
	value, err := strconv.ParseUint(digits, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q", text)
	}
	return Address(value), nil
}
