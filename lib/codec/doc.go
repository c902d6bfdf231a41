// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the CBOR encoding configuration for binary
// program images.
//
// Program images are authored as JSONC and packed to CBOR for size and
// load speed (see analysis.WriteImage). Both forms decode into the same
// Go structs: CBOR falls back to `json` struct tags, and types that
// implement encoding.TextMarshaler (analysis.Address) are written as
// text strings so a packed image diagnoses to the same "0x08000100"
// addresses the JSONC source used.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2), so
// packing the same image twice yields identical bytes and identical
// digests.
package codec
