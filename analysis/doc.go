// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package analysis defines the contract between the bridge and a
// binary-analysis engine, and provides an in-memory engine that
// implements it.
//
// [Facade] is everything the bridge needs from an engine: resolving
// functions and symbols, moving the cursor, decompiling with a
// timeout, looking up data types, parsing C function signatures, and
// applying types inside explicit [Transaction]s. Entities that do not
// exist are reported with errors wrapping [ErrNotFound].
//
// [Session] is the reference engine. It is built from an [Image], a
// serialized export of an analysis database (functions with
// prototypes and decompiled bodies, symbols, data types and defined
// data). Images are read and written by [LoadImage] and [WriteImage]
// in JSONC or CBOR, optionally zstd or LZ4 compressed. A Session does
// not decompile machine code: it renders the stored body under the
// function's current signature, so signature changes made through the
// bridge are visible in later decompilations.
package analysis
