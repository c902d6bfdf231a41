// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides network and HTTP I/O utilities.
//
// [Listen] binds the bridge's control listener. [ReadResponse] and
// [ErrorBody] bound response body reads at [MaxResponseSize] so that a
// misbehaving peer cannot exhaust client memory. [IsExpectedCloseError]
// classifies errors from ordinary peer disconnects.
package netutil

import (
	"io"
)

// MaxResponseSize bounds bridge response body reads: 64 MB. Decompiled
// functions are a few kilobytes; the limit only guards against a
// pathological peer.
const MaxResponseSize int64 = 64 << 20

// ReadResponse reads a response body up to MaxResponseSize bytes.
func ReadResponse(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxResponseSize))
}

// ErrorBody reads an error response body for use in an error message.
// Read errors are ignored; a partial body is still useful.
func ErrorBody(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, MaxResponseSize))
	return string(data)
}
