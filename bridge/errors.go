// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a handler failure.
type Kind int

const (
	// KindEngineFailure is an analysis engine error with no more
	// specific kind. Untyped errors are treated as this kind.
	KindEngineFailure Kind = iota
	// KindArgument is a malformed operand.
	KindArgument
	// KindNotFound is a function, symbol or type that does not exist.
	KindNotFound
	// KindAmbiguousType is a type name matching more than one type.
	KindAmbiguousType
	// KindParse is a function signature that does not parse.
	KindParse
	// KindEngineTimeout is a decompilation that did not finish.
	KindEngineTimeout
	// KindTransaction is a failure applying or committing a change.
	KindTransaction
)

var kindNames = map[Kind]string{
	KindEngineFailure: "engine_failure",
	KindArgument:      "argument",
	KindNotFound:      "not_found",
	KindAmbiguousType: "ambiguous_type",
	KindParse:         "parse",
	KindEngineTimeout: "engine_timeout",
	KindTransaction:   "transaction",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a handler failure. Message is the response body.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: cause}
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindEngineFailure when there is none.
func KindOf(err error) Kind {
	var bridgeError *Error
	if errors.As(err, &bridgeError) {
		return bridgeError.Kind
	}
	return KindEngineFailure
}

// engineError wraps a facade error that has no more specific meaning
// at the call site.
func engineError(err error) *Error {
	kind := KindEngineFailure
	if errors.Is(err, context.DeadlineExceeded) {
		kind = KindEngineTimeout
	}
	return &Error{Kind: kind, Message: err.Error(), Err: err}
}

// StatusTable maps error kinds to HTTP status codes. Kinds missing
// from the table map to 500.
type StatusTable map[Kind]int

// Status returns the status code for kind.
func (t StatusTable) Status(kind Kind) int {
	if status, ok := t[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// CompatStatus answers every failure with 500.
var CompatStatus = StatusTable{}

// StrictStatus distinguishes caller errors from engine errors.
var StrictStatus = StatusTable{
	KindArgument:      http.StatusBadRequest,
	KindParse:         http.StatusBadRequest,
	KindNotFound:      http.StatusNotFound,
	KindAmbiguousType: http.StatusConflict,
	KindEngineTimeout: http.StatusGatewayTimeout,
	KindEngineFailure: http.StatusInternalServerError,
	KindTransaction:   http.StatusInternalServerError,
}

// StatusTableFor returns the table for a server.status_codes mode.
func StatusTableFor(mode string) (StatusTable, error) {
	switch mode {
	case "", "compat":
		return CompatStatus, nil
	case "strict":
		return StrictStatus, nil
	default:
		return nil, fmt.Errorf("unknown status code mode %q", mode)
	}
}
