// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bureau-foundation/cexbridge/analysis"
	"github.com/bureau-foundation/cexbridge/analysis/cleanup"
)

// Response bodies viewers match on.
const (
	appliedFunctionSignature = "Applied function signature"
	appliedGlobalType        = "Applied data type to global."
)

// endpoints implements the five bridge operations against a facade.
// It holds no per-request state.
type endpoints struct {
	facade           analysis.Facade
	cleanup          *cleanup.Pipeline
	decompileTimeout time.Duration
	shutdownDelay    time.Duration
	logger           *slog.Logger

	// scheduleStop arms the delayed stop of the instance serving
	// these endpoints.
	scheduleStop func()
}

func (e *endpoints) routes() []Route {
	return []Route{
		{Prefix: "/decompile", Handler: HandlerFunc(e.decompile)},
		{Prefix: "/goto", Handler: HandlerFunc(e.goTo)},
		{Prefix: "/functionType", Handler: HandlerFunc(e.functionType)},
		{Prefix: "/globalType", Handler: HandlerFunc(e.globalType)},
		{Prefix: "/shutdown", Handler: HandlerFunc(e.shutdown)},
	}
}

func (e *endpoints) resolveFunction(ctx context.Context, name string) (analysis.Function, error) {
	function, err := e.facade.ResolveFunction(ctx, name)
	if err != nil {
		if errors.Is(err, analysis.ErrNotFound) {
			return analysis.Function{}, newError(KindNotFound, err, "Function %s not found.", name)
		}
		return analysis.Function{}, engineError(err)
	}
	return function, nil
}

// decompile navigates to the function, then decompiles it. The cursor
// move stands even if decompilation fails, so the user can edit the
// function in the analysis tool.
func (e *endpoints) decompile(ctx context.Context, name string) (Response, error) {
	function, err := e.resolveFunction(ctx, name)
	if err != nil {
		return Response{}, err
	}
	if err := e.facade.NavigateTo(ctx, function); err != nil {
		return Response{}, engineError(err)
	}

	e.logger.Info("decompiling",
		"function", function.Name,
		"entry", function.Entry,
		"timeout", e.decompileTimeout,
	)
	result, err := e.facade.Decompile(ctx, function, e.decompileTimeout)
	if err != nil {
		return Response{}, engineError(err)
	}
	e.logger.Info("decompilation finished",
		"function", function.Name,
		"completed", result.Completed,
		"bytes", len(result.Text),
	)
	if !result.Completed {
		message := result.Message
		if message == "" {
			message = fmt.Sprintf("Decompilation of %s did not complete within %s.", function.Name, e.decompileTimeout)
		}
		return Response{}, newError(KindEngineTimeout, nil, "%s", message)
	}

	return Response{Body: e.cleanup.Apply(ctx, result.Text)}, nil
}

func (e *endpoints) goTo(ctx context.Context, name string) (Response, error) {
	function, err := e.resolveFunction(ctx, name)
	if err != nil {
		return Response{}, err
	}
	if err := e.facade.NavigateTo(ctx, function); err != nil {
		return Response{}, engineError(err)
	}
	return Response{}, nil
}

// splitOperand splits "<first>/<second>", requiring exactly two
// non-empty fields.
func splitOperand(operand, shape string) (string, string, error) {
	fields := strings.Split(operand, "/")
	if len(fields) != 2 {
		return "", "", newError(KindArgument, nil,
			"Expected %s, got %d field(s) in %q.", shape, len(fields), operand)
	}
	for _, field := range fields {
		if strings.TrimSpace(field) == "" {
			return "", "", newError(KindArgument, nil, "Expected %s, got an empty field in %q.", shape, operand)
		}
	}
	return fields[0], fields[1], nil
}

func (e *endpoints) resolveTarget(ctx context.Context, text string) (analysis.Address, error) {
	address, err := e.facade.ResolveSymbolOrAddress(ctx, text)
	if err != nil {
		if errors.Is(err, analysis.ErrNotFound) {
			return 0, newError(KindNotFound, err, "Symbol or address %s not found.", text)
		}
		return 0, engineError(err)
	}
	return address, nil
}

func (e *endpoints) functionType(ctx context.Context, operand string) (Response, error) {
	target, text, err := splitOperand(operand, "<address-or-symbol>/<signature>")
	if err != nil {
		return Response{}, err
	}
	address, err := e.resolveTarget(ctx, target)
	if err != nil {
		return Response{}, err
	}
	function, err := e.facade.FunctionAt(ctx, address)
	if err != nil {
		return Response{}, newError(KindEngineFailure, err, "No function at %s.", address)
	}

	signature, err := e.facade.ParseFunctionSignature(ctx, function.Signature, text)
	if err != nil {
		return Response{}, newError(KindParse, err, "%s", err.Error())
	}

	err = e.inTransaction(ctx, "Apply function signature", func(transaction analysis.Transaction) error {
		return transaction.ApplyFunctionSignature(address, signature, analysis.SourceImported)
	})
	if err != nil {
		return Response{}, err
	}
	e.logger.Info("applied function signature", "entry", address, "signature", signature.String())
	return Response{Body: appliedFunctionSignature}, nil
}

func (e *endpoints) globalType(ctx context.Context, operand string) (Response, error) {
	target, typeName, err := splitOperand(operand, "<address-or-symbol>/<type>")
	if err != nil {
		return Response{}, err
	}
	address, err := e.resolveTarget(ctx, target)
	if err != nil {
		return Response{}, err
	}

	dataTypes, err := e.facade.LookupDataTypes(ctx, typeName)
	if err != nil {
		return Response{}, engineError(err)
	}
	switch len(dataTypes) {
	case 0:
		return Response{}, newError(KindNotFound, nil, "No data type %s found.", typeName)
	case 1:
	default:
		return Response{}, newError(KindAmbiguousType, nil, "%d data types for %s", len(dataTypes), typeName)
	}
	dataType := dataTypes[0]

	err = e.inTransaction(ctx, "Apply global data type", func(transaction analysis.Transaction) error {
		return transaction.ApplyDataType(address, dataType)
	})
	if err != nil {
		return Response{}, err
	}
	e.logger.Info("applied global data type", "address", address, "type", dataType.Path())
	return Response{Body: appliedGlobalType}, nil
}

// inTransaction runs apply in its own transaction, committing on
// success and rolling back on any failure.
func (e *endpoints) inTransaction(ctx context.Context, description string, apply func(analysis.Transaction) error) error {
	transaction, err := e.facade.Begin(ctx, description)
	if err != nil {
		return newError(KindTransaction, err, "%s: %v", description, err)
	}
	if err := apply(transaction); err != nil {
		e.rollback(transaction, description)
		return newError(KindTransaction, err, "%s: %v", description, err)
	}
	if err := transaction.Commit(); err != nil {
		e.rollback(transaction, description)
		return newError(KindTransaction, err, "%s: commit failed: %v", description, err)
	}
	return nil
}

func (e *endpoints) rollback(transaction analysis.Transaction, description string) {
	if err := transaction.Rollback(); err != nil {
		e.logger.Error("rollback failed", "transaction", description, "error", err)
	}
}

func (e *endpoints) shutdown(ctx context.Context, operand string) (Response, error) {
	return Response{
		Body:       shutdownMessage(e.shutdownDelay),
		AfterWrite: e.scheduleStop,
	}, nil
}

func shutdownMessage(delay time.Duration) string {
	if delay == time.Second {
		return "Stopping server in one second."
	}
	return fmt.Sprintf("Stopping server in %s.", delay)
}
