// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package analysis

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrNotFound reports that a function, symbol or data type does not
// exist. Engines wrap it with the name that was looked up.
var ErrNotFound = errors.New("not found")

// ErrTransactionClosed is returned by operations on a transaction
// that has already been committed or rolled back.
var ErrTransactionClosed = errors.New("transaction already closed")

// Facade is the analysis engine as seen by the bridge. All methods
// are safe for concurrent use.
type Facade interface {
	// ResolveFunction finds a function by name.
	ResolveFunction(ctx context.Context, name string) (Function, error)

	// ResolveSymbolOrAddress resolves text as a symbol name, falling
	// back to parsing it as a literal address.
	ResolveSymbolOrAddress(ctx context.Context, text string) (Address, error)

	// FunctionAt returns the function whose entry point is address.
	FunctionAt(ctx context.Context, address Address) (Function, error)

	// NavigateTo moves the engine's cursor to the function.
	NavigateTo(ctx context.Context, function Function) error

	// Decompile decompiles the function, giving up after timeout.
	// A decompilation that does not finish is reported through
	// DecompileResult.Completed, not as an error.
	Decompile(ctx context.Context, function Function, timeout time.Duration) (DecompileResult, error)

	// LookupDataTypes returns every data type named exactly name, in
	// any category.
	LookupDataTypes(ctx context.Context, name string) ([]DataType, error)

	// ParseFunctionSignature parses a C prototype in the context of
	// the existing signature. A calling convention omitted from text
	// is inherited from prototype.
	ParseFunctionSignature(ctx context.Context, prototype Signature, text string) (Signature, error)

	// Begin opens a transaction for mutations. Transactions are
	// serialized: Begin blocks while another is open.
	Begin(ctx context.Context, description string) (Transaction, error)
}

// Transaction groups mutations so they apply together or not at all.
// Exactly one of Commit or Rollback ends it; Rollback after Commit is
// a no-op.
type Transaction interface {
	// ApplyDataType defines data of the given type at address,
	// clearing any existing data it overlaps.
	ApplyDataType(address Address, dataType DataType) error

	// ApplyFunctionSignature replaces the signature of the function
	// at address and records where the signature came from.
	ApplyFunctionSignature(address Address, signature Signature, source SourceType) error

	Commit() error
	Rollback() error
}

// SourceType records the provenance of a function signature.
type SourceType string

const (
	SourceDefault  SourceType = "default"
	SourceAnalysis SourceType = "analysis"
	SourceImported SourceType = "imported"
)

// Function is a function known to the engine.
type Function struct {
	Name      string
	Entry     Address
	Signature Signature
	Source    SourceType
}

// DataType is a named type in the engine's type registry.
type DataType struct {
	Name string
	// Category is the slash-separated category path, "/" for
	// built-in types.
	Category string
	Size     int
}

// Path returns the category-qualified name of the type.
func (d DataType) Path() string {
	if d.Category == "" || d.Category == "/" {
		return "/" + d.Name
	}
	return strings.TrimSuffix(d.Category, "/") + "/" + d.Name
}

// DecompileResult is the outcome of one decompilation.
type DecompileResult struct {
	Completed bool
	Text      string
	// Message describes why decompilation did not complete.
	Message string
}
