// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bureau-foundation/cexbridge/lib/clock"
)

// SessionOptions configures a [Session].
type SessionOptions struct {
	// Clock drives simulated decompile cost and timeouts. Nil means
	// the real clock.
	Clock clock.Clock

	// Logger receives transaction and decompile events. Nil means
	// slog.Default().
	Logger *slog.Logger
}

// Session is an in-memory analysis engine built from an [Image]. It
// implements [Facade].
type Session struct {
	clock  clock.Clock
	logger *slog.Logger
	name   string

	// transactionSlot holds a token while a transaction is open.
	transactionSlot chan struct{}

	mu        sync.Mutex
	functions map[Address]*functionRecord
	byName    map[string]Address
	symbols   map[string]Address
	dataTypes []DataType
	data      map[Address]DataType
	cursor    Address
	hasCursor bool
	commits   int
}

type functionRecord struct {
	function Function
	body     []string
	cost     time.Duration
}

var _ Facade = (*Session)(nil)

// NewSession builds a session from image. The image is validated:
// function names and entries must be unique, prototypes must parse,
// and defined data must name a known type.
func NewSession(image *Image, options SessionOptions) (*Session, error) {
	session := &Session{
		clock:           options.Clock,
		logger:          options.Logger,
		name:            image.Name,
		transactionSlot: make(chan struct{}, 1),
		functions:       make(map[Address]*functionRecord, len(image.Functions)),
		byName:          make(map[string]Address, len(image.Functions)),
		symbols:         make(map[string]Address, len(image.Symbols)),
		data:            make(map[Address]DataType, len(image.Data)),
	}
	if session.clock == nil {
		session.clock = clock.Real()
	}
	if session.logger == nil {
		session.logger = slog.Default()
	}

	for name, size := range builtinTypeSizes {
		session.dataTypes = append(session.dataTypes, DataType{Name: name, Category: "/", Size: size})
	}
	for _, dataType := range image.DataTypes {
		if dataType.Name == "" {
			return nil, fmt.Errorf("image %s: data type with empty name", image.Name)
		}
		category := dataType.Category
		if category == "" {
			category = "/"
		}
		for _, existing := range session.dataTypes {
			if existing.Name == dataType.Name && existing.Category == category {
				return nil, fmt.Errorf("image %s: data type %s defined twice", image.Name, existing.Path())
			}
		}
		session.dataTypes = append(session.dataTypes, DataType{Name: dataType.Name, Category: category, Size: dataType.Size})
	}
	sort.Slice(session.dataTypes, func(i, j int) bool {
		return session.dataTypes[i].Path() < session.dataTypes[j].Path()
	})

	for _, imageFunction := range image.Functions {
		if imageFunction.Name == "" {
			return nil, fmt.Errorf("image %s: function at %s has no name", image.Name, imageFunction.Entry)
		}
		if _, exists := session.byName[imageFunction.Name]; exists {
			return nil, fmt.Errorf("image %s: function %s defined twice", image.Name, imageFunction.Name)
		}
		if _, exists := session.functions[imageFunction.Entry]; exists {
			return nil, fmt.Errorf("image %s: two functions at %s", image.Name, imageFunction.Entry)
		}

		prototype := imageFunction.Prototype
		if prototype == "" {
			prototype = "undefined " + imageFunction.Name + "(void)"
		}
		signature, err := ParseSignature(prototype, Signature{CallingConvention: imageFunction.CallingConvention}, session.isRegisteredType)
		if err != nil {
			return nil, fmt.Errorf("image %s: function %s: %w", image.Name, imageFunction.Name, err)
		}
		if signature.Name != imageFunction.Name {
			return nil, fmt.Errorf("image %s: function %s has prototype naming %s", image.Name, imageFunction.Name, signature.Name)
		}

		source := SourceAnalysis
		if imageFunction.Prototype == "" {
			source = SourceDefault
		}
		session.functions[imageFunction.Entry] = &functionRecord{
			function: Function{
				Name:      imageFunction.Name,
				Entry:     imageFunction.Entry,
				Signature: signature,
				Source:    source,
			},
			body: imageFunction.Body,
			cost: time.Duration(imageFunction.DecompileCostMillis) * time.Millisecond,
		}
		session.byName[imageFunction.Name] = imageFunction.Entry
	}

	for name, address := range image.Symbols {
		session.symbols[name] = address
	}

	for _, defined := range image.Data {
		dataType, err := session.findDataType(defined.Type, defined.Category)
		if err != nil {
			return nil, fmt.Errorf("image %s: data at %s: %w", image.Name, defined.Address, err)
		}
		session.data[defined.Address] = dataType
	}

	return session, nil
}

// Name returns the program name from the image.
func (s *Session) Name() string {
	return s.name
}

// Cursor returns the address the cursor was last moved to.
func (s *Session) Cursor() (Address, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor, s.hasCursor
}

// DataAt returns the type of the data defined at address.
func (s *Session) DataAt(address Address) (DataType, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dataType, ok := s.data[address]
	return dataType, ok
}

// Commits returns the number of committed transactions.
func (s *Session) Commits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits
}

// Functions returns every function, ordered by entry address.
func (s *Session) Functions() []Function {
	s.mu.Lock()
	defer s.mu.Unlock()
	functions := make([]Function, 0, len(s.functions))
	for _, record := range s.functions {
		functions = append(functions, record.function)
	}
	sort.Slice(functions, func(i, j int) bool { return functions[i].Entry < functions[j].Entry })
	return functions
}

func (s *Session) ResolveFunction(ctx context.Context, name string) (Function, error) {
	if err := ctx.Err(); err != nil {
		return Function{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.byName[name]
	if !ok {
		return Function{}, fmt.Errorf("function %s: %w", name, ErrNotFound)
	}
	return s.functions[entry].function, nil
}

// ResolveSymbolOrAddress checks labels, then function names, then
// parses text as a literal address.
func (s *Session) ResolveSymbolOrAddress(ctx context.Context, text string) (Address, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	address, isSymbol := s.symbols[text]
	if !isSymbol {
		address, isSymbol = s.byName[text]
	}
	s.mu.Unlock()
	if isSymbol {
		return address, nil
	}

	address, err := ParseAddress(text)
	if err != nil {
		return 0, fmt.Errorf("symbol or address %s: %w", text, ErrNotFound)
	}
	return address, nil
}

func (s *Session) FunctionAt(ctx context.Context, address Address) (Function, error) {
	if err := ctx.Err(); err != nil {
		return Function{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.functions[address]
	if !ok {
		return Function{}, fmt.Errorf("function at %s: %w", address, ErrNotFound)
	}
	return record.function, nil
}

func (s *Session) NavigateTo(ctx context.Context, function Function) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.functions[function.Entry]; !ok {
		return fmt.Errorf("function at %s: %w", function.Entry, ErrNotFound)
	}
	s.cursor = function.Entry
	s.hasCursor = true
	return nil
}

// Decompile renders the function's current signature and stored
// body. A function whose simulated cost exceeds timeout does not
// complete.
func (s *Session) Decompile(ctx context.Context, function Function, timeout time.Duration) (DecompileResult, error) {
	s.mu.Lock()
	record, ok := s.functions[function.Entry]
	var current Function
	var body []string
	var cost time.Duration
	if ok {
		current = record.function
		body = append([]string(nil), record.body...)
		cost = record.cost
	}
	s.mu.Unlock()
	if !ok {
		return DecompileResult{}, fmt.Errorf("function at %s: %w", function.Entry, ErrNotFound)
	}

	if cost > timeout {
		if err := s.wait(ctx, timeout); err != nil {
			return DecompileResult{}, err
		}
		return DecompileResult{
			Completed: false,
			Message:   fmt.Sprintf("Decompiling %s timed out after %s", current.Name, timeout),
		}, nil
	}
	if err := s.wait(ctx, cost); err != nil {
		return DecompileResult{}, err
	}

	var text strings.Builder
	text.WriteString("\n")
	text.WriteString(current.Signature.String())
	text.WriteString("\n\n{\n")
	for _, line := range body {
		text.WriteString(line)
		text.WriteString("\n")
	}
	text.WriteString("}\n\n")
	return DecompileResult{Completed: true, Text: text.String()}, nil
}

func (s *Session) wait(ctx context.Context, duration time.Duration) error {
	if duration <= 0 {
		return ctx.Err()
	}
	select {
	case <-s.clock.After(duration):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) LookupDataTypes(ctx context.Context, name string) ([]DataType, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var matches []DataType
	for _, dataType := range s.dataTypes {
		if dataType.Name == name {
			matches = append(matches, dataType)
		}
	}
	return matches, nil
}

func (s *Session) ParseFunctionSignature(ctx context.Context, prototype Signature, text string) (Signature, error) {
	if err := ctx.Err(); err != nil {
		return Signature{}, err
	}
	return ParseSignature(text, prototype, s.isRegisteredType)
}

// isRegisteredType reports whether name is a registered type in any
// category. It reads dataTypes, which is fixed after NewSession.
func (s *Session) isRegisteredType(name string) bool {
	for _, dataType := range s.dataTypes {
		if dataType.Name == name {
			return true
		}
	}
	return false
}

func (s *Session) findDataType(name, category string) (DataType, error) {
	var matches []DataType
	for _, dataType := range s.dataTypes {
		if dataType.Name == name && (category == "" || dataType.Category == category) {
			matches = append(matches, dataType)
		}
	}
	switch len(matches) {
	case 0:
		return DataType{}, fmt.Errorf("data type %s: %w", name, ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return DataType{}, fmt.Errorf("data type %s is ambiguous: %d candidates", name, len(matches))
	}
}

// Begin waits for any open transaction to end, then opens a new one.
func (s *Session) Begin(ctx context.Context, description string) (Transaction, error) {
	select {
	case s.transactionSlot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	s.logger.Debug("transaction started", "program", s.name, "description", description)
	return &sessionTransaction{session: s, description: description}, nil
}

// sessionTransaction applies mutations immediately and keeps an undo
// log so Rollback can restore the prior state.
type sessionTransaction struct {
	session     *Session
	description string

	mu     sync.Mutex
	undo   []func()
	closed bool
}

func (t *sessionTransaction) ApplyDataType(address Address, dataType DataType) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTransactionClosed
	}

	s := t.session
	s.mu.Lock()
	defer s.mu.Unlock()

	size := Address(max(dataType.Size, 1))
	for existingAddress, existing := range s.data {
		existingSize := Address(max(existing.Size, 1))
		if overlaps(address, size, existingAddress, existingSize) {
			delete(s.data, existingAddress)
			t.undo = append(t.undo, func() { s.data[existingAddress] = existing })
		}
	}
	s.data[address] = dataType
	t.undo = append(t.undo, func() { delete(s.data, address) })
	return nil
}

// overlaps reports whether [a, a+aSize) and [b, b+bSize) intersect
// without computing either end, which may wrap.
func overlaps(a, aSize, b, bSize Address) bool {
	if a <= b {
		return b-a < aSize
	}
	return a-b < bSize
}

func (t *sessionTransaction) ApplyFunctionSignature(address Address, signature Signature, source SourceType) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTransactionClosed
	}

	s := t.session
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.functions[address]
	if !ok {
		return fmt.Errorf("function at %s: %w", address, ErrNotFound)
	}
	previous := record.function
	name := signature.Name
	if name == "" {
		name = previous.Name
		signature.Name = name
	}
	if name != previous.Name {
		if other, taken := s.byName[name]; taken && other != address {
			return fmt.Errorf("cannot rename %s to %s: name already used by the function at %s", previous.Name, name, other)
		}
		delete(s.byName, previous.Name)
		s.byName[name] = address
	}

	record.function = Function{
		Name:      name,
		Entry:     address,
		Signature: signature,
		Source:    source,
	}
	t.undo = append(t.undo, func() {
		if name != previous.Name {
			delete(s.byName, name)
			s.byName[previous.Name] = address
		}
		record.function = previous
	})
	return nil
}

func (t *sessionTransaction) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTransactionClosed
	}
	t.closed = true
	t.undo = nil

	s := t.session
	s.mu.Lock()
	s.commits++
	s.mu.Unlock()
	<-s.transactionSlot

	s.logger.Debug("transaction committed", "program", s.name, "description", t.description)
	return nil
}

func (t *sessionTransaction) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true

	s := t.session
	s.mu.Lock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	s.mu.Unlock()
	t.undo = nil
	<-s.transactionSlot

	s.logger.Debug("transaction rolled back", "program", s.name, "description", t.description)
	return nil
}
