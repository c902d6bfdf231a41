// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/bureau-foundation/cexbridge/lib/clock"
	"github.com/bureau-foundation/cexbridge/lib/netutil"
)

// Handler serves one endpoint. operand is the request path after the
// route prefix and its separating slash. Handlers report failures by
// returning an error; they never write to the connection.
type Handler interface {
	Handle(ctx context.Context, operand string) (Response, error)
}

// HandlerFunc adapts a function to [Handler].
type HandlerFunc func(ctx context.Context, operand string) (Response, error)

func (f HandlerFunc) Handle(ctx context.Context, operand string) (Response, error) {
	return f(ctx, operand)
}

// Response is a successful handler result.
type Response struct {
	// Status defaults to 200.
	Status int
	Body   string

	// AfterWrite, if set, runs after the response has been written
	// and flushed to the client.
	AfterWrite func()
}

// Route binds a path prefix to a handler.
type Route struct {
	// Prefix starts with "/" and has no trailing slash.
	Prefix  string
	Handler Handler
}

// RouteTable dispatches requests by exact prefix and turns handler
// results into responses. It is immutable once built.
type RouteTable struct {
	routes   []Route
	statuses StatusTable
	clock    clock.Clock
	logger   *slog.Logger
}

// NewRouteTable validates routes and builds a table. A nil statuses
// means [CompatStatus].
func NewRouteTable(routes []Route, statuses StatusTable, clk clock.Clock, logger *slog.Logger) (*RouteTable, error) {
	seen := make(map[string]bool, len(routes))
	for _, route := range routes {
		if !strings.HasPrefix(route.Prefix, "/") || len(route.Prefix) < 2 || strings.HasSuffix(route.Prefix, "/") {
			return nil, fmt.Errorf("route prefix %q must start with / and not end with one", route.Prefix)
		}
		if route.Handler == nil {
			return nil, fmt.Errorf("route %s has no handler", route.Prefix)
		}
		if seen[route.Prefix] {
			return nil, fmt.Errorf("route %s registered twice", route.Prefix)
		}
		seen[route.Prefix] = true
	}
	if statuses == nil {
		statuses = CompatStatus
	}
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RouteTable{
		routes:   append([]Route(nil), routes...),
		statuses: statuses,
		clock:    clk,
		logger:   logger,
	}, nil
}

// Match finds the route for path. A route matches when path equals
// its prefix or continues with "/"; "/decompileX" does not match
// "/decompile". The operand is everything after the separator.
func (t *RouteTable) Match(path string) (Route, string, bool) {
	for _, route := range t.routes {
		if path == route.Prefix {
			return route, "", true
		}
		if strings.HasPrefix(path, route.Prefix) && path[len(route.Prefix)] == '/' {
			return route, path[len(route.Prefix)+1:], true
		}
	}
	return Route{}, "", false
}

// Prefixes returns the registered prefixes in order.
func (t *RouteTable) Prefixes() []string {
	prefixes := make([]string, len(t.routes))
	for i, route := range t.routes {
		prefixes[i] = route.Prefix
	}
	return prefixes
}

func (t *RouteTable) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	route, operand, ok := t.Match(request.URL.Path)
	if !ok {
		http.NotFound(writer, request)
		return
	}

	start := t.clock.Now()
	response := t.invoke(request.Context(), route, operand)

	header := writer.Header()
	header.Set("Content-Type", "text/plain; charset=utf-8")
	header.Set("Content-Length", strconv.Itoa(len(response.Body)))
	writer.WriteHeader(response.Status)
	_, err := writer.Write([]byte(response.Body))
	if err == nil {
		if flusher, ok := writer.(http.Flusher); ok {
			flusher.Flush()
		}
	}

	logger := t.logger.With("route", route.Prefix, "operand", operand)
	if err != nil {
		if netutil.IsExpectedCloseError(err) {
			logger.Debug("client went away before the response was written", "error", err)
		} else {
			logger.Error("writing response failed", "status", response.Status, "error", err)
		}
	}
	logger.Debug("request served",
		"method", request.Method,
		"status", response.Status,
		"bytes", len(response.Body),
		"duration", t.clock.Now().Sub(start).Round(time.Microsecond),
	)

	if response.AfterWrite != nil {
		response.AfterWrite()
	}
}

// invoke runs the handler, converting errors and panics to responses.
func (t *RouteTable) invoke(ctx context.Context, route Route, operand string) (response Response) {
	defer func() {
		if recovered := recover(); recovered != nil {
			t.logger.Error("handler panicked",
				"route", route.Prefix,
				"operand", operand,
				"panic", recovered,
				"stack", string(debug.Stack()),
			)
			response = Response{
				Status: http.StatusInternalServerError,
				Body:   fmt.Sprintf("internal error: %v", recovered),
			}
		}
	}()

	response, err := route.Handler.Handle(ctx, operand)
	if err != nil {
		kind := KindOf(err)
		status := t.statuses.Status(kind)
		t.logger.Info("request failed",
			"route", route.Prefix,
			"operand", operand,
			"kind", kind,
			"status", status,
			"error", err,
		)
		return Response{Status: status, Body: err.Error()}
	}
	if response.Status == 0 {
		response.Status = http.StatusOK
	}
	return response
}
