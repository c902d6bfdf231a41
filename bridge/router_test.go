// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func echoHandler() Handler {
	return HandlerFunc(func(ctx context.Context, operand string) (Response, error) {
		return Response{Body: "operand=" + operand}, nil
	})
}

func newTestRoutes(t *testing.T, statuses StatusTable, routes ...Route) *RouteTable {
	t.Helper()
	table, err := NewRouteTable(routes, statuses, nil, discardLogger())
	if err != nil {
		t.Fatalf("NewRouteTable: %v", err)
	}
	return table
}

func serve(table *RouteTable, method, target string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	table.ServeHTTP(recorder, httptest.NewRequest(method, target, nil))
	return recorder
}

func TestMatchIsExact(t *testing.T) {
	table := newTestRoutes(t, nil,
		Route{Prefix: "/decompile", Handler: echoHandler()},
		Route{Prefix: "/goto", Handler: echoHandler()},
	)

	tests := []struct {
		path    string
		matched bool
		prefix  string
		operand string
	}{
		{"/decompile/main", true, "/decompile", "main"},
		{"/decompile", true, "/decompile", ""},
		{"/decompile/", true, "/decompile", ""},
		{"/decompile/a/b", true, "/decompile", "a/b"},
		{"/decompiler/main", false, "", ""},
		{"/gotomain", false, "", ""},
		{"/goto/sub_8000134", true, "/goto", "sub_8000134"},
		{"/", false, "", ""},
		{"/other/x", false, "", ""},
	}
	for _, test := range tests {
		route, operand, ok := table.Match(test.path)
		if ok != test.matched {
			t.Errorf("Match(%q) matched = %v, want %v", test.path, ok, test.matched)
			continue
		}
		if ok && (route.Prefix != test.prefix || operand != test.operand) {
			t.Errorf("Match(%q) = %s, %q; want %s, %q", test.path, route.Prefix, operand, test.prefix, test.operand)
		}
	}
}

func TestNewRouteTableValidates(t *testing.T) {
	tests := []struct {
		name   string
		routes []Route
	}{
		{"no leading slash", []Route{{Prefix: "goto", Handler: echoHandler()}}},
		{"trailing slash", []Route{{Prefix: "/goto/", Handler: echoHandler()}}},
		{"root", []Route{{Prefix: "/", Handler: echoHandler()}}},
		{"nil handler", []Route{{Prefix: "/goto"}}},
		{"duplicate", []Route{{Prefix: "/goto", Handler: echoHandler()}, {Prefix: "/goto", Handler: echoHandler()}}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := NewRouteTable(test.routes, nil, nil, nil); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestServeHTTPWritesPlainText(t *testing.T) {
	table := newTestRoutes(t, nil, Route{Prefix: "/decompile", Handler: echoHandler()})

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut} {
		recorder := serve(table, method, "/decompile/main")
		if recorder.Code != http.StatusOK {
			t.Errorf("%s: status = %d", method, recorder.Code)
		}
		if recorder.Body.String() != "operand=main" {
			t.Errorf("%s: body = %q", method, recorder.Body.String())
		}
		if got := recorder.Header().Get("Content-Type"); got != "text/plain; charset=utf-8" {
			t.Errorf("%s: Content-Type = %q", method, got)
		}
		if got := recorder.Header().Get("Content-Length"); got != "12" {
			t.Errorf("%s: Content-Length = %q", method, got)
		}
	}
}

func TestServeHTTPDecodesOperand(t *testing.T) {
	table := newTestRoutes(t, nil, Route{Prefix: "/functionType", Handler: echoHandler()})
	recorder := serve(table, http.MethodGet, "/functionType/0x1000/int%20foo(int)")
	if recorder.Body.String() != "operand=0x1000/int foo(int)" {
		t.Errorf("body = %q", recorder.Body.String())
	}
}

func TestServeHTTPUnmatched(t *testing.T) {
	table := newTestRoutes(t, nil, Route{Prefix: "/goto", Handler: echoHandler()})
	if recorder := serve(table, http.MethodGet, "/nothing/here"); recorder.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", recorder.Code)
	}
}

func TestServeHTTPMapsErrors(t *testing.T) {
	failing := HandlerFunc(func(ctx context.Context, operand string) (Response, error) {
		switch operand {
		case "missing":
			return Response{}, newError(KindNotFound, nil, "Function missing not found.")
		case "ambiguous":
			return Response{}, newError(KindAmbiguousType, nil, "2 data types for MyStruct")
		default:
			return Response{}, errors.New("engine exploded")
		}
	})

	tests := []struct {
		operand string
		compat  int
		strict  int
		body    string
	}{
		{"missing", 500, 404, "Function missing not found."},
		{"ambiguous", 500, 409, "2 data types for MyStruct"},
		{"other", 500, 500, "engine exploded"},
	}
	compat := newTestRoutes(t, CompatStatus, Route{Prefix: "/x", Handler: failing})
	strict := newTestRoutes(t, StrictStatus, Route{Prefix: "/x", Handler: failing})
	for _, test := range tests {
		if recorder := serve(compat, http.MethodGet, "/x/"+test.operand); recorder.Code != test.compat || recorder.Body.String() != test.body {
			t.Errorf("compat %s = %d %q", test.operand, recorder.Code, recorder.Body.String())
		}
		if recorder := serve(strict, http.MethodGet, "/x/"+test.operand); recorder.Code != test.strict || recorder.Body.String() != test.body {
			t.Errorf("strict %s = %d %q", test.operand, recorder.Code, recorder.Body.String())
		}
	}
}

func TestServeHTTPRecoversPanics(t *testing.T) {
	panicking := HandlerFunc(func(ctx context.Context, operand string) (Response, error) {
		panic("boom")
	})
	table := newTestRoutes(t, StrictStatus, Route{Prefix: "/x", Handler: panicking})

	recorder := serve(table, http.MethodGet, "/x/y")
	if recorder.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", recorder.Code)
	}
	if recorder.Body.String() != "internal error: boom" {
		t.Errorf("body = %q", recorder.Body.String())
	}
}

func TestAfterWriteRunsAfterBody(t *testing.T) {
	recorder := httptest.NewRecorder()
	var bodyAtHook string
	var flushedAtHook bool
	hooked := HandlerFunc(func(ctx context.Context, operand string) (Response, error) {
		return Response{
			Body: "Stopping server in one second.",
			AfterWrite: func() {
				bodyAtHook = recorder.Body.String()
				flushedAtHook = recorder.Flushed
			},
		}, nil
	})
	table := newTestRoutes(t, nil, Route{Prefix: "/shutdown", Handler: hooked})

	table.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/shutdown", nil))

	if bodyAtHook != "Stopping server in one second." {
		t.Errorf("hook ran before the body was written: saw %q", bodyAtHook)
	}
	if !flushedAtHook {
		t.Error("hook ran before the response was flushed")
	}
}

func TestAfterWriteNotRunOnError(t *testing.T) {
	ran := false
	failing := HandlerFunc(func(ctx context.Context, operand string) (Response, error) {
		return Response{AfterWrite: func() { ran = true }}, errors.New("failed")
	})
	table := newTestRoutes(t, nil, Route{Prefix: "/x", Handler: failing})
	serve(table, http.MethodGet, "/x")
	if ran {
		t.Error("AfterWrite of a failed handler must not run")
	}
}

func TestPrefixes(t *testing.T) {
	table := newTestRoutes(t, nil,
		Route{Prefix: "/b", Handler: echoHandler()},
		Route{Prefix: "/a", Handler: echoHandler()},
	)
	if got := strings.Join(table.Prefixes(), ","); got != "/b,/a" {
		t.Errorf("Prefixes() = %s", got)
	}
}
