// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridgeclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

type recordedRequest struct {
	path    string
	rawPath string
}

type recorder struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (r *recorder) all() []recordedRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedRequest(nil), r.requests...)
}

func newRecordingServer(t *testing.T, status int, body string) (*httptest.Server, *recorder) {
	t.Helper()
	recorded := &recorder{}
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		recorded.mu.Lock()
		recorded.requests = append(recorded.requests, recordedRequest{path: request.URL.Path, rawPath: request.URL.EscapedPath()})
		recorded.mu.Unlock()
		writer.WriteHeader(status)
		io.WriteString(writer, body)
	}))
	t.Cleanup(server.Close)
	return server, recorded
}

func TestClientPaths(t *testing.T) {
	server, recorded := newRecordingServer(t, http.StatusOK, "ok")
	client := New(server.URL)
	ctx := context.Background()

	if _, err := client.Decompile(ctx, "sub_8000134"); err != nil {
		t.Fatalf("Decompile: %v", err)
	}
	if err := client.GoTo(ctx, "main"); err != nil {
		t.Fatalf("GoTo: %v", err)
	}
	if _, err := client.ApplyFunctionType(ctx, "0x1000", "int foo(char *name)"); err != nil {
		t.Fatalf("ApplyFunctionType: %v", err)
	}
	if _, err := client.ApplyGlobalType(ctx, "gData", "MyStruct"); err != nil {
		t.Fatalf("ApplyGlobalType: %v", err)
	}
	if _, err := client.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	want := []string{
		"/decompile/sub_8000134",
		"/goto/main",
		"/functionType/0x1000/int foo(char *name)",
		"/globalType/gData/MyStruct",
		"/shutdown",
	}
	requests := recorded.all()
	if len(requests) != len(want) {
		t.Fatalf("got %d requests, want %d", len(requests), len(want))
	}
	for i, request := range requests {
		if request.path != want[i] {
			t.Errorf("request %d path = %q, want %q", i, request.path, want[i])
		}
	}
	if raw := requests[2].rawPath; strings.Contains(raw, " ") {
		t.Errorf("signature was not escaped: %q", raw)
	}
}

func TestClientStatusError(t *testing.T) {
	server, _ := newRecordingServer(t, http.StatusInternalServerError, "Function foo not found.")
	client := New(server.URL)

	_, err := client.Decompile(context.Background(), "foo")
	var statusError *StatusError
	if !errors.As(err, &statusError) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if statusError.Code != 500 || statusError.Body != "Function foo not found." {
		t.Errorf("StatusError = %+v", statusError)
	}
	if !strings.Contains(err.Error(), "decompile foo: HTTP 500: Function foo not found.") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestNewAcceptsHostPort(t *testing.T) {
	server, recorded := newRecordingServer(t, http.StatusOK, "")
	client := New(strings.TrimPrefix(server.URL, "http://"))
	if err := client.GoTo(context.Background(), "main"); err != nil {
		t.Fatalf("GoTo: %v", err)
	}
	if got := len(recorded.all()); got != 1 {
		t.Errorf("expected one request, got %d", got)
	}
}

func TestClientConnectionRefused(t *testing.T) {
	server, _ := newRecordingServer(t, http.StatusOK, "")
	address := server.URL
	server.Close()

	if _, err := New(address).Shutdown(context.Background()); err == nil {
		t.Fatal("expected a connection error")
	}
}
