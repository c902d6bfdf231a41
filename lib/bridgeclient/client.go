// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package bridgeclient is an HTTP client for a running cexbridge.
// The cexbridge CLI uses it for its client subcommands, and tests use
// it to drive a bridge the way a viewer does.
package bridgeclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/bureau-foundation/cexbridge/lib/netutil"
)

// Client sends requests to one bridge.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// New creates a client for the bridge at address, given as host:port
// or as an http:// URL.
func New(address string) *Client {
	return NewWithHTTPClient(address, &http.Client{})
}

// NewWithHTTPClient creates a client that sends requests through
// httpClient.
func NewWithHTTPClient(address string, httpClient *http.Client) *Client {
	baseURL := address
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}
}

// StatusError is a non-200 bridge response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Body)
}

// Decompile returns the decompiled text of the named function.
func (c *Client) Decompile(ctx context.Context, function string) (string, error) {
	body, err := c.get(ctx, "decompile", function)
	if err != nil {
		return "", fmt.Errorf("decompile %s: %w", function, err)
	}
	return body, nil
}

// GoTo moves the analysis tool's cursor to the named function.
func (c *Client) GoTo(ctx context.Context, function string) error {
	if _, err := c.get(ctx, "goto", function); err != nil {
		return fmt.Errorf("goto %s: %w", function, err)
	}
	return nil
}

// ApplyFunctionType applies a C prototype to the function at target,
// a symbol name or address.
func (c *Client) ApplyFunctionType(ctx context.Context, target, signature string) (string, error) {
	body, err := c.get(ctx, "functionType", target, signature)
	if err != nil {
		return "", fmt.Errorf("functionType %s: %w", target, err)
	}
	return body, nil
}

// ApplyGlobalType applies the named data type to the global at target.
func (c *Client) ApplyGlobalType(ctx context.Context, target, typeName string) (string, error) {
	body, err := c.get(ctx, "globalType", target, typeName)
	if err != nil {
		return "", fmt.Errorf("globalType %s: %w", target, err)
	}
	return body, nil
}

// Shutdown asks the bridge to stop. The bridge answers before it
// stops.
func (c *Client) Shutdown(ctx context.Context) (string, error) {
	body, err := c.get(ctx, "shutdown")
	if err != nil {
		return "", fmt.Errorf("shutdown: %w", err)
	}
	return body, nil
}

// get requests /<route>/<segment>/... with each segment path-escaped.
func (c *Client) get(ctx context.Context, route string, segments ...string) (string, error) {
	path := "/" + route
	for _, segment := range segments {
		path += "/" + url.PathEscape(segment)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return "", err
	}
	response, err := c.httpClient.Do(request)
	if err != nil {
		return "", err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return "", &StatusError{Code: response.StatusCode, Body: netutil.ErrorBody(response.Body)}
	}
	body, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	return string(body), nil
}
