// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"context"
	"fmt"
	"net"
)

// DeferAcceptSeconds is how long the kernel holds a new connection
// that has sent no data before handing it to Accept, where supported.
const DeferAcceptSeconds = 5

// Listen binds a TCP listener on address. On Linux the listener sets
// TCP_DEFER_ACCEPT, so a client that connects and never writes a
// request does not occupy a server goroutine.
func Listen(ctx context.Context, address string) (net.Listener, error) {
	config := net.ListenConfig{Control: deferAcceptControl}
	listener, err := config.Listen(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", address, err)
	}
	return listener, nil
}
