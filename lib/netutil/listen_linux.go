// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"syscall"

	"golang.org/x/sys/unix"
)

func deferAcceptControl(network, address string, raw syscall.RawConn) error {
	var sockoptErr error
	err := raw.Control(func(fd uintptr) {
		sockoptErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_DEFER_ACCEPT, DeferAcceptSeconds)
	})
	if err != nil {
		return err
	}
	return sockoptErr
}
