// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package netutil

import "syscall"

func deferAcceptControl(network, address string, raw syscall.RawConn) error {
	return nil
}
