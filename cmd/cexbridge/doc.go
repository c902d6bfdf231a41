// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Cexbridge runs the loopback control bridge in front of an analysis
// engine and talks to a running bridge from the command line.
//
// "cexbridge serve" loads a program image into the in-memory analysis
// engine and serves /decompile, /goto, /functionType, /globalType and
// /shutdown on 127.0.0.1:10242. The client subcommands (decompile,
// goto, function-type, global-type, shutdown) send one request each
// and print the bridge's answer. "cexbridge image" inspects and
// converts program images.
package main
