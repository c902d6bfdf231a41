// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for cexbridge.
//
// Configuration comes from a single file named by the --config flag
// (via [LoadFile]) or the CEXBRIDGE_CONFIG environment variable (via
// [Load]). With neither, [Default] applies. There is no file discovery.
//
// The file may carry development and production sections that
// override base values when [Config].Environment matches. After
// overrides, ${HOME} and ${VAR:-default} patterns are expanded in path
// fields, and CEXBRIDGE_PORT, when set, replaces server.port. That is
// the only environment variable that overrides a file value; it exists
// so a viewer launcher can pick the control port without editing the
// file.
//
// Key exports:
//
//   - [Config] -- server, analysis, cleanup and log sections
//   - [Default] -- the reference deployment (127.0.0.1:10242, 1s
//     shutdown delay, 5s decompile timeout)
//   - [Load] and [LoadFile] -- the two entry points
//
// This package depends on no other cexbridge packages.
package config
