// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// pattern so that tests never block forever on a channel that a broken
// implementation fails to signal. They are the only place tests touch
// wall-clock time; everything else goes through lib/clock.
//
// Helpers call t.Fatalf on failure rather than returning errors.
package testutil
