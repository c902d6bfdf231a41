// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// The bridge schedules its delayed self-stop with [Clock.AfterFunc] and
// the reference analysis engine bounds decompilation with
// [Clock.After]. Both take a Clock so that tests can replace wall time
// with a [FakeClock]:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	server := bridge.NewServer(bridge.Options{Clock: fake, ...})
//	// ... request /shutdown ...
//	fake.WaitForTimers(1)
//	fake.Advance(time.Second)
//
// WaitForTimers closes the race between a goroutine registering a
// timer and the test advancing past it.
package clock
