// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package bridge exposes an analysis session to a code-exploration
// viewer over loopback HTTP.
//
// A viewer (a compiler-explorer style tool comparing its own compiler
// output against the decompiled original) drives the analysis tool by
// requesting plain-text URLs:
//
//	GET /decompile/<function>                     decompiled C
//	GET /goto/<function>                          move the cursor
//	GET /functionType/<address-or-symbol>/<proto> retype a function
//	GET /globalType/<address-or-symbol>/<type>    type a global
//	GET /shutdown                                 stop after a delay
//
// Any method is accepted. Every response is text/plain with an exact
// Content-Length.
//
// [Server] owns the listener lifecycle. Start binds a fresh listener,
// stopping the running one first, so at most one instance serves the
// port. Each instance gets its own [RouteTable], built before the
// listener accepts and never modified afterwards.
//
// Endpoint handlers implement [Handler] and report failures as
// [*Error] values carrying a [Kind]. The route table translates kinds
// to status codes through a [StatusTable] in one place; handlers never
// write responses themselves. [CompatStatus] answers every failure
// with 500, which is what existing viewers expect. [StrictStatus]
// separates caller mistakes (4xx) from engine failures (5xx).
//
// /shutdown answers first and stops later: its [Response] carries an
// AfterWrite hook that the route table runs once the body has been
// flushed, and the hook arms a timer on the server's [clock.Clock].
// The timer targets the instance that served the request, so a
// restart in the meantime cancels it.
package bridge
