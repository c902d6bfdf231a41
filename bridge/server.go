// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/bureau-foundation/cexbridge/analysis"
	"github.com/bureau-foundation/cexbridge/analysis/cleanup"
	"github.com/bureau-foundation/cexbridge/lib/clock"
	"github.com/bureau-foundation/cexbridge/lib/netutil"
)

// State is a server lifecycle state.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Options configures a [Server].
type Options struct {
	// Facade is the analysis engine. Required.
	Facade analysis.Facade

	// Host is the interface to bind. Default: 127.0.0.1
	Host string

	// Cleanup post-processes decompiled text. Nil returns it as is.
	Cleanup *cleanup.Pipeline

	// Clock schedules delayed stops. Nil means the real clock.
	Clock clock.Clock

	// Logger receives lifecycle events at Info and per-request events
	// at Debug. Nil means slog.Default().
	Logger *slog.Logger

	// DecompileTimeout bounds each decompilation. Default: 5s
	DecompileTimeout time.Duration

	// ShutdownDelay is the time between answering /shutdown and
	// stopping. Default: 1s
	ShutdownDelay time.Duration

	// ShutdownGrace bounds how long a scheduled stop waits for
	// in-flight requests. Default: 5s
	ShutdownGrace time.Duration

	// ReadHeaderTimeout bounds request header reads. Default: 5s
	ReadHeaderTimeout time.Duration

	// StatusCodes maps error kinds to status codes. Nil means
	// CompatStatus.
	StatusCodes StatusTable
}

// Server owns at most one running bridge instance. Its methods are
// safe for concurrent use; lifecycle transitions are serialized.
type Server struct {
	options Options
	logger  *slog.Logger

	mu       sync.Mutex
	state    State
	current  *instance
	sequence uint64
}

// instance is one listener lifetime, from Start to stop.
type instance struct {
	id       uint64
	listener net.Listener
	server   *http.Server
	routes   *RouteTable

	// served is closed when http.Server.Serve returns.
	served chan struct{}
	// stopped is closed once the instance is fully stopped.
	stopped chan struct{}

	// stopTimer is the pending delayed stop, guarded by Server.mu.
	stopTimer *clock.Timer
}

// NewServer validates options and returns a stopped server.
func NewServer(options Options) (*Server, error) {
	if options.Facade == nil {
		return nil, errors.New("bridge: Facade is required")
	}
	if options.Host == "" {
		options.Host = "127.0.0.1"
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	if options.DecompileTimeout <= 0 {
		options.DecompileTimeout = 5 * time.Second
	}
	if options.ShutdownDelay <= 0 {
		options.ShutdownDelay = time.Second
	}
	if options.ShutdownGrace <= 0 {
		options.ShutdownGrace = 5 * time.Second
	}
	if options.ReadHeaderTimeout <= 0 {
		options.ReadHeaderTimeout = 5 * time.Second
	}
	if options.StatusCodes == nil {
		options.StatusCodes = CompatStatus
	}
	return &Server{options: options, logger: options.Logger}, nil
}

// Start binds host:port and begins serving. A running instance is
// stopped first, so the port is never served twice. Port 0 binds an
// ephemeral port; see [Server.Addr]. On failure the server is left
// stopped.
func (s *Server) Start(ctx context.Context, port int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		s.logger.Info("restarting bridge", "address", s.current.listener.Addr().String())
		s.stopLocked(s.current, s.options.ShutdownGrace)
	}
	s.state = StateStarting

	s.sequence++
	current := &instance{
		id:      s.sequence,
		served:  make(chan struct{}),
		stopped: make(chan struct{}),
	}

	handlers := &endpoints{
		facade:           s.options.Facade,
		cleanup:          s.options.Cleanup,
		decompileTimeout: s.options.DecompileTimeout,
		shutdownDelay:    s.options.ShutdownDelay,
		logger:           s.logger,
		scheduleStop:     func() { s.scheduleStop(current) },
	}
	routes, err := NewRouteTable(handlers.routes(), s.options.StatusCodes, s.options.Clock, s.logger)
	if err != nil {
		s.state = StateStopped
		return fmt.Errorf("bridge: %w", err)
	}
	current.routes = routes

	address := net.JoinHostPort(s.options.Host, strconv.Itoa(port))
	listener, err := netutil.Listen(ctx, address)
	if err != nil {
		s.state = StateStopped
		return fmt.Errorf("bridge: listening on %s: %w", address, err)
	}
	current.listener = listener
	current.server = &http.Server{
		Handler:           routes,
		ReadHeaderTimeout: s.options.ReadHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelDebug),
	}

	go s.serve(current)

	s.current = current
	s.state = StateRunning
	s.logger.Info("bridge started",
		"address", listener.Addr().String(),
		"instance", current.id,
		"routes", routes.Prefixes(),
	)
	return nil
}

func (s *Server) serve(current *instance) {
	defer close(current.served)
	err := current.server.Serve(current.listener)
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return
	}
	s.logger.Error("bridge stopped serving", "instance", current.id, "error", err)
	go s.stopInstance(current, 0)
}

// Stop stops the running instance, waiting up to grace for in-flight
// requests before closing their connections. Stopping a stopped
// server does nothing.
func (s *Server) Stop(grace time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return
	}
	s.stopLocked(s.current, grace)
}

// stopInstance stops current if it is still the running instance.
func (s *Server) stopInstance(current *instance, grace time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != current {
		return
	}
	s.stopLocked(current, grace)
}

func (s *Server) stopLocked(current *instance, grace time.Duration) {
	s.state = StateStopping
	current.stopTimer.Stop()
	current.stopTimer = nil

	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := current.server.Shutdown(ctx); err != nil {
		s.logger.Warn("in-flight requests did not finish, closing connections",
			"instance", current.id,
			"grace", grace,
			"error", err,
		)
		current.server.Close()
	}
	<-current.served

	s.current = nil
	s.state = StateStopped
	close(current.stopped)
	s.logger.Info("bridge stopped", "address", current.listener.Addr().String(), "instance", current.id)
}

// scheduleStop arms the delayed stop of current. It runs on the
// request goroutine, which a concurrent Stop or Start waits for while
// holding s.mu, so the timer is armed on a goroutine of its own.
func (s *Server) scheduleStop(current *instance) {
	go s.armStop(current)
}

// armStop arms the delayed stop of current. A later request re-arms
// it; stopping or replacing the instance cancels it.
func (s *Server) armStop(current *instance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != current {
		return
	}
	current.stopTimer.Stop()
	grace := s.options.ShutdownGrace
	// The stop takes s.mu, which is held here; it must not run on
	// this goroutine.
	current.stopTimer = s.options.Clock.AfterFunc(s.options.ShutdownDelay, func() {
		go s.stopInstance(current, grace)
	})
	s.logger.Info("shutdown requested", "instance", current.id, "delay", s.options.ShutdownDelay)
}

// State returns the lifecycle state.
func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Addr returns the bound address of the running instance, or nil.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	return s.current.listener.Addr()
}

// Done returns a channel closed when the running instance stops.
// Each Start creates a new instance, so callers waiting across a
// restart must call Done again. With nothing running the channel is
// already closed.
func (s *Server) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return s.current.stopped
}
