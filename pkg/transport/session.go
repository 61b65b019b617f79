// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Session owns the single connection to an appliance. It is safe for
// concurrent use; callers serialize exchanges themselves.
type Session struct {
	dialer Dialer
	logger *zap.Logger
	tap    Tap

	mu   sync.Mutex
	conn Conn
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *zap.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTap records every frame written and read.
func WithTap(t Tap) SessionOption {
	return func(s *Session) { s.tap = t }
}

// NewSession creates a closed session for dialer.
func NewSession(dialer Dialer, opts ...SessionOption) *Session {
	s := &Session{dialer: dialer, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Endpoint describes the dialed endpoint.
func (s *Session) Endpoint() string {
	return s.dialer.String()
}

func (s *Session) getConn() Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

// Connect dials the endpoint, replacing any previous connection.
func (s *Session) Connect(ctx context.Context) error {
	conn, err := s.dialer.Dial(ctx)
	if err != nil {
		return &Error{Op: "dial", Addr: s.Endpoint(), Err: err}
	}

	s.mu.Lock()
	old := s.conn
	s.conn = conn
	s.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	return nil
}

// Write sends b in full.
func (s *Session) Write(b []byte) error {
	conn := s.getConn()
	if conn == nil {
		return &Error{Op: "write", Addr: s.Endpoint(), Err: ErrNotOpen}
	}
	if s.tap != nil {
		s.tap.Tap(Outbound, b)
	}
	if _, err := conn.Write(b); err != nil {
		return &Error{Op: "write", Addr: s.Endpoint(), Err: err}
	}
	return nil
}

// Read performs a single read of at most size bytes within timeout and
// returns what arrived, trimmed to length. It never returns an empty slice
// without an error.
func (s *Session) Read(size int, timeout time.Duration) ([]byte, error) {
	conn := s.getConn()
	if conn == nil {
		return nil, &Error{Op: "read", Addr: s.Endpoint(), Err: ErrNotOpen}
	}

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, &Error{Op: "read", Addr: s.Endpoint(), Err: err}
	}

	buf := make([]byte, size)
	n, err := conn.Read(buf)
	if n > 0 {
		buf = buf[:n]
		if s.tap != nil {
			s.tap.Tap(Inbound, buf)
		}
		return buf, nil
	}

	switch {
	case err == nil:
		// Serial ports report an expired read timeout as an empty read
		return nil, &Error{Op: "read", Addr: s.Endpoint(), Err: ErrTimeout}
	case isTimeout(err):
		return nil, &Error{Op: "read", Addr: s.Endpoint(), Err: fmt.Errorf("%w: %w", ErrTimeout, err)}
	case errors.Is(err, io.EOF), errors.Is(err, ErrConnectionClosed):
		return nil, &Error{Op: "read", Addr: s.Endpoint(), Err: ErrNoData}
	default:
		return nil, &Error{Op: "read", Addr: s.Endpoint(), Err: err}
	}
}

// Close drops the connection. Closing a closed session is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	if err := conn.Close(); err != nil {
		s.logger.Warn("error closing connection", zap.String("endpoint", s.Endpoint()), zap.Error(err))
		return err
	}
	return nil
}

// HasConn reports whether a connection handle is held, healthy or not.
func (s *Session) HasConn() bool {
	return s.getConn() != nil
}

// IsOpen reports whether a connection is held and the peer has not gone
// away. A TCP socket whose peer reset or half-closed reports false.
func (s *Session) IsOpen() bool {
	conn := s.getConn()
	if conn == nil {
		return false
	}
	if a, ok := conn.(interface{ Alive() bool }); ok {
		return a.Alive()
	}
	return peerAlive(conn)
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
