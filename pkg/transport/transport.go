// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package transport provides the byte-level link to an appliance: dialers
// for TCP, WebSocket bridges and UART dongles, and the Session that owns
// the open connection.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// DefaultConnectTimeout bounds every dial.
const DefaultConnectTimeout = 4 * time.Second

// Conn is an open byte stream to an appliance.
type Conn interface {
	io.Reader
	io.Writer
	io.Closer
	SetReadDeadline(t time.Time) error
}

// Dialer opens connections to one endpoint.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
	// String describes the endpoint for logs and status messages.
	String() string
}

// Direction of a tapped frame.
type Direction uint8

const (
	Outbound Direction = iota
	Inbound
)

func (d Direction) String() string {
	if d == Inbound {
		return "rx"
	}
	return "tx"
}

// Tap observes every byte slice written to or read from a session.
type Tap interface {
	Tap(dir Direction, data []byte)
}

// Sentinel errors
var (
	ErrNotOpen = errors.New("session not open")
	ErrNoData  = errors.New("no data received")
	ErrTimeout = errors.New("operation timed out")
)

// Error represents a failure in a session operation.
type Error struct {
	Op   string // "dial", "write", "read"
	Addr string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Timeout reports whether the operation ran out of time.
func (e *Error) Timeout() bool {
	return errors.Is(e.Err, ErrTimeout)
}
