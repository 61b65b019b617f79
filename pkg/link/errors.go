// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import (
	"errors"
	"fmt"

	"github.com/Thermoquad/monsoon/pkg/transport"
)

// Kind classifies an exchange failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindConnect
	KindWrite
	KindRead
	KindTimeout
	KindNoData
	KindDecode
	KindEncode
	KindNotConnected
	KindConfiguration
	KindCancelled
)

var kindNames = map[Kind]string{
	KindUnknown:       "unknown",
	KindConnect:       "connect",
	KindWrite:         "write",
	KindRead:          "read",
	KindTimeout:       "timeout",
	KindNoData:        "no data",
	KindDecode:        "decode",
	KindEncode:        "encode",
	KindNotConnected:  "not connected",
	KindConfiguration: "configuration",
	KindCancelled:     "cancelled",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Communication reports whether the failure means the session is unusable.
func (k Kind) Communication() bool {
	switch k {
	case KindWrite, KindRead, KindTimeout, KindNoData:
		return true
	}
	return false
}

// Error is a classified exchange failure. Match with errors.Is against the
// Err* sentinels or use KindOf.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Err == nil && t.Kind == e.Kind
}

// Sentinel errors
var (
	ErrConnect       = &Error{Kind: KindConnect}
	ErrWrite         = &Error{Kind: KindWrite}
	ErrRead          = &Error{Kind: KindRead}
	ErrTimeout       = &Error{Kind: KindTimeout}
	ErrNoData        = &Error{Kind: KindNoData}
	ErrDecode        = &Error{Kind: KindDecode}
	ErrEncode        = &Error{Kind: KindEncode}
	ErrNotConnected  = &Error{Kind: KindNotConnected}
	ErrConfiguration = &Error{Kind: KindConfiguration}
	ErrCancelled     = &Error{Kind: KindCancelled}
	ErrDisposed      = errors.New("supervisor disposed")
)

// KindOf returns the kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// classifyRead maps a session read failure to an exchange error.
func classifyRead(err error) *Error {
	switch {
	case errors.Is(err, transport.ErrNoData):
		return &Error{Kind: KindNoData, Err: err}
	case errors.Is(err, transport.ErrTimeout):
		return &Error{Kind: KindTimeout, Err: err}
	default:
		return &Error{Kind: KindRead, Err: err}
	}
}

// statusMessage describes err for the observable status. It is built from
// the kind and endpoint only, so repeated failures of the same kind compare
// equal no matter which local port the connection had.
func statusMessage(err error, endpoint string) string {
	switch KindOf(err) {
	case KindConnect:
		return fmt.Sprintf("Connection to %s failed", endpoint)
	case KindWrite:
		return fmt.Sprintf("Write to %s failed", endpoint)
	case KindTimeout:
		return fmt.Sprintf("Read from %s timed out", endpoint)
	case KindNoData:
		return fmt.Sprintf("No data received from %s", endpoint)
	case KindRead:
		return fmt.Sprintf("Read from %s failed", endpoint)
	default:
		return fmt.Sprintf("Communication with %s failed", endpoint)
	}
}
