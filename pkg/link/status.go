// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultStatusHold is how long Unknown is shown before a changed offline
// reason is surfaced.
const DefaultStatusHold = 250 * time.Millisecond

// StatusKind is the coarse observable state.
type StatusKind int

const (
	StatusUnknown StatusKind = iota
	StatusOnline
	StatusOffline
)

func (k StatusKind) String() string {
	switch k {
	case StatusOnline:
		return "ONLINE"
	case StatusOffline:
		return "OFFLINE"
	default:
		return "UNKNOWN"
	}
}

// Detail qualifies an offline status.
type Detail int

const (
	DetailNone Detail = iota
	DetailCommunicationError
	DetailConfigurationError
)

func (d Detail) String() string {
	switch d {
	case DetailCommunicationError:
		return "COMMUNICATION_ERROR"
	case DetailConfigurationError:
		return "CONFIGURATION_ERROR"
	default:
		return "NONE"
	}
}

// Status is what observers see.
type Status struct {
	Kind    StatusKind
	Detail  Detail
	Message string
}

// Online is the Online status.
var Online = Status{Kind: StatusOnline}

// Offline returns an offline status with the given reason.
func Offline(detail Detail, message string) Status {
	return Status{Kind: StatusOffline, Detail: detail, Message: message}
}

func (s Status) String() string {
	if s.Kind != StatusOffline || s.Detail == DetailNone {
		return s.Kind.String()
	}
	if s.Message == "" {
		return fmt.Sprintf("%s(%s)", s.Kind, s.Detail)
	}
	return fmt.Sprintf("%s(%s): %s", s.Kind, s.Detail, s.Message)
}

// StatusListener receives every emitted status. Listeners run on the
// emitting goroutine and must not call back into the Reporter.
type StatusListener func(Status)

// Reporter holds the observable status and debounces offline transitions.
type Reporter struct {
	logger *zap.Logger
	hold   time.Duration
	sleep  func(time.Duration)

	// emitMu orders whole transitions, including the Unknown hold
	emitMu sync.Mutex

	mu        sync.Mutex
	status    Status
	listeners []StatusListener
}

// NewReporter creates a reporter in the Unknown state.
func NewReporter(logger *zap.Logger, hold time.Duration) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if hold < 0 {
		hold = 0
	}
	return &Reporter{logger: logger, hold: hold, sleep: time.Sleep}
}

// Status returns the current status.
func (r *Reporter) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Subscribe registers l for future emissions.
func (r *Reporter) Subscribe(l StatusListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

// Set emits s unconditionally.
func (r *Reporter) Set(s Status) {
	r.emitMu.Lock()
	defer r.emitMu.Unlock()
	r.emit(s)
}

// MarkOnline emits Online unless already online.
func (r *Reporter) MarkOnline() {
	r.emitMu.Lock()
	defer r.emitMu.Unlock()

	current := r.Status()
	if current.Kind == StatusOnline {
		return
	}
	r.logger.Debug("status change", zap.Stringer("from", current), zap.Stringer("to", Online))
	r.emit(Online)
}

// MarkOffline emits a plain Offline, but only when currently online.
func (r *Reporter) MarkOffline() {
	r.emitMu.Lock()
	defer r.emitMu.Unlock()

	current := r.Status()
	if current.Kind != StatusOnline {
		return
	}
	next := Status{Kind: StatusOffline}
	r.logger.Debug("status change", zap.Stringer("from", current), zap.Stringer("to", next))
	r.emit(next)
}

// MarkOfflineWithMessage surfaces an offline reason. Repeating the current
// reason emits nothing; a new reason passes through Unknown first.
func (r *Reporter) MarkOfflineWithMessage(detail Detail, message string) {
	r.emitMu.Lock()
	defer r.emitMu.Unlock()

	current := r.Status()
	next := Offline(detail, message)
	if current.Kind == StatusOffline && current.Detail != DetailNone &&
		current.Detail == detail && current.Message == message {
		return
	}

	r.logger.Debug("status change", zap.Stringer("from", current), zap.Stringer("to", next))
	r.emit(Status{Kind: StatusUnknown})
	if r.hold > 0 {
		r.sleep(r.hold)
	}
	r.emit(next)
}

func (r *Reporter) emit(s Status) {
	r.mu.Lock()
	r.status = s
	listeners := append([]StatusListener(nil), r.listeners...)
	r.mu.Unlock()

	for _, l := range listeners {
		l(s)
	}
}
