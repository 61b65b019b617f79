// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import (
	"time"

	"github.com/Thermoquad/monsoon/pkg/midea"
	"go.uber.org/zap"
)

// Defaults
const (
	DefaultReadTimeout   = 4 * time.Second
	DefaultMonitorDelay  = 10 * time.Second
	DefaultMonitorPeriod = 10 * time.Second

	readBufferSize = 512
)

// Metrics receives supervisor events. Implementations must be safe for
// concurrent use.
type Metrics interface {
	ConnectAttempted(err error)
	ExchangeCompleted(err error, elapsed time.Duration)
	ResponseDecoded(r midea.Response)
}

type noopMetrics struct{}

func (noopMetrics) ConnectAttempted(error) {}
func (noopMetrics) ExchangeCompleted(error, time.Duration) {}
func (noopMetrics) ResponseDecoded(midea.Response) {}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithLogger sets the supervisor logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Supervisor) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(s *Supervisor) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithReporter shares an existing status reporter.
func WithReporter(r *Reporter) Option {
	return func(s *Supervisor) {
		if r != nil {
			s.reporter = r
		}
	}
}

// WithPromptTone makes set commands ask the appliance to beep.
func WithPromptTone(on bool) Option {
	return func(s *Supervisor) { s.promptTone = on }
}

// WithReadTimeout bounds the wait for a reply.
func WithReadTimeout(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.readTimeout = d
		}
	}
}

// WithMonitorInterval sets the monitor's initial delay and the fixed delay
// between runs.
func WithMonitorInterval(delay, period time.Duration) Option {
	return func(s *Supervisor) {
		if delay > 0 {
			s.monitorDelay = delay
		}
		if period > 0 {
			s.monitorPeriod = period
		}
	}
}

// WithResponseHandler is called with every successfully decoded response,
// after it has been stored.
func WithResponseHandler(fn func(midea.Response)) Option {
	return func(s *Supervisor) { s.onResponse = fn }
}
