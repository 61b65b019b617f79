// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package link keeps a persistent connection to one appliance: it owns the
// connect/disconnect lifecycle, runs one request/response exchange at a
// time, polls the appliance from a background monitor and reports an
// observable online/offline status.
package link

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Thermoquad/monsoon/pkg/midea"
	"github.com/Thermoquad/monsoon/pkg/transport"
	"go.uber.org/zap"
)

// Supervisor manages the session to a single appliance.
//
// Lock order is exchangeMu, then lifecycleMu. The monitor handle has its
// own lock and is never held across I/O.
type Supervisor struct {
	session  *transport.Session
	deviceID uint64
	reporter *Reporter
	logger   *zap.Logger
	metrics  Metrics

	promptTone    bool
	readTimeout   time.Duration
	monitorDelay  time.Duration
	monitorPeriod time.Duration
	onResponse    func(midea.Response)

	lifecycleMu sync.Mutex
	exchangeMu  sync.Mutex

	monitorMu sync.Mutex
	monitor   *monitorJob

	disposed atomic.Bool
	last     atomic.Pointer[midea.Response]
}

// New creates a disconnected supervisor for the appliance behind session.
func New(session *transport.Session, deviceID uint64, opts ...Option) *Supervisor {
	s := &Supervisor{
		session:       session,
		deviceID:      deviceID,
		logger:        zap.NewNop(),
		metrics:       noopMetrics{},
		readTimeout:   DefaultReadTimeout,
		monitorDelay:  DefaultMonitorDelay,
		monitorPeriod: DefaultMonitorPeriod,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.reporter == nil {
		s.reporter = NewReporter(s.logger, DefaultStatusHold)
	}
	s.logger = s.logger.With(zap.String("endpoint", session.Endpoint()))
	return s
}

// Reporter returns the status reporter.
func (s *Supervisor) Reporter() *Reporter { return s.reporter }

// Status returns the current observable status.
func (s *Supervisor) Status() Status { return s.reporter.Status() }

// IsConnected reports whether the session is open and the peer is still there.
func (s *Supervisor) IsConnected() bool { return s.session.IsOpen() }

// LastResponse returns a copy of the most recent decoded response. ok is
// false until the first exchange succeeds.
func (s *Supervisor) LastResponse() (r midea.Response, ok bool) {
	p := s.last.Load()
	if p == nil {
		return midea.Response{}, false
	}
	return *p, true
}

// Connect opens the session if it is not already open, reports Online and
// requests an initial status. It is a no-op when already connected.
func (s *Supervisor) Connect(ctx context.Context) error {
	return s.connect(ctx, ctx)
}

// connect dials with dialCtx and runs the initial status request with
// statusCtx. The monitor passes a status context that its own cancellation
// does not reach, because the status request restarts the monitor.
func (s *Supervisor) connect(dialCtx, statusCtx context.Context) error {
	opened, err := s.open(dialCtx)
	if err != nil || !opened {
		return err
	}
	s.reporter.MarkOnline()
	_, err = s.RequestStatus(statusCtx, true)
	return err
}

// open performs the Disconnected -> Connected transition without any
// exchange. opened is false when the session was already open.
func (s *Supervisor) open(ctx context.Context) (opened bool, err error) {
	if s.disposed.Load() {
		return false, ErrDisposed
	}

	s.lifecycleMu.Lock()
	if s.disposed.Load() {
		s.lifecycleMu.Unlock()
		return false, ErrDisposed
	}
	if s.session.IsOpen() {
		s.lifecycleMu.Unlock()
		return false, nil
	}
	if s.session.HasConn() {
		s.logger.Debug("dropping dead connection before reconnect")
		_ = s.session.Close()
	}
	s.logger.Debug("connecting")
	err = s.session.Connect(ctx)
	if err != nil {
		_ = s.session.Close()
	}
	s.lifecycleMu.Unlock()

	s.metrics.ConnectAttempted(err)
	if err != nil {
		connErr := &Error{Kind: KindConnect, Err: err}
		s.logger.Debug("connect failed", zap.Error(err))
		s.reporter.MarkOfflineWithMessage(DetailCommunicationError, statusMessage(connErr, s.session.Endpoint()))
		return false, connErr
	}

	s.logger.Info("connected")
	return true, nil
}

// Disconnect stops the monitor, closes the session and reports Offline.
// It is a no-op when already disconnected.
func (s *Supervisor) Disconnect() {
	s.cancelMonitor()

	s.lifecycleMu.Lock()
	if !s.session.HasConn() {
		s.lifecycleMu.Unlock()
		return
	}
	s.logger.Debug("disconnecting")
	_ = s.session.Close()
	s.lifecycleMu.Unlock()

	s.reporter.MarkOffline()
}

// teardown drops the session after a communication failure. The monitor
// keeps running so it can reconnect.
func (s *Supervisor) teardown(cause error) {
	s.reporter.MarkOfflineWithMessage(DetailCommunicationError, statusMessage(cause, s.session.Endpoint()))

	s.lifecycleMu.Lock()
	_ = s.session.Close()
	s.lifecycleMu.Unlock()
}

// SendCommandAndMonitor stops the monitor, runs one exchange and restarts
// the monitor whatever the outcome.
func (s *Supervisor) SendCommandAndMonitor(ctx context.Context, cmd midea.Command) (midea.Response, error) {
	s.cancelMonitor()
	defer s.scheduleMonitor()
	return s.send(ctx, cmd)
}

// RequestStatus queries the appliance. With restartMonitor the query goes
// through SendCommandAndMonitor; without it the monitor is left alone.
func (s *Supervisor) RequestStatus(ctx context.Context, restartMonitor bool) (midea.Response, error) {
	cmd := midea.NewStatusRequest()
	if restartMonitor {
		return s.SendCommandAndMonitor(ctx, cmd)
	}
	return s.send(ctx, cmd)
}

// Dispose stops the monitor for good and closes the session. Safe to call
// more than once and before Connect.
func (s *Supervisor) Dispose() {
	if s.disposed.Swap(true) {
		return
	}
	s.cancelMonitor()

	s.lifecycleMu.Lock()
	_ = s.session.Close()
	s.lifecycleMu.Unlock()
	s.logger.Debug("disposed")
}

func (s *Supervisor) send(ctx context.Context, cmd midea.Command) (midea.Response, error) {
	s.exchangeMu.Lock()
	defer s.exchangeMu.Unlock()
	return s.exchange(ctx, cmd)
}

// exchange runs one write/read/decode cycle. The caller holds exchangeMu.
func (s *Supervisor) exchange(ctx context.Context, cmd midea.Command) (midea.Response, error) {
	if err := ctx.Err(); err != nil {
		return midea.Response{}, &Error{Kind: KindCancelled, Err: err}
	}

	if pt, ok := cmd.(midea.PromptToner); ok {
		pt.SetPromptTone(s.promptTone)
	}
	packet, err := midea.Encode(cmd, s.deviceID)
	if err != nil {
		return midea.Response{}, &Error{Kind: KindEncode, Err: err}
	}

	if !s.session.IsOpen() {
		s.logger.Debug("no connection, reconnecting before send")
		if _, err := s.open(ctx); err != nil {
			return midea.Response{}, &Error{Kind: KindNotConnected, Err: err}
		}
	}

	start := time.Now()
	resp, err := s.roundTrip(packet)
	s.metrics.ExchangeCompleted(err, time.Since(start))

	if err != nil {
		kind := KindOf(err)
		if kind.Communication() {
			s.logger.Debug("exchange failed", zap.Stringer("kind", kind), zap.Error(err))
			s.teardown(err)
		} else {
			s.logger.Warn("discarding response", zap.Error(err))
		}
		return midea.Response{}, err
	}

	s.last.Store(&resp)
	s.reporter.MarkOnline()
	s.metrics.ResponseDecoded(resp)
	if s.onResponse != nil {
		s.onResponse(resp)
	}
	return resp, nil
}

func (s *Supervisor) roundTrip(packet []byte) (midea.Response, error) {
	s.logger.Debug("writing", zap.Int("bytes", len(packet)))
	if err := s.session.Write(packet); err != nil {
		return midea.Response{}, &Error{Kind: KindWrite, Err: err}
	}

	data, err := s.session.Read(readBufferSize, s.readTimeout)
	if err != nil {
		return midea.Response{}, classifyRead(err)
	}
	s.logger.Debug("response received", zap.Int("bytes", len(data)))

	resp, err := midea.DecodeResponse(data)
	if err != nil {
		return midea.Response{}, &Error{Kind: KindDecode, Err: err}
	}
	return resp, nil
}

// IsCommunicationError reports whether err tore down the session.
func IsCommunicationError(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind.Communication()
}
