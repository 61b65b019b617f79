// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// monitorJob is one scheduled run of the connection monitor.
type monitorJob struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// MonitorActive reports whether a monitor job is scheduled.
func (s *Supervisor) MonitorActive() bool {
	s.monitorMu.Lock()
	defer s.monitorMu.Unlock()
	return s.monitor != nil
}

// StartMonitor schedules the connection monitor without an exchange, so
// that a supervisor whose first Connect failed keeps retrying.
func (s *Supervisor) StartMonitor() { s.scheduleMonitor() }

// scheduleMonitor starts the monitor unless one is already scheduled or the
// supervisor is disposed.
func (s *Supervisor) scheduleMonitor() {
	s.monitorMu.Lock()
	defer s.monitorMu.Unlock()

	if s.monitor != nil || s.disposed.Load() {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	job := &monitorJob{cancel: cancel, done: make(chan struct{})}
	s.monitor = job

	s.logger.Debug("starting connection monitor",
		zap.Duration("delay", s.monitorDelay), zap.Duration("period", s.monitorPeriod))
	go s.runMonitor(ctx, job)
}

// cancelMonitor clears the handle and cancels the job. A run already in
// its exchange finishes; a run not yet started is dropped.
func (s *Supervisor) cancelMonitor() {
	s.monitorMu.Lock()
	job := s.monitor
	s.monitor = nil
	s.monitorMu.Unlock()

	if job != nil {
		s.logger.Debug("cancelling connection monitor")
		job.cancel()
	}
}

// runMonitor waits the initial delay, then runs checkConnection with a
// fixed delay between the end of one run and the start of the next.
func (s *Supervisor) runMonitor(ctx context.Context, job *monitorJob) {
	defer close(job.done)

	timer := time.NewTimer(s.monitorDelay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		s.checkConnection(ctx)

		if ctx.Err() != nil {
			return
		}
		timer.Reset(s.monitorPeriod)
	}
}

func (s *Supervisor) checkConnection(ctx context.Context) {
	if !s.session.IsOpen() {
		s.logger.Debug("connection check failed, reconnecting")
		_ = s.connect(ctx, context.WithoutCancel(ctx))
		return
	}

	s.logger.Debug("connection check ok, requesting status")
	_, _ = s.RequestStatus(ctx, false)
}
