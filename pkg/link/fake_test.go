// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Thermoquad/monsoon/pkg/midea"
	"github.com/Thermoquad/monsoon/pkg/transport"
)

// ============================================================
// Fake appliance
// ============================================================

type replyMode int

const (
	replyNormal replyMode = iota
	replySilent
	replyClose
	replyGarbage
)

const testDeviceID = 151732604967296

// fakeDevice is an in-memory appliance reachable through its Dial method.
type fakeDevice struct {
	mu       sync.Mutex
	state    midea.State
	dialErr  error
	dials    int
	requests int
	lastBody []byte
	next     []replyMode // one-shot reply modes, consumed per request
	delay    time.Duration

	inflight    atomic.Int32
	maxInflight atomic.Int32
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{state: midea.State{
		TargetTemperature: 24,
		OperationalMode:   midea.ModeCool,
		FanSpeed:          midea.FanAuto,
		IndoorTemperature: 26.5,
		Humidity:          40,
		ScreenDisplay:     true,
	}}
}

func (d *fakeDevice) Dial(ctx context.Context) (transport.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if d.dialErr != nil {
		return nil, d.dialErr
	}
	return &fakeConn{dev: d, closed: make(chan struct{})}, nil
}

func (d *fakeDevice) String() string { return "fake-appliance" }

func (d *fakeDevice) setDialErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dialErr = err
}

func (d *fakeDevice) failNext(modes ...replyMode) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.next = append(d.next, modes...)
}

func (d *fakeDevice) counts() (dials, requests int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials, d.requests
}

func (d *fakeDevice) lastRequestBody() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastBody
}

// handle builds the reply to one request packet.
func (d *fakeDevice) handle(req []byte) (replyMode, []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.requests++

	mode := replyNormal
	if len(d.next) > 0 {
		mode = d.next[0]
		d.next = d.next[1:]
	}
	if mode != replyNormal {
		if mode == replyGarbage {
			return mode, []byte{0xDE, 0xAD, 0xBE, 0xEF}
		}
		return mode, nil
	}

	p, err := midea.DecodePacket(req)
	if err != nil {
		return replyGarbage, []byte{0x00}
	}
	d.lastBody = p.Body()
	if p.Type() == midea.MsgSet {
		if next, err := midea.ApplySetBody(d.state, p.Body()); err == nil {
			d.state = next
		}
	}
	reply, _ := midea.EncodeResponse(midea.Response{State: d.state}, p.DeviceID(), p.Type())
	return replyNormal, reply
}

type pendingReply struct {
	mode replyMode
	data []byte
}

type fakeConn struct {
	dev *fakeDevice

	mu       sync.Mutex
	pending  []pendingReply
	deadline time.Time

	closed    chan struct{}
	closeOnce sync.Once
	dead      atomic.Bool
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *fakeConn) Alive() bool { return !c.dead.Load() && !c.isClosed() }

func (c *fakeConn) Write(p []byte) (int, error) {
	if c.isClosed() {
		return 0, net.ErrClosed
	}
	if c.dead.Load() {
		return 0, errors.New("broken pipe")
	}

	n := c.dev.inflight.Add(1)
	for {
		cur := c.dev.maxInflight.Load()
		if n <= cur || c.dev.maxInflight.CompareAndSwap(cur, n) {
			break
		}
	}

	mode, data := c.dev.handle(append([]byte(nil), p...))
	c.mu.Lock()
	c.pending = append(c.pending, pendingReply{mode: mode, data: data})
	c.mu.Unlock()
	return len(p), nil
}

func (c *fakeConn) Read(p []byte) (int, error) {
	c.mu.Lock()
	if len(c.pending) == 0 {
		c.mu.Unlock()
		return 0, io.EOF
	}
	reply := c.pending[0]
	c.pending = c.pending[1:]
	deadline := c.deadline
	c.mu.Unlock()
	defer c.dev.inflight.Add(-1)

	if delay := c.dev.delay; delay > 0 {
		time.Sleep(delay)
	}

	switch reply.mode {
	case replyClose:
		c.dead.Store(true)
		return 0, io.EOF
	case replySilent:
		select {
		case <-time.After(time.Until(deadline)):
			return 0, os.ErrDeadlineExceeded
		case <-c.closed:
			return 0, net.ErrClosed
		}
	default:
		return copy(p, reply.data), nil
	}
}

func (c *fakeConn) SetReadDeadline(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deadline = t
	return nil
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

// ============================================================
// Helpers
// ============================================================

// statusLog records every emitted status.
type statusLog struct {
	mu       sync.Mutex
	statuses []Status
}

func (l *statusLog) record(s Status) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.statuses = append(l.statuses, s)
}

func (l *statusLog) snapshot() []Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Status(nil), l.statuses...)
}

func newTestSupervisor(t *testing.T, dev *fakeDevice, opts ...Option) (*Supervisor, *statusLog) {
	t.Helper()

	reporter := NewReporter(nil, 0)
	log := &statusLog{}
	reporter.Subscribe(log.record)

	opts = append([]Option{
		WithReporter(reporter),
		WithReadTimeout(200 * time.Millisecond),
		WithMonitorInterval(time.Hour, time.Hour),
	}, opts...)

	s := New(transport.NewSession(dev), testDeviceID, opts...)
	t.Cleanup(s.Dispose)
	return s, log
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
