// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package simulator implements a fake Midea air conditioner that speaks the
// LAN protocol over TCP. It answers status queries, applies set commands and
// can be told to misbehave.
package simulator

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/Thermoquad/monsoon/pkg/midea"
	"go.uber.org/zap"
)

// Fault is a one-shot misbehaviour applied to the next request.
type Fault int

const (
	FaultNone Fault = iota
	// FaultDrop closes the connection without replying.
	FaultDrop
	// FaultSilent reads the request and never replies.
	FaultSilent
	// FaultGarbage replies with bytes that do not decode.
	FaultGarbage
)

func (f Fault) String() string {
	switch f {
	case FaultNone:
		return "none"
	case FaultDrop:
		return "drop"
	case FaultSilent:
		return "silent"
	case FaultGarbage:
		return "garbage"
	default:
		return fmt.Sprintf("fault(%d)", int(f))
	}
}

// ParseFault returns the fault with the given name.
func ParseFault(name string) (Fault, error) {
	for f := FaultNone; f <= FaultGarbage; f++ {
		if f.String() == name {
			return f, nil
		}
	}
	return FaultNone, fmt.Errorf("unknown fault %q (use none, drop, silent or garbage)", name)
}

// DefaultState is the state a new simulator starts in.
var DefaultState = midea.State{
	Power:              false,
	TargetTemperature:  24,
	OperationalMode:    midea.ModeCool,
	FanSpeed:           midea.FanAuto,
	SwingMode:          midea.SwingOff,
	IndoorTemperature:  26.5,
	OutdoorTemperature: 31,
	Humidity:           45,
	ScreenDisplay:      true,
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithLogger sets the simulator logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Simulator) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithState sets the initial appliance state.
func WithState(st midea.State) Option {
	return func(s *Simulator) { s.state = st }
}

// Simulator is a fake appliance. It serves any number of connections but
// handles one request at a time across all of them.
type Simulator struct {
	deviceID uint64
	logger   *zap.Logger

	mu       sync.Mutex
	state    midea.State
	faults   []Fault
	requests int
	accepted int
	conns    map[net.Conn]struct{}

	ln   net.Listener
	wg   sync.WaitGroup
	done chan struct{}
}

// New creates a simulator answering as deviceID.
func New(deviceID uint64, opts ...Option) *Simulator {
	s := &Simulator{
		deviceID: deviceID,
		logger:   zap.NewNop(),
		state:    DefaultState,
		conns:    make(map[net.Conn]struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Listen binds addr ("127.0.0.1:0" for an ephemeral port) and starts
// serving in the background until ctx is done or Close is called.
func (s *Simulator) Listen(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	s.ln = ln
	s.logger.Info("simulator listening",
		zap.String("addr", ln.Addr().String()),
		zap.Uint64("device_id", s.deviceID))

	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.done:
		}
	}()

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Addr returns the bound address. Only valid after Listen.
func (s *Simulator) Addr() *net.TCPAddr {
	return s.ln.Addr().(*net.TCPAddr)
}

// Close stops the listener and drops every connection.
func (s *Simulator) Close() error {
	s.mu.Lock()
	select {
	case <-s.done:
		s.mu.Unlock()
		return nil
	default:
	}
	close(s.done)
	var err error
	if s.ln != nil {
		err = s.ln.Close()
	}
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	return err
}

// State returns the current appliance state.
func (s *Simulator) State() midea.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetState replaces the appliance state, e.g. to change a sensor reading.
func (s *Simulator) SetState(st midea.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
}

// Inject queues faults for the next requests, one per request.
func (s *Simulator) Inject(faults ...Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = append(s.faults, faults...)
}

// Requests returns the number of requests received.
func (s *Simulator) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

// Accepted returns the number of connections accepted.
func (s *Simulator) Accepted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accepted
}

// DropConnections closes every open connection without stopping the listener.
func (s *Simulator) DropConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		c.Close()
	}
}

func (s *Simulator) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.done:
			default:
				s.logger.Warn("accept failed", zap.Error(err))
			}
			return
		}

		s.mu.Lock()
		select {
		case <-s.done:
			s.mu.Unlock()
			conn.Close()
			return
		default:
		}
		s.conns[conn] = struct{}{}
		s.accepted++
		s.mu.Unlock()

		s.logger.Debug("connection accepted", zap.String("remote", conn.RemoteAddr().String()))
		s.wg.Add(1)
		go s.serveConn(conn)
	}
}

func (s *Simulator) serveConn(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	for {
		req, err := readPacket(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				s.logger.Debug("read failed", zap.Error(err))
			}
			return
		}

		fault, reply := s.handle(req)
		switch fault {
		case FaultDrop:
			s.logger.Debug("dropping connection")
			return
		case FaultSilent:
			s.logger.Debug("ignoring request")
			continue
		case FaultGarbage:
			reply = []byte{0x5A, 0x5A, 0xFF, 0xFF}
		}
		if reply == nil {
			continue
		}
		if _, err := conn.Write(reply); err != nil {
			s.logger.Debug("write failed", zap.Error(err))
			return
		}
	}
}

// handle applies one request and returns the pending fault and the reply.
func (s *Simulator) handle(req []byte) (Fault, []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests++

	fault := FaultNone
	if len(s.faults) > 0 {
		fault = s.faults[0]
		s.faults = s.faults[1:]
	}
	if fault != FaultNone {
		return fault, nil
	}

	p, err := midea.DecodePacket(req)
	if err != nil {
		s.logger.Debug("undecodable request", zap.Error(err))
		return FaultNone, nil
	}
	if p.DeviceID() != s.deviceID {
		s.logger.Debug("request for another device", zap.Uint64("device_id", p.DeviceID()))
		return FaultNone, nil
	}

	switch p.Type() {
	case midea.MsgSet:
		next, err := midea.ApplySetBody(s.state, p.Body())
		if err != nil {
			s.logger.Debug("invalid set command", zap.Error(err))
			return FaultNone, nil
		}
		s.state = next
		s.logger.Debug("state changed", zap.String("state", midea.FormatState(next)))
	case midea.MsgQuery:
	default:
		s.logger.Debug("unsupported message type", zap.Uint8("type", p.Type()))
		return FaultNone, nil
	}

	reply, err := midea.EncodeResponse(midea.Response{State: s.state}, s.deviceID, p.Type())
	if err != nil {
		s.logger.Warn("failed to encode reply", zap.Error(err))
		return FaultNone, nil
	}
	return FaultNone, reply
}

// readPacket reads one LAN envelope using the length in its header.
func readPacket(r io.Reader) ([]byte, error) {
	header := make([]byte, 6)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	if binary.BigEndian.Uint16(header[0:2]) != midea.EnvelopeMagic {
		return nil, fmt.Errorf("invalid envelope magic: % X", header[0:2])
	}
	total := int(binary.LittleEndian.Uint16(header[4:6]))
	if total < midea.EnvelopeHeaderSize+midea.EnvelopeCRCSize || total > midea.MaxPacketSize {
		return nil, fmt.Errorf("invalid envelope length: %d", total)
	}
	packet := make([]byte, total)
	copy(packet, header)
	if _, err := io.ReadFull(r, packet[6:]); err != nil {
		return nil, err
	}
	return packet, nil
}
