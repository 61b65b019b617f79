// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"context"
	"errors"
	"net"
	"runtime"
	"sync"
	"testing"
	"time"
)

// ============================================================
// Test Helpers
// ============================================================

// startServer listens on a loopback port and runs handle for each accepted
// connection.
func startServer(t *testing.T, handle func(net.Conn)) *TCPDialer {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go handle(conn)
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return NewTCPDialer("127.0.0.1", addr.Port)
}

func echo(conn net.Conn) {
	defer conn.Close()
	buf := make([]byte, 512)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			return
		}
		if _, err := conn.Write(buf[:n]); err != nil {
			return
		}
	}
}

type recordTap struct {
	mu     sync.Mutex
	frames []Direction
}

func (r *recordTap) Tap(dir Direction, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, dir)
}

// ============================================================
// Session Tests
// ============================================================

func TestSession_WriteRead(t *testing.T) {
	tap := &recordTap{}
	s := NewSession(startServer(t, echo), WithTap(tap))
	defer s.Close()

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if !s.IsOpen() {
		t.Fatal("IsOpen() = false after Connect")
	}

	if err := s.Write([]byte{0x5A, 0x5A, 0x01}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	got, err := s.Read(512, time.Second)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(got) != 3 || got[0] != 0x5A || got[2] != 0x01 {
		t.Errorf("Read() = % X, want 5A 5A 01", got)
	}

	tap.mu.Lock()
	defer tap.mu.Unlock()
	if len(tap.frames) != 2 || tap.frames[0] != Outbound || tap.frames[1] != Inbound {
		t.Errorf("tap frames = %v, want [tx rx]", tap.frames)
	}
}

func TestSession_ConnectRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	s := NewSession(NewTCPDialer("127.0.0.1", port))
	err = s.Connect(context.Background())
	if err == nil {
		t.Fatal("Connect() to closed port should fail")
	}

	var terr *Error
	if !errors.As(err, &terr) || terr.Op != "dial" {
		t.Errorf("Connect() error = %v, want *Error with Op dial", err)
	}
	if s.HasConn() {
		t.Error("HasConn() = true after failed Connect")
	}
}

func TestSession_ReadTimeout(t *testing.T) {
	s := NewSession(startServer(t, func(conn net.Conn) {
		time.Sleep(time.Second)
		conn.Close()
	}))
	defer s.Close()

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	start := time.Now()
	_, err := s.Read(512, 50*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Read() error = %v, want ErrTimeout", err)
	}
	var terr *Error
	if !errors.As(err, &terr) || !terr.Timeout() {
		t.Errorf("Timeout() = false for %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Read() took %v, want about 50ms", elapsed)
	}
}

func TestSession_ReadPeerClosed(t *testing.T) {
	s := NewSession(startServer(t, func(conn net.Conn) { conn.Close() }))
	defer s.Close()

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	_, err := s.Read(512, time.Second)
	if !errors.Is(err, ErrNoData) {
		t.Errorf("Read() error = %v, want ErrNoData", err)
	}
}

func TestSession_NotOpen(t *testing.T) {
	s := NewSession(NewTCPDialer("127.0.0.1", 1))

	if err := s.Write([]byte{1}); !errors.Is(err, ErrNotOpen) {
		t.Errorf("Write() error = %v, want ErrNotOpen", err)
	}
	if _, err := s.Read(16, time.Millisecond); !errors.Is(err, ErrNotOpen) {
		t.Errorf("Read() error = %v, want ErrNotOpen", err)
	}
	if s.IsOpen() {
		t.Error("IsOpen() = true on a new session")
	}
}

func TestSession_CloseIdempotent(t *testing.T) {
	s := NewSession(startServer(t, echo))
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if err := s.Close(); err != nil {
		t.Errorf("first Close() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if s.IsOpen() || s.HasConn() {
		t.Error("session still open after Close")
	}
}

func TestSession_IsOpenDetectsPeerClose(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("half-open detection needs MSG_PEEK")
	}

	s := NewSession(startServer(t, func(conn net.Conn) { conn.Close() }))
	defer s.Close()

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for s.IsOpen() {
		if time.Now().After(deadline) {
			t.Fatal("IsOpen() still true after peer closed")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !s.HasConn() {
		t.Error("IsOpen() must not drop the handle")
	}
}

func TestSession_IsOpenWithPendingData(t *testing.T) {
	s := NewSession(startServer(t, func(conn net.Conn) {
		conn.Write([]byte{0x01})
		time.Sleep(time.Second)
		conn.Close()
	}))
	defer s.Close()

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if !s.IsOpen() {
		t.Error("IsOpen() = false with unread data pending")
	}
	// The peek must not consume the pending byte
	got, err := s.Read(8, time.Second)
	if err != nil || len(got) != 1 {
		t.Errorf("Read() = % X, %v, want 01", got, err)
	}
}
