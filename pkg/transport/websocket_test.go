// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// newBridge starts a mock WebSocket bridge that echoes binary messages and
// requires Basic auth when user is set.
func newBridge(t *testing.T, user, pass string) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user != "" {
			u, p, ok := r.BasicAuth()
			if !ok || u != user || p != pass {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		// Text frames are ignored by the client
		_ = conn.WriteMessage(websocket.TextMessage, []byte("hello"))
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, data); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWebSocketDialer_Echo(t *testing.T) {
	srv := newBridge(t, "admin", "secret")
	s := NewSession(&WebSocketDialer{URL: wsURL(srv), Username: "admin", Password: "secret"})
	defer s.Close()

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if !s.IsOpen() {
		t.Fatal("IsOpen() = false after Connect")
	}

	if err := s.Write([]byte{0xAA, 0xBB}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	got, err := s.Read(512, time.Second)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(got) != 2 || got[0] != 0xAA || got[1] != 0xBB {
		t.Errorf("Read() = % X, want AA BB", got)
	}
}

func TestWebSocketDialer_AuthRejected(t *testing.T) {
	srv := newBridge(t, "admin", "secret")
	d := &WebSocketDialer{URL: wsURL(srv), Username: "admin", Password: "wrong"}

	_, err := d.Dial(context.Background())
	if err == nil || !strings.Contains(err.Error(), "HTTP 401") {
		t.Errorf("Dial() error = %v, want HTTP 401", err)
	}
}

func TestWebSocketDialer_BadScheme(t *testing.T) {
	d := &WebSocketDialer{URL: "http://example.com/ws"}
	if _, err := d.Dial(context.Background()); err == nil {
		t.Error("Dial() with http:// should fail")
	}
}

func TestWebSocketConn_ClosedByPeer(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.Close()
	}))
	defer srv.Close()

	s := NewSession(&WebSocketDialer{URL: wsURL(srv)})
	defer s.Close()

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	_, err := s.Read(512, time.Second)
	if err == nil {
		t.Fatal("Read() after server close should fail")
	}
	if s.IsOpen() {
		t.Error("IsOpen() = true after read failure")
	}
	if errors.Is(err, ErrTimeout) {
		t.Errorf("Read() error = %v, should not be a timeout", err)
	}
}
