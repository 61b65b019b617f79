// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Thermoquad/monsoon/pkg/link"
	"github.com/Thermoquad/monsoon/pkg/midea"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var _ link.Metrics = (*Collector)(nil)

func TestCollector_Status(t *testing.T) {
	c := New("42")

	if got := testutil.ToFloat64(c.status.WithLabelValues("UNKNOWN")); got != 1 {
		t.Errorf("initial UNKNOWN = %v, want 1", got)
	}

	c.SetStatus(link.Online)
	tests := []struct {
		label string
		want  float64
	}{
		{"UNKNOWN", 0},
		{"ONLINE", 1},
		{"OFFLINE", 0},
	}
	for _, tt := range tests {
		if got := testutil.ToFloat64(c.status.WithLabelValues(tt.label)); got != tt.want {
			t.Errorf("status{%s} = %v, want %v", tt.label, got, tt.want)
		}
	}
}

func TestCollector_Exchanges(t *testing.T) {
	c := New("42")
	c.now = func() time.Time { return time.Unix(1700000000, 0) }

	c.ConnectAttempted(nil)
	c.ConnectAttempted(errors.New("refused"))
	c.ExchangeCompleted(nil, 30*time.Millisecond)
	c.ExchangeCompleted(&link.Error{Kind: link.KindDecode, Err: errors.New("bad crc")}, 0)
	c.ExchangeCompleted(&link.Error{Kind: link.KindTimeout}, 0)

	if got := testutil.ToFloat64(c.connects.WithLabelValues(ResultOK)); got != 1 {
		t.Errorf("connects{ok} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.connects.WithLabelValues(ResultError)); got != 1 {
		t.Errorf("connects{error} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.exchanges.WithLabelValues(ResultError)); got != 2 {
		t.Errorf("exchanges{error} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.decodeErrors); got != 1 {
		t.Errorf("decode errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.lastExchange); got != 1700000000 {
		t.Errorf("last exchange = %v", got)
	}
}

func TestCollector_ResponseDecoded(t *testing.T) {
	c := New("42")
	c.ResponseDecoded(midea.Response{State: midea.State{
		Power:             true,
		TargetTemperature: 22.5,
		OperationalMode:   midea.ModeHeat,
		FanSpeed:          midea.FanMedium,
		IndoorTemperature: 20,
		Humidity:          38,
	}})

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"power", testutil.ToFloat64(c.power), 1},
		{"target", testutil.ToFloat64(c.targetTemp), 22.5},
		{"indoor", testutil.ToFloat64(c.indoorTemp), 20},
		{"humidity", testutil.ToFloat64(c.humidity), 38},
		{"fan", testutil.ToFloat64(c.fanSpeed), 60},
		{"mode HEAT", testutil.ToFloat64(c.mode.WithLabelValues("HEAT")), 1},
		{"mode COOL", testutil.ToFloat64(c.mode.WithLabelValues("COOL")), 0},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestCollector_Handler(t *testing.T) {
	c := New("42")
	c.SetStatus(link.Online)

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	want := `monsoon_status{device_id="42",status="ONLINE"} 1`
	if !strings.Contains(string(body), want) {
		t.Errorf("exposition missing %q:\n%s", want, body)
	}
}

func TestCollector_Lint(t *testing.T) {
	c := New("42")
	problems, err := testutil.GatherAndLint(c.Registry())
	if err != nil {
		t.Fatalf("GatherAndLint() error = %v", err)
	}
	for _, p := range problems {
		t.Errorf("lint: %s: %s", p.Metric, p.Text)
	}
}
