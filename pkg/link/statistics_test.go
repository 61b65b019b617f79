// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Thermoquad/monsoon/pkg/midea"
)

func TestStatistics_Update(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(*Statistics) uint64
	}{
		{"timeout", &Error{Kind: KindTimeout}, func(s *Statistics) uint64 { return s.Timeouts }},
		{"no data", &Error{Kind: KindNoData}, func(s *Statistics) uint64 { return s.NoData }},
		{"decode", &Error{Kind: KindDecode}, func(s *Statistics) uint64 { return s.DecodeErrors }},
		{"connect", &Error{Kind: KindConnect}, func(s *Statistics) uint64 { return s.ConnectErrors }},
		{"not connected", ErrNotConnected, func(s *Statistics) uint64 { return s.ConnectErrors }},
		{"write", &Error{Kind: KindWrite}, func(s *Statistics) uint64 { return s.IOErrors }},
		{"unclassified", errors.New("boom"), func(s *Statistics) uint64 { return s.IOErrors }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStatistics()
			s.Update(tt.err, nil)
			if got := tt.check(s); got != 1 {
				t.Errorf("counter = %d, want 1", got)
			}
			if s.Errors() != 1 || s.ValidResponses != 0 {
				t.Errorf("Errors() = %d, ValidResponses = %d", s.Errors(), s.ValidResponses)
			}
		})
	}
}

func TestStatistics_Anomalies(t *testing.T) {
	s := NewStatistics()
	s.Update(nil, nil)
	s.Update(nil, []midea.ValidationError{
		{Type: midea.AnomalyInvalidTemp},
		{Type: midea.AnomalyApplianceError},
	})

	if s.TotalExchanges != 2 || s.ValidResponses != 1 || s.Anomalous != 1 {
		t.Errorf("total=%d valid=%d anomalous=%d", s.TotalExchanges, s.ValidResponses, s.Anomalous)
	}
	if s.ByAnomaly[midea.AnomalyInvalidTemp] != 1 || s.ByAnomaly[midea.AnomalyApplianceError] != 1 {
		t.Errorf("ByAnomaly = %v", s.ByAnomaly)
	}
}

func TestStatistics_String(t *testing.T) {
	start := time.Unix(1700000000, 0)
	clock := start
	s := &Statistics{now: func() time.Time { return clock }}
	s.Reset()

	s.Update(nil, nil)
	s.Update(nil, nil)
	s.Update(&Error{Kind: KindTimeout}, nil)
	s.Update(nil, []midea.ValidationError{{Type: midea.AnomalyInvalidHumidity}})
	clock = start.Add(2 * time.Second)

	out := s.String()
	for _, want := range []string{
		"=== Statistics (2 seconds) ===",
		"Total Exchanges:        4",
		"Valid Responses:        2 (50.0%)",
		"Timeouts:               1 (25.0%)",
		"Invalid Humidity:",
		"Exchange Rate:       2.00 /sec",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("String() missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Decode Errors") {
		t.Errorf("String() shows zero counters:\n%s", out)
	}
}

func TestStatistics_Reset(t *testing.T) {
	s := NewStatistics()
	s.Update(&Error{Kind: KindDecode}, nil)
	s.Update(nil, []midea.ValidationError{{Type: midea.AnomalyInvalidMode}})
	s.Reset()

	if s.TotalExchanges != 0 || s.Errors() != 0 || len(s.ByAnomaly) != 0 {
		t.Errorf("after Reset: %+v", s)
	}
	s.Update(nil, []midea.ValidationError{{Type: midea.AnomalyInvalidMode}})
	if s.ByAnomaly[midea.AnomalyInvalidMode] != 1 {
		t.Error("ByAnomaly not usable after Reset")
	}
}
