// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import (
	"fmt"
	"strings"
	"time"

	"github.com/Thermoquad/monsoon/pkg/midea"
)

// Statistics tracks exchange outcomes and report anomalies
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalExchanges uint64
	ValidResponses uint64
	Timeouts       uint64
	NoData         uint64
	DecodeErrors   uint64
	ConnectErrors  uint64
	IOErrors       uint64
	Anomalous      uint64
	ByAnomaly      map[midea.AnomalyType]uint64

	// Rates (calculated)
	ExchangeRate float64 // exchanges/sec
	ErrorRate    float64 // errors/sec

	now func() time.Time
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	s := &Statistics{now: time.Now}
	s.Reset()
	return s
}

// Update records one exchange. A failed exchange is classified by its Kind;
// a successful one is valid unless the report has anomalies.
func (s *Statistics) Update(err error, anomalies []midea.ValidationError) {
	s.TotalExchanges++
	s.LastUpdateTime = s.now()

	if err != nil {
		switch KindOf(err) {
		case KindTimeout:
			s.Timeouts++
		case KindNoData:
			s.NoData++
		case KindDecode:
			s.DecodeErrors++
		case KindConnect, KindNotConnected:
			s.ConnectErrors++
		default:
			s.IOErrors++
		}
		return
	}

	if len(anomalies) == 0 {
		s.ValidResponses++
		return
	}
	s.Anomalous++
	for _, a := range anomalies {
		s.ByAnomaly[a.Type]++
	}
}

// Errors returns the number of failed exchanges.
func (s *Statistics) Errors() uint64 {
	return s.Timeouts + s.NoData + s.DecodeErrors + s.ConnectErrors + s.IOErrors
}

// CalculateRates calculates exchange and error rates
func (s *Statistics) CalculateRates() {
	elapsed := s.now().Sub(s.StartTime).Seconds()
	if elapsed > 0 {
		s.ExchangeRate = float64(s.TotalExchanges) / elapsed
		s.ErrorRate = float64(s.Errors()) / elapsed
	}
}

func (s *Statistics) percent(n uint64) float64 {
	if s.TotalExchanges == 0 {
		return 0
	}
	return float64(n) * 100.0 / float64(s.TotalExchanges)
}

var anomalyNames = map[midea.AnomalyType]string{
	midea.AnomalyInvalidMode:     "Invalid Mode",
	midea.AnomalyInvalidFanSpeed: "Invalid Fan",
	midea.AnomalyInvalidSwing:    "Invalid Swing",
	midea.AnomalyInvalidTemp:     "Invalid Temp",
	midea.AnomalyInvalidHumidity: "Invalid Humidity",
	midea.AnomalyApplianceError:  "Appliance Error",
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	var b strings.Builder
	fmt.Fprintf(&b, "=== Statistics (%.0f seconds) ===\n", s.now().Sub(s.StartTime).Seconds())
	fmt.Fprintf(&b, "Total Exchanges: %8d\n", s.TotalExchanges)
	fmt.Fprintf(&b, "Valid Responses: %8d (%.1f%%)\n", s.ValidResponses, s.percent(s.ValidResponses))

	counters := []struct {
		label string
		n     uint64
	}{
		{"Timeouts", s.Timeouts},
		{"No Data", s.NoData},
		{"Decode Errors", s.DecodeErrors},
		{"Connect Errors", s.ConnectErrors},
		{"I/O Errors", s.IOErrors},
	}
	for _, c := range counters {
		if c.n > 0 {
			fmt.Fprintf(&b, "%-17s%8d (%.1f%%)\n", c.label+":", c.n, s.percent(c.n))
		}
	}

	if s.Anomalous > 0 {
		fmt.Fprintf(&b, "Anomalous:       %8d (%.1f%%)\n", s.Anomalous, s.percent(s.Anomalous))
		for t := midea.AnomalyInvalidMode; t <= midea.AnomalyApplianceError; t++ {
			if n := s.ByAnomaly[t]; n > 0 {
				fmt.Fprintf(&b, "  %-17s %5d\n", anomalyNames[t]+":", n)
			}
		}
	}

	fmt.Fprintf(&b, "Exchange Rate:   %8.2f /sec\n", s.ExchangeRate)
	fmt.Fprintf(&b, "Error Rate:      %8.2f /sec\n", s.ErrorRate)
	b.WriteString("================================\n")
	return b.String()
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	now := s.now()
	*s = Statistics{
		StartTime:      now,
		LastUpdateTime: now,
		ByAnomaly:      make(map[midea.AnomalyType]uint64),
		now:            s.now,
	}
}
