// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package metrics exports appliance state and link health to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/Thermoquad/monsoon/pkg/link"
	"github.com/Thermoquad/monsoon/pkg/midea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exchange results
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Collector holds every metric on a private registry. It implements
// link.Metrics and can subscribe to a status reporter.
type Collector struct {
	registry *prometheus.Registry

	status        *prometheus.GaugeVec
	connects      *prometheus.CounterVec
	exchanges     *prometheus.CounterVec
	exchangeTime  prometheus.Histogram
	lastExchange  prometheus.Gauge
	decodeErrors  prometheus.Counter
	power         prometheus.Gauge
	targetTemp    prometheus.Gauge
	indoorTemp    prometheus.Gauge
	outdoorTemp   prometheus.Gauge
	humidity      prometheus.Gauge
	mode          *prometheus.GaugeVec
	fanSpeed      prometheus.Gauge
	applianceErrs prometheus.Gauge

	now func() time.Time
}

// New creates a collector labelled with the appliance device id.
func New(deviceID string) *Collector {
	labels := prometheus.Labels{"device_id": deviceID}

	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "monsoon", Name: name, Help: help, ConstLabels: labels,
		})
	}

	c := &Collector{
		registry: prometheus.NewRegistry(),
		status: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   "monsoon",
			Name:        "status",
			Help:        "Appliance status (1 for the current status, 0 otherwise)",
			ConstLabels: labels,
		}, []string{"status"}),
		connects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "monsoon",
			Name:        "connect_attempts_total",
			Help:        "Connection attempts by result",
			ConstLabels: labels,
		}, []string{"result"}),
		exchanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "monsoon",
			Name:        "exchanges_total",
			Help:        "Request/response exchanges by result",
			ConstLabels: labels,
		}, []string{"result"}),
		exchangeTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "monsoon",
			Name:        "exchange_duration_seconds",
			Help:        "Time from request write to decoded response",
			ConstLabels: labels,
			Buckets:     []float64{.01, .025, .05, .1, .25, .5, 1, 2, 4},
		}),
		lastExchange: gauge("last_exchange_timestamp_seconds", "Unix timestamp of the last successful exchange"),
		decodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "monsoon", Name: "decode_errors_total",
			Help: "Replies that could not be decoded", ConstLabels: labels,
		}),
		power:         gauge("power", "Power state (1=on, 0=off)"),
		targetTemp:    gauge("target_temperature_celsius", "Target temperature in Celsius"),
		indoorTemp:    gauge("indoor_temperature_celsius", "Indoor temperature in Celsius"),
		outdoorTemp:   gauge("outdoor_temperature_celsius", "Outdoor temperature in Celsius"),
		humidity:      gauge("relative_humidity", "Indoor relative humidity in percent"),
		fanSpeed:      gauge("fan_speed", "Fan speed setting (20 silent to 80 high, 102 auto)"),
		applianceErrs: gauge("appliance_error", "1 if the appliance reports an error"),
		mode: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   "monsoon",
			Name:        "operational_mode",
			Help:        "Operational mode (1 for the active mode, 0 otherwise)",
			ConstLabels: labels,
		}, []string{"mode"}),
		now: time.Now,
	}

	c.registry.MustRegister(
		c.status, c.connects, c.exchanges, c.exchangeTime, c.lastExchange, c.decodeErrors,
		c.power, c.targetTemp, c.indoorTemp, c.outdoorTemp, c.humidity, c.mode,
		c.fanSpeed, c.applianceErrs,
	)
	c.SetStatus(link.Status{})
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ConnectAttempted implements link.Metrics.
func (c *Collector) ConnectAttempted(err error) {
	c.connects.WithLabelValues(result(err)).Inc()
}

// ExchangeCompleted implements link.Metrics.
func (c *Collector) ExchangeCompleted(err error, elapsed time.Duration) {
	c.exchanges.WithLabelValues(result(err)).Inc()
	if err == nil {
		c.exchangeTime.Observe(elapsed.Seconds())
		c.lastExchange.Set(float64(c.now().Unix()))
		return
	}
	if link.KindOf(err) == link.KindDecode {
		c.decodeErrors.Inc()
	}
}

// ResponseDecoded implements link.Metrics.
func (c *Collector) ResponseDecoded(r midea.Response) {
	c.power.Set(boolValue(r.Power))
	c.targetTemp.Set(r.TargetTemperature)
	c.indoorTemp.Set(r.IndoorTemperature)
	c.outdoorTemp.Set(r.OutdoorTemperature)
	c.humidity.Set(float64(r.Humidity))
	c.fanSpeed.Set(float64(r.FanSpeed))
	c.applianceErrs.Set(boolValue(r.ApplianceError))

	for _, m := range []midea.OperationalMode{
		midea.ModeAuto, midea.ModeCool, midea.ModeDry, midea.ModeHeat, midea.ModeFanOnly,
	} {
		c.mode.WithLabelValues(m.String()).Set(boolValue(m == r.OperationalMode))
	}
}

// SetStatus records s as the current status. It has the signature of a
// link.StatusListener.
func (c *Collector) SetStatus(s link.Status) {
	for _, k := range []link.StatusKind{link.StatusUnknown, link.StatusOnline, link.StatusOffline} {
		c.status.WithLabelValues(k.String()).Set(boolValue(k == s.Kind))
	}
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
