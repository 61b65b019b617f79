// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package appliance exposes an air conditioner as a set of named channels.
// It validates configuration, owns the link supervisor and translates
// channel commands into set commands derived from the last known state.
package appliance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Thermoquad/monsoon/pkg/config"
	"github.com/Thermoquad/monsoon/pkg/link"
	"github.com/Thermoquad/monsoon/pkg/midea"
	"github.com/Thermoquad/monsoon/pkg/transport"
	"go.uber.org/zap"
)

var (
	// ErrNotInitialized is returned by commands issued before Initialize.
	ErrNotInitialized = errors.New("appliance not initialized")
	// ErrUnsupported is returned by Accepts for a channel or value that
	// HandleCommand would drop.
	ErrUnsupported = errors.New("unsupported command")
)

// UpdateListener receives channel updates.
type UpdateListener func(Update)

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the handler logger.
func WithLogger(l *zap.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithMetrics passes a metrics sink to every supervisor the handler creates.
func WithMetrics(m link.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithTap records the frames of every session the handler creates.
func WithTap(t transport.Tap) Option {
	return func(h *Handler) { h.tap = t }
}

// WithStatusHold sets how long a changed offline reason is held as Unknown.
func WithStatusHold(d time.Duration) Option {
	return func(h *Handler) { h.hold = d }
}

// WithDialerFactory replaces NewDialer.
func WithDialerFactory(fn func(config.Config) (transport.Dialer, error)) Option {
	return func(h *Handler) {
		if fn != nil {
			h.newDialer = fn
		}
	}
}

// Handler is one configured appliance.
type Handler struct {
	logger    *zap.Logger
	metrics   link.Metrics
	tap       transport.Tap
	hold      time.Duration
	newDialer func(config.Config) (transport.Dialer, error)
	reporter  *link.Reporter

	mu  sync.Mutex
	sup *link.Supervisor

	listenersMu sync.Mutex
	listeners   []UpdateListener
}

// New creates an uninitialized handler. Its status is Unknown.
func New(opts ...Option) *Handler {
	h := &Handler{
		logger:    zap.NewNop(),
		hold:      link.DefaultStatusHold,
		newDialer: NewDialer,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.reporter = link.NewReporter(h.logger, h.hold)
	return h
}

// Initialize drops any previous connection, validates cfg and connects.
// An invalid configuration sets the status to Offline(ConfigurationError)
// and performs no I/O.
func (h *Handler) Initialize(ctx context.Context, cfg config.Config) error {
	h.mu.Lock()
	old := h.sup
	h.sup = nil
	h.mu.Unlock()
	if old != nil {
		old.Disconnect()
		old.Dispose()
	}

	ep, err := cfg.Endpoint()
	if err == nil {
		var dialer transport.Dialer
		dialer, err = h.newDialer(cfg)
		if err == nil {
			return h.start(ctx, cfg, ep, dialer)
		}
	}

	msg := strings.ReplaceAll(err.Error(), "\n", "; ")
	h.logger.Warn("invalid configuration", zap.String("reason", msg))
	h.reporter.Set(link.Offline(link.DetailConfigurationError, msg))
	return &link.Error{Kind: link.KindConfiguration, Err: err}
}

func (h *Handler) start(ctx context.Context, cfg config.Config, ep config.Endpoint, dialer transport.Dialer) error {
	h.reporter.Set(link.Status{})

	session := transport.NewSession(dialer,
		transport.WithLogger(h.logger),
		transport.WithTap(h.tap))

	sup := link.New(session, ep.DeviceID,
		link.WithLogger(h.logger),
		link.WithMetrics(h.metrics),
		link.WithReporter(h.reporter),
		link.WithPromptTone(cfg.PromptTone),
		link.WithReadTimeout(cfg.ReadTimeout),
		link.WithMonitorInterval(cfg.PollingTime, cfg.PollingTime),
		link.WithResponseHandler(h.publish))

	h.mu.Lock()
	h.sup = sup
	h.mu.Unlock()

	h.logger.Debug("initialized",
		zap.String("endpoint", dialer.String()),
		zap.Uint64("device_id", ep.DeviceID))

	err := sup.Connect(ctx)
	if link.KindOf(err) == link.KindConnect {
		sup.StartMonitor()
	}
	return err
}

// Dispose stops the appliance. It is safe before Initialize and idempotent.
func (h *Handler) Dispose() {
	h.mu.Lock()
	sup := h.sup
	h.sup = nil
	h.mu.Unlock()
	if sup != nil {
		sup.Dispose()
	}
}

func (h *Handler) supervisor() *link.Supervisor {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sup
}

// Status returns the observable status.
func (h *Handler) Status() link.Status { return h.reporter.Status() }

// SubscribeStatus registers a status listener.
func (h *Handler) SubscribeStatus(l link.StatusListener) { h.reporter.Subscribe(l) }

// SubscribeUpdates registers a channel update listener. Listeners run on
// the exchange path and must not issue commands synchronously.
func (h *Handler) SubscribeUpdates(l UpdateListener) {
	h.listenersMu.Lock()
	defer h.listenersMu.Unlock()
	h.listeners = append(h.listeners, l)
}

// LastResponse returns the last decoded response, if any.
func (h *Handler) LastResponse() (midea.Response, bool) {
	sup := h.supervisor()
	if sup == nil {
		return midea.Response{}, false
	}
	return sup.LastResponse()
}

// Connected reports whether the session is currently open.
func (h *Handler) Connected() bool {
	sup := h.supervisor()
	return sup != nil && sup.IsConnected()
}

func (h *Handler) publish(r midea.Response) {
	h.listenersMu.Lock()
	listeners := append([]UpdateListener(nil), h.listeners...)
	h.listenersMu.Unlock()

	for _, u := range Updates(r) {
		for _, l := range listeners {
			l(u)
		}
	}
}

// HandleCommand applies value to channel. A Refresh value on any channel
// requests fresh status. Other commands start from the last known state,
// change one setting and are sent with the monitor paused. Commands for
// read-only channels and values a channel does not take are dropped with a
// debug log; use Accepts to check them first.
func (h *Handler) HandleCommand(ctx context.Context, channel string, value Value) error {
	sup := h.supervisor()
	if sup == nil {
		return ErrNotInitialized
	}

	h.logger.Debug("handling command", zap.String("channel", channel), zap.Stringer("value", value))

	if value.Kind == KindRefresh {
		_, err := sup.RequestStatus(ctx, true)
		return err
	}

	if channel == ChannelPromptTone {
		h.logger.Debug("prompt tone is a configuration setting, ignoring command")
		return nil
	}

	apply, ok := commandTable[channel]
	if !ok {
		h.logger.Debug("dropping command for read-only or unknown channel", zap.String("channel", channel))
		return nil
	}

	var cmd *midea.SetCommand
	if last, ok := sup.LastResponse(); ok {
		cmd = midea.CommandFromResponse(&last)
	} else {
		cmd = midea.CommandFromResponse(nil)
	}

	if !apply(cmd, value) {
		h.logger.Debug("dropping unsupported value", zap.String("channel", channel), zap.Stringer("value", value))
		return nil
	}

	_, err := sup.SendCommandAndMonitor(ctx, cmd)
	return err
}

// Accepts returns nil when HandleCommand would act on value for channel,
// otherwise an error wrapping ErrUnsupported.
func Accepts(channel string, value Value) error {
	if value.Kind == KindRefresh || channel == ChannelPromptTone {
		return nil
	}
	apply, ok := commandTable[channel]
	if !ok {
		return fmt.Errorf("%w: channel %s is read-only or unknown", ErrUnsupported, channel)
	}
	if !apply(midea.NewSetCommand(), value) {
		return fmt.Errorf("%w: %s for %s", ErrUnsupported, value, channel)
	}
	return nil
}

type applyFunc func(cmd *midea.SetCommand, v Value) bool

var commandTable = map[string]applyFunc{
	ChannelPower: func(cmd *midea.SetCommand, v Value) bool {
		if v.Kind != KindOnOff {
			return false
		}
		cmd.SetPower(v.On)
		return true
	},
	ChannelOperationalMode: func(cmd *midea.SetCommand, v Value) bool {
		name, ok := v.name()
		if !ok {
			return false
		}
		// OFF is a mode name but not a mode the appliance can be set to
		if name == "OFF" {
			return false
		}
		mode, ok := midea.ParseOperationalMode(name)
		if !ok {
			return false
		}
		cmd.SetPower(true)
		cmd.SetOperationalMode(mode)
		return true
	},
	ChannelTargetTemperature: func(cmd *midea.SetCommand, v Value) bool {
		if v.Kind != KindNumber {
			return false
		}
		cmd.SetPower(true)
		cmd.SetTargetTemperature(v.Number)
		return true
	},
	ChannelFanSpeed: func(cmd *midea.SetCommand, v Value) bool {
		name, ok := v.name()
		if !ok {
			return false
		}
		if name == "OFF" {
			cmd.SetPower(false)
			return true
		}
		speed, ok := midea.ParseFanSpeed(name)
		if !ok {
			return false
		}
		cmd.SetPower(true)
		cmd.SetFanSpeed(speed)
		return true
	},
	ChannelSwingMode: func(cmd *midea.SetCommand, v Value) bool {
		name, ok := v.name()
		if !ok {
			return false
		}
		swing, ok := midea.ParseSwingMode(name)
		if !ok {
			return false
		}
		cmd.SetPower(true)
		cmd.SetSwingMode(swing)
		return true
	},
	ChannelEcoMode:       onOffSetter((*midea.SetCommand).SetEcoMode, false),
	ChannelTurboMode:     onOffSetter((*midea.SetCommand).SetTurboMode, true),
	ChannelScreenDisplay: onOffSetter((*midea.SetCommand).SetScreenDisplay, false),
	ChannelTempUnit:      onOffSetter((*midea.SetCommand).SetTempUnit, false),
}

// onOffSetter adapts a boolean setter. powerOn also switches the unit on.
func onOffSetter(set func(*midea.SetCommand, bool), powerOn bool) applyFunc {
	return func(cmd *midea.SetCommand, v Value) bool {
		if v.Kind != KindOnOff {
			return false
		}
		if powerOn {
			cmd.SetPower(true)
		}
		set(cmd, v.On)
		return true
	}
}

// Channels returns the channels that accept commands.
func Channels() []string {
	return []string{
		ChannelPower,
		ChannelOperationalMode,
		ChannelTargetTemperature,
		ChannelFanSpeed,
		ChannelSwingMode,
		ChannelEcoMode,
		ChannelTurboMode,
		ChannelScreenDisplay,
		ChannelTempUnit,
		ChannelPromptTone,
	}
}
