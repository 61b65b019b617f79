// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads and validates the appliance connection settings.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Transport names
const (
	TransportTCP       = "tcp"
	TransportWebSocket = "websocket"
	TransportSerial    = "serial"
)

// Defaults
const (
	DefaultPort           = 6444
	DefaultPollingTime    = 10 * time.Second
	DefaultReadTimeout    = 4 * time.Second
	DefaultConnectTimeout = 4 * time.Second
	DefaultBaudRate       = 9600
)

// Config is the complete settings file.
type Config struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	DeviceID       string        `yaml:"device_id"`
	PromptTone     bool          `yaml:"prompt_tone"`
	PollingTime    time.Duration `yaml:"polling_time"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`

	Transport   string `yaml:"transport"`
	URL         string `yaml:"url"`
	Username    string `yaml:"username"`
	Password    string `yaml:"-"`
	NoSSLVerify bool   `yaml:"no_ssl_verify"`
	SerialPort  string `yaml:"serial_port"`
	BaudRate    int    `yaml:"baud_rate"`

	CaptureFile string `yaml:"capture_file"`
}

// Endpoint identifies one appliance.
type Endpoint struct {
	Host     string
	Port     int
	DeviceID uint64
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s (device %d)", net.JoinHostPort(e.Host, strconv.Itoa(e.Port)), e.DeviceID)
}

// Default returns a configuration with every default applied.
func Default() Config {
	return Config{
		Port:           DefaultPort,
		PollingTime:    DefaultPollingTime,
		ReadTimeout:    DefaultReadTimeout,
		ConnectTimeout: DefaultConnectTimeout,
		Transport:      TransportTCP,
		BaudRate:       DefaultBaudRate,
	}
}

// Load reads a YAML settings file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides settings from MONSOON_* environment variables.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv("MONSOON_HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("MONSOON_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Port = p
		}
	}
	if v := os.Getenv("MONSOON_DEVICE_ID"); v != "" {
		cfg.DeviceID = v
	}
}

// Save writes cfg as YAML.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return nil
}

// ValidationError represents an invalid configuration value.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
	Hint    string
}

func (e *ValidationError) Error() string {
	msg := "config: " + e.Field
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += " (hint: " + e.Hint + ")"
	}
	return msg
}

// ParseDeviceID parses the decimal appliance id.
func ParseDeviceID(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("device id is empty")
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("device id must be a decimal number: %w", err)
	}
	if id == 0 {
		return 0, errors.New("device id must not be zero")
	}
	return id, nil
}

// Validate checks every field and returns all problems joined.
func (c *Config) Validate() error {
	var errs []error

	switch c.Transport {
	case TransportTCP, "":
		if strings.TrimSpace(c.Host) == "" {
			errs = append(errs, &ValidationError{Field: "host", Message: "is required", Hint: "set --host or host:"})
		}
		if c.Port < 1 || c.Port > 65535 {
			errs = append(errs, &ValidationError{Field: "port", Value: c.Port, Message: "must be between 1 and 65535"})
		}
	case TransportWebSocket:
		if !strings.HasPrefix(c.URL, "ws://") && !strings.HasPrefix(c.URL, "wss://") {
			errs = append(errs, &ValidationError{Field: "url", Value: c.URL, Message: "must start with ws:// or wss://"})
		}
	case TransportSerial:
		if c.SerialPort == "" {
			errs = append(errs, &ValidationError{Field: "serial_port", Message: "is required for the serial transport"})
		}
		if c.BaudRate <= 0 {
			errs = append(errs, &ValidationError{Field: "baud_rate", Value: c.BaudRate, Message: "must be positive"})
		}
	default:
		errs = append(errs, &ValidationError{
			Field:   "transport",
			Value:   c.Transport,
			Message: "unknown transport",
			Hint:    "use tcp, websocket or serial",
		})
	}

	if _, err := ParseDeviceID(c.DeviceID); err != nil {
		errs = append(errs, &ValidationError{Field: "device_id", Value: c.DeviceID, Message: err.Error()})
	}

	if c.PollingTime <= 0 {
		errs = append(errs, &ValidationError{Field: "polling_time", Value: c.PollingTime, Message: "must be positive"})
	}
	if c.ReadTimeout <= 0 {
		errs = append(errs, &ValidationError{Field: "read_timeout", Value: c.ReadTimeout, Message: "must be positive"})
	}
	if c.ConnectTimeout <= 0 {
		errs = append(errs, &ValidationError{Field: "connect_timeout", Value: c.ConnectTimeout, Message: "must be positive"})
	}

	return errors.Join(errs...)
}

// Endpoint returns the validated endpoint.
func (c *Config) Endpoint() (Endpoint, error) {
	if err := c.Validate(); err != nil {
		return Endpoint{}, err
	}
	id, _ := ParseDeviceID(c.DeviceID)
	return Endpoint{Host: c.Host, Port: c.Port, DeviceID: id}, nil
}
