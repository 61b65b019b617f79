// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := Default()
	cfg.Host = "192.168.1.50"
	cfg.DeviceID = "151732604967296"
	return cfg
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	ep, err := cfg.Endpoint()
	if err != nil {
		t.Fatalf("Endpoint() error = %v", err)
	}
	if ep.Host != "192.168.1.50" || ep.Port != DefaultPort || ep.DeviceID != 151732604967296 {
		t.Errorf("Endpoint() = %+v", ep)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"missing host", func(c *Config) { c.Host = " " }, "host"},
		{"port zero", func(c *Config) { c.Port = 0 }, "port"},
		{"port too large", func(c *Config) { c.Port = 70000 }, "port"},
		{"empty device id", func(c *Config) { c.DeviceID = "" }, "device_id"},
		{"non-numeric device id", func(c *Config) { c.DeviceID = "abc" }, "device_id"},
		{"zero device id", func(c *Config) { c.DeviceID = "0" }, "device_id"},
		{"zero polling", func(c *Config) { c.PollingTime = 0 }, "polling_time"},
		{"negative read timeout", func(c *Config) { c.ReadTimeout = -time.Second }, "read_timeout"},
		{"unknown transport", func(c *Config) { c.Transport = "carrier-pigeon" }, "transport"},
		{"websocket without url", func(c *Config) { c.Transport = TransportWebSocket }, "url"},
		{"serial without port", func(c *Config) { c.Transport = TransportSerial }, "serial_port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() should fail")
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error %v is not a *ValidationError", err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", verr.Field, tt.wantField)
			}
			if _, err := cfg.Endpoint(); err == nil {
				t.Error("Endpoint() should fail for invalid config")
			}
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := Default()
	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() of defaults should fail")
	}
	for _, field := range []string{"host", "device_id"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("error %q should mention %q", err, field)
		}
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monsoon.yaml")
	data := `host: 10.0.0.7
device_id: "42"
prompt_tone: true
polling_time: 30s
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Host != "10.0.0.7" || cfg.DeviceID != "42" || !cfg.PromptTone {
		t.Errorf("Load() = %+v", cfg)
	}
	if cfg.PollingTime != 30*time.Second {
		t.Errorf("PollingTime = %v, want 30s", cfg.PollingTime)
	}
	// Unset keys keep their defaults
	if cfg.Port != DefaultPort || cfg.ReadTimeout != DefaultReadTimeout || cfg.Transport != TransportTCP {
		t.Errorf("defaults not kept: %+v", cfg)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() of a missing file should fail")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("port: [1, 2"), 0o600)
	if _, err := Load(path); err == nil {
		t.Error("Load() of malformed YAML should fail")
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monsoon.yaml")
	cfg := validConfig()
	cfg.PollingTime = 15 * time.Second

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != cfg {
		t.Errorf("Load(Save(cfg)) = %+v, want %+v", got, cfg)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("MONSOON_HOST", "ac.local")
	t.Setenv("MONSOON_PORT", "7000")
	t.Setenv("MONSOON_DEVICE_ID", "99")

	cfg := Default()
	ApplyEnv(&cfg)
	if cfg.Host != "ac.local" || cfg.Port != 7000 || cfg.DeviceID != "99" {
		t.Errorf("ApplyEnv() = %+v", cfg)
	}
}
