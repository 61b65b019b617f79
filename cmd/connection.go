// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/Thermoquad/monsoon/pkg/appliance"
	"github.com/Thermoquad/monsoon/pkg/capture"
	"github.com/Thermoquad/monsoon/pkg/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// newLogger returns a development logger when --verbose is set, otherwise
// a production logger that only reports warnings.
func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

// loadConfig builds the effective configuration: defaults, then the
// --config file, then MONSOON_* variables, then flags set on the command line.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return cfg, err
		}
	}
	config.ApplyEnv(&cfg)

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Host = host
		cfg.Transport = config.TransportTCP
	}
	if flags.Changed("lan-port") {
		cfg.Port = lanPort
	}
	if flags.Changed("device-id") {
		cfg.DeviceID = deviceID
	}
	if flags.Changed("port") {
		cfg.SerialPort = portName
		cfg.Transport = config.TransportSerial
	}
	if flags.Changed("baud") {
		cfg.BaudRate = baudRate
	}
	if flags.Changed("url") {
		cfg.URL = wsURL
		cfg.Transport = config.TransportWebSocket
	}
	if flags.Changed("username") {
		cfg.Username = wsUsername
	}
	if flags.Changed("no-ssl-verify") {
		cfg.NoSSLVerify = wsNoSSLVerify
	}
	if flags.Changed("prompt-tone") {
		cfg.PromptTone = promptTone
	}
	if flags.Changed("read-timeout") {
		cfg.ReadTimeout = readTimeout
	}
	if flags.Changed("polling") {
		cfg.PollingTime = pollingTime
	}
	if flags.Changed("capture") {
		cfg.CaptureFile = captureFile
	}
	return cfg, nil
}

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	// First check environment variable
	if pw := os.Getenv("MONSOON_PASSWORD"); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Not a terminal, read a plain line instead
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %v", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

// connInfo describes where cfg connects to.
func connInfo(cfg config.Config) string {
	switch cfg.Transport {
	case config.TransportWebSocket:
		return fmt.Sprintf("WebSocket: %s", cfg.URL)
	case config.TransportSerial:
		return fmt.Sprintf("Serial: %s @ %d baud", cfg.SerialPort, cfg.BaudRate)
	default:
		return fmt.Sprintf("LAN: %s", net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)))
	}
}

// applianceConn is an appliance handler together with everything the
// command created for it.
type applianceConn struct {
	handler *appliance.Handler
	cfg     config.Config
	logger  *zap.Logger
	capture *capture.Writer
}

// openAppliance loads the configuration and creates a handler for it.
// The handler is not initialized yet so that callers can subscribe first.
func openAppliance(cmd *cobra.Command, opts ...appliance.Option) (*applianceConn, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	if cfg.Transport == config.TransportWebSocket && cfg.Username != "" && cfg.Password == "" {
		cfg.Password, err = GetPassword()
		if err != nil {
			return nil, err
		}
	}

	logger, err := newLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	ac := &applianceConn{cfg: cfg, logger: logger}
	handlerOpts := []appliance.Option{appliance.WithLogger(logger)}

	if cfg.CaptureFile != "" {
		ac.capture, err = capture.Create(cfg.CaptureFile, logger)
		if err != nil {
			return nil, err
		}
		handlerOpts = append(handlerOpts, appliance.WithTap(ac.capture))
	}

	ac.handler = appliance.New(append(handlerOpts, opts...)...)
	return ac, nil
}

// Close disposes the handler and flushes the capture file and logger.
func (a *applianceConn) Close() {
	a.handler.Dispose()
	if a.capture != nil {
		if err := a.capture.Close(); err != nil {
			a.logger.Warn("failed to close capture file", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
