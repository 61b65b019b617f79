// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package appliance

import (
	"fmt"

	"github.com/Thermoquad/monsoon/pkg/config"
	"github.com/Thermoquad/monsoon/pkg/transport"
)

// NewDialer builds the transport dialer selected by cfg.
func NewDialer(cfg config.Config) (transport.Dialer, error) {
	switch cfg.Transport {
	case config.TransportTCP, "":
		return &transport.TCPDialer{Host: cfg.Host, Port: cfg.Port, Timeout: cfg.ConnectTimeout}, nil
	case config.TransportWebSocket:
		return &transport.WebSocketDialer{
			URL:              cfg.URL,
			Username:         cfg.Username,
			Password:         cfg.Password,
			SkipSSLVerify:    cfg.NoSSLVerify,
			HandshakeTimeout: cfg.ConnectTimeout,
		}, nil
	case config.TransportSerial:
		return &transport.SerialDialer{PortName: cfg.SerialPort, BaudRate: cfg.BaudRate}, nil
	default:
		return nil, fmt.Errorf("unknown transport: %s", cfg.Transport)
	}
}
