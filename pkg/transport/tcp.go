// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"context"
	"net"
	"strconv"
	"time"
)

// TCPDialer connects to an appliance's LAN port.
type TCPDialer struct {
	Host    string
	Port    int
	Timeout time.Duration
}

// NewTCPDialer creates a dialer with the default connect timeout.
func NewTCPDialer(host string, port int) *TCPDialer {
	return &TCPDialer{Host: host, Port: port, Timeout: DefaultConnectTimeout}
}

// Dial connects over TCP.
func (d *TCPDialer) Dial(ctx context.Context) (Conn, error) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	dialer := net.Dialer{Timeout: timeout}
	return dialer.DialContext(ctx, "tcp", d.String())
}

func (d *TCPDialer) String() string {
	return net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}
