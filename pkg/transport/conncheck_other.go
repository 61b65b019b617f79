// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package transport

// peerAlive cannot peek on this platform; a dead peer surfaces on the next
// read or write instead.
func peerAlive(conn Conn) bool {
	return true
}
