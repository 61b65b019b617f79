// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

//go:build linux || darwin || freebsd || netbsd || openbsd

package transport

import (
	"errors"
	"syscall"

	"golang.org/x/sys/unix"
)

// peerAlive peeks at the socket without consuming data. A zero-length read
// means the peer sent FIN; any error other than EAGAIN means it is gone.
// Connections without a file descriptor are assumed alive.
func peerAlive(conn Conn) bool {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return true
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return false
	}

	alive := true
	var buf [1]byte
	ctrlErr := raw.Read(func(fd uintptr) bool {
		n, _, err := unix.Recvfrom(int(fd), buf[:], unix.MSG_PEEK|unix.MSG_DONTWAIT)
		switch {
		case n > 0:
			alive = true
		case err == nil:
			alive = false
		case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EWOULDBLOCK), errors.Is(err, unix.EINTR):
			alive = true
		default:
			alive = false
		}
		// Report done so the runtime does not wait for readability
		return true
	})
	if ctrlErr != nil {
		return false
	}
	return alive
}
