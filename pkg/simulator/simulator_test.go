// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package simulator

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/Thermoquad/monsoon/pkg/midea"
)

const testDeviceID = 42

func startSimulator(t *testing.T, opts ...Option) *Simulator {
	t.Helper()
	sim := New(testDeviceID, opts...)
	if err := sim.Listen(context.Background(), "127.0.0.1:0"); err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	t.Cleanup(func() { sim.Close() })
	return sim
}

func dial(t *testing.T, sim *Simulator) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", sim.Addr().String(), time.Second)
	if err != nil {
		t.Fatalf("dial error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func exchange(t *testing.T, conn net.Conn, cmd midea.Command, deviceID uint64) (midea.Response, error) {
	t.Helper()
	packet, err := midea.Encode(cmd, deviceID)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if _, err := conn.Write(packet); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	reply, err := readPacket(conn)
	if err != nil {
		return midea.Response{}, err
	}
	return midea.DecodeResponse(reply)
}

// ============================================================
// Requests
// ============================================================

func TestSimulator_StatusQuery(t *testing.T) {
	sim := startSimulator(t)
	conn := dial(t, sim)

	r, err := exchange(t, conn, midea.NewStatusRequest(), testDeviceID)
	if err != nil {
		t.Fatalf("exchange error = %v", err)
	}
	if r.TargetTemperature != DefaultState.TargetTemperature || r.Humidity != DefaultState.Humidity {
		t.Errorf("response = %+v, want %+v", r.State, DefaultState)
	}
	if sim.Requests() != 1 || sim.Accepted() != 1 {
		t.Errorf("Requests() = %d, Accepted() = %d", sim.Requests(), sim.Accepted())
	}
}

func TestSimulator_SetCommand(t *testing.T) {
	sim := startSimulator(t)
	conn := dial(t, sim)

	cmd := midea.NewSetCommand()
	cmd.SetPower(true)
	cmd.SetOperationalMode(midea.ModeHeat)
	cmd.SetTargetTemperature(21.5)

	r, err := exchange(t, conn, cmd, testDeviceID)
	if err != nil {
		t.Fatalf("exchange error = %v", err)
	}
	if !r.Power || r.OperationalMode != midea.ModeHeat || r.TargetTemperature != 21.5 {
		t.Errorf("response = %+v", r.State)
	}
	// Sensors are not carried by set commands
	if r.IndoorTemperature != DefaultState.IndoorTemperature {
		t.Errorf("IndoorTemperature = %v, want %v", r.IndoorTemperature, DefaultState.IndoorTemperature)
	}
	if got := sim.State(); !got.Power || got.OperationalMode != midea.ModeHeat {
		t.Errorf("State() = %+v", got)
	}
}

func TestSimulator_WrongDevice(t *testing.T) {
	sim := startSimulator(t)
	conn := dial(t, sim)

	if _, err := exchange(t, conn, midea.NewStatusRequest(), testDeviceID+1); err == nil {
		t.Error("request for another device should get no reply")
	}
}

// ============================================================
// Faults
// ============================================================

func TestSimulator_Faults(t *testing.T) {
	tests := []struct {
		fault     Fault
		wantReply bool
	}{
		{FaultSilent, false},
		{FaultGarbage, false},
		{FaultDrop, false},
		{FaultNone, true},
	}

	for _, tt := range tests {
		t.Run(tt.fault.String(), func(t *testing.T) {
			sim := startSimulator(t)
			conn := dial(t, sim)
			sim.Inject(tt.fault)

			_, err := exchange(t, conn, midea.NewStatusRequest(), testDeviceID)
			if (err == nil) != tt.wantReply {
				t.Errorf("exchange error = %v, want reply %v", err, tt.wantReply)
			}

			// Faults are one-shot
			if tt.fault != FaultDrop {
				if _, err := exchange(t, conn, midea.NewStatusRequest(), testDeviceID); err != nil {
					t.Errorf("second exchange error = %v", err)
				}
			}
		})
	}
}

func TestSimulator_DropConnections(t *testing.T) {
	sim := startSimulator(t)
	conn := dial(t, sim)

	if _, err := exchange(t, conn, midea.NewStatusRequest(), testDeviceID); err != nil {
		t.Fatalf("exchange error = %v", err)
	}
	sim.DropConnections()

	conn.SetReadDeadline(time.Now().Add(time.Second))
	if _, err := conn.Read(make([]byte, 1)); err == nil {
		t.Error("read after DropConnections should fail")
	}

	// The listener keeps accepting
	conn2 := dial(t, sim)
	if _, err := exchange(t, conn2, midea.NewStatusRequest(), testDeviceID); err != nil {
		t.Errorf("exchange on new connection error = %v", err)
	}
}

func TestSimulator_CloseIdempotent(t *testing.T) {
	sim := New(testDeviceID)
	ctx, cancel := context.WithCancel(context.Background())
	if err := sim.Listen(ctx, "127.0.0.1:0"); err != nil {
		t.Fatal(err)
	}
	cancel()
	sim.Close()
	sim.Close()

	if _, err := net.DialTimeout("tcp", sim.Addr().String(), 200*time.Millisecond); err == nil {
		t.Error("dial after Close should fail")
	}
}

func TestParseFault(t *testing.T) {
	for _, name := range []string{"none", "drop", "silent", "garbage"} {
		f, err := ParseFault(name)
		if err != nil || f.String() != name {
			t.Errorf("ParseFault(%q) = %v, %v", name, f, err)
		}
	}
	if _, err := ParseFault("explode"); err == nil {
		t.Error("ParseFault(explode) should fail")
	}
}
