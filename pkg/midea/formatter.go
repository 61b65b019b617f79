// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package midea

import (
	"fmt"
	"strings"
)

// FormatPacket formats a packet into a human-readable string
func FormatPacket(p *Packet) string {
	result := fmt.Sprintf("%s (0x%02X) device=%d msg=%d len=%d\n",
		FormatMessageType(p.Type()), p.Type(), p.DeviceID(), p.MessageID(), len(p.Body()))
	return result + FormatBody(p.Body())
}

// FormatMessageType returns the human-readable name for a message type
func FormatMessageType(msgType uint8) string {
	switch msgType {
	case MsgSet:
		return "SET"
	case MsgQuery:
		return "QUERY"
	default:
		return "UNKNOWN"
	}
}

// FormatBody formats a frame body based on its tag
func FormatBody(body []byte) string {
	if len(body) == 0 {
		return "  (no body)\n"
	}

	switch body[0] {
	case BodyStatusQuery:
		return "  Status query\n"

	case BodyStatusReport:
		r, err := ParseResponseBody(body)
		if err != nil {
			return fmt.Sprintf("  Invalid status report: %v\n", err)
		}
		return FormatState(r.State)

	case BodySetCommand:
		s, err := ApplySetBody(State{}, body)
		if err != nil {
			return fmt.Sprintf("  Invalid set command: %v\n", err)
		}
		tone := ""
		if body[1]&0x40 != 0 {
			tone = " (prompt tone)"
		}
		return fmt.Sprintf("  Set command%s\n", tone) + formatSettings(s)

	default:
		return fmt.Sprintf("  Unknown body tag 0x%02X: %s\n", body[0], FormatHex(body))
	}
}

// FormatState formats a full appliance state including sensor readings
func FormatState(s State) string {
	var b strings.Builder
	b.WriteString(formatSettings(s))
	fmt.Fprintf(&b, "  Indoor: %.1f°C, Outdoor: %.1f°C, Humidity: %d%%\n",
		s.IndoorTemperature, s.OutdoorTemperature, s.Humidity)
	if s.ApplianceError {
		b.WriteString("  Appliance error reported\n")
	}
	return b.String()
}

func formatSettings(s State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  Power: %s, Mode: %s, Target: %.1f°C, Fan: %s, Swing: %s\n",
		onOff(s.Power), s.OperationalMode, s.TargetTemperature, s.FanSpeed, s.SwingMode)
	fmt.Fprintf(&b, "  Eco: %s, Turbo: %s, Sleep: %s, Display: %s\n",
		onOff(s.EcoMode), onOff(s.TurboMode), onOff(s.SleepFunction), onOff(s.ScreenDisplay))
	fmt.Fprintf(&b, "  On timer: %s, Off timer: %s\n", s.OnTimer, s.OffTimer)
	return b.String()
}

// FormatHex returns data as space separated upper-case hex bytes
func FormatHex(data []byte) string {
	var b strings.Builder
	for i, v := range data {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%02X", v)
	}
	return b.String()
}

func onOff(v bool) string {
	if v {
		return "ON"
	}
	return "OFF"
}
