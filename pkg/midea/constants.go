// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package midea implements the LAN protocol spoken by Midea-style split air
// conditioners.
//
// A packet on the wire is a LAN envelope carrying the appliance id and a
// UART frame. The frame carries a message type and a body; the body layout
// for status replies and set commands is shared, so a decoded Response can
// be turned back into a SetCommand and re-encoded.
//
// This package provides packet encoding/decoding, CRC validation and
// payload formatting. Encryption of the envelope is not implemented.
package midea

// LAN envelope layout
const (
	EnvelopeMagic      = 0x5A5A
	EnvelopeHeaderSize = 40
	EnvelopeCRCSize    = 2
	DeviceIDOffset     = 20
)

// UART frame layout
const (
	FrameStart      = 0xAA
	ApplianceTypeAC = 0xAC
	FrameHeaderSize = 10
	FrameTrailer    = 2 // crc8 + checksum
)

// Size limits
const (
	MaxBodySize     = 64
	MinResponseBody = 15
	MaxPacketSize   = EnvelopeHeaderSize + FrameHeaderSize + MaxBodySize + FrameTrailer + EnvelopeCRCSize
)

// CRC-16-CCITT configuration for the envelope trailer
const (
	crcPolynomial = 0x1021
	crcInitial    = 0xFFFF
)

// CRC-8/MAXIM (reflected 0x31) for the frame body
const crc8Polynomial = 0x8C

// Frame message types
const (
	MsgSet   = 0x02
	MsgQuery = 0x03
)

// Body tags (first body byte)
const (
	BodySetCommand   = 0x40
	BodyStatusQuery  = 0x41
	BodyStatusReport = 0xC0
)

// Target temperature limits accepted by the appliance, in degrees Celsius.
const (
	MinTargetTemperature = 17.0
	MaxTargetTemperature = 30.0
)

// OperationalMode is the appliance operating mode.
type OperationalMode uint8

const (
	ModeUnknown OperationalMode = 0
	ModeAuto    OperationalMode = 1
	ModeCool    OperationalMode = 2
	ModeDry     OperationalMode = 3
	ModeHeat    OperationalMode = 4
	ModeFanOnly OperationalMode = 5
)

// FanSpeed is the indoor fan speed.
type FanSpeed uint8

const (
	FanUnknown FanSpeed = 0
	FanSilent  FanSpeed = 20
	FanLow     FanSpeed = 40
	FanMedium  FanSpeed = 60
	FanHigh    FanSpeed = 80
	FanAuto    FanSpeed = 102
)

// SwingMode is the louver swing setting.
type SwingMode uint8

const (
	SwingOff        SwingMode = 0x00
	SwingHorizontal SwingMode = 0x03
	SwingVertical   SwingMode = 0x0C
	SwingBoth       SwingMode = 0x0F
)

var modeNames = map[OperationalMode]string{
	ModeAuto:    "AUTO",
	ModeCool:    "COOL",
	ModeDry:     "DRY",
	ModeHeat:    "HEAT",
	ModeFanOnly: "FAN_ONLY",
}

var fanNames = map[FanSpeed]string{
	FanSilent: "SILENT",
	FanLow:    "LOW",
	FanMedium: "MEDIUM",
	FanHigh:   "HIGH",
	FanAuto:   "AUTO",
}

var swingNames = map[SwingMode]string{
	SwingOff:        "OFF",
	SwingHorizontal: "HORIZONTAL",
	SwingVertical:   "VERTICAL",
	SwingBoth:       "BOTH",
}

func (m OperationalMode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return "UNKNOWN"
}

func (f FanSpeed) String() string {
	if name, ok := fanNames[f]; ok {
		return name
	}
	return "UNKNOWN"
}

func (s SwingMode) String() string {
	if name, ok := swingNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseOperationalMode returns the mode with the given name.
func ParseOperationalMode(name string) (OperationalMode, bool) {
	for m, n := range modeNames {
		if n == name {
			return m, true
		}
	}
	return ModeUnknown, false
}

// ParseFanSpeed returns the fan speed with the given name.
func ParseFanSpeed(name string) (FanSpeed, bool) {
	for f, n := range fanNames {
		if n == name {
			return f, true
		}
	}
	return FanUnknown, false
}

// ParseSwingMode returns the swing mode with the given name.
func ParseSwingMode(name string) (SwingMode, bool) {
	for s, n := range swingNames {
		if n == name {
			return s, true
		}
	}
	return SwingOff, false
}
