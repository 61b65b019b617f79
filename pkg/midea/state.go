// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package midea

import (
	"fmt"
	"math"
)

// Timer is an on or off timer setting.
type Timer struct {
	Enabled bool
	Hours   int
	Minutes int
}

// String formats the timer the way channel updates report it.
func (t Timer) String() string {
	if !t.Enabled {
		return "OFF"
	}
	return fmt.Sprintf("%02d:%02d", t.Hours, t.Minutes)
}

func decodeTimer(b byte) Timer {
	if b&0x80 == 0 {
		return Timer{}
	}
	return Timer{
		Enabled: true,
		Hours:   int(b&0x7C) >> 2,
		Minutes: int(b&0x03) * 15,
	}
}

func encodeTimer(t Timer) byte {
	if !t.Enabled {
		return 0x7F
	}
	hours := t.Hours
	if hours > 31 {
		hours = 31
	}
	if hours < 0 {
		hours = 0
	}
	quarters := t.Minutes / 15
	if quarters > 3 {
		quarters = 3
	}
	if quarters < 0 {
		quarters = 0
	}
	return 0x80 | byte(hours)<<2 | byte(quarters)
}

// State holds every field carried by the shared status/set body layout.
//
// Body byte map (index 0 is the body tag):
//
//	1  power 0x01, imode resume 0x04, timer mode 0x10, prompt tone 0x40, error 0x80
//	2  target temperature low nibble (+16), half degree 0x10, mode 0xE0
//	3  fan speed 0x7F
//	4  on timer, 5 off timer (enabled 0x80, hours 0x7C, quarter hours 0x03)
//	7  swing 0x0F
//	8  cozy sleep 0x03, save 0x08, low frequency fan 0x10, super fan 0x20, feel own 0x80
//	9  child sleep 0x01, exchange air 0x02, dry clean 0x04, aux heat 0x08,
//	   eco 0x10, clean up 0x20, temperature unit 0x80
//	10 sleep 0x01, turbo 0x02, catch cold 0x08, night light 0x10,
//	   peak electricity 0x20, natural fan 0x40
//	11 indoor temperature, 12 outdoor temperature ((b-50)/2)
//	13 humidity 0x7F
//	14 display off when bits 0x70 are all set
type State struct {
	Power             bool
	ImodeResume       bool
	TimerMode         bool
	ApplianceError    bool
	TargetTemperature float64
	OperationalMode   OperationalMode
	FanSpeed          FanSpeed
	OnTimer           Timer
	OffTimer          Timer
	SwingMode         SwingMode
	CozySleep         int
	Save              bool
	LowFrequencyFan   bool
	SuperFan          bool
	FeelOwn           bool
	ChildSleepMode    bool
	ExchangeAir       bool
	DryClean          bool
	AuxHeat           bool
	EcoMode           bool
	CleanUp           bool
	TempUnit          bool
	SleepFunction     bool
	TurboMode         bool
	CatchCold         bool
	NightLight        bool
	PeakElec          bool
	NaturalFan        bool

	IndoorTemperature  float64
	OutdoorTemperature float64
	Humidity           int
	ScreenDisplay      bool
}

func flag(b byte, mask byte) bool { return b&mask != 0 }

func set(cond bool, mask byte) byte {
	if cond {
		return mask
	}
	return 0
}

func decodeTemperature(b byte) float64 {
	return (float64(b) - 50) / 2
}

func encodeTemperature(t float64) byte {
	v := math.Round(t*2 + 50)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}

// decodeState reads a status body. The caller has checked the length.
func decodeState(body []byte) State {
	b := body
	s := State{
		Power:          flag(b[1], 0x01),
		ImodeResume:    flag(b[1], 0x04),
		TimerMode:      flag(b[1], 0x10),
		ApplianceError: flag(b[1], 0x80),

		TargetTemperature: float64(b[2]&0x0F) + 16,
		OperationalMode:   OperationalMode((b[2] & 0xE0) >> 5),

		FanSpeed: FanSpeed(b[3] & 0x7F),
		OnTimer:  decodeTimer(b[4]),
		OffTimer: decodeTimer(b[5]),

		SwingMode: SwingMode(b[7] & 0x0F),

		CozySleep:       int(b[8] & 0x03),
		Save:            flag(b[8], 0x08),
		LowFrequencyFan: flag(b[8], 0x10),
		SuperFan:        flag(b[8], 0x20),
		FeelOwn:         flag(b[8], 0x80),

		ChildSleepMode: flag(b[9], 0x01),
		ExchangeAir:    flag(b[9], 0x02),
		DryClean:       flag(b[9], 0x04),
		AuxHeat:        flag(b[9], 0x08),
		EcoMode:        flag(b[9], 0x10),
		CleanUp:        flag(b[9], 0x20),
		TempUnit:       flag(b[9], 0x80),

		SleepFunction: flag(b[10], 0x01),
		TurboMode:     flag(b[10], 0x02),
		CatchCold:     flag(b[10], 0x08),
		NightLight:    flag(b[10], 0x10),
		PeakElec:      flag(b[10], 0x20),
		NaturalFan:    flag(b[10], 0x40),

		IndoorTemperature:  decodeTemperature(b[11]),
		OutdoorTemperature: decodeTemperature(b[12]),
		Humidity:           int(b[13] & 0x7F),
		ScreenDisplay:      b[14]&0x70 != 0x70,
	}
	if flag(b[2], 0x10) {
		s.TargetTemperature += 0.5
	}
	return s
}

// encodeState writes s into body[1:MinResponseBody]. promptTone is only
// meaningful for set commands.
func encodeState(body []byte, s State, promptTone bool) {
	b := body

	b[1] = set(s.Power, 0x01) | set(s.ImodeResume, 0x04) | set(s.TimerMode, 0x10) |
		set(promptTone, 0x40) | set(s.ApplianceError, 0x80)

	whole := math.Floor(s.TargetTemperature)
	nibble := int(whole) - 16
	if nibble < 0 {
		nibble = 0
	}
	if nibble > 0x0F {
		nibble = 0x0F
	}
	b[2] = byte(s.OperationalMode)<<5&0xE0 | byte(nibble) | set(s.TargetTemperature-whole >= 0.5, 0x10)

	b[3] = byte(s.FanSpeed) & 0x7F
	b[4] = encodeTimer(s.OnTimer)
	b[5] = encodeTimer(s.OffTimer)
	b[7] = 0x30 | byte(s.SwingMode)&0x0F

	b[8] = byte(s.CozySleep)&0x03 | set(s.Save, 0x08) | set(s.LowFrequencyFan, 0x10) |
		set(s.SuperFan, 0x20) | set(s.FeelOwn, 0x80)

	b[9] = set(s.ChildSleepMode, 0x01) | set(s.ExchangeAir, 0x02) | set(s.DryClean, 0x04) |
		set(s.AuxHeat, 0x08) | set(s.EcoMode, 0x10) | set(s.CleanUp, 0x20) | set(s.TempUnit, 0x80)

	b[10] = set(s.SleepFunction, 0x01) | set(s.TurboMode, 0x02) | set(s.CatchCold, 0x08) |
		set(s.NightLight, 0x10) | set(s.PeakElec, 0x20) | set(s.NaturalFan, 0x40)

	b[11] = encodeTemperature(s.IndoorTemperature)
	b[12] = encodeTemperature(s.OutdoorTemperature)
	b[13] = byte(s.Humidity) & 0x7F
	b[14] = set(!s.ScreenDisplay, 0x70)
}
