// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package appliance

import (
	"strconv"
	"strings"

	"github.com/Thermoquad/monsoon/pkg/midea"
)

// Channel identifiers
const (
	ChannelPower              = "power"
	ChannelImodeResume        = "imode-resume"
	ChannelTimerMode          = "timer-mode"
	ChannelApplianceError     = "appliance-error"
	ChannelTargetTemperature  = "target-temperature"
	ChannelOperationalMode    = "operational-mode"
	ChannelFanSpeed           = "fan-speed"
	ChannelOnTimer            = "on-timer"
	ChannelOffTimer           = "off-timer"
	ChannelSwingMode          = "swing-mode"
	ChannelCozySleep          = "cozy-sleep"
	ChannelSave               = "save"
	ChannelLowFrequencyFan    = "low-frequency-fan"
	ChannelSuperFan           = "super-fan"
	ChannelFeelOwn            = "feel-own"
	ChannelChildSleepMode     = "child-sleep-mode"
	ChannelExchangeAir        = "exchange-air"
	ChannelDryClean           = "dry-clean"
	ChannelAuxHeat            = "aux-heat"
	ChannelEcoMode            = "eco-mode"
	ChannelCleanUp            = "clean-up"
	ChannelTempUnit           = "temp-unit"
	ChannelSleepFunction      = "sleep-function"
	ChannelTurboMode          = "turbo-mode"
	ChannelCatchCold          = "catch-cold"
	ChannelNightLight         = "night-light"
	ChannelPeakElec           = "peak-elec"
	ChannelNaturalFan         = "natural-fan"
	ChannelIndoorTemperature  = "indoor-temperature"
	ChannelOutdoorTemperature = "outdoor-temperature"
	ChannelHumidity           = "humidity"
	ChannelPromptTone         = "prompt-tone"
	ChannelScreenDisplay      = "screen-display"
)

// ValueKind tells which field of a Value is meaningful.
type ValueKind int

const (
	KindRefresh ValueKind = iota
	KindOnOff
	KindText
	KindNumber
)

// Value is a channel state or command: on/off, a name or a number. A
// Refresh value asks for fresh state instead of changing anything.
type Value struct {
	Kind   ValueKind
	On     bool
	Text   string
	Number float64
}

// Refresh returns the refresh command.
func Refresh() Value { return Value{Kind: KindRefresh} }

// OnOff returns an on/off value.
func OnOff(on bool) Value { return Value{Kind: KindOnOff, On: on} }

// Text returns a named value such as "COOL".
func Text(s string) Value { return Value{Kind: KindText, Text: s} }

// Number returns a numeric value.
func Number(n float64) Value { return Value{Kind: KindNumber, Number: n} }

// ParseValue interprets user input: REFRESH, ON and OFF are keywords,
// anything numeric is a number and everything else is a name.
func ParseValue(s string) Value {
	s = strings.TrimSpace(s)
	switch strings.ToUpper(s) {
	case "REFRESH":
		return Refresh()
	case "ON":
		return OnOff(true)
	case "OFF":
		return OnOff(false)
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return Number(n)
	}
	return Text(strings.ToUpper(s))
}

// name returns the value as a name. On/off values read as ON and OFF so
// that OFF can select the "OFF" entry of a named channel.
func (v Value) name() (string, bool) {
	switch v.Kind {
	case KindText:
		return v.Text, true
	case KindOnOff:
		return v.String(), true
	}
	return "", false
}

func (v Value) String() string {
	switch v.Kind {
	case KindRefresh:
		return "REFRESH"
	case KindOnOff:
		if v.On {
			return "ON"
		}
		return "OFF"
	case KindText:
		return v.Text
	case KindNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	default:
		return "UNDEF"
	}
}

// Update is one channel state published after a successful exchange.
type Update struct {
	Channel string
	Value   Value
}

// Updates returns one update per known field of r, in a stable order.
func Updates(r midea.Response) []Update {
	return []Update{
		{ChannelPower, OnOff(r.Power)},
		{ChannelImodeResume, OnOff(r.ImodeResume)},
		{ChannelTimerMode, OnOff(r.TimerMode)},
		{ChannelApplianceError, OnOff(r.ApplianceError)},
		{ChannelTargetTemperature, Number(r.TargetTemperature)},
		{ChannelOperationalMode, Text(r.OperationalMode.String())},
		{ChannelFanSpeed, Text(r.FanSpeed.String())},
		{ChannelOnTimer, Text(r.OnTimer.String())},
		{ChannelOffTimer, Text(r.OffTimer.String())},
		{ChannelSwingMode, Text(r.SwingMode.String())},
		{ChannelCozySleep, Number(float64(r.CozySleep))},
		{ChannelSave, OnOff(r.Save)},
		{ChannelLowFrequencyFan, OnOff(r.LowFrequencyFan)},
		{ChannelSuperFan, OnOff(r.SuperFan)},
		{ChannelFeelOwn, OnOff(r.FeelOwn)},
		{ChannelChildSleepMode, OnOff(r.ChildSleepMode)},
		{ChannelExchangeAir, OnOff(r.ExchangeAir)},
		{ChannelDryClean, OnOff(r.DryClean)},
		{ChannelAuxHeat, OnOff(r.AuxHeat)},
		{ChannelEcoMode, OnOff(r.EcoMode)},
		{ChannelCleanUp, OnOff(r.CleanUp)},
		{ChannelTempUnit, OnOff(r.TempUnit)},
		{ChannelSleepFunction, OnOff(r.SleepFunction)},
		{ChannelTurboMode, OnOff(r.TurboMode)},
		{ChannelCatchCold, OnOff(r.CatchCold)},
		{ChannelNightLight, OnOff(r.NightLight)},
		{ChannelPeakElec, OnOff(r.PeakElec)},
		{ChannelNaturalFan, OnOff(r.NaturalFan)},
		{ChannelIndoorTemperature, Number(r.IndoorTemperature)},
		{ChannelOutdoorTemperature, Number(r.OutdoorTemperature)},
		{ChannelHumidity, Number(float64(r.Humidity))},
	}
}
