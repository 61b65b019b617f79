// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package midea

import "math"

// Command is a request the appliance answers with a status report.
type Command interface {
	// Type returns the frame message type.
	Type() uint8
	// Body returns the serialized frame body.
	Body() []byte
}

// PromptToner is implemented by commands that can ask the appliance to beep.
type PromptToner interface {
	SetPromptTone(on bool)
}

// Encode serializes cmd into a wire packet addressed to deviceID.
func Encode(cmd Command, deviceID uint64) ([]byte, error) {
	return EncodePacket(deviceID, cmd.Type(), cmd.Body())
}

// StatusRequest queries the current appliance state.
type StatusRequest struct{}

// NewStatusRequest creates a status query.
func NewStatusRequest() *StatusRequest {
	return &StatusRequest{}
}

func (c *StatusRequest) Type() uint8 { return MsgQuery }

func (c *StatusRequest) Body() []byte {
	body := make([]byte, 21)
	body[0] = BodyStatusQuery
	body[1] = 0x81
	body[3] = 0xFF
	body[4] = 0x03
	body[5] = 0xFF
	body[7] = 0x02
	body[20] = 0x03
	return body
}

// SetCommand writes a complete appliance state.
type SetCommand struct {
	state      State
	promptTone bool
}

// NewSetCommand creates a set command from a zero state.
func NewSetCommand() *SetCommand {
	return &SetCommand{state: State{TargetTemperature: MinTargetTemperature, ScreenDisplay: true}}
}

// CommandFromResponse creates a set command carrying the state of r, so that
// a single field can be changed without touching the others. A nil r gives
// the same result as NewSetCommand.
func CommandFromResponse(r *Response) *SetCommand {
	if r == nil {
		return NewSetCommand()
	}
	return &SetCommand{state: r.State}
}

func (c *SetCommand) Type() uint8 { return MsgSet }

func (c *SetCommand) Body() []byte {
	body := make([]byte, 23)
	body[0] = BodySetCommand
	encodeState(body, c.state, c.promptTone)
	return body
}

// State returns a copy of the state the command will write.
func (c *SetCommand) State() State { return c.state }

// PromptTone reports whether the appliance will beep on receipt.
func (c *SetCommand) PromptTone() bool { return c.promptTone }

func (c *SetCommand) SetPromptTone(on bool) { c.promptTone = on }

func (c *SetCommand) SetPower(on bool) { c.state.Power = on }

func (c *SetCommand) SetOperationalMode(m OperationalMode) { c.state.OperationalMode = m }

// SetTargetTemperature clamps t to the accepted range and rounds it to the
// nearest half degree.
func (c *SetCommand) SetTargetTemperature(t float64) {
	c.state.TargetTemperature = ClampTargetTemperature(t)
}

func (c *SetCommand) SetFanSpeed(f FanSpeed) { c.state.FanSpeed = f }

func (c *SetCommand) SetSwingMode(s SwingMode) { c.state.SwingMode = s }

func (c *SetCommand) SetEcoMode(on bool) { c.state.EcoMode = on }

func (c *SetCommand) SetTurboMode(on bool) { c.state.TurboMode = on }

func (c *SetCommand) SetScreenDisplay(on bool) { c.state.ScreenDisplay = on }

func (c *SetCommand) SetTempUnit(fahrenheit bool) { c.state.TempUnit = fahrenheit }

func (c *SetCommand) SetSleepFunction(on bool) { c.state.SleepFunction = on }

func (c *SetCommand) SetOnTimer(t Timer) { c.state.OnTimer = t }

func (c *SetCommand) SetOffTimer(t Timer) { c.state.OffTimer = t }

// ClampTargetTemperature limits t to [MinTargetTemperature, MaxTargetTemperature]
// in half degree steps.
func ClampTargetTemperature(t float64) float64 {
	if math.IsNaN(t) || t < MinTargetTemperature {
		return MinTargetTemperature
	}
	if t > MaxTargetTemperature {
		return MaxTargetTemperature
	}
	return math.Round(t*2) / 2
}
