// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package midea

import "fmt"

// Response is a decoded status report. Values are immutable once decoded;
// copy by value to share.
type Response struct {
	State
}

// DecodeResponse decodes a wire packet carrying a status report.
func DecodeResponse(data []byte) (Response, error) {
	p, err := DecodePacket(data)
	if err != nil {
		return Response{}, err
	}
	return ParseResponseBody(p.Body())
}

// ParseResponseBody decodes a status report frame body.
func ParseResponseBody(body []byte) (Response, error) {
	if len(body) < MinResponseBody {
		return Response{}, fmt.Errorf("status body too short: %d bytes (min %d)", len(body), MinResponseBody)
	}
	if body[0] != BodyStatusReport {
		return Response{}, fmt.Errorf("unexpected body tag: 0x%02X", body[0])
	}
	return Response{State: decodeState(body)}, nil
}

// EncodeResponse serializes r as the status report an appliance would send.
func EncodeResponse(r Response, deviceID uint64, msgType uint8) ([]byte, error) {
	return EncodePacket(deviceID, msgType, ResponseBody(r))
}

// ResponseBody returns the status report frame body for r.
func ResponseBody(r Response) []byte {
	body := make([]byte, 25)
	body[0] = BodyStatusReport
	encodeState(body, r.State, false)
	return body
}

// ApplySetBody decodes a set command body into a state, keeping the sensor
// readings of current that a set command does not carry.
func ApplySetBody(current State, body []byte) (State, error) {
	if len(body) < MinResponseBody {
		return current, fmt.Errorf("set body too short: %d bytes (min %d)", len(body), MinResponseBody)
	}
	if body[0] != BodySetCommand {
		return current, fmt.Errorf("unexpected body tag: 0x%02X", body[0])
	}
	next := decodeState(body)
	next.IndoorTemperature = current.IndoorTemperature
	next.OutdoorTemperature = current.OutdoorTemperature
	next.Humidity = current.Humidity
	next.ApplianceError = current.ApplianceError
	return next, nil
}
