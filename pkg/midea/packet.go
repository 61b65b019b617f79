// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package midea

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"
)

// Packet is a decoded LAN envelope.
type Packet struct {
	deviceID  uint64
	messageID uint32
	msgType   uint8
	body      []byte
}

// DeviceID returns the appliance id carried by the envelope.
func (p *Packet) DeviceID() uint64 { return p.deviceID }

// MessageID returns the envelope sequence number.
func (p *Packet) MessageID() uint32 { return p.messageID }

// Type returns the frame message type.
func (p *Packet) Type() uint8 { return p.msgType }

// Body returns the frame body.
func (p *Packet) Body() []byte { return p.body }

var messageSeq atomic.Uint32

// EncodeFrame builds a UART frame around body.
func EncodeFrame(msgType uint8, body []byte) ([]byte, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("empty frame body")
	}
	if len(body) > MaxBodySize {
		return nil, fmt.Errorf("frame body too large: %d bytes (max %d)", len(body), MaxBodySize)
	}

	total := FrameHeaderSize + len(body) + FrameTrailer
	frame := make([]byte, 0, total)
	frame = append(frame, FrameStart, byte(total-1), ApplianceTypeAC, 0, 0, 0, 0, 0, 0, msgType)
	frame = append(frame, body...)
	frame = append(frame, CalculateCRC8(body))
	frame = append(frame, Checksum(frame[1:]))
	return frame, nil
}

// DecodeFrame validates a UART frame and returns its message type and body.
func DecodeFrame(frame []byte) (uint8, []byte, error) {
	if len(frame) < FrameHeaderSize+1+FrameTrailer {
		return 0, nil, fmt.Errorf("frame too short: %d bytes", len(frame))
	}
	if frame[0] != FrameStart {
		return 0, nil, fmt.Errorf("invalid frame start: 0x%02X", frame[0])
	}
	if int(frame[1])+1 != len(frame) {
		return 0, nil, fmt.Errorf("frame length mismatch: header says %d, got %d", int(frame[1])+1, len(frame))
	}
	if frame[2] != ApplianceTypeAC {
		return 0, nil, fmt.Errorf("unsupported appliance type: 0x%02X", frame[2])
	}

	if sum := Checksum(frame[1 : len(frame)-1]); sum != frame[len(frame)-1] {
		return 0, nil, fmt.Errorf("checksum mismatch: expected 0x%02X, got 0x%02X", sum, frame[len(frame)-1])
	}

	body := frame[FrameHeaderSize : len(frame)-FrameTrailer]
	if crc := CalculateCRC8(body); crc != frame[len(frame)-2] {
		return 0, nil, fmt.Errorf("CRC8 mismatch: expected 0x%02X, got 0x%02X", crc, frame[len(frame)-2])
	}

	return frame[9], body, nil
}

// EncodePacket wraps a frame body in a UART frame and LAN envelope addressed
// to deviceID. Each call uses the next message id.
func EncodePacket(deviceID uint64, msgType uint8, body []byte) ([]byte, error) {
	return EncodePacketWithID(deviceID, messageSeq.Add(1), msgType, body)
}

// EncodePacketWithID is EncodePacket with an explicit message id.
func EncodePacketWithID(deviceID uint64, messageID uint32, msgType uint8, body []byte) ([]byte, error) {
	frame, err := EncodeFrame(msgType, body)
	if err != nil {
		return nil, err
	}

	total := EnvelopeHeaderSize + len(frame) + EnvelopeCRCSize
	packet := make([]byte, EnvelopeHeaderSize, total)

	binary.BigEndian.PutUint16(packet[0:2], EnvelopeMagic)
	packet[2] = 0x01
	packet[3] = 0x11
	binary.LittleEndian.PutUint16(packet[4:6], uint16(total))
	packet[6] = 0x20
	binary.LittleEndian.PutUint32(packet[8:12], messageID)
	binary.LittleEndian.PutUint64(packet[DeviceIDOffset:DeviceIDOffset+8], deviceID)

	packet = append(packet, frame...)

	// Append CRC (big-endian)
	crc := CalculateCRC(packet)
	packet = append(packet, byte(crc>>8), byte(crc&0xFF))

	return packet, nil
}

// DecodePacket validates a LAN envelope and the frame inside it.
func DecodePacket(data []byte) (*Packet, error) {
	if len(data) < EnvelopeHeaderSize+EnvelopeCRCSize {
		return nil, fmt.Errorf("packet too short: %d bytes", len(data))
	}
	if magic := binary.BigEndian.Uint16(data[0:2]); magic != EnvelopeMagic {
		return nil, fmt.Errorf("invalid envelope magic: 0x%04X", magic)
	}

	total := int(binary.LittleEndian.Uint16(data[4:6]))
	if total != len(data) {
		return nil, fmt.Errorf("envelope length mismatch: header says %d, got %d", total, len(data))
	}

	payload := data[:len(data)-EnvelopeCRCSize]
	expected := CalculateCRC(payload)
	received := binary.BigEndian.Uint16(data[len(data)-EnvelopeCRCSize:])
	if expected != received {
		return nil, fmt.Errorf("CRC mismatch: expected 0x%04X, got 0x%04X", expected, received)
	}

	msgType, body, err := DecodeFrame(payload[EnvelopeHeaderSize:])
	if err != nil {
		return nil, err
	}

	return &Packet{
		deviceID:  binary.LittleEndian.Uint64(data[DeviceIDOffset : DeviceIDOffset+8]),
		messageID: binary.LittleEndian.Uint32(data[8:12]),
		msgType:   msgType,
		body:      append([]byte(nil), body...),
	}, nil
}
