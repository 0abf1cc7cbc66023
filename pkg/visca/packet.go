// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package visca

import "fmt"

// Address identifies the sender and recipient of a packet.
// Broadcast is a distinct encoding, not recipient 0.
type Address struct {
	Sender    uint8
	Recipient uint8
	Broadcast bool
}

// CameraAddress returns the address of camera n as seen from the controller.
func CameraAddress(n int) Address {
	return Address{Sender: ControllerAddress, Recipient: uint8(n)}
}

// BroadcastAddress returns the address reaching every device on the bus.
func BroadcastAddress() Address {
	return Address{Sender: ControllerAddress, Broadcast: true}
}

// Header returns the header byte: 1 s2 s1 s0 0 r2 r1 r0, or 1 s2 s1 s0 1 0 0 0
// for broadcast.
func (a Address) Header() byte {
	rbits := a.Recipient & 0b111
	if a.Broadcast {
		rbits = BroadcastBits
	}
	return HeaderBit | (a.Sender&0b111)<<4 | rbits
}

// String returns a short form such as "0->1" or "0->*"
func (a Address) String() string {
	if a.Broadcast {
		return fmt.Sprintf("%d->*", a.Sender)
	}
	return fmt.Sprintf("%d->%d", a.Sender, a.Recipient)
}

// ParseHeader is the inverse of Address.Header. A broadcast header carries no
// recipient bits.
func ParseHeader(h byte) (Address, error) {
	if h&HeaderBit == 0 {
		return Address{}, fmt.Errorf("%w: 0x%02X", ErrBadHeader, h)
	}
	a := Address{Sender: (h >> 4) & 0b111}
	if h&BroadcastBits != 0 {
		if h&0b111 != 0 {
			return Address{}, fmt.Errorf("%w: 0x%02X has recipient bits with broadcast", ErrBadHeader, h)
		}
		a.Broadcast = true
	} else {
		a.Recipient = h & 0b111
	}
	return a, nil
}

// Packet is a framed VISCA message: header, 1-14 payload bytes, terminator.
type Packet struct {
	address Address
	payload []byte
}

// NewPacket creates a packet, checking the payload against the framing limits.
func NewPacket(address Address, payload []byte) (*Packet, error) {
	if len(payload) < MinPayloadSize || len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes (want %d-%d)", ErrPayloadLength, len(payload), MinPayloadSize, MaxPayloadSize)
	}
	for i, b := range payload {
		if b == Terminator {
			return nil, fmt.Errorf("%w: offset %d", ErrEmbeddedTerminator, i)
		}
	}
	p := make([]byte, len(payload))
	copy(p, payload)
	return &Packet{address: address, payload: p}, nil
}

// Address returns the packet's address
func (p *Packet) Address() Address {
	return p.address
}

// Payload returns the payload bytes between header and terminator
func (p *Packet) Payload() []byte {
	return p.payload
}

// Bytes returns the packet in wire format.
func (p *Packet) Bytes() []byte {
	frame := make([]byte, 0, len(p.payload)+2)
	frame = append(frame, p.address.Header())
	frame = append(frame, p.payload...)
	frame = append(frame, Terminator)
	return frame
}

// EncodePacket creates a complete wire-formatted VISCA packet.
func EncodePacket(address Address, payload []byte) ([]byte, error) {
	p, err := NewPacket(address, payload)
	if err != nil {
		return nil, err
	}
	return p.Bytes(), nil
}

// MustEncodePacket is EncodePacket for payloads known to be valid at
// construction time. Panics on an out-of-range payload.
func MustEncodePacket(address Address, payload []byte) []byte {
	frame, err := EncodePacket(address, payload)
	if err != nil {
		panic(fmt.Sprintf("visca: encode error: %v", err))
	}
	return frame
}

// ValidateFrame checks the framing of a raw frame and splits it into address
// and payload.
func ValidateFrame(raw []byte) (*Packet, error) {
	if len(raw) == 0 || raw[len(raw)-1] != Terminator {
		return nil, fmt.Errorf("%w: % X", ErrNotTerminated, raw)
	}
	if len(raw) > MaxPacketSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrFrameTooLong, len(raw), MaxPacketSize)
	}
	if len(raw) < MinPacketSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadLength, len(raw))
	}
	address, err := ParseHeader(raw[0])
	if err != nil {
		return nil, err
	}
	return NewPacket(address, raw[1:len(raw)-1])
}
