// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package visca implements the VISCA serial protocol used to drive
// pan-tilt-zoom cameras.
//
// The package covers packet framing and addressing, the command handshake
// (send, ack, completion), the query handshake (send, completion with
// payload, bounded buffer-full retry) and decoding of inquiry payloads into
// typed values. A Transport owns the serial link and serializes complete
// request/response exchanges; CommandChannel and QueryChannel run the
// handshakes on top of it, and Camera offers named get/set access backed by
// a declarative property catalog.
package visca

// Framing
const (
	HeaderBit  = 0x80
	Terminator = 0xFF

	// BroadcastBits replaces the recipient bits for a broadcast header.
	BroadcastBits = 0x08
)

// Packet size limits
const (
	MinPayloadSize = 1
	MaxPayloadSize = 14
	MinPacketSize  = MinPayloadSize + 2
	MaxPacketSize  = MaxPayloadSize + 2
)

// Addresses
const (
	ControllerAddress = 0
	MaxAddress        = 7
)

// Opcodes
const (
	OpCommand = 0x01
	OpInquiry = 0x09
)

// Command family prefixes
var (
	PrefixCamera      = []byte{0x01, 0x04}
	PrefixPanTilt     = []byte{0x01, 0x06}
	PrefixIRReceive   = []byte{0x01, 0x06, 0x08}
	PrefixInfoDisplay = []byte{0x01, 0x7E, 0x01, 0x18}
)

// Reply message bytes (second byte of a reply frame, high nibble)
const (
	replyAck        = 0x40
	replyCompletion = 0x50
	replyError      = 0x60
)

// Error codes (third byte of an error reply)
const (
	errCodeSyntax        = 0x02
	errCodeBufferFull    = 0x03
	errCodeNotExecutable = 0x41
)

// Toggle values used by on/off settings
const (
	ToggleOn  = 0x02
	ToggleOff = 0x03
)

// Sockets
const (
	SocketNone = 0
	Socket1    = 1
	Socket2    = 2
)
