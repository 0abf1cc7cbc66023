// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package visca

import (
	"fmt"
	"strings"
)

// FormatFrame formats a frame seen on the wire into a human-readable line.
// Received frames are classified as replies; sent frames are described by
// their address and opcode.
func FormatFrame(dir Direction, frame []byte) string {
	if dir == DirectionIn {
		return fmt.Sprintf("%s %-24s %s", dir, FormatHex(frame), FormatReply(ParseReply(frame)))
	}

	p, err := ValidateFrame(frame)
	if err != nil {
		return fmt.Sprintf("%s %-24s INVALID (%v)", dir, FormatHex(frame), err)
	}
	return fmt.Sprintf("%s %-24s %s %s", dir, FormatHex(frame), FormatOpcode(p.Payload()[0]), p.Address())
}

// FormatReply returns a short description such as "ACK socket 1"
func FormatReply(r Reply) string {
	switch r.Kind {
	case ReplyAck, ReplyCompletion, ReplyNotExecutable:
		return fmt.Sprintf("%s socket %d", r.Kind, r.Socket)
	case ReplyPayload:
		return fmt.Sprintf("%s %s", r.Kind, FormatHex(r.Payload))
	default:
		return r.Kind.String()
	}
}

// FormatOpcode returns the human-readable name for a request opcode
func FormatOpcode(op byte) string {
	switch op {
	case OpCommand:
		return "COMMAND"
	case OpInquiry:
		return "INQUIRY"
	default:
		return fmt.Sprintf("OPCODE_%02X", op)
	}
}

// FormatHex formats bytes as space separated upper-case hex pairs
func FormatHex(b []byte) string {
	var sb strings.Builder
	for i, c := range b {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", c)
	}
	return sb.String()
}

// FormatMessage formats a recorded message with its timestamp
func FormatMessage(m Message) string {
	return fmt.Sprintf("[%s] %s", m.Timestamp.Format("15:04:05.000"), FormatFrame(m.Direction, m.Data))
}
