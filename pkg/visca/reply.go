// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package visca

// ReplyKind classifies a frame received from a camera
type ReplyKind int

// Reply kinds
const (
	ReplyMalformed ReplyKind = iota
	ReplyTimeout
	ReplyAck
	ReplyCompletion
	ReplyPayload
	ReplySyntaxError
	ReplyNotExecutable
	ReplyBufferFull
)

// String returns the human-readable name for a reply kind
func (k ReplyKind) String() string {
	switch k {
	case ReplyMalformed:
		return "MALFORMED"
	case ReplyTimeout:
		return "TIMEOUT"
	case ReplyAck:
		return "ACK"
	case ReplyCompletion:
		return "COMPLETION"
	case ReplyPayload:
		return "COMPLETION_PAYLOAD"
	case ReplySyntaxError:
		return "SYNTAX_ERROR"
	case ReplyNotExecutable:
		return "NOT_EXECUTABLE"
	case ReplyBufferFull:
		return "BUFFER_FULL"
	default:
		return "UNKNOWN"
	}
}

// Reply is a classified camera reply. Socket is set for Ack, Completion and
// NotExecutable; Payload only for ReplyPayload, already stripped of the
// two-byte reply header and the terminator.
type Reply struct {
	Kind    ReplyKind
	Source  uint8
	Socket  int
	Payload []byte
	Raw     []byte
}

// ParseReply classifies one frame read from the wire.
func ParseReply(frame []byte) Reply {
	r := Reply{Kind: ReplyMalformed, Raw: frame}

	p, err := ValidateFrame(frame)
	if err != nil {
		return r
	}
	addr := p.Address()
	if addr.Broadcast || addr.Recipient != ControllerAddress {
		return r
	}
	r.Source = addr.Sender

	payload := p.Payload()
	msg := payload[0]
	socket := int(msg & 0x0F)

	switch msg & 0xF0 {
	case replyAck:
		if len(payload) == 1 && (socket == Socket1 || socket == Socket2) {
			r.Kind = ReplyAck
			r.Socket = socket
		}

	case replyCompletion:
		r.Socket = socket
		if len(payload) == 1 {
			r.Kind = ReplyCompletion
		} else {
			r.Kind = ReplyPayload
			r.Payload = payload[1:]
		}

	case replyError:
		if len(payload) != 2 {
			return r
		}
		switch payload[1] {
		case errCodeSyntax:
			r.Kind = ReplySyntaxError
		case errCodeBufferFull:
			r.Kind = ReplyBufferFull
		case errCodeNotExecutable:
			if socket == Socket1 || socket == Socket2 {
				r.Kind = ReplyNotExecutable
				r.Socket = socket
			}
		}
	}

	return r
}

// timeoutReply is what a read that produced no complete frame turns into
func timeoutReply(partial []byte) Reply {
	return Reply{Kind: ReplyTimeout, Raw: partial}
}
