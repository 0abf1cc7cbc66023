// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package visca

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// DefaultCompletionTimeout is how long a command waits for its completion
// after the ack. Home, preset recall and long pan/tilt moves finish only when
// the head stops.
const DefaultCompletionTimeout = 30 * time.Second

// channelConfig holds the settings shared by CommandChannel and QueryChannel
type channelConfig struct {
	log        zerolog.Logger
	obs        Observer
	retry      RetryPolicy
	completion time.Duration
}

// ChannelOption configures a CommandChannel or QueryChannel
type ChannelOption func(*channelConfig)

// WithLogger sets the logger for handshake events
func WithLogger(l zerolog.Logger) ChannelOption {
	return func(c *channelConfig) { c.log = l }
}

// WithObserver registers an observer for exchange outcomes
func WithObserver(o Observer) ChannelOption {
	return func(c *channelConfig) {
		if o != nil {
			c.obs = o
		}
	}
}

// WithRetryPolicy sets the query retry policy. Commands never retry.
func WithRetryPolicy(p RetryPolicy) ChannelOption {
	return func(c *channelConfig) { c.retry = p }
}

// WithCompletionTimeout sets how long a command waits for its completion
// once acknowledged. Non-positive values keep the default.
func WithCompletionTimeout(d time.Duration) ChannelOption {
	return func(c *channelConfig) {
		if d > 0 {
			c.completion = d
		}
	}
}

func newChannelConfig(opts []ChannelOption) channelConfig {
	cfg := channelConfig{
		log:        zerolog.Nop(),
		obs:        Observers(nil),
		retry:      DefaultRetryPolicy(),
		completion: DefaultCompletionTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// CommandChannel runs the command handshake: send, ack, completion.
type CommandChannel struct {
	t   *Transport
	cfg channelConfig
}

// NewCommandChannel creates a command channel over t
func NewCommandChannel(t *Transport, opts ...ChannelOption) *CommandChannel {
	return &CommandChannel{t: t, cfg: newChannelConfig(opts)}
}

// SendCommand sends prefix||subcommand to the camera at to and waits for the
// ack and the completion on the same socket. The ack must arrive within the
// transport's byte timeout; the completion may take up to the completion
// timeout while the camera executes. It returns true only when the
// camera completed the command. A refusal (syntax error or not executable)
// returns false with an error for which Rejected is true. Commands are never
// retried.
func (c *CommandChannel) SendCommand(ctx context.Context, prefix, subcommand []byte, to Address) (bool, error) {
	payload := make([]byte, 0, len(prefix)+len(subcommand))
	payload = append(payload, prefix...)
	payload = append(payload, subcommand...)

	frame, err := EncodePacket(to, payload)
	if err != nil {
		return false, err
	}

	start := time.Now()
	err = c.t.Exchange(ctx, func(x *Exchange) error {
		return c.handshake(x, to, frame)
	})
	c.cfg.obs.ObserveExchange(OpSendCommand, outcomeOf(err), time.Since(start))

	if err != nil {
		c.cfg.log.Debug().Str("to", to.String()).Hex("payload", payload).Err(err).Msg("command failed")
		return false, err
	}
	return true, nil
}

func (c *CommandChannel) handshake(x *Exchange, to Address, frame []byte) error {
	if err := x.WriteFrame(frame); err != nil {
		return err
	}

	first, err := receive(x, to)
	if err != nil {
		return err
	}

	switch first.Kind {
	case ReplyAck:
		c.cfg.log.Debug().Int("socket", first.Socket).Msg("ack")

		second, err := receiveWithin(x, to, c.cfg.completion)
		if err != nil {
			return err
		}
		if second.Kind == ReplyCompletion && second.Socket == first.Socket {
			c.cfg.log.Debug().Int("socket", second.Socket).Msg("completion")
			return nil
		}
		return &ReplyError{Op: OpSendCommand, Reply: second, Err: ErrUnexpectedReply, Cause: replyCause(second)}

	case ReplySyntaxError:
		return &ReplyError{Op: OpSendCommand, Reply: first, Err: ErrSyntax}

	case ReplyNotExecutable:
		return &ReplyError{Op: OpSendCommand, Reply: first, Err: ErrNotExecutable}

	case ReplyBufferFull:
		return &ReplyError{Op: OpSendCommand, Reply: first, Err: ErrMalformedReply, Cause: ErrBufferFull}

	default:
		return &ReplyError{Op: OpSendCommand, Reply: first, Err: ErrMalformedReply, Cause: replyCause(first)}
	}
}

// receive reads and classifies one reply. A reply from a camera other than
// the addressed one is malformed. The error is set only for failures of the
// link itself.
func receive(x *Exchange, from Address) (Reply, error) {
	return receiveWithin(x, from, x.t.byteTimeout)
}

// receiveWithin is receive with its own wait before and between bytes.
func receiveWithin(x *Exchange, from Address, timeout time.Duration) (Reply, error) {
	frame, status, err := x.ReadFrameLimit(MaxPacketSize, timeout)
	if err != nil {
		return Reply{}, err
	}
	if status == ReadTimedOut {
		return timeoutReply(frame), nil
	}

	r := ParseReply(frame)
	if r.Kind != ReplyMalformed && !from.Broadcast && r.Source != from.Recipient {
		return Reply{Kind: ReplyMalformed, Source: r.Source, Raw: r.Raw}, nil
	}
	return r, nil
}

// replyCause explains why a reply is not usable, when there is a lower level
// reason
func replyCause(r Reply) error {
	switch r.Kind {
	case ReplyTimeout:
		return ErrTimeout
	case ReplyMalformed:
		if _, err := ValidateFrame(r.Raw); err != nil {
			return err
		}
	}
	return nil
}
