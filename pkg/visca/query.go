// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package visca

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// RetryPolicy bounds the retries of a query that got no usable answer.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
}

// DefaultRetryPolicy returns 5 attempts with 50ms, 100ms, 200ms, 400ms pauses
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  5,
		InitialDelay: 50 * time.Millisecond,
		Multiplier:   2,
		MaxDelay:     time.Second,
	}
}

// Delay returns the pause before retry n (1-based).
func (p RetryPolicy) Delay(n int) time.Duration {
	if p.InitialDelay <= 0 {
		return 0
	}
	if n <= 1 {
		return p.InitialDelay
	}
	mult := p.Multiplier
	if mult < 1.0 {
		mult = 1.0
	}
	delay := float64(p.InitialDelay) * math.Pow(mult, float64(n-1))
	if p.MaxDelay > 0 && delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	return time.Duration(delay)
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// QueryChannel runs the inquiry handshake: send, completion with payload.
type QueryChannel struct {
	t   *Transport
	cfg channelConfig
}

// NewQueryChannel creates a query channel over t
func NewQueryChannel(t *Transport, opts ...ChannelOption) *QueryChannel {
	return &QueryChannel{t: t, cfg: newChannelConfig(opts)}
}

// SendQuery sends 0x09||code to the camera at to and returns the reply
// payload with the reply header and terminator stripped.
//
// Buffer full, a timeout and a malformed reply are retried under the
// channel's RetryPolicy; once it runs out the error wraps ErrExhausted and the
// last failure. A syntax error or a not-executable reply ends the call at
// once, as does any failure of the link. The transport lock is released
// while waiting between attempts.
func (q *QueryChannel) SendQuery(ctx context.Context, code []byte, to Address) ([]byte, error) {
	payload := make([]byte, 0, len(code)+1)
	payload = append(payload, OpInquiry)
	payload = append(payload, code...)

	frame, err := EncodePacket(to, payload)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	attempts := q.cfg.retry.attempts()

	var last error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := sleepContext(ctx, q.cfg.retry.Delay(attempt-1)); err != nil {
				q.cfg.obs.ObserveExchange(OpSendQuery, OutcomeTransport, time.Since(start))
				return nil, err
			}
		}

		var data []byte
		err := q.t.Exchange(ctx, func(x *Exchange) error {
			var err error
			data, err = q.once(x, to, frame)
			return err
		})
		if err == nil {
			q.cfg.obs.ObserveExchange(OpSendQuery, OutcomeSuccess, time.Since(start))
			return data, nil
		}
		if !retryable(err) {
			q.cfg.obs.ObserveExchange(OpSendQuery, outcomeOf(err), time.Since(start))
			return nil, err
		}

		reason := ReplyMalformed
		var re *ReplyError
		if errors.As(err, &re) {
			reason = re.Reply.Kind
		}
		q.cfg.obs.ObserveRetry(OpSendQuery, reason)
		q.cfg.log.Debug().
			Hex("query", payload).
			Int("attempt", attempt).
			Str("reply", reason.String()).
			Msg("query not answered")
		last = err
	}

	err = fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempts, last)
	q.cfg.obs.ObserveExchange(OpSendQuery, OutcomeExhausted, time.Since(start))
	q.cfg.log.Warn().Hex("query", payload).Err(last).Msg("query retries exhausted")
	return nil, err
}

func (q *QueryChannel) once(x *Exchange, to Address, frame []byte) ([]byte, error) {
	if err := x.WriteFrame(frame); err != nil {
		return nil, err
	}

	r, err := receive(x, to)
	if err != nil {
		return nil, err
	}

	switch r.Kind {
	case ReplyPayload:
		data := make([]byte, len(r.Payload))
		copy(data, r.Payload)
		return data, nil
	case ReplyBufferFull:
		return nil, &ReplyError{Op: OpSendQuery, Reply: r, Err: ErrBufferFull}
	case ReplySyntaxError:
		return nil, &ReplyError{Op: OpSendQuery, Reply: r, Err: ErrSyntax}
	case ReplyNotExecutable:
		return nil, &ReplyError{Op: OpSendQuery, Reply: r, Err: ErrNotExecutable}
	default:
		return nil, &ReplyError{Op: OpSendQuery, Reply: r, Err: ErrMalformedReply, Cause: replyCause(r)}
	}
}

// retryable reports whether a query failure means "no usable answer"
func retryable(err error) bool {
	return errors.Is(err, ErrBufferFull) || errors.Is(err, ErrMalformedReply)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
