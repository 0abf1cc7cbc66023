// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package visca

import (
	"errors"
	"time"
)

// Op names the handshake an exchange ran
type Op string

// Handshakes
const (
	OpSendCommand Op = "command"
	OpSendQuery   Op = "query"
)

// Outcome is how an exchange ended, as seen by an Observer
type Outcome string

// Outcomes
const (
	OutcomeSuccess    Outcome = "success"
	OutcomeRejected   Outcome = "rejected"
	OutcomeUnexpected Outcome = "unexpected"
	OutcomeMalformed  Outcome = "malformed"
	OutcomeExhausted  Outcome = "exhausted"
	OutcomeTransport  Outcome = "transport"
)

// Observer receives a callback for every finished exchange and every query
// retry. Implementations must be safe for concurrent use.
type Observer interface {
	ObserveExchange(op Op, outcome Outcome, d time.Duration)
	ObserveRetry(op Op, reason ReplyKind)
}

// Observers fans callbacks out to several observers
type Observers []Observer

// ObserveExchange implements Observer
func (o Observers) ObserveExchange(op Op, outcome Outcome, d time.Duration) {
	for _, obs := range o {
		obs.ObserveExchange(op, outcome, d)
	}
}

// ObserveRetry implements Observer
func (o Observers) ObserveRetry(op Op, reason ReplyKind) {
	for _, obs := range o {
		obs.ObserveRetry(op, reason)
	}
}

// outcomeOf maps an exchange result onto an Outcome
func outcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case Rejected(err):
		return OutcomeRejected
	case errors.Is(err, ErrExhausted):
		return OutcomeExhausted
	case errors.Is(err, ErrUnexpectedReply):
		return OutcomeUnexpected
	case errors.Is(err, ErrMalformedReply):
		return OutcomeMalformed
	default:
		return OutcomeTransport
	}
}
