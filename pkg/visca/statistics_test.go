// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package visca

import (
	"strings"
	"testing"
	"time"
)

func TestStatistics_Observe(t *testing.T) {
	s := NewStatistics()

	s.ObserveExchange(OpSendCommand, OutcomeSuccess, 10*time.Millisecond)
	s.ObserveExchange(OpSendCommand, OutcomeRejected, 10*time.Millisecond)
	s.ObserveExchange(OpSendQuery, OutcomeSuccess, 30*time.Millisecond)
	s.ObserveExchange(OpSendQuery, OutcomeExhausted, 50*time.Millisecond)
	s.ObserveRetry(OpSendQuery, ReplyBufferFull)
	s.ObserveRetry(OpSendQuery, ReplyTimeout)
	s.ObserveRetry(OpSendQuery, ReplyMalformed)

	if s.Commands != 2 || s.Queries != 2 {
		t.Errorf("Commands/Queries = %d/%d, want 2/2", s.Commands, s.Queries)
	}
	if s.Succeeded != 2 || s.Rejected != 1 || s.Exhausted != 1 {
		t.Errorf("Succeeded/Rejected/Exhausted = %d/%d/%d, want 2/1/1", s.Succeeded, s.Rejected, s.Exhausted)
	}
	if s.Retries != 3 || s.BufferFull != 1 || s.Timeouts != 1 {
		t.Errorf("Retries/BufferFull/Timeouts = %d/%d/%d, want 3/1/1", s.Retries, s.BufferFull, s.Timeouts)
	}

	s.CalculateRates()
	if s.MeanLatency != 25*time.Millisecond {
		t.Errorf("MeanLatency = %v, want 25ms", s.MeanLatency)
	}

	out := s.String()
	for _, want := range []string{"Exchanges:", "Rejected:", "Exhausted:", "Buffer Full:", "Timeouts:"} {
		if !strings.Contains(out, want) {
			t.Errorf("String() missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Malformed:") {
		t.Errorf("String() shows an empty counter:\n%s", out)
	}

	snap := s.Snapshot()
	if snap.Commands != 2 || snap.Queries != 2 || snap.Succeeded != 2 || snap.Failed != 2 || snap.Retries != 3 {
		t.Errorf("Snapshot() = %+v", snap)
	}

	s.Reset()
	if s.Commands != 0 || s.Retries != 0 || s.MeanLatency != 0 {
		t.Errorf("Reset() left counters: %+v", s)
	}
}

func TestObservers_FanOut(t *testing.T) {
	a, b := NewStatistics(), NewStatistics()
	obs := Observers{a, b}

	obs.ObserveExchange(OpSendQuery, OutcomeTransport, time.Millisecond)
	obs.ObserveRetry(OpSendQuery, ReplyBufferFull)

	for i, s := range []*Statistics{a, b} {
		if s.TransportErrors != 1 || s.BufferFull != 1 {
			t.Errorf("observer %d: transport=%d buffer full=%d, want 1/1", i, s.TransportErrors, s.BufferFull)
		}
	}
}
