// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package visca

import (
	"fmt"
	"sync"
	"time"
)

// Statistics tracks exchange outcomes and retry counts. It implements
// Observer and is safe for concurrent use.
type Statistics struct {
	mu sync.Mutex

	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	Commands        uint64
	Queries         uint64
	Succeeded       uint64
	Rejected        uint64
	Unexpected      uint64
	Malformed       uint64
	Exhausted       uint64
	TransportErrors uint64
	Retries         uint64
	BufferFull      uint64
	Timeouts        uint64

	busy time.Duration

	// Rates (calculated)
	ExchangeRate float64 // exchanges/sec
	ErrorRate    float64 // failures/sec
	MeanLatency  time.Duration
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// ObserveExchange implements Observer
func (s *Statistics) ObserveExchange(op Op, outcome Outcome, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch op {
	case OpSendCommand:
		s.Commands++
	case OpSendQuery:
		s.Queries++
	}

	switch outcome {
	case OutcomeSuccess:
		s.Succeeded++
	case OutcomeRejected:
		s.Rejected++
	case OutcomeUnexpected:
		s.Unexpected++
	case OutcomeMalformed:
		s.Malformed++
	case OutcomeExhausted:
		s.Exhausted++
	default:
		s.TransportErrors++
	}

	s.busy += d
	s.LastUpdateTime = time.Now()
}

// ObserveRetry implements Observer
func (s *Statistics) ObserveRetry(op Op, reason ReplyKind) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Retries++
	switch reason {
	case ReplyBufferFull:
		s.BufferFull++
	case ReplyTimeout:
		s.Timeouts++
	}
	s.LastUpdateTime = time.Now()
}

func (s *Statistics) total() uint64 {
	return s.Commands + s.Queries
}

func (s *Statistics) failures() uint64 {
	return s.Rejected + s.Unexpected + s.Malformed + s.Exhausted + s.TransportErrors
}

// CalculateRates calculates exchange and error rates
func (s *Statistics) CalculateRates() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calculateRates()
}

func (s *Statistics) calculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.ExchangeRate = float64(s.total()) / elapsed
		s.ErrorRate = float64(s.failures()) / elapsed
	}
	if n := s.total(); n > 0 {
		s.MeanLatency = s.busy / time.Duration(n)
	}
}

// Counts is a point-in-time copy of the headline counters and rates
type Counts struct {
	Commands     uint64
	Queries      uint64
	Succeeded    uint64
	Failed       uint64
	Retries      uint64
	ExchangeRate float64
	MeanLatency  time.Duration
}

// Snapshot recalculates the rates and returns the headline counters
func (s *Statistics) Snapshot() Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calculateRates()

	return Counts{
		Commands:     s.Commands,
		Queries:      s.Queries,
		Succeeded:    s.Succeeded,
		Failed:       s.failures(),
		Retries:      s.Retries,
		ExchangeRate: s.ExchangeRate,
		MeanLatency:  s.MeanLatency,
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calculateRates()

	total := s.total()
	percent := func(n uint64) float64 {
		if total == 0 {
			return 0
		}
		return float64(n) * 100.0 / float64(total)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Exchanges:       %8d (%d commands, %d queries)\n", total, s.Commands, s.Queries)
	result += fmt.Sprintf("Succeeded:       %8d (%.1f%%)\n", s.Succeeded, percent(s.Succeeded))

	if s.Rejected > 0 {
		result += fmt.Sprintf("Rejected:        %8d (%.1f%%)\n", s.Rejected, percent(s.Rejected))
	}
	if s.Unexpected > 0 {
		result += fmt.Sprintf("Unexpected:      %8d (%.1f%%)\n", s.Unexpected, percent(s.Unexpected))
	}
	if s.Malformed > 0 {
		result += fmt.Sprintf("Malformed:       %8d (%.1f%%)\n", s.Malformed, percent(s.Malformed))
	}
	if s.Exhausted > 0 {
		result += fmt.Sprintf("Exhausted:       %8d (%.1f%%)\n", s.Exhausted, percent(s.Exhausted))
	}
	if s.TransportErrors > 0 {
		result += fmt.Sprintf("Link Errors:     %8d (%.1f%%)\n", s.TransportErrors, percent(s.TransportErrors))
	}
	if s.Retries > 0 {
		result += fmt.Sprintf("Retries:         %8d\n", s.Retries)
		if s.BufferFull > 0 {
			result += fmt.Sprintf("  Buffer Full:      %5d\n", s.BufferFull)
		}
		if s.Timeouts > 0 {
			result += fmt.Sprintf("  Timeouts:         %5d\n", s.Timeouts)
		}
	}

	result += fmt.Sprintf("Exchange Rate:   %8.1f /sec\n", s.ExchangeRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += fmt.Sprintf("Mean Latency:    %8s\n", s.MeanLatency.Round(time.Millisecond))
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.StartTime = now
	s.LastUpdateTime = now
	s.Commands = 0
	s.Queries = 0
	s.Succeeded = 0
	s.Rejected = 0
	s.Unexpected = 0
	s.Malformed = 0
	s.Exhausted = 0
	s.TransportErrors = 0
	s.Retries = 0
	s.BufferFull = 0
	s.Timeouts = 0
	s.busy = 0
	s.ExchangeRate = 0
	s.ErrorRate = 0
	s.MeanLatency = 0
}
