// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package visca

import (
	"bytes"
	"io"
	"sync"
	"testing"
	"time"
)

// ============================================================
// Scripted Connection
// ============================================================

// scriptedConn is a fake serial line. Every write is recorded and answered
// with whatever respond returns for it; nil means the camera stays silent.
type scriptedConn struct {
	respond func(n int, frame []byte) []byte

	pr   *io.PipeReader
	pw   *io.PipeWriter
	feed chan []byte

	mu     sync.Mutex
	writes [][]byte
	closed bool
}

func newScriptedConn(respond func(n int, frame []byte) []byte) *scriptedConn {
	pr, pw := io.Pipe()
	c := &scriptedConn{
		respond: respond,
		pr:      pr,
		pw:      pw,
		feed:    make(chan []byte, 64),
	}
	go func() {
		for b := range c.feed {
			if _, err := c.pw.Write(b); err != nil {
				return
			}
		}
	}()
	return c
}

// script answers the n-th write with replies[n]; writes beyond the script
// get no answer.
func script(replies ...[]byte) func(int, []byte) []byte {
	return func(n int, _ []byte) []byte {
		if n < len(replies) {
			return replies[n]
		}
		return nil
	}
}

func (c *scriptedConn) Read(p []byte) (int, error) {
	return c.pr.Read(p)
}

func (c *scriptedConn) Write(p []byte) (int, error) {
	frame := append([]byte(nil), p...)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, io.ErrClosedPipe
	}
	n := len(c.writes)
	c.writes = append(c.writes, frame)

	if c.respond != nil {
		if reply := c.respond(n, frame); len(reply) > 0 {
			c.feed <- reply
		}
	}
	return len(p), nil
}

func (c *scriptedConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.feed)
	c.pr.Close()
	return c.pw.Close()
}

// inject puts bytes on the line without a preceding write
func (c *scriptedConn) inject(b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.feed <- b
	}
}

func (c *scriptedConn) Writes() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.writes...)
}

// ============================================================
// Helpers
// ============================================================

const (
	testByteTimeout       = 50 * time.Millisecond
	testCompletionTimeout = 4 * testByteTimeout
)

func fastRetry() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  5,
		InitialDelay: time.Millisecond,
		Multiplier:   2,
		MaxDelay:     5 * time.Millisecond,
	}
}

func newTestTransport(t *testing.T, conn Connection, opts ...TransportOption) *Transport {
	t.Helper()
	opts = append([]TransportOption{WithByteTimeout(testByteTimeout)}, opts...)
	tr := NewTransport(opts...)
	tr.Attach(conn)
	t.Cleanup(func() { tr.Close() })
	return tr
}

// waitPending blocks until the transport has buffered at least n bytes
func waitPending(t *testing.T, tr *Transport, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if l := tr.current(); l != nil && len(l.rx) >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("transport never buffered %d bytes", n)
}

func frames(parts ...[]byte) []byte {
	return bytes.Join(parts, nil)
}

// Camera 1 replies
var (
	ack1        = []byte{0x90, 0x41, 0xFF}
	ack2        = []byte{0x90, 0x42, 0xFF}
	completion1 = []byte{0x90, 0x51, 0xFF}
	completion2 = []byte{0x90, 0x52, 0xFF}
	syntaxError = []byte{0x90, 0x60, 0x02, 0xFF}
	bufferFull  = []byte{0x90, 0x60, 0x03, 0xFF}
	notExec1    = []byte{0x90, 0x61, 0x41, 0xFF}
)

func payloadReply(payload ...byte) []byte {
	return frames([]byte{0x90, 0x50}, payload, []byte{0xFF})
}
