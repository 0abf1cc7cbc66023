// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package visca

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// DefaultByteTimeout is the inactivity limit between two bytes of a reply.
const DefaultByteTimeout = 500 * time.Millisecond

// maxStrayFrames bounds how many stale frames WriteFrame discards before
// sending.
const maxStrayFrames = 4

// Connection is the byte stream under a Transport, usually a serial port.
type Connection interface {
	io.Reader
	io.Writer
	io.Closer
}

// Opener opens the device named portName at 9600 baud, 8N1, no flow control.
type Opener func(portName string) (Connection, error)

// Direction tells whether a frame was sent or received
type Direction int

// Directions
const (
	DirectionOut Direction = iota
	DirectionIn
)

// String returns "tx" or "rx"
func (d Direction) String() string {
	if d == DirectionOut {
		return "tx"
	}
	return "rx"
}

// Tap observes every frame crossing the transport.
type Tap func(dir Direction, frame []byte)

// ReadStatus tells why ReadFrame stopped
type ReadStatus int

// Read statuses
const (
	ReadTerminated ReadStatus = iota
	ReadTimedOut
	ReadLimit
)

// String returns the human-readable name for a read status
func (s ReadStatus) String() string {
	switch s {
	case ReadTerminated:
		return "terminated"
	case ReadTimedOut:
		return "timed out"
	case ReadLimit:
		return "byte limit"
	default:
		return "unknown"
	}
}

// link is one attached connection and its reader goroutine
type link struct {
	conn    Connection
	rx      chan byte
	closing chan struct{}
	done    chan struct{}
	err     error // valid once done is closed
}

// Transport owns the serial connection and serializes complete exchanges.
// Replies carry no request identifier, so one caller's write and the reads
// that answer it must never interleave with another caller's.
type Transport struct {
	lock *semaphore.Weighted

	mu   sync.Mutex
	link *link
	name string

	opener      Opener
	byteTimeout time.Duration
	taps        []Tap
	log         zerolog.Logger
}

// TransportOption configures a Transport
type TransportOption func(*Transport)

// WithOpener replaces the serial opener used by Open
func WithOpener(o Opener) TransportOption {
	return func(t *Transport) { t.opener = o }
}

// WithByteTimeout sets the per-byte inactivity timeout for reads
func WithByteTimeout(d time.Duration) TransportOption {
	return func(t *Transport) {
		if d > 0 {
			t.byteTimeout = d
		}
	}
}

// WithTap adds an observer for every frame written or read
func WithTap(tap Tap) TransportOption {
	return func(t *Transport) { t.taps = append(t.taps, tap) }
}

// WithTransportLogger sets the logger for frame traces
func WithTransportLogger(l zerolog.Logger) TransportOption {
	return func(t *Transport) { t.log = l }
}

// NewTransport creates an unconnected transport.
func NewTransport(opts ...TransportOption) *Transport {
	t := &Transport{
		lock:        semaphore.NewWeighted(1),
		opener:      OpenSerial,
		byteTimeout: DefaultByteTimeout,
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Open opens portName under the transport lock. On failure the transport
// stays unconnected and later exchanges report ErrNotConnected. Opening the
// port that is already open is a no-op; any other port fails with
// ErrAlreadyOpen until Close.
func (t *Transport) Open(portName string) error {
	if err := t.lock.Acquire(context.Background(), 1); err != nil {
		return err
	}
	defer t.lock.Release(1)

	if t.Connected() {
		if name := t.Name(); name != portName {
			return fmt.Errorf("%w: %s is open, not %s", ErrAlreadyOpen, name, portName)
		}
		return nil
	}

	conn, err := t.opener(portName)
	if err != nil {
		t.log.Error().Str("port", portName).Err(err).Msg("open failed")
		return fmt.Errorf("%w: %s: %v", ErrPortUnavailable, portName, err)
	}

	t.attach(conn, portName)
	t.log.Debug().Str("port", portName).Msg("port open")
	return nil
}

// Attach connects the transport to an already open stream.
func (t *Transport) Attach(conn Connection) {
	t.attach(conn, "")
}

func (t *Transport) attach(conn Connection, name string) {
	l := &link{
		conn:    conn,
		rx:      make(chan byte, 256),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go l.readLoop()

	t.mu.Lock()
	old := t.link
	t.link = l
	t.name = name
	t.mu.Unlock()

	if old != nil {
		old.close()
	}
}

// Connected reports whether a connection is attached and its reader alive
func (t *Transport) Connected() bool {
	l := t.current()
	if l == nil {
		return false
	}
	select {
	case <-l.done:
		return len(l.rx) > 0
	default:
		return true
	}
}

// Name returns the port name given to Open, if any
func (t *Transport) Name() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.name
}

// Close closes the connection. The transport can be reopened afterwards.
func (t *Transport) Close() error {
	t.mu.Lock()
	l := t.link
	t.link = nil
	t.mu.Unlock()

	if l == nil {
		return nil
	}
	return l.close()
}

func (t *Transport) current() *link {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.link
}

// Exchange runs fn with exclusive use of the wire. The lock is held for the
// whole of fn, so a write and every read answering it form one unit.
func (t *Transport) Exchange(ctx context.Context, fn func(x *Exchange) error) error {
	if err := t.lock.Acquire(ctx, 1); err != nil {
		return err
	}
	defer t.lock.Release(1)

	l := t.current()
	if l == nil {
		t.log.Warn().Msg("exchange without connection")
		return ErrNotConnected
	}

	return fn(&Exchange{t: t, l: l, ctx: ctx})
}

// Exchange is the lock-holding view of the transport handed to Transport.Exchange
type Exchange struct {
	t   *Transport
	l   *link
	ctx context.Context
}

// WriteFrame writes a frame. Bytes already waiting on the line are read and
// discarded first as a stray earlier reply.
func (x *Exchange) WriteFrame(frame []byte) error {
	if x.l == nil {
		return ErrNotConnected
	}

	for i := 0; i < maxStrayFrames && len(x.l.rx) > 0; i++ {
		stray, _, err := x.ReadFrame()
		if err != nil {
			return err
		}
		x.t.log.Warn().Hex("frame", stray).Msg("discarding stray reply")
	}

	if _, err := x.l.conn.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	x.t.log.Trace().Hex("frame", frame).Msg("tx")
	x.t.notify(DirectionOut, frame)
	return nil
}

// ReadFrame reads one frame of at most MaxPacketSize bytes using the
// transport's byte timeout.
func (x *Exchange) ReadFrame() ([]byte, ReadStatus, error) {
	return x.ReadFrameLimit(MaxPacketSize, x.t.byteTimeout)
}

// ReadFrameLimit reads byte by byte until the terminator, maxBytes, or a
// byte timeout. Whatever was accumulated is returned along with the reason
// reading stopped. The error is set only when the connection goes away or
// the exchange context ends.
func (x *Exchange) ReadFrameLimit(maxBytes int, byteTimeout time.Duration) ([]byte, ReadStatus, error) {
	if x.l == nil {
		return nil, ReadTimedOut, ErrNotConnected
	}

	frame := make([]byte, 0, maxBytes)
	timer := time.NewTimer(byteTimeout)
	defer timer.Stop()

	for len(frame) < maxBytes {
		b, err := x.l.next(x.ctx, timer.C)
		if err == errByteTimeout {
			x.t.log.Debug().Hex("partial", frame).Dur("timeout", byteTimeout).Msg("read timed out")
			if len(frame) > 0 {
				x.t.notify(DirectionIn, frame)
			}
			return frame, ReadTimedOut, nil
		}
		if err != nil {
			return frame, ReadTimedOut, err
		}

		frame = append(frame, b)
		if b == Terminator {
			x.t.log.Trace().Hex("frame", frame).Msg("rx")
			x.t.notify(DirectionIn, frame)
			return frame, ReadTerminated, nil
		}
		timer.Reset(byteTimeout)
	}

	x.t.log.Debug().Hex("partial", frame).Msg("read hit byte limit")
	x.t.notify(DirectionIn, frame)
	return frame, ReadLimit, nil
}

func (t *Transport) notify(dir Direction, frame []byte) {
	for _, tap := range t.taps {
		c := make([]byte, len(frame))
		copy(c, frame)
		tap(dir, c)
	}
}

type timeoutError struct{}

func (timeoutError) Error() string { return "byte timeout" }

var errByteTimeout error = timeoutError{}

// next returns the next received byte
func (l *link) next(ctx context.Context, timeout <-chan time.Time) (byte, error) {
	select {
	case b := <-l.rx:
		return b, nil
	case <-l.done:
		// bytes read before the connection failed are still valid
		select {
		case b := <-l.rx:
			return b, nil
		default:
		}
		if l.err != nil {
			return 0, fmt.Errorf("%w: %v", ErrNotConnected, l.err)
		}
		return 0, ErrNotConnected
	case <-timeout:
		return 0, errByteTimeout
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (l *link) readLoop() {
	defer close(l.done)

	buf := make([]byte, 64)
	for {
		n, err := l.conn.Read(buf)
		for i := 0; i < n; i++ {
			select {
			case l.rx <- buf[i]:
			case <-l.closing:
				return
			}
		}
		if err != nil {
			select {
			case <-l.closing:
			default:
				l.err = err
			}
			return
		}
	}
}

func (l *link) close() error {
	select {
	case <-l.closing:
		return nil
	default:
		close(l.closing)
	}
	return l.conn.Close()
}
