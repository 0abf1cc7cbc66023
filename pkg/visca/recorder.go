// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package visca

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

// Message is one recorded frame
type Message struct {
	Session   string    `cbor:"0,keyasint"`
	Direction Direction `cbor:"1,keyasint"`
	Data      []byte    `cbor:"2,keyasint"`
	Timestamp time.Time `cbor:"3,keyasint"`
}

var recordMode = func() cbor.EncMode {
	em, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("visca: cbor mode: %v", err))
	}
	return em
}()

// Recorder writes every frame it is given to Dest as a CBOR sequence.
// Tap it onto a Transport with WithTap(rec.Tap).
type Recorder struct {
	Dest    io.Writer
	Session uuid.UUID

	mu   sync.Mutex
	enc  *cbor.Encoder
	once sync.Once
	err  error
}

// NewRecorder creates a recorder with a fresh session id
func NewRecorder(dest io.Writer) *Recorder {
	return &Recorder{Dest: dest, Session: uuid.New()}
}

// Receive records one message
func (r *Recorder) Receive(msg Message) error {
	r.init()

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enc.Encode(msg); err != nil {
		if r.err == nil {
			r.err = err
		}
		return err
	}
	return nil
}

// Tap records a frame crossing the transport. Write failures are kept for Err.
func (r *Recorder) Tap(dir Direction, frame []byte) {
	_ = r.Receive(Message{
		Session:   r.Session.String(),
		Direction: dir,
		Data:      frame,
		Timestamp: time.Now(),
	})
}

// Err returns the first write error, if any
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *Recorder) init() {
	r.once.Do(func() {
		r.enc = recordMode.NewEncoder(r.Dest)
	})
}

// ReadIn decodes a recording into out, closing it at the end of input.
func ReadIn(out chan<- Message, r io.Reader) error {
	defer close(out)

	dec := cbor.NewDecoder(r)
	for {
		var msg Message
		if err := dec.Decode(&msg); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("while decoding: %w", err)
		}
		out <- msg
	}
}
