// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package visca

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"
)

func TestSendCommand(t *testing.T) {
	tests := []struct {
		name     string
		reply    []byte
		ok       bool
		wantErr  error
		rejected bool
	}{
		{"ack 1 completion 1", frames(ack1, completion1), true, nil, false},
		{"ack 2 completion 2", frames(ack2, completion2), true, nil, false},
		{"ack 1 completion 2", frames(ack1, completion2), false, ErrUnexpectedReply, false},
		{"ack 2 completion 1", frames(ack2, completion1), false, ErrUnexpectedReply, false},
		{"ack then syntax error", frames(ack1, syntaxError), false, ErrUnexpectedReply, false},
		{"ack then silence", ack1, false, ErrUnexpectedReply, false},
		{"syntax error", syntaxError, false, ErrSyntax, true},
		{"not executable", notExec1, false, ErrNotExecutable, true},
		{"not executable socket 2", []byte{0x90, 0x62, 0x41, 0xFF}, false, ErrNotExecutable, true},
		{"buffer full", bufferFull, false, ErrBufferFull, false},
		{"completion without ack", completion1, false, ErrMalformedReply, false},
		{"garbage", []byte{0x12, 0x34, 0xFF}, false, ErrMalformedReply, false},
		{"silence", nil, false, ErrMalformedReply, false},
		{"reply from another camera", []byte{0xA0, 0x41, 0xFF}, false, ErrMalformedReply, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := newScriptedConn(script(tt.reply))
			tr := newTestTransport(t, conn)
			stats := NewStatistics()
			ch := NewCommandChannel(tr, WithObserver(stats), WithCompletionTimeout(testCompletionTimeout))

			ok, err := ch.SendCommand(context.Background(), PrefixCamera, []byte{0x00, 0x02}, CameraAddress(1))
			if ok != tt.ok {
				t.Errorf("SendCommand() ok = %v, want %v", ok, tt.ok)
			}
			if tt.wantErr == nil && err != nil {
				t.Errorf("SendCommand() error = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("SendCommand() error = %v, want %v", err, tt.wantErr)
			}
			if Rejected(err) != tt.rejected {
				t.Errorf("Rejected() = %v, want %v", Rejected(err), tt.rejected)
			}

			writes := conn.Writes()
			if len(writes) != 1 {
				t.Fatalf("command written %d times, want 1 (no retry)", len(writes))
			}
			if !bytes.Equal(writes[0], powerOn) {
				t.Errorf("written frame = % X, want % X", writes[0], powerOn)
			}
			if stats.Commands != 1 {
				t.Errorf("Statistics.Commands = %d, want 1", stats.Commands)
			}
		})
	}
}

func TestSendCommand_BufferFull(t *testing.T) {
	conn := newScriptedConn(script(bufferFull))
	tr := newTestTransport(t, conn)
	ch := NewCommandChannel(tr)

	_, err := ch.SendCommand(context.Background(), PrefixCamera, []byte{0x00, 0x02}, CameraAddress(1))
	if !errors.Is(err, ErrMalformedReply) || !errors.Is(err, ErrBufferFull) {
		t.Errorf("error = %v, want ErrMalformedReply caused by ErrBufferFull", err)
	}
	if Rejected(err) {
		t.Error("Rejected() = true for a full buffer")
	}
}

func TestSendCommand_SlowCompletion(t *testing.T) {
	conn := newScriptedConn(script(ack1, frames(ack2, completion2)))
	tr := newTestTransport(t, conn)
	ch := NewCommandChannel(tr, WithCompletionTimeout(20*testByteTimeout))

	go func() {
		time.Sleep(5 * testByteTimeout)
		conn.inject(completion1)
	}()

	start := time.Now()
	ok, err := ch.SendCommand(context.Background(), PrefixPanTilt, []byte{0x04}, CameraAddress(1))
	if !ok || err != nil {
		t.Fatalf("SendCommand() = %v, %v; want completion after several byte timeouts", ok, err)
	}
	if elapsed := time.Since(start); elapsed < 4*testByteTimeout {
		t.Errorf("SendCommand() returned after %v, before the completion was sent", elapsed)
	}

	// The next command must see its own replies, not a late completion.
	ok, err = ch.SendCommand(context.Background(), PrefixPanTilt, []byte{0x04}, CameraAddress(1))
	if !ok || err != nil {
		t.Errorf("second SendCommand() = %v, %v; want success", ok, err)
	}
}

func TestSendCommand_CompletionTimeout(t *testing.T) {
	conn := newScriptedConn(script(ack1))
	tr := newTestTransport(t, conn)
	ch := NewCommandChannel(tr, WithCompletionTimeout(3*testByteTimeout))

	start := time.Now()
	_, err := ch.SendCommand(context.Background(), PrefixPanTilt, []byte{0x04}, CameraAddress(1))
	if !errors.Is(err, ErrUnexpectedReply) || !errors.Is(err, ErrTimeout) {
		t.Errorf("error = %v, want ErrUnexpectedReply caused by ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed < 3*testByteTimeout {
		t.Errorf("gave up after %v, before the completion timeout", elapsed)
	}
}

func TestSendCommand_TimeoutCause(t *testing.T) {
	conn := newScriptedConn(nil)
	tr := newTestTransport(t, conn)
	ch := NewCommandChannel(tr)

	_, err := ch.SendCommand(context.Background(), PrefixCamera, []byte{0x00, 0x02}, CameraAddress(1))
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("error = %v, want it to wrap ErrTimeout", err)
	}

	var re *ReplyError
	if !errors.As(err, &re) {
		t.Fatalf("error %T is not a *ReplyError", err)
	}
	if re.Op != OpSendCommand || re.Reply.Kind != ReplyTimeout {
		t.Errorf("ReplyError = %+v, want command timeout", re)
	}
}

func TestSendCommand_OtherCamera(t *testing.T) {
	conn := newScriptedConn(script(frames([]byte{0xB0, 0x42, 0xFF}, []byte{0xB0, 0x52, 0xFF})))
	tr := newTestTransport(t, conn)
	ch := NewCommandChannel(tr)

	ok, err := ch.SendCommand(context.Background(), PrefixPanTilt, []byte{0x04}, CameraAddress(3))
	if !ok || err != nil {
		t.Fatalf("SendCommand() = %v, %v; want success", ok, err)
	}
	want := []byte{0x83, 0x01, 0x06, 0x04, 0xFF}
	if got := conn.Writes()[0]; !bytes.Equal(got, want) {
		t.Errorf("written frame = % X, want % X", got, want)
	}
}

func TestSendCommand_PayloadTooLong(t *testing.T) {
	conn := newScriptedConn(nil)
	tr := newTestTransport(t, conn)
	ch := NewCommandChannel(tr)

	_, err := ch.SendCommand(context.Background(), PrefixCamera, make([]byte, MaxPayloadSize), CameraAddress(1))
	if !errors.Is(err, ErrPayloadLength) {
		t.Errorf("error = %v, want ErrPayloadLength", err)
	}
	if n := len(conn.Writes()); n != 0 {
		t.Errorf("%d frames written for an invalid command", n)
	}
}

func TestSendCommand_NotConnected(t *testing.T) {
	ch := NewCommandChannel(NewTransport())
	ok, err := ch.SendCommand(context.Background(), PrefixCamera, []byte{0x00, 0x02}, CameraAddress(1))
	if ok || !errors.Is(err, ErrNotConnected) {
		t.Errorf("SendCommand() = %v, %v; want false, ErrNotConnected", ok, err)
	}
}
