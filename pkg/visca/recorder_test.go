// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package visca

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestRecorder_ReadIn(t *testing.T) {
	var buf bytes.Buffer
	rec := NewRecorder(&buf)

	conn := newScriptedConn(script(done))
	tr := newTestTransport(t, conn, WithTap(rec.Tap))
	ch := NewCommandChannel(tr)

	if _, err := ch.SendCommand(context.Background(), PrefixPanTilt, []byte{0x04}, CameraAddress(1)); err != nil {
		t.Fatalf("SendCommand() error = %v", err)
	}
	if err := rec.Err(); err != nil {
		t.Fatalf("Recorder.Err() = %v", err)
	}

	msgs := make(chan Message, 8)
	if err := ReadIn(msgs, &buf); err != nil {
		t.Fatalf("ReadIn() error = %v", err)
	}

	var got []Message
	for m := range msgs {
		got = append(got, m)
	}

	want := []struct {
		dir   Direction
		frame []byte
	}{
		{DirectionOut, []byte{0x81, 0x01, 0x06, 0x04, 0xFF}},
		{DirectionIn, ack1},
		{DirectionIn, completion1},
	}
	if len(got) != len(want) {
		t.Fatalf("ReadIn() returned %d messages, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Direction != w.dir || !bytes.Equal(got[i].Data, w.frame) {
			t.Errorf("message %d = %v % X, want %v % X", i, got[i].Direction, got[i].Data, w.dir, w.frame)
		}
		if got[i].Session != rec.Session.String() {
			t.Errorf("message %d session = %q, want %q", i, got[i].Session, rec.Session)
		}
		if got[i].Timestamp.IsZero() {
			t.Errorf("message %d has no timestamp", i)
		}
	}
	if got[2].Timestamp.Before(got[0].Timestamp) {
		t.Error("timestamps out of order")
	}
}

func TestReadIn_Corrupt(t *testing.T) {
	msgs := make(chan Message, 1)
	err := ReadIn(msgs, strings.NewReader("\xff\xff\xff"))
	if err == nil {
		t.Error("ReadIn() accepted corrupt input")
	}
	if _, open := <-msgs; open {
		t.Error("ReadIn() left the channel open")
	}
}
