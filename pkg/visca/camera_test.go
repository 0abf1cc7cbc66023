// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package visca

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

var done = frames(ack1, completion1)

func newTestCamera(t *testing.T, conn *scriptedConn, opts ...CameraOption) *Camera {
	t.Helper()
	tr := newTestTransport(t, conn)
	return NewCamera(
		NewCommandChannel(tr, WithCompletionTimeout(testCompletionTimeout)),
		NewQueryChannel(tr, WithRetryPolicy(fastRetry())),
		CameraAddress(1),
		opts...,
	)
}

func assertWrites(t *testing.T, conn *scriptedConn, want ...[]byte) {
	t.Helper()
	got := conn.Writes()
	if len(got) != len(want) {
		t.Fatalf("wrote %d frames (% X), want %d", len(got), got, len(want))
	}
	for i := range want {
		if !bytes.Equal(got[i], want[i]) {
			t.Errorf("write %d = % X, want % X", i, got[i], want[i])
		}
	}
}

func TestCamera_Get(t *testing.T) {
	conn := newScriptedConn(script(payloadReply(0x02)))
	cam := newTestCamera(t, conn)

	v, err := cam.Get(context.Background(), "WB")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if v.String() != "outdoor" {
		t.Errorf("Get(WB) = %q, want outdoor", v)
	}
	assertWrites(t, conn, []byte{0x81, 0x09, 0x04, 0x35, 0xFF})
}

func TestCamera_GetUnknown(t *testing.T) {
	conn := newScriptedConn(nil)
	cam := newTestCamera(t, conn)

	if _, err := cam.Get(context.Background(), "hyperdrive"); !errors.Is(err, ErrUnknownProperty) {
		t.Errorf("Get() error = %v, want ErrUnknownProperty", err)
	}
	assertWrites(t, conn)
}

func TestCamera_GetInfoDisplay(t *testing.T) {
	conn := newScriptedConn(script(payloadReply(0x03)))
	cam := newTestCamera(t, conn)

	v, err := cam.Get(context.Background(), "info_display")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if v.Kind != KindBool || v.Bool {
		t.Errorf("Get(info_display) = %+v, want off", v)
	}
	assertWrites(t, conn, []byte{0x81, 0x09, 0x7E, 0x01, 0x18, 0xFF})
}

func TestCamera_Set(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  []byte
	}{
		{"WB", "outdoor", []byte{0x81, 0x01, 0x04, 0x35, 0x02, 0xFF}},
		{"power", "on", []byte{0x81, 0x01, 0x04, 0x00, 0x02, 0xFF}},
		{"zoom", "0x4000", []byte{0x81, 0x01, 0x04, 0x47, 0x04, 0x00, 0x00, 0x00, 0xFF}},
		{"IR_receive", "on", []byte{0x81, 0x01, 0x06, 0x08, 0x02, 0xFF}},
		{"info_display", "off", []byte{0x81, 0x01, 0x7E, 0x01, 0x18, 0x03, 0xFF}},
		{"pan_tilt", "170,90", []byte{0x81, 0x01, 0x06, 0x02, 0x05, 0x05, 0x00, 0x09, 0x09, 0x00, 0x00, 0x05, 0x01, 0x00, 0xFF}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := newScriptedConn(script(done))
			cam := newTestCamera(t, conn)

			if err := cam.Set(context.Background(), tt.name, tt.value); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			assertWrites(t, conn, tt.want)
		})
	}
}

func TestCamera_SetRejected(t *testing.T) {
	conn := newScriptedConn(script(notExec1))
	cam := newTestCamera(t, conn)

	err := cam.Set(context.Background(), "WB", "manual")
	if !Rejected(err) {
		t.Errorf("Set() error = %v, want a rejection", err)
	}
}

func TestCamera_SetPanKeepsTilt(t *testing.T) {
	// position query answers pan 0, tilt -10
	position := payloadReply(0x00, 0x00, 0x00, 0x00, 0x0F, 0x0F, 0x07, 0x00)
	conn := newScriptedConn(script(position, done))
	cam := newTestCamera(t, conn)

	if err := cam.Set(context.Background(), "pan", "90"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	assertWrites(t, conn,
		[]byte{0x81, 0x09, 0x06, 0x12, 0xFF},
		[]byte{0x81, 0x01, 0x06, 0x02, 0x05, 0x05, 0x00, 0x05, 0x01, 0x00, 0x0F, 0x0F, 0x07, 0x00, 0xFF},
	)
}

func TestCamera_Move(t *testing.T) {
	tests := []struct {
		motion Motion
		lr, ud byte
	}{
		{MoveUp, 0x03, 0x01},
		{MoveDown, 0x03, 0x02},
		{MoveLeft, 0x01, 0x03},
		{MoveRight, 0x02, 0x03},
		{MoveUpLeft, 0x01, 0x01},
		{MoveUpRight, 0x02, 0x01},
		{MoveDownLeft, 0x01, 0x02},
		{MoveDownRight, 0x02, 0x02},
		{MoveStop, 0x03, 0x03},
	}

	for _, tt := range tests {
		t.Run(tt.motion.String(), func(t *testing.T) {
			conn := newScriptedConn(script(done))
			cam := newTestCamera(t, conn)

			if err := cam.Move(context.Background(), tt.motion); err != nil {
				t.Fatalf("Move() error = %v", err)
			}
			assertWrites(t, conn, []byte{0x81, 0x01, 0x06, 0x01, 0x05, 0x05, tt.lr, tt.ud, 0xFF})
		})
	}
}

func TestCamera_SetSpeed(t *testing.T) {
	conn := newScriptedConn(script(done, done))
	cam := newTestCamera(t, conn)

	if err := cam.SetSpeed(MaxPanSpeed, MaxTiltSpeed); err != nil {
		t.Fatalf("SetSpeed() error = %v", err)
	}
	if err := cam.SetSpeed(MaxPanSpeed+1, 1); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("SetSpeed(too fast) error = %v, want ErrInvalidValue", err)
	}
	if err := cam.SetSpeed(1, 0); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("SetSpeed(zero) error = %v, want ErrInvalidValue", err)
	}
	if s := cam.Session(); s.PanSpeed != MaxPanSpeed || s.TiltSpeed != MaxTiltSpeed {
		t.Errorf("Session() = %+v after rejected SetSpeed", s)
	}

	// unrelated setters leave the speed alone
	if err := cam.Set(context.Background(), "power", "on"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := cam.Move(context.Background(), MoveLeft); err != nil {
		t.Fatalf("Move() error = %v", err)
	}
	assertWrites(t, conn,
		[]byte{0x81, 0x01, 0x04, 0x00, 0x02, 0xFF},
		[]byte{0x81, 0x01, 0x06, 0x01, 0x18, 0x14, 0x01, 0x03, 0xFF},
	)
}

func TestCamera_WithSession(t *testing.T) {
	conn := newScriptedConn(script(done))
	cam := newTestCamera(t, conn, WithSession(Session{PanSpeed: 0x10, TiltSpeed: 0x08}))

	if err := cam.GotoPanTilt(context.Background(), 0, 0); err != nil {
		t.Fatalf("GotoPanTilt() error = %v", err)
	}
	assertWrites(t, conn, []byte{0x81, 0x01, 0x06, 0x02, 0x10, 0x08, 0, 0, 0, 0, 0, 0, 0, 0, 0xFF})
}

func TestCamera_PanTilt(t *testing.T) {
	conn := newScriptedConn(script(payloadReply(0x00, 0x05, 0x01, 0x00, 0x0F, 0x0F, 0x07, 0x00)))
	cam := newTestCamera(t, conn)

	pan, tilt, err := cam.PanTilt(context.Background())
	if err != nil {
		t.Fatalf("PanTilt() error = %v", err)
	}
	if pan != 90 || tilt != -10 {
		t.Errorf("PanTilt() = (%v, %v), want (90, -10)", pan, tilt)
	}
}

func TestCamera_Drives(t *testing.T) {
	tests := []struct {
		name string
		run  func(*Camera) error
		want []byte
	}{
		{"zoom tele standard", func(c *Camera) error { return c.Zoom(context.Background(), DriveTele, StandardSpeed) }, []byte{0x07, 0x02}},
		{"zoom wide standard", func(c *Camera) error { return c.Zoom(context.Background(), DriveWide, StandardSpeed) }, []byte{0x07, 0x03}},
		{"zoom tele speed 3", func(c *Camera) error { return c.Zoom(context.Background(), DriveTele, 3) }, []byte{0x07, 0x23}},
		{"zoom wide speed 7", func(c *Camera) error { return c.Zoom(context.Background(), DriveWide, 7) }, []byte{0x07, 0x37}},
		{"zoom stop", func(c *Camera) error { return c.Zoom(context.Background(), DriveStop, 5) }, []byte{0x07, 0x00}},
		{"focus far", func(c *Camera) error { return c.Focus(context.Background(), DriveFar, StandardSpeed) }, []byte{0x08, 0x02}},
		{"focus near speed 1", func(c *Camera) error { return c.Focus(context.Background(), DriveNear, 1) }, []byte{0x08, 0x31}},
		{"memory set 2", func(c *Camera) error { return c.Memory(context.Background(), MemorySet, 2) }, []byte{0x3F, 0x01, 0x02}},
		{"memory recall clamped", func(c *Camera) error { return c.Memory(context.Background(), MemoryRecall, 9) }, []byte{0x3F, 0x02, 0x05}},
		{"memory reset 0", func(c *Camera) error { return c.Memory(context.Background(), MemoryReset, 0) }, []byte{0x3F, 0x00, 0x00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := newScriptedConn(script(done))
			cam := newTestCamera(t, conn)

			if err := tt.run(cam); err != nil {
				t.Fatalf("error = %v", err)
			}
			assertWrites(t, conn, frames([]byte{0x81, 0x01, 0x04}, tt.want, []byte{0xFF}))
		})
	}
}

func TestCamera_DriveSpeedOutOfRange(t *testing.T) {
	conn := newScriptedConn(nil)
	cam := newTestCamera(t, conn)

	if err := cam.Zoom(context.Background(), DriveTele, 8); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("Zoom() error = %v, want ErrInvalidValue", err)
	}
	assertWrites(t, conn)
}

func TestCamera_Do(t *testing.T) {
	tests := []struct {
		action string
		want   []byte
	}{
		{"home", []byte{0x81, 0x01, 0x06, 0x04, 0xFF}},
		{"reset", []byte{0x81, 0x01, 0x06, 0x05, 0xFF}},
		{"menu_off", []byte{0x81, 0x01, 0x06, 0x06, 0x03, 0xFF}},
		{"focus_trigger", []byte{0x81, 0x01, 0x04, 0x18, 0x01, 0xFF}},
		{"WB_trigger", []byte{0x81, 0x01, 0x04, 0x10, 0x05, 0xFF}},
		{"stop", []byte{0x81, 0x01, 0x06, 0x01, 0x05, 0x05, 0x03, 0x03, 0xFF}},
	}

	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			conn := newScriptedConn(script(done))
			cam := newTestCamera(t, conn)

			if err := cam.Do(context.Background(), tt.action); err != nil {
				t.Fatalf("Do() error = %v", err)
			}
			assertWrites(t, conn, tt.want)
		})
	}

	conn := newScriptedConn(nil)
	cam := newTestCamera(t, conn)
	if err := cam.Do(context.Background(), "self_destruct"); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("Do(unknown) error = %v, want ErrUnknownAction", err)
	}
}

func TestParseMotion(t *testing.T) {
	for m, name := range motionNames {
		got, err := ParseMotion(name)
		if err != nil || got != m {
			t.Errorf("ParseMotion(%q) = %v, %v", name, got, err)
		}
	}
	if m, err := ParseMotion("Down-Left"); err != nil || m != MoveDownLeft {
		t.Errorf("ParseMotion(Down-Left) = %v, %v", m, err)
	}
	if _, err := ParseMotion("sideways"); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("ParseMotion(sideways) error = %v", err)
	}
}
