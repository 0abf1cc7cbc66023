// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package visca

import (
	"bytes"
	"errors"
	"testing"
)

func TestCatalog_Property(t *testing.T) {
	c := DefaultCatalog()

	tests := []struct {
		lookup string
		want   string
	}{
		{"WB", "WB"},
		{"wb", "WB"},
		{"pan", PropertyPanTilt},
		{"Tilt", PropertyPanTilt},
		{"color_gain", "color_gain"},
	}
	for _, tt := range tests {
		p, err := c.Property(tt.lookup)
		if err != nil {
			t.Errorf("Property(%q) error = %v", tt.lookup, err)
			continue
		}
		if p.Name != tt.want {
			t.Errorf("Property(%q).Name = %q, want %q", tt.lookup, p.Name, tt.want)
		}
	}

	if _, err := c.Property("warp_drive"); !errors.Is(err, ErrUnknownProperty) {
		t.Errorf("Property(unknown) error = %v, want ErrUnknownProperty", err)
	}
	if _, err := c.Action("warp_drive"); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("Action(unknown) error = %v, want ErrUnknownAction", err)
	}
}

func TestCatalog_DefaultShape(t *testing.T) {
	c := DefaultCatalog()
	props := c.Properties()
	if len(props) != len(DefaultProperties()) {
		t.Fatalf("Properties() = %d entries, want %d", len(props), len(DefaultProperties()))
	}

	for _, p := range props {
		if !p.Readable() {
			t.Errorf("%s: no inquiry code", p.Name)
		}
		if len(p.Inquiry) < 2 || len(p.Inquiry) > 3 {
			t.Errorf("%s: inquiry code % X is not 2-3 bytes", p.Name, p.Inquiry)
		}
		if p.Writable() && len(p.Prefix) == 0 {
			t.Errorf("%s: writable without a command prefix", p.Name)
		}
		if p.Kind == KindEnum && len(p.Labels) == 0 {
			t.Errorf("%s: enum without labels", p.Name)
		}
	}

	for i := 1; i < len(props); i++ {
		if props[i-1].Name > props[i].Name {
			t.Fatalf("Properties() not sorted at %q", props[i].Name)
		}
	}

	for _, a := range c.Actions() {
		if len(a.Prefix) == 0 || len(a.Subcommand) == 0 {
			t.Errorf("action %s has no bytes", a.Name)
		}
	}
}

func TestProperty_Encode(t *testing.T) {
	c := DefaultCatalog()

	tests := []struct {
		name  string
		value string
		want  []byte
	}{
		{"power", "on", []byte{0x00, 0x02}},
		{"power", "off", []byte{0x00, 0x03}},
		{"focus_auto", "true", []byte{0x38, 0x02}},
		{"WB", "outdoor", []byte{0x35, 0x02}},
		{"WB", "Manual", []byte{0x35, 0x05}},
		{"WB", "0x01", []byte{0x35, 0x01}},
		{"AE", "bright", []byte{0x39, 0x0D}},
		{"FX", "B&W", []byte{0x63, 0x04}},
		{"zoom", "0x1234", []byte{0x47, 0x01, 0x02, 0x03, 0x04}},
		{"zoom", "16384", []byte{0x47, 0x04, 0x00, 0x00, 0x00}},
		{"RGain", "171", []byte{0x43, 0x00, 0x00, 0x0A, 0x0B}},
		{"NR", "3", []byte{0x53, 0x03}},
		{"color_gain", "200%", []byte{0x49, 0x00, 0x00, 0x00, 0x0E}},
		{"color_gain", "60%", []byte{0x49, 0x00, 0x00, 0x00, 0x00}},
		{"color_gain", "7", []byte{0x49, 0x00, 0x00, 0x00, 0x07}},
		{"color_hue", "-14°", []byte{0x4F, 0x00, 0x00, 0x00, 0x00}},
		{"color_hue", "0°", []byte{0x4F, 0x00, 0x00, 0x00, 0x07}},
		{"video_next", "720p50", []byte{0x35, 0x00, 0x09}},
		{"IR_receive", "off", []byte{0x03}},
		{"info_display", "on", []byte{0x02}},
	}

	for _, tt := range tests {
		t.Run(tt.name+"="+tt.value, func(t *testing.T) {
			p, err := c.Property(tt.name)
			if err != nil {
				t.Fatalf("Property() error = %v", err)
			}
			got, err := p.Encode(tt.value)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Encode(%q) = % X, want % X", tt.value, got, tt.want)
			}
		})
	}
}

func TestProperty_EncodeErrors(t *testing.T) {
	c := DefaultCatalog()

	tests := []struct {
		name  string
		value string
		want  error
	}{
		{"power", "maybe", ErrInvalidValue},
		{"WB", "sunset", ErrInvalidValue},
		{"WB", "4", ErrInvalidValue},
		{"zoom", "0x4001", ErrInvalidValue},
		{"zoom", "-1", ErrInvalidValue},
		{"focus", "0x0FFF", ErrInvalidValue},
		{"NR", "six", ErrInvalidValue},
		{"color_gain", "210%", ErrInvalidValue},
		{"video", "PAL", ErrReadOnly},
		{"pan_tilt", "0", ErrReadOnly},
	}

	for _, tt := range tests {
		t.Run(tt.name+"="+tt.value, func(t *testing.T) {
			p, err := c.Property(tt.name)
			if err != nil {
				t.Fatalf("Property() error = %v", err)
			}
			if _, err := p.Encode(tt.value); !errors.Is(err, tt.want) {
				t.Errorf("Encode(%q) error = %v, want %v", tt.value, err, tt.want)
			}
		})
	}
}
