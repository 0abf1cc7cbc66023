// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package visca

import (
	"fmt"
	"math"
	"strconv"
)

// Kind is the decoding category of a property
type Kind int

// Property kinds
const (
	KindInteger Kind = iota
	KindHighRes
	KindVeryHighRes
	KindBool
	KindEnum
	KindGain
	KindHue
	KindPanTilt
)

// String returns the human-readable name for a kind
func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindHighRes:
		return "high-res"
	case KindVeryHighRes:
		return "very-high-res"
	case KindBool:
		return "bool"
	case KindEnum:
		return "enum"
	case KindGain:
		return "gain"
	case KindHue:
		return "hue"
	case KindPanTilt:
		return "pan-tilt"
	default:
		return "unknown"
	}
}

// Labels maps enumeration codes to their names
type Labels map[int]string

// Value is a decoded inquiry payload. Which fields are meaningful depends on
// Kind: Int for the integer kinds and for an enum code without a label, Bool
// for KindBool, Text for scaled values and enum labels, Pan and Tilt (degrees)
// for KindPanTilt.
type Value struct {
	Kind Kind
	Int  int
	Bool bool
	Text string
	Pan  float64
	Tilt float64
}

// String formats the value the way the CLI prints it
func (v Value) String() string {
	switch v.Kind {
	case KindBool:
		if v.Bool {
			return "on"
		}
		return "off"
	case KindEnum, KindGain, KindHue:
		if v.Text != "" {
			return v.Text
		}
		return strconv.Itoa(v.Int)
	case KindPanTilt:
		return fmt.Sprintf("pan %.1f°, tilt %.1f°", v.Pan, v.Tilt)
	default:
		return strconv.Itoa(v.Int)
	}
}

// Decoder turns inquiry payloads into values. It is a pure function of its
// input and the pan/tilt mapping.
type Decoder struct {
	PanTilt PanTiltMapping
}

// NewDecoder returns a decoder for the base camera orientation
func NewDecoder() Decoder {
	return Decoder{PanTilt: DefaultPanTiltMapping()}
}

// Gain and hue scales. Both are carried as 0..14 in the last group.
const (
	scaleMax = 14
	gainMin  = 60
	gainMax  = 200
	hueMax   = 14
)

// Decode interprets payload, one hex group per byte with the most
// significant group first, as a value of the given kind. A single group is
// always an unsigned integer before any kind-specific transform.
func (d Decoder) Decode(payload []byte, kind Kind, labels Labels) (Value, error) {
	if len(payload) == 0 {
		return Value{}, fmt.Errorf("%w: empty payload", ErrInvalidValue)
	}

	v := Value{Kind: kind}
	last := int(payload[len(payload)-1])
	single := len(payload) == 1

	switch kind {
	case KindInteger:
		n := 0
		for _, g := range payload {
			n = n<<8 | int(g)
		}
		v.Int = n

	case KindHighRes:
		v.Int = last
		if !single {
			v.Int = joinNibbles(tail(payload, 2))
		}

	case KindVeryHighRes:
		v.Int = last
		if !single {
			v.Int = joinNibbles(tail(payload, 4))
		}

	case KindBool:
		switch last {
		case ToggleOn:
			v.Bool = true
		case ToggleOff:
			v.Bool = false
		default:
			return Value{}, fmt.Errorf("%w: 0x%02X is not an on/off code", ErrInvalidValue, last)
		}
		v.Int = last

	case KindEnum:
		v.Int = last
		if !single {
			v.Int = joinNibbles(tail(payload, 2))
		}
		if label, ok := labels[v.Int]; ok {
			v.Text = label
		}

	case KindGain:
		v.Int = last
		v.Text = fmt.Sprintf("%d%%", rescale(last, gainMin, gainMax))

	case KindHue:
		v.Int = last
		v.Text = fmt.Sprintf("%d°", rescale(last, -hueMax, hueMax))

	case KindPanTilt:
		if len(payload) < 8 {
			return Value{}, fmt.Errorf("%w: pan/tilt needs 8 groups, got %d", ErrInvalidValue, len(payload))
		}
		groups := tail(payload, 8)
		panSteps := int16(uint16(joinNibbles(groups[:4])))
		tiltSteps := int16(uint16(joinNibbles(groups[4:])))
		v.Pan, v.Tilt = d.PanTilt.ToDegrees(panSteps, tiltSteps)

	default:
		return Value{}, fmt.Errorf("%w: kind %d", ErrInvalidValue, kind)
	}

	return v, nil
}

// tail returns the last n groups, or all of them when there are fewer
func tail(groups []byte, n int) []byte {
	if len(groups) <= n {
		return groups
	}
	return groups[len(groups)-n:]
}

// rescale maps 0..14 linearly onto lo..hi, clamping the input
func rescale(raw, lo, hi int) int {
	raw = max(0, min(scaleMax, raw))
	return lo + int(math.Round(float64(raw)*float64(hi-lo)/scaleMax))
}
