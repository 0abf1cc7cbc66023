// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package visca

import "math"

// PanTiltMapping converts between device steps and degrees for each axis.
// Flip selects the inverted (ceiling) mount, which negates tilt and mirrors
// its range.
type PanTiltMapping struct {
	StepsPerDegree float64
	PanMin         float64
	PanMax         float64
	TiltMin        float64
	TiltMax        float64
	Flip           bool
}

// DefaultPanTiltMapping returns the mapping for the base orientation:
// 14.4 steps per degree, pan -170..170, tilt -20..90.
func DefaultPanTiltMapping() PanTiltMapping {
	return PanTiltMapping{
		StepsPerDegree: 14.4,
		PanMin:         -170,
		PanMax:         170,
		TiltMin:        -20,
		TiltMax:        90,
	}
}

// tiltRange returns the tilt limits for the configured mount
func (m PanTiltMapping) tiltRange() (lo, hi float64) {
	if m.Flip {
		return -m.TiltMax, -m.TiltMin
	}
	return m.TiltMin, m.TiltMax
}

// ToDegrees converts raw signed step counts to clamped degrees.
func (m PanTiltMapping) ToDegrees(panSteps, tiltSteps int16) (pan, tilt float64) {
	pan = clamp(float64(panSteps)/m.StepsPerDegree, m.PanMin, m.PanMax)

	t := float64(tiltSteps) / m.StepsPerDegree
	if m.Flip {
		t = -t
	}
	lo, hi := m.tiltRange()
	tilt = clamp(t, lo, hi)

	return roundTenth(pan), roundTenth(tilt)
}

// ToSteps is the inverse of ToDegrees. Out of range angles are clamped first.
func (m PanTiltMapping) ToSteps(pan, tilt float64) (panSteps, tiltSteps int16) {
	pan = clamp(pan, m.PanMin, m.PanMax)
	lo, hi := m.tiltRange()
	tilt = clamp(tilt, lo, hi)
	if m.Flip {
		tilt = -tilt
	}
	return toInt16(pan * m.StepsPerDegree), toInt16(tilt * m.StepsPerDegree)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func roundTenth(v float64) float64 {
	r := math.Round(v*10) / 10
	if r == 0 {
		return 0 // no negative zero
	}
	return r
}

func toInt16(v float64) int16 {
	v = math.Round(v)
	return int16(clamp(v, math.MinInt16, math.MaxInt16))
}

// joinNibbles reassembles a value spread over the low nibbles of groups,
// most significant group first.
func joinNibbles(groups []byte) int {
	v := 0
	for _, g := range groups {
		v = v<<4 | int(g&0x0F)
	}
	return v
}

// splitNibbles spreads the low 4*n bits of v over n bytes of the form 0x0N,
// most significant first.
func splitNibbles(v int, n int) []byte {
	out := make([]byte, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = byte(v & 0x0F)
		v >>= 4
	}
	return out
}
