// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package visca

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// SetStyle is how a property's value is encoded into a set command
type SetStyle int

// Set styles
const (
	SetNone    SetStyle = iota // read-only
	SetToggle                  // opcode, then 02 (on) or 03 (off)
	SetEnum                    // opcode, then the label's code
	SetByte                    // opcode, then one raw byte
	SetNibbles                 // opcode, then 0p 0q 0r 0s
)

// Property describes one named camera setting: how to query it, how to
// decode the answer and how to set it.
type Property struct {
	Name    string
	Inquiry []byte
	Kind    Kind
	Labels  Labels

	Prefix []byte
	Opcode []byte
	Set    SetStyle
	Min    int
	Max    int
}

// Readable reports whether the property has an inquiry code
func (p Property) Readable() bool {
	return len(p.Inquiry) > 0
}

// Writable reports whether the property can be set
func (p Property) Writable() bool {
	return p.Set != SetNone
}

// Encode builds the subcommand (opcode plus parameters, without prefix) that
// sets the property to value.
func (p Property) Encode(value string) ([]byte, error) {
	value = strings.TrimSpace(value)
	out := make([]byte, 0, len(p.Opcode)+4)
	out = append(out, p.Opcode...)

	switch p.Set {
	case SetToggle:
		on, err := parseToggle(value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p.Name, err)
		}
		if on {
			return append(out, ToggleOn), nil
		}
		return append(out, ToggleOff), nil

	case SetEnum:
		code, err := p.parseLabel(value)
		if err != nil {
			return nil, err
		}
		return append(out, byte(code)), nil

	case SetByte:
		n, err := p.parseNumber(value)
		if err != nil {
			return nil, err
		}
		return append(out, byte(n)), nil

	case SetNibbles:
		n, err := p.parseNumber(value)
		if err != nil {
			return nil, err
		}
		return append(out, splitNibbles(n, 4)...), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrReadOnly, p.Name)
	}
}

func parseToggle(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "on", "true", "1", "yes", "auto":
		return true, nil
	case "off", "false", "0", "no", "manual":
		return false, nil
	}
	return false, fmt.Errorf("%w: %q is not on/off", ErrInvalidValue, value)
}

func (p Property) parseLabel(value string) (int, error) {
	for code, label := range p.Labels {
		if strings.EqualFold(label, value) {
			return code, nil
		}
	}
	n, err := strconv.ParseInt(value, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: %s has no label %q", ErrInvalidValue, p.Name, value)
	}
	if _, ok := p.Labels[int(n)]; !ok {
		return 0, fmt.Errorf("%w: %s has no code %d", ErrInvalidValue, p.Name, n)
	}
	return int(n), nil
}

// parseNumber accepts a plain number (decimal or 0x hex). Gain and hue also
// accept the scaled form they decode to, "120%" or "-4°".
func (p Property) parseNumber(value string) (int, error) {
	var (
		n   int
		err error
	)
	switch {
	case p.Kind == KindGain && strings.HasSuffix(value, "%"):
		n, err = unscale(strings.TrimSuffix(value, "%"), gainMin, gainMax)
	case p.Kind == KindHue && strings.HasSuffix(value, "°"):
		n, err = unscale(strings.TrimSuffix(value, "°"), -hueMax, hueMax)
	default:
		var v int64
		v, err = strconv.ParseInt(value, 0, 32)
		n = int(v)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %q", ErrInvalidValue, p.Name, value)
	}
	if n < p.Min || n > p.Max {
		return 0, fmt.Errorf("%w: %s: %d outside %d..%d", ErrInvalidValue, p.Name, n, p.Min, p.Max)
	}
	return n, nil
}

// unscale is the inverse of rescale
func unscale(s string, lo, hi int) (int, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	return int(math.Round((f - float64(lo)) * scaleMax / float64(hi-lo))), nil
}

// Action is a one-shot command with no value
type Action struct {
	Name       string
	Prefix     []byte
	Subcommand []byte
}

// Catalog is a lookup table of properties and actions
type Catalog struct {
	props   map[string]Property
	actions map[string]Action
	aliases map[string]string
}

// NewCatalog builds a catalog. Names are matched case-insensitively; aliases
// map an alternative name to a property name.
func NewCatalog(props []Property, actions []Action, aliases map[string]string) *Catalog {
	c := &Catalog{
		props:   make(map[string]Property, len(props)),
		actions: make(map[string]Action, len(actions)),
		aliases: make(map[string]string, len(aliases)),
	}
	for _, p := range props {
		c.props[strings.ToLower(p.Name)] = p
	}
	for _, a := range actions {
		c.actions[strings.ToLower(a.Name)] = a
	}
	for alias, name := range aliases {
		c.aliases[strings.ToLower(alias)] = strings.ToLower(name)
	}
	return c
}

// Property looks up a property by name or alias
func (c *Catalog) Property(name string) (Property, error) {
	key := strings.ToLower(name)
	if target, ok := c.aliases[key]; ok {
		key = target
	}
	p, ok := c.props[key]
	if !ok {
		return Property{}, fmt.Errorf("%w: %q", ErrUnknownProperty, name)
	}
	return p, nil
}

// Action looks up an action by name
func (c *Catalog) Action(name string) (Action, error) {
	a, ok := c.actions[strings.ToLower(name)]
	if !ok {
		return Action{}, fmt.Errorf("%w: %q", ErrUnknownAction, name)
	}
	return a, nil
}

// Properties returns every property sorted by name
func (c *Catalog) Properties() []Property {
	out := make([]Property, 0, len(c.props))
	for _, p := range c.props {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Actions returns every action sorted by name
func (c *Catalog) Actions() []Action {
	out := make([]Action, 0, len(c.actions))
	for _, a := range c.actions {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Enumeration labels
var (
	LabelsWB = Labels{
		0x00: "auto",
		0x01: "indoor",
		0x02: "outdoor",
		0x03: "trigger",
		0x05: "manual",
	}
	LabelsAE = Labels{
		0x00: "auto",
		0x03: "manual",
		0x0A: "shutter",
		0x0B: "iris",
		0x0D: "bright",
	}
	LabelsFX = Labels{
		0x00: "Normal",
		0x02: "NegArt",
		0x04: "B&W",
	}
	LabelsVideo = Labels{
		0x00: "1080PsF29.97",
		0x01: "1080p29.97",
		0x02: "720p59.94",
		0x03: "720p29.97",
		0x04: "NTSC",
		0x08: "1080PsF25",
		0x09: "720p50",
		0x0A: "720p25",
		0x0B: "1080i50",
		0x0C: "PAL",
	}
)

// camera property with a toggle setter using the same code for set and inquiry
func toggle(name string, code byte) Property {
	return Property{
		Name:    name,
		Inquiry: []byte{0x04, code},
		Kind:    KindBool,
		Prefix:  PrefixCamera,
		Opcode:  []byte{code},
		Set:     SetToggle,
	}
}

// camera property with a 4-nibble direct setter
func direct(name string, code byte, kind Kind, lo, hi int) Property {
	return Property{
		Name:    name,
		Inquiry: []byte{0x04, code},
		Kind:    kind,
		Prefix:  PrefixCamera,
		Opcode:  []byte{code},
		Set:     SetNibbles,
		Min:     lo,
		Max:     hi,
	}
}

// camera property set with one raw parameter byte
func level(name string, code byte, hi int) Property {
	return Property{
		Name:    name,
		Inquiry: []byte{0x04, code},
		Kind:    KindInteger,
		Prefix:  PrefixCamera,
		Opcode:  []byte{code},
		Set:     SetByte,
		Max:     hi,
	}
}

// camera property chosen from a label table
func choice(name string, code byte, labels Labels) Property {
	return Property{
		Name:    name,
		Inquiry: []byte{0x04, code},
		Kind:    KindEnum,
		Labels:  labels,
		Prefix:  PrefixCamera,
		Opcode:  []byte{code},
		Set:     SetEnum,
	}
}

// DefaultProperties returns the settings common to the EVI-H100 and D70
// family.
func DefaultProperties() []Property {
	return []Property{
		toggle("power", 0x00),
		direct("power_auto", 0x40, KindVeryHighRes, 0, 0xFFFF),
		direct("zoom", 0x47, KindVeryHighRes, 0, 0x4000),
		toggle("zoom_digital", 0x06),
		direct("focus", 0x48, KindVeryHighRes, 0x1000, 0xF000),
		toggle("focus_auto", 0x38),
		direct("focus_nearlimit", 0x28, KindVeryHighRes, 0x1000, 0xF000),
		choice("WB", 0x35, LabelsWB),
		direct("RGain", 0x43, KindHighRes, 0, 0xFF),
		direct("BGain", 0x44, KindHighRes, 0, 0xFF),
		choice("AE", 0x39, LabelsAE),
		toggle("slowshutter", 0x5A),
		direct("shutter", 0x4A, KindHighRes, 0, 0x15),
		direct("iris", 0x4B, KindHighRes, 0, 0x11),
		direct("gain", 0x4C, KindHighRes, 0, 0x0F),
		direct("bright", 0x4D, KindHighRes, 0, 0x1F),
		toggle("expo_compensation", 0x3E),
		direct("expo_compensation_amount", 0x4E, KindHighRes, 0, 0x0E),
		toggle("backlight", 0x33),
		toggle("WD", 0x3D),
		direct("aperture", 0x42, KindHighRes, 0, 0x0F),
		toggle("HR", 0x52),
		level("NR", 0x53, 5),
		level("gamma", 0x5B, 4),
		toggle("high_sensitivity", 0x5E),
		choice("FX", 0x63, LabelsFX),
		toggle("IR", 0x01),
		toggle("IR_auto", 0x51),
		direct("IR_auto_threshold", 0x21, KindHighRes, 0, 0xFF),
		level("chromasuppress", 0x5F, 3),
		direct("color_gain", 0x49, KindGain, 0, scaleMax),
		direct("color_hue", 0x4F, KindHue, 0, scaleMax),
		{
			Name:    "video",
			Inquiry: []byte{0x06, 0x23},
			Kind:    KindEnum,
			Labels:  LabelsVideo,
		},
		{
			Name:    "video_next",
			Inquiry: []byte{0x06, 0x33},
			Kind:    KindEnum,
			Labels:  LabelsVideo,
			Prefix:  PrefixPanTilt,
			Opcode:  []byte{0x35, 0x00},
			Set:     SetEnum,
		},
		{
			Name:    "IR_receive",
			Inquiry: []byte{0x06, 0x08},
			Kind:    KindBool,
			Prefix:  PrefixIRReceive,
			Set:     SetToggle,
		},
		{
			Name:    "info_display",
			Inquiry: []byte{0x7E, 0x01, 0x18},
			Kind:    KindBool,
			Prefix:  PrefixInfoDisplay,
			Set:     SetToggle,
		},
		{
			Name:    PropertyPanTilt,
			Inquiry: []byte{0x06, 0x12},
			Kind:    KindPanTilt,
		},
	}
}

// PropertyPanTilt is the combined pan/tilt position property
const PropertyPanTilt = "pan_tilt"

// DefaultActions returns the one-shot commands
func DefaultActions() []Action {
	cam := func(name string, sub ...byte) Action {
		return Action{Name: name, Prefix: PrefixCamera, Subcommand: sub}
	}
	ptd := func(name string, sub ...byte) Action {
		return Action{Name: name, Prefix: PrefixPanTilt, Subcommand: sub}
	}
	return []Action{
		cam("zoom_stop", 0x07, 0x00),
		cam("zoom_tele", 0x07, 0x02),
		cam("zoom_wide", 0x07, 0x03),
		cam("focus_stop", 0x08, 0x00),
		cam("focus_far", 0x08, 0x02),
		cam("focus_near", 0x08, 0x03),
		cam("focus_trigger", 0x18, 0x01),
		cam("focus_infinity", 0x18, 0x02),
		cam("WB_trigger", 0x10, 0x05),
		cam("RGain_reset", 0x03, 0x00),
		cam("BGain_reset", 0x04, 0x00),
		ptd("menu_off", 0x06, 0x03),
		ptd("home", 0x04),
		ptd("reset", 0x05),
	}
}

// DefaultCatalog returns the built-in catalog. "pan" and "tilt" are aliases
// of pan_tilt.
func DefaultCatalog() *Catalog {
	return NewCatalog(DefaultProperties(), DefaultActions(), map[string]string{
		"pan":  PropertyPanTilt,
		"tilt": PropertyPanTilt,
	})
}
