// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package visca

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Pan/tilt drive speeds
const (
	MinSpeed     = 0x01
	MaxPanSpeed  = 0x18
	MaxTiltSpeed = 0x14
	DefaultSpeed = 0x05
)

// Session holds the drive speeds used by Move and GotoPanTilt. It only
// changes through Camera.SetSpeed.
type Session struct {
	PanSpeed  uint8
	TiltSpeed uint8
}

// DefaultSession returns speed 5 on both axes
func DefaultSession() Session {
	return Session{PanSpeed: DefaultSpeed, TiltSpeed: DefaultSpeed}
}

// Validate checks both speeds against the drive limits
func (s Session) Validate() error {
	if s.PanSpeed < MinSpeed || s.PanSpeed > MaxPanSpeed {
		return fmt.Errorf("%w: pan speed %d outside %d..%d", ErrInvalidValue, s.PanSpeed, MinSpeed, MaxPanSpeed)
	}
	if s.TiltSpeed < MinSpeed || s.TiltSpeed > MaxTiltSpeed {
		return fmt.Errorf("%w: tilt speed %d outside %d..%d", ErrInvalidValue, s.TiltSpeed, MinSpeed, MaxTiltSpeed)
	}
	return nil
}

// Motion is a pan/tilt drive direction
type Motion int

// Motions
const (
	MoveStop Motion = iota
	MoveUp
	MoveDown
	MoveLeft
	MoveRight
	MoveUpLeft
	MoveUpRight
	MoveDownLeft
	MoveDownRight
)

var motionNames = map[Motion]string{
	MoveStop:      "stop",
	MoveUp:        "up",
	MoveDown:      "down",
	MoveLeft:      "left",
	MoveRight:     "right",
	MoveUpLeft:    "upleft",
	MoveUpRight:   "upright",
	MoveDownLeft:  "downleft",
	MoveDownRight: "downright",
}

// pan (left/right) and tilt (up/down) direction bytes
var motionBytes = map[Motion][2]byte{
	MoveStop:      {0x03, 0x03},
	MoveUp:        {0x03, 0x01},
	MoveDown:      {0x03, 0x02},
	MoveLeft:      {0x01, 0x03},
	MoveRight:     {0x02, 0x03},
	MoveUpLeft:    {0x01, 0x01},
	MoveUpRight:   {0x02, 0x01},
	MoveDownLeft:  {0x01, 0x02},
	MoveDownRight: {0x02, 0x02},
}

// String returns the motion's name
func (m Motion) String() string {
	if s, ok := motionNames[m]; ok {
		return s
	}
	return "unknown"
}

// ParseMotion parses a direction name such as "up" or "downleft"
func ParseMotion(s string) (Motion, error) {
	s = strings.ToLower(strings.ReplaceAll(s, "-", ""))
	for m, name := range motionNames {
		if name == s {
			return m, nil
		}
	}
	return MoveStop, fmt.Errorf("%w: direction %q", ErrInvalidValue, s)
}

// Drive is the direction of a zoom or focus drive. Tele and Far share a code,
// as do Wide and Near.
type Drive int

// Drives
const (
	DriveStop Drive = iota
	DriveTele
	DriveWide
	DriveFar  = DriveTele
	DriveNear = DriveWide
)

// ParseDrive parses "stop", "tele", "wide", "far" or "near"
func ParseDrive(s string) (Drive, error) {
	switch strings.ToLower(s) {
	case "stop":
		return DriveStop, nil
	case "tele", "in", "far":
		return DriveTele, nil
	case "wide", "out", "near":
		return DriveWide, nil
	}
	return DriveStop, fmt.Errorf("%w: drive %q", ErrInvalidValue, s)
}

// StandardSpeed selects the camera's fixed drive speed for Zoom and Focus
const StandardSpeed = -1

// MemoryOp is a preset memory operation
type MemoryOp byte

// Preset operations
const (
	MemoryReset  MemoryOp = 0x00
	MemorySet    MemoryOp = 0x01
	MemoryRecall MemoryOp = 0x02
)

// MaxPreset is the highest preset slot
const MaxPreset = 5

// Camera gives named get/set access to one camera over shared channels.
type Camera struct {
	cmd     *CommandChannel
	query   *QueryChannel
	catalog *Catalog
	decoder Decoder
	addr    Address
	log     zerolog.Logger

	mu      sync.Mutex
	session Session
}

// CameraOption configures a Camera
type CameraOption func(*Camera)

// WithCatalog replaces the default catalog
func WithCatalog(c *Catalog) CameraOption {
	return func(cam *Camera) { cam.catalog = c }
}

// WithPanTiltMapping replaces the default degree mapping
func WithPanTiltMapping(m PanTiltMapping) CameraOption {
	return func(cam *Camera) { cam.decoder.PanTilt = m }
}

// WithSession sets the initial drive speeds
func WithSession(s Session) CameraOption {
	return func(cam *Camera) { cam.session = s }
}

// WithCameraLogger sets the camera's logger
func WithCameraLogger(l zerolog.Logger) CameraOption {
	return func(cam *Camera) { cam.log = l }
}

// NewCamera creates a camera at addr driven through cmd and query.
func NewCamera(cmd *CommandChannel, query *QueryChannel, addr Address, opts ...CameraOption) *Camera {
	cam := &Camera{
		cmd:     cmd,
		query:   query,
		catalog: DefaultCatalog(),
		decoder: NewDecoder(),
		addr:    addr,
		log:     zerolog.Nop(),
		session: DefaultSession(),
	}
	for _, opt := range opts {
		opt(cam)
	}
	return cam
}

// Address returns the camera's address
func (c *Camera) Address() Address {
	return c.addr
}

// Catalog returns the catalog the camera resolves names against
func (c *Camera) Catalog() *Catalog {
	return c.catalog
}

// Session returns the current drive speeds
func (c *Camera) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// SetSpeed changes the drive speeds used by later moves
func (c *Camera) SetSpeed(pan, tilt int) error {
	if pan < 0 || pan > 0xFF || tilt < 0 || tilt > 0xFF {
		return fmt.Errorf("%w: speed %d/%d", ErrInvalidValue, pan, tilt)
	}
	s := Session{PanSpeed: uint8(pan), TiltSpeed: uint8(tilt)}
	if err := s.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
	return nil
}

// Get queries a property and decodes the answer.
func (c *Camera) Get(ctx context.Context, name string) (Value, error) {
	p, err := c.catalog.Property(name)
	if err != nil {
		return Value{}, err
	}
	if !p.Readable() {
		return Value{}, fmt.Errorf("%w: %s cannot be queried", ErrInvalidValue, p.Name)
	}

	payload, err := c.query.SendQuery(ctx, p.Inquiry, c.addr)
	if err != nil {
		return Value{}, fmt.Errorf("get %s: %w", p.Name, err)
	}

	v, err := c.decoder.Decode(payload, p.Kind, p.Labels)
	if err != nil {
		return Value{}, fmt.Errorf("get %s: %w", p.Name, err)
	}
	c.log.Debug().Str("property", p.Name).Hex("payload", payload).Str("value", v.String()).Msg("get")
	return v, nil
}

// Set encodes value for the named property and sends it. "pan", "tilt" and
// "pan_tilt" ("P,T" in degrees) move the head to an absolute position.
func (c *Camera) Set(ctx context.Context, name, value string) error {
	switch strings.ToLower(name) {
	case "pan", "tilt", PropertyPanTilt:
		return c.setPosition(ctx, strings.ToLower(name), value)
	}

	p, err := c.catalog.Property(name)
	if err != nil {
		return err
	}
	sub, err := p.Encode(value)
	if err != nil {
		return err
	}

	if _, err := c.cmd.SendCommand(ctx, p.Prefix, sub, c.addr); err != nil {
		return fmt.Errorf("set %s: %w", p.Name, err)
	}
	c.log.Debug().Str("property", p.Name).Str("value", value).Msg("set")
	return nil
}

func (c *Camera) setPosition(ctx context.Context, name, value string) error {
	if name == PropertyPanTilt {
		ps, ts, ok := strings.Cut(value, ",")
		if !ok {
			return fmt.Errorf("%w: pan_tilt wants \"PAN,TILT\", got %q", ErrInvalidValue, value)
		}
		pan, err1 := parseDegrees(ps)
		tilt, err2 := parseDegrees(ts)
		if err1 != nil || err2 != nil {
			return fmt.Errorf("%w: pan_tilt %q", ErrInvalidValue, value)
		}
		return c.GotoPanTilt(ctx, pan, tilt)
	}

	deg, err := parseDegrees(value)
	if err != nil {
		return fmt.Errorf("%w: %s %q", ErrInvalidValue, name, value)
	}

	// the other axis keeps its current position
	pan, tilt, err := c.PanTilt(ctx)
	if err != nil {
		return err
	}
	if name == "pan" {
		pan = deg
	} else {
		tilt = deg
	}
	return c.GotoPanTilt(ctx, pan, tilt)
}

func parseDegrees(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(s), "°"), 64)
}

// Do runs a named one-shot action. "stop" halts the pan/tilt drive.
func (c *Camera) Do(ctx context.Context, name string) error {
	if strings.EqualFold(name, "stop") {
		return c.Move(ctx, MoveStop)
	}

	a, err := c.catalog.Action(name)
	if err != nil {
		return err
	}
	if _, err := c.cmd.SendCommand(ctx, a.Prefix, a.Subcommand, c.addr); err != nil {
		return fmt.Errorf("%s: %w", a.Name, err)
	}
	return nil
}

// Move starts (or stops) the pan/tilt drive at the session speeds.
func (c *Camera) Move(ctx context.Context, m Motion) error {
	dir, ok := motionBytes[m]
	if !ok {
		return fmt.Errorf("%w: motion %d", ErrInvalidValue, m)
	}
	s := c.Session()
	sub := []byte{0x01, s.PanSpeed, s.TiltSpeed, dir[0], dir[1]}
	if _, err := c.cmd.SendCommand(ctx, PrefixPanTilt, sub, c.addr); err != nil {
		return fmt.Errorf("move %s: %w", m, err)
	}
	return nil
}

// PanTilt returns the current head position in degrees
func (c *Camera) PanTilt(ctx context.Context) (pan, tilt float64, err error) {
	v, err := c.Get(ctx, PropertyPanTilt)
	if err != nil {
		return 0, 0, err
	}
	return v.Pan, v.Tilt, nil
}

// GotoPanTilt moves the head to an absolute position in degrees at the
// session speeds. Angles outside the mapping's range are clamped.
func (c *Camera) GotoPanTilt(ctx context.Context, pan, tilt float64) error {
	s := c.Session()
	panSteps, tiltSteps := c.decoder.PanTilt.ToSteps(pan, tilt)

	sub := make([]byte, 0, 11)
	sub = append(sub, 0x02, s.PanSpeed, s.TiltSpeed)
	sub = append(sub, splitNibbles(int(uint16(panSteps)), 4)...)
	sub = append(sub, splitNibbles(int(uint16(tiltSteps)), 4)...)

	if _, err := c.cmd.SendCommand(ctx, PrefixPanTilt, sub, c.addr); err != nil {
		return fmt.Errorf("goto %.1f,%.1f: %w", pan, tilt, err)
	}
	return nil
}

// Zoom drives the zoom. speed is 0 (slow) to 7 (fast), or StandardSpeed.
func (c *Camera) Zoom(ctx context.Context, d Drive, speed int) error {
	return c.drive(ctx, 0x07, d, speed)
}

// Focus drives the manual focus. speed is 0 to 7, or StandardSpeed.
func (c *Camera) Focus(ctx context.Context, d Drive, speed int) error {
	return c.drive(ctx, 0x08, d, speed)
}

func (c *Camera) drive(ctx context.Context, opcode byte, d Drive, speed int) error {
	var param byte
	switch {
	case d == DriveStop:
		param = 0x00
	case speed == StandardSpeed:
		param = 0x02
		if d == DriveWide {
			param = 0x03
		}
	case speed >= 0 && speed <= 7:
		param = 0x20 | byte(speed)
		if d == DriveWide {
			param = 0x30 | byte(speed)
		}
	default:
		return fmt.Errorf("%w: drive speed %d outside 0..7", ErrInvalidValue, speed)
	}

	if _, err := c.cmd.SendCommand(ctx, PrefixCamera, []byte{opcode, param}, c.addr); err != nil {
		return err
	}
	return nil
}

// Memory resets, stores or recalls a preset. Slots above MaxPreset are
// clamped to it.
func (c *Camera) Memory(ctx context.Context, op MemoryOp, slot int) error {
	if op > MemoryRecall {
		return fmt.Errorf("%w: memory op %d", ErrInvalidValue, op)
	}
	slot = max(0, min(MaxPreset, slot))
	if _, err := c.cmd.SendCommand(ctx, PrefixCamera, []byte{0x3F, byte(op), byte(slot)}, c.addr); err != nil {
		return fmt.Errorf("memory %d: %w", slot, err)
	}
	return nil
}
