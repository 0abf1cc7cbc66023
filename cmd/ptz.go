// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/viscam/pkg/visca"
)

var (
	panSpeed   int
	tiltSpeed  int
	driveSpeed int
)

var moveCmd = &cobra.Command{
	Use:   "move DIRECTION",
	Short: "Start or stop the pan/tilt drive",
	Long: `Drive the head in one direction until "viscam move stop".

Directions: up, down, left, right, upleft, upright, downleft, downright, stop.`,
	Args: cobra.ExactArgs(1),
	RunE: runMove,
}

var gotoCmd = &cobra.Command{
	Use:   "goto PAN TILT",
	Short: "Move the head to an absolute position in degrees",
	Long: `Move the head to PAN,TILT degrees at the session speeds.

Angles outside the camera's range are clamped. Put "--" before negative
angles: viscam goto -- -45 10`,
	Args: cobra.ExactArgs(2),
	RunE: runGoto,
}

var positionCmd = &cobra.Command{
	Use:   "position",
	Short: "Print the current pan/tilt position",
	Args:  cobra.NoArgs,
	RunE:  runPosition,
}

var zoomCmd = &cobra.Command{
	Use:   "zoom tele|wide|stop",
	Short: "Drive the zoom",
	Args:  cobra.ExactArgs(1),
	RunE:  runDrive((*visca.Camera).Zoom),
}

var focusCmd = &cobra.Command{
	Use:   "focus far|near|stop",
	Short: "Drive the manual focus",
	Args:  cobra.ExactArgs(1),
	RunE:  runDrive((*visca.Camera).Focus),
}

var memoryCmd = &cobra.Command{
	Use:   "memory reset|set|recall SLOT",
	Short: "Reset, store or recall a preset position",
	Args:  cobra.ExactArgs(2),
	RunE:  runMemory,
}

func init() {
	rootCmd.AddCommand(moveCmd, gotoCmd, positionCmd, zoomCmd, focusCmd, memoryCmd)

	for _, c := range []*cobra.Command{moveCmd, gotoCmd} {
		c.Flags().IntVar(&panSpeed, "pan-speed", 0, "Pan speed (1-24, default from config)")
		c.Flags().IntVar(&tiltSpeed, "tilt-speed", 0, "Tilt speed (1-20, default from config)")
	}
	for _, c := range []*cobra.Command{zoomCmd, focusCmd} {
		c.Flags().IntVar(&driveSpeed, "speed", visca.StandardSpeed, "Variable speed 0-7 (default: standard speed)")
	}
}

// applySpeed overrides the session speeds given on the command line
func applySpeed(cam *visca.Camera) error {
	if panSpeed == 0 && tiltSpeed == 0 {
		return nil
	}
	s := cam.Session()
	pan, tilt := int(s.PanSpeed), int(s.TiltSpeed)
	if panSpeed != 0 {
		pan = panSpeed
	}
	if tiltSpeed != 0 {
		tilt = tiltSpeed
	}
	return cam.SetSpeed(pan, tilt)
}

func runMove(cmd *cobra.Command, args []string) error {
	m, err := visca.ParseMotion(args[0])
	if err != nil {
		return err
	}
	return withSession(cmd, func(ctx context.Context, s *Session) error {
		if err := applySpeed(s.Camera); err != nil {
			return err
		}
		return s.Camera.Move(ctx, m)
	})
}

func runGoto(cmd *cobra.Command, args []string) error {
	pan, err := parseAngle(args[0])
	if err != nil {
		return err
	}
	tilt, err := parseAngle(args[1])
	if err != nil {
		return err
	}
	return withSession(cmd, func(ctx context.Context, s *Session) error {
		if err := applySpeed(s.Camera); err != nil {
			return err
		}
		return s.Camera.GotoPanTilt(ctx, pan, tilt)
	})
}

func runPosition(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, s *Session) error {
		pan, tilt, err := s.Camera.PanTilt(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("pan %.1f°, tilt %.1f°\n", pan, tilt)
		return nil
	})
}

func runDrive(drive func(*visca.Camera, context.Context, visca.Drive, int) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		d, err := visca.ParseDrive(args[0])
		if err != nil {
			return err
		}
		return withSession(cmd, func(ctx context.Context, s *Session) error {
			return drive(s.Camera, ctx, d, driveSpeed)
		})
	}
}

func runMemory(cmd *cobra.Command, args []string) error {
	op, err := parseMemoryOp(args[0])
	if err != nil {
		return err
	}
	slot, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid preset slot %q", args[1])
	}
	return withSession(cmd, func(ctx context.Context, s *Session) error {
		return s.Camera.Memory(ctx, op, slot)
	})
}

func parseMemoryOp(s string) (visca.MemoryOp, error) {
	switch strings.ToLower(s) {
	case "reset":
		return visca.MemoryReset, nil
	case "set":
		return visca.MemorySet, nil
	case "recall":
		return visca.MemoryRecall, nil
	default:
		return 0, fmt.Errorf("unknown memory operation %q (want reset, set or recall)", s)
	}
}

func parseAngle(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSuffix(s, "°"), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid angle %q", s)
	}
	return v, nil
}
