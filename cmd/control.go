// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Thermoquad/viscam/pkg/visca"
)

var controlCmd = &cobra.Command{
	Use:   "control",
	Short: "Interactive TUI for driving a PTZ camera",
	Long: `Drive a camera from the keyboard through an interactive terminal UI.

Features:
  - Pan/tilt joystick on the arrow keys, diagonals on y/u/b/n
  - Zoom and focus drives
  - Absolute moves by typed PAN,TILT
  - Preset recall
  - Live position readout and exchange statistics
  - Event log of every command and its outcome

Press ? for the full key list. The head is stopped on exit.`,
	Args: cobra.NoArgs,
	RunE: runControl,
}

func init() {
	rootCmd.AddCommand(controlCmd)
}

func runControl(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("control needs an interactive terminal")
	}

	return withSession(cmd, func(ctx context.Context, s *Session) error {
		m := initialControlModel(ctx, s)

		p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
		_, err := p.Run()

		// leave the head still whatever happened
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		if stopErr := s.Camera.Move(stopCtx, visca.MoveStop); stopErr != nil {
			logger.Warn().Err(stopErr).Msg("failed to stop pan/tilt drive")
		}

		if err != nil {
			return fmt.Errorf("TUI error: %v", err)
		}
		return nil
	})
}
