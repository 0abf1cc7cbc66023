// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/viscam/pkg/visca"
)

var (
	pingTimeout int
)

// Exit codes of the ping command
const (
	pingAnswered  = 0
	pingNoAnswer  = 1
	pingConnError = 2
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Test the link by asking the camera for its power state",
	Long: `Send a power inquiry and wait for the camera to answer.

The inquiry is retried on buffer-full and garbled replies until the timeout.

Exit codes:
  0 - Camera answered
  1 - No answer before timeout
  2 - Connection error

Useful in scripts to check that a camera is wired and addressed correctly.`,
	Args: cobra.NoArgs,
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
	pingCmd.Flags().IntVar(&pingTimeout, "timeout", 5, "Timeout in seconds to wait for an answer")
}

func runPing(cmd *cobra.Command, args []string) error {
	s, err := OpenSession()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(pingConnError)
	}

	fmt.Printf("Viscam - Ping\n")
	fmt.Printf("Connection: %s\n", s.Describe())
	fmt.Printf("Timeout: %d seconds\n\n", pingTimeout)

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(pingTimeout)*time.Second)
	start := time.Now()
	v, err := s.Camera.Get(ctx, "power")
	cancel()
	code := pingCode(err)
	s.Close()

	switch code {
	case pingAnswered:
		fmt.Printf("SUCCESS: camera %d answered in %v\n", cfg.Address, time.Since(start).Round(time.Millisecond))
		if err == nil {
			fmt.Printf("  Power: %s\n", v)
		} else {
			fmt.Printf("  Inquiry rejected: %v\n", err)
		}
	case pingNoAnswer:
		fmt.Fprintf(os.Stderr, "TIMEOUT: no answer from camera %d: %v\n", cfg.Address, err)
	default:
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
	}
	os.Exit(code)
	return nil
}

// pingCode maps the inquiry result onto the exit codes. A rejected inquiry
// still proves the camera is there.
func pingCode(err error) int {
	switch {
	case err == nil, visca.Rejected(err):
		return pingAnswered
	case errors.Is(err, visca.ErrNotConnected):
		return pingConnError
	default:
		return pingNoAnswer
	}
}
