// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/viscam/pkg/visca"
)

var (
	rawPrefix string
	rawQuery  bool
)

var rawCmd = &cobra.Command{
	Use:   "raw HEX",
	Short: "Send a raw command or inquiry",
	Long: `Send raw bytes to the camera. The address header and terminator are added.

Commands are prefixed with --prefix (default "01 04", the camera category):
  viscam raw 00 02                  power on
  viscam raw --prefix "01 06" 04    pan/tilt home

With --query the bytes are an inquiry code and the payload is printed:
  viscam raw --query 04 47          zoom position`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRaw,
}

func init() {
	rootCmd.AddCommand(rawCmd)
	rawCmd.Flags().StringVar(&rawPrefix, "prefix", "01 04", "Command prefix bytes")
	rawCmd.Flags().BoolVar(&rawQuery, "query", false, "Send as an inquiry and print the reply payload")
}

// parseHex accepts bytes separated by spaces or written together, with or
// without 0x.
func parseHex(args ...string) ([]byte, error) {
	s := strings.Join(args, "")
	s = strings.NewReplacer(" ", "", "0x", "", "0X", "", ":", "").Replace(s)
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex %q: %w", strings.Join(args, " "), err)
	}
	return b, nil
}

func runRaw(cmd *cobra.Command, args []string) error {
	body, err := parseHex(args...)
	if err != nil {
		return err
	}
	to := visca.CameraAddress(cfg.Address)

	if rawQuery {
		return withSession(cmd, func(ctx context.Context, s *Session) error {
			payload, err := s.Query.SendQuery(ctx, body, to)
			if err != nil {
				return err
			}
			fmt.Println(visca.FormatHex(payload))
			return nil
		})
	}

	prefix, err := parseHex(rawPrefix)
	if err != nil {
		return err
	}
	return withSession(cmd, func(ctx context.Context, s *Session) error {
		if _, err := s.Command.SendCommand(ctx, prefix, body, to); err != nil {
			return err
		}
		fmt.Println("completed")
		return nil
	})
}
