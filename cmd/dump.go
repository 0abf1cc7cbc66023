// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Thermoquad/viscam/pkg/visca"
)

var dumpCmd = &cobra.Command{
	Use:   "dump FILE",
	Short: "Display a recorded session in human-readable format",
	Long: `Decode a recording made with --record and print every frame with its
timestamp, direction, hex bytes and decoded reply kind.

No serial port is needed.`,
	Args: cobra.ExactArgs(1),
	RunE: runDump,
}

func init() {
	rootCmd.AddCommand(dumpCmd)
}

func runDump(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}
	defer f.Close()

	return dumpRecording(os.Stdout, f)
}

func dumpRecording(out io.Writer, r io.Reader) error {
	msgs := make(chan visca.Message, 100)

	var g errgroup.Group
	g.Go(func() error { return printMessages(out, msgs) })
	g.Go(func() error { return visca.ReadIn(msgs, r) })

	return g.Wait()
}

func printMessages(out io.Writer, msgs <-chan visca.Message) error {
	session := ""
	for msg := range msgs {
		if msg.Session != session {
			session = msg.Session
			if _, err := fmt.Fprintf(out, "# session %s\n", session); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(out, visca.FormatMessage(msg)); err != nil {
			return err
		}
	}
	return nil
}
