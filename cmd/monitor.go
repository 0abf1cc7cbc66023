// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/viscam/pkg/visca"
)

var (
	showAll       bool
	statsInterval int
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Listen on the line and flag malformed frames",
	Long: `Passively read frames from the serial line and validate each one.

Useful on a line shared with another controller, or to watch a camera's
unsolicited replies. Detects:
  - Frames without a terminator (byte timeout or 16-byte limit)
  - Requests with a bad header or payload length
  - Replies that match no known reply shape

By default, only problems are displayed. Use --show-all to display every frame.
A statistics summary is printed at the configured interval.`,
	Args: cobra.NoArgs,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().BoolVar(&showAll, "show-all", false, "Show all frames (not just errors)")
	monitorCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
}

// lineStats counts what the monitor saw on the line
type lineStats struct {
	start     time.Time
	Frames    uint64
	Requests  uint64
	Replies   uint64
	Malformed uint64
	Partial   uint64
	synced    bool
	skipped   int
}

func (s *lineStats) String() string {
	elapsed := time.Since(s.start)
	result := fmt.Sprintf("=== Line Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Frames:          %8d\n", s.Frames)
	result += fmt.Sprintf("  Requests:         %5d\n", s.Requests)
	result += fmt.Sprintf("  Replies:          %5d\n", s.Replies)
	if s.Malformed > 0 {
		result += fmt.Sprintf("Malformed:       %8d\n", s.Malformed)
	}
	if s.Partial > 0 {
		result += fmt.Sprintf("Unterminated:    %8d\n", s.Partial)
	}
	if secs := elapsed.Seconds(); secs > 0 {
		result += fmt.Sprintf("Frame Rate:      %8.1f /sec\n", float64(s.Frames)/secs)
	}
	result += "=====================================\n"
	return result
}

// inspect classifies one read. It returns the line to print, if any.
// Until the first terminated frame, unterminated bytes count as sync noise.
func (s *lineStats) inspect(frame []byte, status visca.ReadStatus, at time.Time) (string, bool) {
	if len(frame) == 0 {
		return "", false
	}
	stamp := at.Format("15:04:05.000")

	if status != visca.ReadTerminated {
		if !s.synced {
			s.skipped += len(frame)
			return "", false
		}
		s.Partial++
		return fmt.Sprintf("[%s] UNTERMINATED (%s): %s", stamp, status, visca.FormatHex(frame)), true
	}

	var line string
	if !s.synced {
		s.synced = true
		if s.skipped > 0 {
			line = fmt.Sprintf("[SYNC] Synchronized after skipping %d bytes\n", s.skipped)
		} else {
			line = "[SYNC] Synchronized\n"
		}
	}
	s.Frames++

	// replies come from a camera, requests from the controller
	hdr, err := visca.ParseHeader(frame[0])
	switch {
	case err != nil:
		s.Malformed++
		return line + fmt.Sprintf("[%s] MALFORMED: %s (%v)", stamp, visca.FormatHex(frame), err), true

	case hdr.Sender == visca.ControllerAddress:
		s.Requests++
		if _, err := visca.ValidateFrame(frame); err != nil {
			s.Malformed++
			return line + fmt.Sprintf("[%s] MALFORMED REQUEST: %s (%v)", stamp, visca.FormatHex(frame), err), true
		}
		if showAll {
			return line + fmt.Sprintf("[%s] %s", stamp, visca.FormatFrame(visca.DirectionOut, frame)), true
		}

	default:
		s.Replies++
		if r := visca.ParseReply(frame); r.Kind == visca.ReplyMalformed {
			s.Malformed++
			return line + fmt.Sprintf("[%s] MALFORMED REPLY: %s", stamp, visca.FormatHex(frame)), true
		}
		if showAll {
			return line + fmt.Sprintf("[%s] %s", stamp, visca.FormatFrame(visca.DirectionIn, frame)), true
		}
	}

	return line, line != ""
}

func runMonitor(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, s *Session) error {
		fmt.Printf("Viscam - Line Monitor\n")
		fmt.Printf("Connection: %s\n", s.Describe())
		fmt.Printf("Statistics interval: %d seconds\n", statsInterval)
		if showAll {
			fmt.Printf("Mode: All frames\n")
		} else {
			fmt.Printf("Mode: Errors only\n")
		}
		fmt.Printf("Press Ctrl+C to exit\n\n")

		stats := &lineStats{start: time.Now()}
		next := time.Now().Add(time.Duration(statsInterval) * time.Second)

		err := s.Transport.Exchange(ctx, func(x *visca.Exchange) error {
			for {
				frame, status, err := x.ReadFrame()
				if err != nil {
					return err
				}
				if line, ok := stats.inspect(frame, status, time.Now()); ok {
					fmt.Println(line)
				}
				if time.Now().After(next) {
					fmt.Println()
					fmt.Print(stats.String())
					fmt.Println()
					next = time.Now().Add(time.Duration(statsInterval) * time.Second)
				}
			}
		})
		if errors.Is(err, context.Canceled) {
			fmt.Println()
			fmt.Print(stats.String())
			return nil
		}
		return err
	})
}
