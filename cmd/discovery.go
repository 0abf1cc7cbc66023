// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/viscam/pkg/visca"
)

var (
	discoveryTimeout int
	discoveryList    bool
)

var discoveryCmd = &cobra.Command{
	Use:   "discovery",
	Short: "Assign addresses and find cameras on the chain",
	Long: `Broadcast Address Set to number the cameras on the daisy chain, then
ask each one for its power state.

Cameras take addresses 1, 2, ... in chain order. With --list, only the serial
ports present on the system are printed and nothing is sent.

Examples:
  viscam discovery --list
  viscam discovery --port /dev/ttyUSB0

Exit codes:
  0 - Discovery successful (at least one camera found)
  1 - Discovery failed (no cameras or timeout)
  2 - Connection error`,
	Args: cobra.NoArgs,
	RunE: runDiscovery,
}

func init() {
	rootCmd.AddCommand(discoveryCmd)
	discoveryCmd.Flags().IntVar(&discoveryTimeout, "timeout", 5, "Timeout in seconds for discovery")
	discoveryCmd.Flags().BoolVar(&discoveryList, "list", false, "List serial ports and exit")
}

func runDiscovery(cmd *cobra.Command, args []string) error {
	if discoveryList {
		ports, err := visca.ListPorts()
		if err != nil {
			return err
		}
		if len(ports) == 0 {
			fmt.Println("No serial ports found")
			return nil
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return nil
	}

	s, err := OpenSession()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}

	fmt.Printf("Viscam - Camera Discovery\n")
	fmt.Printf("Connection: %s\n", s.Transport.Name())
	fmt.Printf("Timeout: %d seconds\n\n", discoveryTimeout)

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(discoveryTimeout)*time.Second)
	defer cancel()

	fmt.Printf("Sending ADDRESS_SET broadcast...\n")
	count, err := visca.AssignAddresses(ctx, s.Transport)
	if err != nil {
		fmt.Fprintf(os.Stderr, "\nTIMEOUT: no address reply: %v\n", err)
		s.Close()
		os.Exit(1)
	}

	for n := 1; n <= count; n++ {
		cam := visca.NewCamera(s.Command, s.Query, visca.CameraAddress(n), visca.WithCameraLogger(logger))
		fmt.Printf("\nCamera found:\n")
		fmt.Printf("  Address: %d\n", n)
		if v, err := cam.Get(ctx, "power"); err != nil {
			fmt.Printf("  Power: %s\n", describeError(err))
		} else {
			fmt.Printf("  Power: %s\n", v)
		}
	}

	fmt.Printf("\n--- Discovery summary ---\n")
	fmt.Printf("Cameras found: %d\n", count)
	s.Close()

	if count == 0 {
		fmt.Printf("No cameras discovered. Check cabling and camera power.\n")
		os.Exit(1)
	}
	return nil
}
