// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Viscam - VISCA PTZ camera controller
//
// A CLI tool for driving pan/tilt/zoom cameras over the VISCA serial
// protocol and inspecting the frames on the wire.

package main

import (
	"os"

	"github.com/Thermoquad/viscam/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
