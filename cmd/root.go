// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/viscam/internal/logging"
)

var (
	configPath string

	// Connection flags
	portName string
	driver   string
	address  int
	flip     bool

	// Output flags
	logLevel        string
	recordPath      string
	metricsTextfile string

	cfg    Config
	logger = zerolog.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "viscam",
	Short: "VISCA PTZ camera controller",
	Long: `Viscam - A CLI tool for controlling VISCA pan/tilt/zoom cameras over RS-232.

Reads and writes camera properties, drives pan/tilt/zoom/focus, runs one-shot
actions and records every frame on the wire for later inspection.

Settings come from an optional TOML file (--config), overridden by flags:
  viscam --port /dev/ttyUSB0 --address 1 get zoom power WB

The log level can also be set with VISCAM_LOG_LEVEL, and VISCAM_LOG_NOCOLOR=1
disables colored log output.`,
	Version:           "0.3.0",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "TOML config file")

	// Connection flags
	flags.StringVarP(&portName, "port", "p", "", "Serial port device")
	flags.StringVar(&driver, "driver", "bugst", "Serial driver (bugst or tarm)")
	flags.IntVarP(&address, "address", "a", 1, "Camera address (1-7)")
	flags.BoolVar(&flip, "flip", false, "Camera is mounted upside down")

	// Output flags
	flags.StringVar(&logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error, disabled)")
	flags.StringVar(&recordPath, "record", "", "Record every frame to this CBOR file")
	flags.StringVar(&metricsTextfile, "metrics-textfile", "", "Write Prometheus metrics to this file on exit")
}

// setup resolves the configuration and logger before any subcommand runs
func setup(cmd *cobra.Command, args []string) error {
	loaded, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		loaded.Port = portName
	}
	if flags.Changed("driver") {
		loaded.Driver = driver
	}
	if flags.Changed("address") {
		loaded.Address = address
	}
	if flags.Changed("flip") {
		loaded.Flip = flip
	}
	if flags.Changed("log-level") {
		loaded.LogLevel = logLevel
	}
	if flags.Changed("record") {
		loaded.Record = recordPath
	}
	if flags.Changed("metrics-textfile") {
		loaded.MetricsTextfile = metricsTextfile
	}
	if err := loaded.validate(); err != nil {
		return err
	}
	cfg = loaded

	logCfg := logging.DefaultConfig()
	if lvl, ok := logging.ParseLevel(cfg.LogLevel); ok {
		logCfg.Level = lvl
	}
	logCfg.NoColor = logCfg.NoColor || cfg.LogNoColor
	logger = logging.New("viscam", logCfg)
	return nil
}

// commandContext is cancelled on SIGINT or SIGTERM
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}
