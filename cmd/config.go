// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/Thermoquad/viscam/pkg/visca"
)

// Config is the resolved runtime configuration: defaults, then the config
// file, then flags.
type Config struct {
	Port            string
	Driver          string
	Address         int
	ByteTimeout     time.Duration
	Completion      time.Duration
	Flip            bool
	Record          string
	MetricsTextfile string
	Retry           visca.RetryPolicy
	Speed           visca.Session
	LogLevel        string
	LogNoColor      bool
}

// config.toml key mapping
type fileConfig struct {
	Port            string `toml:"port"`
	Driver          string `toml:"driver"`
	Address         int    `toml:"address"`
	ByteTimeout     string `toml:"byte_timeout"`
	Completion      string `toml:"completion_timeout"`
	Flip            bool   `toml:"flip"`
	Record          string `toml:"record"`
	MetricsTextfile string `toml:"metrics_textfile"`

	Retry struct {
		MaxAttempts  int     `toml:"max_attempts"`
		InitialDelay string  `toml:"initial_delay"`
		Multiplier   float64 `toml:"multiplier"`
		MaxDelay     string  `toml:"max_delay"`
	} `toml:"retry"`

	Speed struct {
		Pan  int `toml:"pan"`
		Tilt int `toml:"tilt"`
	} `toml:"speed"`

	Log struct {
		Level   string `toml:"level"`
		NoColor bool   `toml:"no_color"`
	} `toml:"log"`
}

func defaultConfig() Config {
	return Config{
		Driver:      "bugst",
		Address:     1,
		ByteTimeout: visca.DefaultByteTimeout,
		Completion:  visca.DefaultCompletionTimeout,
		Retry:       visca.DefaultRetryPolicy(),
		Speed:       visca.DefaultSession(),
		LogLevel:    "info",
	}
}

// loadConfig overlays the TOML file at path onto the defaults. An empty path
// returns the defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("port") {
		cfg.Port = strings.TrimSpace(raw.Port)
	}
	if meta.IsDefined("driver") {
		cfg.Driver = strings.TrimSpace(raw.Driver)
	}
	if meta.IsDefined("address") {
		cfg.Address = raw.Address
	}
	if meta.IsDefined("byte_timeout") {
		if cfg.ByteTimeout, err = parseDuration("byte_timeout", raw.ByteTimeout); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("completion_timeout") {
		if cfg.Completion, err = parseDuration("completion_timeout", raw.Completion); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("flip") {
		cfg.Flip = raw.Flip
	}
	if meta.IsDefined("record") {
		cfg.Record = strings.TrimSpace(raw.Record)
	}
	if meta.IsDefined("metrics_textfile") {
		cfg.MetricsTextfile = strings.TrimSpace(raw.MetricsTextfile)
	}

	if meta.IsDefined("retry", "max_attempts") {
		cfg.Retry.MaxAttempts = raw.Retry.MaxAttempts
	}
	if meta.IsDefined("retry", "initial_delay") {
		if cfg.Retry.InitialDelay, err = parseDuration("retry.initial_delay", raw.Retry.InitialDelay); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("retry", "multiplier") {
		cfg.Retry.Multiplier = raw.Retry.Multiplier
	}
	if meta.IsDefined("retry", "max_delay") {
		if cfg.Retry.MaxDelay, err = parseDuration("retry.max_delay", raw.Retry.MaxDelay); err != nil {
			return Config{}, err
		}
	}

	if meta.IsDefined("speed", "pan") {
		if raw.Speed.Pan < 0 || raw.Speed.Pan > 0xFF {
			return Config{}, fmt.Errorf("load config: speed.pan %d out of range", raw.Speed.Pan)
		}
		cfg.Speed.PanSpeed = uint8(raw.Speed.Pan)
	}
	if meta.IsDefined("speed", "tilt") {
		if raw.Speed.Tilt < 0 || raw.Speed.Tilt > 0xFF {
			return Config{}, fmt.Errorf("load config: speed.tilt %d out of range", raw.Speed.Tilt)
		}
		cfg.Speed.TiltSpeed = uint8(raw.Speed.Tilt)
	}

	if meta.IsDefined("log", "level") {
		cfg.LogLevel = strings.TrimSpace(raw.Log.Level)
	}
	if meta.IsDefined("log", "no_color") {
		cfg.LogNoColor = raw.Log.NoColor
	}

	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Address < 1 || c.Address > visca.MaxAddress {
		return fmt.Errorf("address %d outside 1..%d", c.Address, visca.MaxAddress)
	}
	if c.ByteTimeout <= 0 {
		return fmt.Errorf("byte_timeout must be positive")
	}
	if c.Completion < c.ByteTimeout {
		return fmt.Errorf("completion_timeout must be at least byte_timeout")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}
	if _, err := visca.OpenerFor(c.Driver); err != nil {
		return err
	}
	return c.Speed.Validate()
}

func parseDuration(key, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("load config: %s: %w", key, err)
	}
	return d, nil
}
