// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/viscam/internal/metrics"
	"github.com/Thermoquad/viscam/pkg/visca"
)

// Session bundles the open transport with the channels and camera built on it
type Session struct {
	Transport *visca.Transport
	Command   *visca.CommandChannel
	Query     *visca.QueryChannel
	Camera    *visca.Camera
	Stats     *visca.Statistics

	metrics  *metrics.Collector
	recorder *visca.Recorder
	recFile  *os.File
}

// OpenSession opens the configured serial port and wires the recorder,
// statistics and metrics onto it.
func OpenSession() (*Session, error) {
	if cfg.Port == "" {
		return nil, fmt.Errorf("--port must be specified")
	}
	opener, err := visca.OpenerFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	s := &Session{Stats: visca.NewStatistics()}
	topts := []visca.TransportOption{
		visca.WithOpener(opener),
		visca.WithByteTimeout(cfg.ByteTimeout),
	}

	if cfg.Record != "" {
		f, err := os.Create(cfg.Record)
		if err != nil {
			return nil, fmt.Errorf("failed to create recording: %w", err)
		}
		s.recFile = f
		s.recorder = visca.NewRecorder(f)
		topts = append(topts, visca.WithTap(s.recorder.Tap))
		logger = logger.With().Str("session", s.recorder.Session.String()).Logger()
	}
	topts = append(topts, visca.WithTransportLogger(logger))

	s.Transport = visca.NewTransport(topts...)
	if err := s.Transport.Open(cfg.Port); err != nil {
		s.closeRecording()
		return nil, err
	}
	logger.Debug().Str("port", cfg.Port).Str("driver", cfg.Driver).Msg("port open")

	observers := visca.Observers{s.Stats}
	if cfg.MetricsTextfile != "" {
		s.metrics = metrics.New()
		observers = append(observers, s.metrics)
	}
	copts := []visca.ChannelOption{
		visca.WithLogger(logger),
		visca.WithObserver(observers),
		visca.WithRetryPolicy(cfg.Retry),
		visca.WithCompletionTimeout(cfg.Completion),
	}
	s.Command = visca.NewCommandChannel(s.Transport, copts...)
	s.Query = visca.NewQueryChannel(s.Transport, copts...)

	mapping := visca.DefaultPanTiltMapping()
	mapping.Flip = cfg.Flip
	s.Camera = visca.NewCamera(s.Command, s.Query, visca.CameraAddress(cfg.Address),
		visca.WithPanTiltMapping(mapping),
		visca.WithSession(cfg.Speed),
		visca.WithCameraLogger(logger),
	)
	return s, nil
}

// Describe returns a one-line connection summary
func (s *Session) Describe() string {
	return fmt.Sprintf("Serial: %s @ %d baud (%s), camera %d", s.Transport.Name(), visca.BaudRate, cfg.Driver, cfg.Address)
}

// Close closes the port, then flushes the recording and metrics textfile
func (s *Session) Close() error {
	errs := []error{s.Transport.Close()}
	if s.recorder != nil {
		errs = append(errs, s.recorder.Err())
	}
	errs = append(errs, s.closeRecording())
	if s.metrics != nil {
		if err := s.metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
			errs = append(errs, fmt.Errorf("failed to write metrics: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (s *Session) closeRecording() error {
	if s.recFile == nil {
		return nil
	}
	err := s.recFile.Close()
	s.recFile = nil
	return err
}

// withSession opens a session, runs fn under a signal-aware context and
// closes the session again.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, s *Session) error) (err error) {
	s, err := OpenSession()
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, s.Close())
	}()

	ctx, cancel := commandContext(cmd)
	defer cancel()
	return fn(ctx, s)
}
