// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package metrics exports exchange outcomes as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Thermoquad/viscam/pkg/visca"
)

const namespace = "viscam"

// Collector implements visca.Observer on a private registry so several
// collectors can coexist in one process.
type Collector struct {
	registry  *prometheus.Registry
	exchanges *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	retries   *prometheus.CounterVec
}

// New registers the exchange metrics on a fresh registry
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		exchanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "visca",
				Name:      "exchanges_total",
				Help:      "Finished VISCA exchanges by handshake and outcome.",
			},
			[]string{"op", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "visca",
				Name:      "exchange_duration_seconds",
				Help:      "VISCA exchange duration in seconds, retries included.",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"op"},
		),
		retries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "visca",
				Name:      "retries_total",
				Help:      "Query retries by the reply that caused them.",
			},
			[]string{"op", "reason"},
		),
	}
	c.registry.MustRegister(c.exchanges, c.duration, c.retries)
	return c
}

// Registry returns the registry holding the collector's metrics
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveExchange implements visca.Observer
func (c *Collector) ObserveExchange(op visca.Op, outcome visca.Outcome, d time.Duration) {
	c.exchanges.WithLabelValues(string(op), string(outcome)).Inc()
	c.duration.WithLabelValues(string(op)).Observe(d.Seconds())
}

// ObserveRetry implements visca.Observer
func (c *Collector) ObserveRetry(op visca.Op, reason visca.ReplyKind) {
	c.retries.WithLabelValues(string(op), reason.String()).Inc()
}

// WriteTextfile writes the current values in the node_exporter textfile
// format. The file is replaced atomically.
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}
