// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusSuccess   = "success"
	statusError     = "error"
	statusUnknown   = "unknown_code"
	statusMalformed = "malformed_payload"

	// unregisteredCode is the one code label shared by every code without a
	// handler; the code label set stays bounded by the registry.
	unregisteredCode = "unregistered"
)

// Metrics holds the Prometheus collectors updated by dispatchers.
type Metrics struct {
	dispatchTotal    *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	registered       prometheus.Gauge
	gatherer         prometheus.Gatherer
}

// NewMetrics creates the dispatcher collectors and registers them with reg.
// A nil reg uses prometheus.DefaultRegisterer. When reg is also a
// prometheus.Gatherer (a *prometheus.Registry is) it backs Gatherer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}
	factory := promauto.With(reg)
	return &Metrics{
		gatherer: gatherer,
		dispatchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wire_dispatch_total",
				Help: "Total number of dispatched messages",
			},
			[]string{"code", "status"},
		),
		dispatchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wire_dispatch_duration_seconds",
				Help:    "Time spent decoding and handling a message",
				Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"code"},
		),
		registered: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "wire_handlers_registered",
				Help: "Number of message codes with a registered handler",
			},
		),
	}
}

// Gatherer returns the registry the collectors were registered with, or
// prometheus.DefaultGatherer for a nil Metrics.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil || m.gatherer == nil {
		return prometheus.DefaultGatherer
	}
	return m.gatherer
}

func (m *Metrics) observe(code int32, status string, d time.Duration) {
	if m == nil {
		return
	}
	label := unregisteredCode
	if status != statusUnknown {
		label = strconv.FormatInt(int64(code), 10)
	}
	m.dispatchTotal.WithLabelValues(label, status).Inc()
	m.dispatchDuration.WithLabelValues(label).Observe(d.Seconds())
}

func (m *Metrics) setRegistered(n int) {
	if m == nil {
		return
	}
	m.registered.Set(float64(n))
}
