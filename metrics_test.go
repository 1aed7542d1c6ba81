// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	d := NewDispatcher(WithMetrics(m))
	d.Register(1, OnRecord(pointSchema, addPoint))
	d.Register(2, OnRecord(pointSchema, func(*Record, Args) (any, error) {
		return nil, errors.New("rejected")
	}))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.registered))

	_, err := d.Invoke(1, make([]byte, 8), nil)
	require.NoError(t, err)
	_, err = d.Invoke(1, make([]byte, 8), nil)
	require.NoError(t, err)
	_, _ = d.Invoke(1, []byte{1}, nil)
	_, _ = d.Invoke(2, make([]byte, 8), nil)
	_, _ = d.Invoke(3, nil, nil)

	count := func(code, status string) float64 {
		return testutil.ToFloat64(m.dispatchTotal.WithLabelValues(code, status))
	}
	assert.Equal(t, float64(2), count("1", statusSuccess))
	assert.Equal(t, float64(1), count("1", statusMalformed))
	assert.Equal(t, float64(1), count("2", statusError))
	assert.Equal(t, float64(1), count(unregisteredCode, statusUnknown))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.ElementsMatch(t, []string{
		"wire_dispatch_total",
		"wire_dispatch_duration_seconds",
		"wire_handlers_registered",
	}, names)
}

func TestUnknownCodesShareOneSeries(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	d := NewDispatcher(WithMetrics(m))
	d.Register(1, OnRecord(pointSchema, addPoint))

	for code := int32(100); code < 600; code++ {
		_, err := d.Invoke(code, nil, nil)
		require.ErrorIs(t, err, ErrUnknownCode)
	}
	_, err := d.Invoke(1, make([]byte, 8), nil)
	require.NoError(t, err)

	assert.Equal(t, 2, testutil.CollectAndCount(m.dispatchTotal))
	assert.Equal(t, 2, testutil.CollectAndCount(m.dispatchDuration))
	assert.Equal(t, float64(500),
		testutil.ToFloat64(m.dispatchTotal.WithLabelValues(unregisteredCode, statusUnknown)))
}

func TestMetricsGatherer(t *testing.T) {
	reg := prometheus.NewRegistry()
	assert.Same(t, reg, NewMetrics(reg).Gatherer())

	var m *Metrics
	assert.Equal(t, prometheus.DefaultGatherer, m.Gatherer())
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.observe(1, statusSuccess, 0)
		m.setRegistered(3)
	})
}
