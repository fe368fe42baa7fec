// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Operation label values.
const (
	OperationProbe = "probe"
	OperationRange = "range"
	OperationWhole = "whole"
)

// Metrics holds the transport counters. Create one per registry.
type Metrics struct {
	// Requests counts calls by operation and outcome ("ok" or
	// "error").
	Requests *prometheus.CounterVec

	// Bytes counts body bytes returned, by operation.
	Bytes *prometheus.CounterVec
}

// NewMetrics registers the transport counters with registerer. A nil
// registerer leaves them unregistered, which tests use to read
// counters directly.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cyoa",
			Subsystem: "transport",
			Name:      "requests_total",
			Help:      "Transport calls by operation and outcome.",
		}, []string{"operation", "outcome"}),
		Bytes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cyoa",
			Subsystem: "transport",
			Name:      "bytes_total",
			Help:      "Body bytes returned by the transport, by operation.",
		}, []string{"operation"}),
	}
}

// Instrumented is a Transport that counts the calls it forwards.
type Instrumented struct {
	inner   Transport
	metrics *Metrics
}

// Instrument wraps inner so every call is recorded in metrics.
func Instrument(inner Transport, metrics *Metrics) *Instrumented {
	return &Instrumented{inner: inner, metrics: metrics}
}

func (instrumented *Instrumented) Probe(ctx context.Context, path string) (Probe, error) {
	probe, err := instrumented.inner.Probe(ctx, path)
	instrumented.record(OperationProbe, 0, err)
	return probe, err
}

func (instrumented *Instrumented) FetchRange(ctx context.Context, path string, byteRange Range) ([]byte, error) {
	data, err := instrumented.inner.FetchRange(ctx, path, byteRange)
	instrumented.record(OperationRange, len(data), err)
	return data, err
}

func (instrumented *Instrumented) FetchWhole(ctx context.Context, path string) ([]byte, error) {
	data, err := instrumented.inner.FetchWhole(ctx, path)
	instrumented.record(OperationWhole, len(data), err)
	return data, err
}

func (instrumented *Instrumented) record(operation string, size int, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	instrumented.metrics.Requests.WithLabelValues(operation, outcome).Inc()
	instrumented.metrics.Bytes.WithLabelValues(operation).Add(float64(size))
}

// Totals sums the counters across operations.
type Totals struct {
	Requests uint64 `json:"requests"`
	Errors   uint64 `json:"errors"`
	Bytes    uint64 `json:"bytes"`
}

// Totals reads the current counter values.
func (metrics *Metrics) Totals() Totals {
	var totals Totals
	collectCounters(metrics.Requests, func(labels map[string]string, value float64) {
		totals.Requests += uint64(value)
		if labels["outcome"] == "error" {
			totals.Errors += uint64(value)
		}
	})
	collectCounters(metrics.Bytes, func(_ map[string]string, value float64) {
		totals.Bytes += uint64(value)
	})
	return totals
}

func collectCounters(collector prometheus.Collector, visit func(labels map[string]string, value float64)) {
	metrics := make(chan prometheus.Metric)
	go func() {
		collector.Collect(metrics)
		close(metrics)
	}()
	for metric := range metrics {
		var written dto.Metric
		if err := metric.Write(&written); err != nil {
			continue
		}
		labels := make(map[string]string, len(written.GetLabel()))
		for _, pair := range written.GetLabel() {
			labels[pair.GetName()] = pair.GetValue()
		}
		visit(labels, written.GetCounter().GetValue())
	}
}
