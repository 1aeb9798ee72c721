// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// CreationMetrics tracks POST /api/pipeline outcomes.
type CreationMetrics struct {
	Attempts prometheus.Counter
	Success  prometheus.Counter
	Errors   prometheus.Counter
	Duration prometheus.Histogram
}

// NewCreationMetrics creates the pipeline creation collectors.
func NewCreationMetrics() *CreationMetrics {
	return &CreationMetrics{
		Attempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_creation_attempts",
			Help: "Total number of pipeline creation requests",
		}),
		Success: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_creation_success",
			Help: "Total number of pipelines admitted",
		}),
		Errors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_creation_errors",
			Help: "Total number of rejected or failed pipeline creation requests",
		}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pipeline_creation_duration",
			Help:    "Pipeline creation request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *CreationMetrics) attempt() {
	if m != nil {
		m.Attempts.Inc()
	}
}

func (m *CreationMetrics) succeeded() {
	if m != nil {
		m.Success.Inc()
	}
}

func (m *CreationMetrics) failed() {
	if m != nil {
		m.Errors.Inc()
	}
}

func (m *CreationMetrics) observe(d time.Duration) {
	if m != nil {
		m.Duration.Observe(d.Seconds())
	}
}

// NewRegistry builds the private registry served on /metrics.
//
// ============================================================
// DEVELOPER: Register custom Prometheus metrics here
// ============================================================
// By default, we expose Go runtime and process metrics plus any
// collectors passed in (engine metrics, HTTP creation metrics).
// To add more, pass them as extra collectors from app.New().
// ============================================================
func NewRegistry(extra ...prometheus.Collector) (*prometheus.Registry, error) {
	registry := prometheus.NewRegistry()

	// Register default collectors
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	for _, c := range extra {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// Collectors lists the creation collectors for registration.
func (m *CreationMetrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.Attempts, m.Success, m.Errors, m.Duration}
}
