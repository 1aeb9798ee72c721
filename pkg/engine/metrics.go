// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package engine

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/listen-rs/listen-engine/pkg/pipeline"
)

const metricsNamespace = "listen_engine"

// Metrics holds the engine's prometheus collectors.
type Metrics struct {
	Pipelines          *prometheus.GaugeVec
	MailboxDepth       prometheus.Gauge
	InflightDispatches prometheus.Gauge
	EventsProcessed    prometheus.Counter
	ConditionTriggers  prometheus.Counter
	StepsCompleted     prometheus.Counter
	EvaluationPanics   prometheus.Counter
	Admissions         *prometheus.CounterVec
	Dispatches         *prometheus.CounterVec
	DispatchDuration   *prometheus.HistogramVec
	StoreWriteFailures *prometheus.CounterVec
}

// NewMetrics creates unregistered collectors.
func NewMetrics() *Metrics {
	return &Metrics{
		Pipelines: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "pipelines",
			Help:      "Registered pipelines by status",
		}, []string{"status"}),
		MailboxDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "mailbox_depth",
			Help:      "Control messages waiting in the engine mailbox",
		}),
		InflightDispatches: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "inflight_dispatches",
			Help:      "Detached action dispatches not yet folded back",
		}),
		EventsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "price_events_total",
			Help:      "Price events evaluated by the engine",
		}),
		ConditionTriggers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "condition_triggers_total",
			Help:      "Conditions latched to triggered",
		}),
		StepsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "steps_completed_total",
			Help:      "Steps whose conditions all triggered",
		}),
		EvaluationPanics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "evaluation_panics_total",
			Help:      "Pipelines failed by a recovered evaluation panic",
		}),
		Admissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "admissions_total",
			Help:      "AddPipeline requests by result",
		}, []string{"result"}),
		Dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "dispatches_total",
			Help:      "Action dispatches by kind and result",
		}, []string{"kind", "result"}),
		DispatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent dispatching an action, retries included",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		StoreWriteFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "store_write_failures_total",
			Help:      "Write-behind store operations that exhausted their retries",
		}, []string{"op"}),
	}
}

// Collectors returns every collector for registration.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.Pipelines,
		m.MailboxDepth,
		m.InflightDispatches,
		m.EventsProcessed,
		m.ConditionTriggers,
		m.StepsCompleted,
		m.EvaluationPanics,
		m.Admissions,
		m.Dispatches,
		m.DispatchDuration,
		m.StoreWriteFailures,
	}
}

// Register adds all collectors to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// The helpers below tolerate a nil receiver so the engine can run without metrics.

func (m *Metrics) statusChanged(from, to pipeline.Status) {
	if m == nil {
		return
	}
	if from != "" {
		m.Pipelines.WithLabelValues(string(from)).Dec()
	}
	if to != "" {
		m.Pipelines.WithLabelValues(string(to)).Inc()
	}
}

func (m *Metrics) admission(result string) {
	if m == nil {
		return
	}
	m.Admissions.WithLabelValues(result).Inc()
}

func (m *Metrics) mailbox(depth int) {
	if m == nil {
		return
	}
	m.MailboxDepth.Set(float64(depth))
}

func (m *Metrics) inflight(n int) {
	if m == nil {
		return
	}
	m.InflightDispatches.Set(float64(n))
}

func (m *Metrics) event() {
	if m == nil {
		return
	}
	m.EventsProcessed.Inc()
}

func (m *Metrics) conditionTriggered() {
	if m == nil {
		return
	}
	m.ConditionTriggers.Inc()
}

func (m *Metrics) stepCompleted() {
	if m == nil {
		return
	}
	m.StepsCompleted.Inc()
}

func (m *Metrics) panicked() {
	if m == nil {
		return
	}
	m.EvaluationPanics.Inc()
}

func (m *Metrics) dispatched(kind pipeline.ActionKind, ok bool, seconds float64) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	m.Dispatches.WithLabelValues(string(kind), result).Inc()
	m.DispatchDuration.WithLabelValues(string(kind)).Observe(seconds)
}

func (m *Metrics) storeFailure(op string) {
	if m == nil {
		return
	}
	m.StoreWriteFailures.WithLabelValues(op).Inc()
}
