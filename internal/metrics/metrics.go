// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics exposes Prometheus instrumentation for classification runs.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dbvis-ukon/LLMSurver/pkg/types"
)

const namespace = "llmsurver"

// Metrics holds the collectors registered on its own registry.
type Metrics struct {
	Registry *prometheus.Registry

	runsStarted *prometheus.CounterVec
	runsSettled *prometheus.CounterVec
	responses   *prometheus.CounterVec
	sinkErrors  prometheus.Counter
	runsActive  prometheus.Gauge

	mu       sync.RWMutex
	progress func() float64
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		runsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_started_total",
			Help:      "Classification runs started, by run type.",
		}, []string{"type"}),
		runsSettled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_settled_total",
			Help:      "Classification runs settled, by outcome.",
		}, []string{"outcome"}),
		responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "responses_total",
			Help:      "Agent responses recorded, by model and classification.",
		}, []string{"model", "classification"}),
		sinkErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_errors_total",
			Help:      "Responses that could not be persisted.",
		}),
		runsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_active",
			Help:      "Runs currently in progress.",
		}),
	}

	progress := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "run_progress_percent",
		Help:      "Progress of the active run in percent.",
	}, m.readProgress)

	m.Registry.MustRegister(m.runsStarted, m.runsSettled, m.responses, m.sinkErrors, m.runsActive, progress)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// RunStarted counts a new run and marks it active.
func (m *Metrics) RunStarted(t types.RunType) {
	if m == nil {
		return
	}
	m.runsStarted.WithLabelValues(t.String()).Inc()
	m.runsActive.Inc()
}

// RunSettled counts a settled run; finished distinguishes complete runs
// from cancelled ones.
func (m *Metrics) RunSettled(finished bool) {
	if m == nil {
		return
	}
	outcome := "cancelled"
	if finished {
		outcome = "finished"
	}
	m.runsSettled.WithLabelValues(outcome).Inc()
	m.runsActive.Dec()
}

// Response counts one recorded agent response.
func (m *Metrics) Response(model string, c types.Classification) {
	if m == nil {
		return
	}
	m.responses.WithLabelValues(model, c.String()).Inc()
}

// SinkError counts a response that failed to persist.
func (m *Metrics) SinkError() {
	if m == nil {
		return
	}
	m.sinkErrors.Inc()
}

// TrackProgress sets the function the progress gauge reads at scrape time.
// A nil fn reports zero.
func (m *Metrics) TrackProgress(fn func() float64) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.progress = fn
	m.mu.Unlock()
}

func (m *Metrics) readProgress() float64 {
	m.mu.RLock()
	fn := m.progress
	m.mu.RUnlock()
	if fn == nil {
		return 0
	}
	return fn()
}
