// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbvis-ukon/LLMSurver/pkg/types"
)

func TestCounters(t *testing.T) {
	m := New()

	m.RunStarted(types.RunSample)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsStarted.WithLabelValues("sample")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsActive))

	m.Response("A", types.ClassInclude)
	m.Response("A", types.ClassInclude)
	m.Response("B", types.ClassError)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.responses.WithLabelValues("A", "include")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.responses.WithLabelValues("B", "error")))

	m.SinkError()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sinkErrors))

	m.RunSettled(false)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsSettled.WithLabelValues("cancelled")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.runsActive))
}

func TestProgressGauge(t *testing.T) {
	m := New()
	assert.Contains(t, scrape(t, m), "llmsurver_run_progress_percent 0")

	m.TrackProgress(func() float64 { return 42 })
	assert.Contains(t, scrape(t, m), "llmsurver_run_progress_percent 42")

	m.TrackProgress(nil)
	assert.Contains(t, scrape(t, m), "llmsurver_run_progress_percent 0")
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RunStarted(types.RunFull)
		m.RunSettled(true)
		m.Response("A", types.ClassDiscard)
		m.SinkError()
		m.TrackProgress(func() float64 { return 1 })
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 404, rec.Code)
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}
