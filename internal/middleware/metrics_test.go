package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/bryanwahyu/cnav/internal/middleware"
)

func counter(t *testing.T, name string) float64 {
	t.Helper()
	rec := httptest.NewRecorder()
	middleware.MetricsHandler(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	v, ok := m[name].(float64)
	require.True(t, ok, name)
	return v
}

func TestDomainCounters(t *testing.T) {
	before := map[string]float64{}
	for _, n := range []string{"answers_recorded", "submissions", "evaluations_recorded", "prompts_generated", "fallback_reads"} {
		before[n] = counter(t, n)
	}

	middleware.IncrementAnswers()
	middleware.IncrementAnswers()
	middleware.IncrementSubmissions()
	middleware.IncrementEvaluations()
	middleware.IncrementPrompts()
	middleware.IncrementFallback("ListOrganizations")

	assert.Equal(t, before["answers_recorded"]+2, counter(t, "answers_recorded"))
	assert.Equal(t, before["submissions"]+1, counter(t, "submissions"))
	assert.Equal(t, before["evaluations_recorded"]+1, counter(t, "evaluations_recorded"))
	assert.Equal(t, before["prompts_generated"]+1, counter(t, "prompts_generated"))
	assert.Equal(t, before["fallback_reads"]+1, counter(t, "fallback_reads"))
}

func TestMetricsAndLoggingMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	h := middleware.LoggingMiddleware(logger)(middleware.MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("hello"))
	})))

	failed := counter(t, "requests_failed")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))

	assert.Equal(t, failed+1, counter(t, "requests_failed"))

	entries := logs.All()
	require.Len(t, entries, 2)
	first := entries[0].ContextMap()
	assert.Equal(t, "/ok", first["path"])
	assert.EqualValues(t, 200, first["status"])
	assert.EqualValues(t, 5, first["bytes"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
}
