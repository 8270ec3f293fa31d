package middleware

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics stores application metrics
type Metrics struct {
	RequestsTotal       uint64
	RequestsInProgress  uint64
	RequestsSuccess     uint64
	RequestsFailed      uint64
	AnswersRecorded     uint64
	Submissions         uint64
	EvaluationsRecorded uint64
	PromptsGenerated    uint64
	StartTime           time.Time

	fallbackMu    sync.Mutex
	FallbackReads map[string]uint64
}

var globalMetrics = &Metrics{
	StartTime:     time.Now(),
	FallbackReads: map[string]uint64{},
}

// IncrementRequests increments total request counter
func IncrementRequests() {
	atomic.AddUint64(&globalMetrics.RequestsTotal, 1)
}

// IncrementInProgress increments in-progress request counter
func IncrementInProgress() {
	atomic.AddUint64(&globalMetrics.RequestsInProgress, 1)
}

// DecrementInProgress decrements in-progress request counter
func DecrementInProgress() {
	atomic.AddUint64(&globalMetrics.RequestsInProgress, ^uint64(0))
}

// IncrementSuccess increments successful request counter
func IncrementSuccess() {
	atomic.AddUint64(&globalMetrics.RequestsSuccess, 1)
}

// IncrementFailed increments failed request counter
func IncrementFailed() {
	atomic.AddUint64(&globalMetrics.RequestsFailed, 1)
}

// IncrementAnswers counts answers recorded through the questionnaire.
func IncrementAnswers() {
	atomic.AddUint64(&globalMetrics.AnswersRecorded, 1)
}

// IncrementSubmissions counts submitted questionnaires.
func IncrementSubmissions() {
	atomic.AddUint64(&globalMetrics.Submissions, 1)
}

// IncrementEvaluations counts auditor evaluations recorded.
func IncrementEvaluations() {
	atomic.AddUint64(&globalMetrics.EvaluationsRecorded, 1)
}

// IncrementPrompts counts generated clause prompts.
func IncrementPrompts() {
	atomic.AddUint64(&globalMetrics.PromptsGenerated, 1)
}

// IncrementFallback counts catalog reads served from the sample dataset, per operation.
func IncrementFallback(op string) {
	globalMetrics.fallbackMu.Lock()
	globalMetrics.FallbackReads[op]++
	globalMetrics.fallbackMu.Unlock()
}

func fallbackSnapshot() (map[string]uint64, uint64) {
	globalMetrics.fallbackMu.Lock()
	defer globalMetrics.fallbackMu.Unlock()
	out := make(map[string]uint64, len(globalMetrics.FallbackReads))
	var total uint64
	for op, n := range globalMetrics.FallbackReads {
		out[op] = n
		total += n
	}
	return out, total
}

// GetMetrics returns current metrics
func GetMetrics() map[string]interface{} {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	byOp, fallbackTotal := fallbackSnapshot()

	return map[string]interface{}{
		"requests_total":       atomic.LoadUint64(&globalMetrics.RequestsTotal),
		"requests_in_progress": atomic.LoadUint64(&globalMetrics.RequestsInProgress),
		"requests_success":     atomic.LoadUint64(&globalMetrics.RequestsSuccess),
		"requests_failed":      atomic.LoadUint64(&globalMetrics.RequestsFailed),
		"answers_recorded":     atomic.LoadUint64(&globalMetrics.AnswersRecorded),
		"submissions":          atomic.LoadUint64(&globalMetrics.Submissions),
		"evaluations_recorded": atomic.LoadUint64(&globalMetrics.EvaluationsRecorded),
		"prompts_generated":    atomic.LoadUint64(&globalMetrics.PromptsGenerated),
		"fallback_reads":       fallbackTotal,
		"fallback_reads_by_op": byOp,
		"uptime_seconds":       time.Since(globalMetrics.StartTime).Seconds(),
		"memory": map[string]interface{}{
			"alloc_bytes":       m.Alloc,
			"total_alloc_bytes": m.TotalAlloc,
			"sys_bytes":         m.Sys,
			"num_gc":            m.NumGC,
		},
		"goroutines": runtime.NumGoroutine(),
	}
}

// MetricsMiddleware tracks request metrics
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		IncrementRequests()
		IncrementInProgress()
		defer DecrementInProgress()

		// Wrap response writer to capture status
		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		// Track success/failure based on status code
		if wrapped.statusCode >= 200 && wrapped.statusCode < 400 {
			IncrementSuccess()
		} else {
			IncrementFailed()
		}
	})
}

// MetricsHandler returns metrics as JSON
func MetricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(GetMetrics())
}
