// Package metrics provides observability for the matching core.
package metrics

import (
	"net/http"
	"time"
)

// Metrics provides observability across C1-C6. The interface + NoOp
// default pattern is carried over from the authorization engine's
// metrics package, generalized from authorization-check counters to
// embedding/vector-store/queue/rate-limiter counters.
type Metrics interface {
	// Embedding (C1) metrics
	RecordEmbeddingOp(status string, duration time.Duration)
	RecordCacheOperation(operation string) // hit, miss, eviction

	// Vector store (C2) metrics
	RecordVectorOp(operation string, duration time.Duration)
	RecordVectorError(errorType string)
	UpdateVectorStoreSize(count int)
	UpdateIndexSize(bytes int64)

	// Match engine (C3) metrics
	RecordMatch(duration time.Duration)

	// Ingestion pipeline (C4) metrics
	RecordIngestStep(step string, status string, duration time.Duration)

	// Job queue (C5) metrics
	UpdateQueueDepth(priority string, depth int)
	UpdateActiveWorkers(count int)
	RecordJobOutcome(status string, duration time.Duration)
	RecordCircuitBreakerState(component string, open bool)

	// Rate limiter (C6) metrics
	RecordAdmission(endpointClass string, admitted bool)
	UpdateReputation(clientID string, value float64)

	// HTTP handler for Prometheus scraping
	HTTPHandler() http.Handler
}

// NoOpMetrics is a no-op implementation used when monitoring is disabled.
type NoOpMetrics struct{}

func NewNoOpMetrics() *NoOpMetrics { return &NoOpMetrics{} }

func (n *NoOpMetrics) RecordEmbeddingOp(status string, duration time.Duration)        {}
func (n *NoOpMetrics) RecordCacheOperation(operation string)                          {}
func (n *NoOpMetrics) RecordVectorOp(operation string, duration time.Duration)        {}
func (n *NoOpMetrics) RecordVectorError(errorType string)                             {}
func (n *NoOpMetrics) UpdateVectorStoreSize(count int)                                {}
func (n *NoOpMetrics) UpdateIndexSize(bytes int64)                                     {}
func (n *NoOpMetrics) RecordMatch(duration time.Duration)                             {}
func (n *NoOpMetrics) RecordIngestStep(step, status string, duration time.Duration)   {}
func (n *NoOpMetrics) UpdateQueueDepth(priority string, depth int)                    {}
func (n *NoOpMetrics) UpdateActiveWorkers(count int)                                  {}
func (n *NoOpMetrics) RecordJobOutcome(status string, duration time.Duration)         {}
func (n *NoOpMetrics) RecordCircuitBreakerState(component string, open bool)          {}
func (n *NoOpMetrics) RecordAdmission(endpointClass string, admitted bool)            {}
func (n *NoOpMetrics) UpdateReputation(clientID string, value float64)                {}

func (n *NoOpMetrics) HTTPHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("# NoOp metrics - monitoring disabled\n"))
	})
}
