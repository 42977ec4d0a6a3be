package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMetrics implements Metrics using Prometheus, generalized
// from the authorization engine's checks/cache/vector counters into the
// matching core's embedding/vector/match/queue/rate-limit surface.
type PrometheusMetrics struct {
	embeddingOps      *prometheus.CounterVec
	embeddingCacheOps *prometheus.CounterVec
	embeddingDuration prometheus.Histogram

	vectorOps            *prometheus.CounterVec
	vectorErrors         *prometheus.CounterVec
	vectorStoreSize      prometheus.Gauge
	indexSize            prometheus.Gauge
	vectorSearchDuration prometheus.Histogram
	vectorInsertDuration prometheus.Histogram

	matchDuration prometheus.Histogram

	ingestSteps   *prometheus.CounterVec
	ingestDuration *prometheus.HistogramVec

	queueDepth       *prometheus.GaugeVec
	activeWorkers    prometheus.Gauge
	jobOutcomes      *prometheus.CounterVec
	jobDuration      prometheus.Histogram
	circuitBreakers  *prometheus.GaugeVec

	admissions *prometheus.CounterVec
	reputation *prometheus.GaugeVec

	registry *prometheus.Registry
}

func NewPrometheusMetrics(namespace string) *PrometheusMetrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	embeddingOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "embedding", Name: "ops_total",
		Help: "Total embedding operations by status",
	}, []string{"status"})

	embeddingCacheOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "embedding", Name: "cache_operations_total",
		Help: "Total embedding cache operations",
	}, []string{"operation"})

	embeddingDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "embedding", Name: "duration_milliseconds",
		Help:    "Embedding generation latency in milliseconds",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
	})

	vectorOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "vector", Name: "operations_total",
		Help: "Total vector store operations by type",
	}, []string{"op"})

	vectorErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "vector", Name: "errors_total",
		Help: "Total vector store errors by type",
	}, []string{"type"})

	vectorStoreSize := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "vector", Name: "store_size",
		Help: "Total number of documents in the vector store",
	})

	indexSize := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "vector", Name: "index_size_bytes",
		Help: "Approximate size of the vector index in bytes",
	})

	vectorSearchDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "vector", Name: "search_duration_milliseconds",
		Help: "Vector similarity search latency in milliseconds", Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
	})

	vectorInsertDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "vector", Name: "insert_duration_milliseconds",
		Help: "Vector insert latency in milliseconds", Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
	})

	matchDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "match", Name: "duration_milliseconds",
		Help: "Single CV/JD match latency in milliseconds", Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
	})

	ingestSteps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "ingest", Name: "steps_total",
		Help: "Ingestion pipeline step outcomes",
	}, []string{"step", "status"})

	ingestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "ingest", Name: "step_duration_milliseconds",
		Help: "Ingestion pipeline step latency in milliseconds", Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 5000},
	}, []string{"step"})

	queueDepth := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "queue", Name: "depth",
		Help: "Current job queue depth by priority",
	}, []string{"priority"})

	activeWorkers := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "queue", Name: "workers_active",
		Help: "Number of active queue workers",
	})

	jobOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "queue", Name: "job_outcomes_total",
		Help: "Total completed jobs by outcome",
	}, []string{"status"})

	jobDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "queue", Name: "job_duration_milliseconds",
		Help: "Job processing duration in milliseconds", Buckets: []float64{10, 50, 100, 500, 1000, 5000, 10000, 30000},
	})

	circuitBreakers := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace, Name: "circuit_breaker_open",
		Help: "1 if the named circuit breaker is open, else 0",
	}, []string{"component"})

	admissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "ratelimit", Name: "admissions_total",
		Help: "Total admission decisions by endpoint class and outcome",
	}, []string{"endpoint_class", "admitted"})

	reputation := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "ratelimit", Name: "client_reputation",
		Help: "Current reputation score for a sampled set of clients",
	}, []string{"client_id"})

	registry.MustRegister(
		embeddingOps, embeddingCacheOps, embeddingDuration,
		vectorOps, vectorErrors, vectorStoreSize, indexSize, vectorSearchDuration, vectorInsertDuration,
		matchDuration,
		ingestSteps, ingestDuration,
		queueDepth, activeWorkers, jobOutcomes, jobDuration, circuitBreakers,
		admissions, reputation,
	)

	return &PrometheusMetrics{
		embeddingOps: embeddingOps, embeddingCacheOps: embeddingCacheOps, embeddingDuration: embeddingDuration,
		vectorOps: vectorOps, vectorErrors: vectorErrors, vectorStoreSize: vectorStoreSize, indexSize: indexSize,
		vectorSearchDuration: vectorSearchDuration, vectorInsertDuration: vectorInsertDuration,
		matchDuration:  matchDuration,
		ingestSteps:    ingestSteps,
		ingestDuration: ingestDuration,
		queueDepth:     queueDepth, activeWorkers: activeWorkers, jobOutcomes: jobOutcomes, jobDuration: jobDuration,
		circuitBreakers: circuitBreakers,
		admissions:      admissions, reputation: reputation,
		registry: registry,
	}
}

func (p *PrometheusMetrics) RecordEmbeddingOp(status string, duration time.Duration) {
	p.embeddingOps.WithLabelValues(status).Inc()
	p.embeddingDuration.Observe(float64(duration.Milliseconds()))
}

func (p *PrometheusMetrics) RecordCacheOperation(operation string) {
	p.embeddingCacheOps.WithLabelValues(operation).Inc()
}

func (p *PrometheusMetrics) RecordVectorOp(operation string, duration time.Duration) {
	p.vectorOps.WithLabelValues(operation).Inc()
	ms := float64(duration.Milliseconds())
	switch operation {
	case "search":
		p.vectorSearchDuration.Observe(ms)
	case "insert":
		p.vectorInsertDuration.Observe(ms)
	}
}

func (p *PrometheusMetrics) RecordVectorError(errorType string) { p.vectorErrors.WithLabelValues(errorType).Inc() }
func (p *PrometheusMetrics) UpdateVectorStoreSize(count int)    { p.vectorStoreSize.Set(float64(count)) }
func (p *PrometheusMetrics) UpdateIndexSize(bytes int64)        { p.indexSize.Set(float64(bytes)) }

func (p *PrometheusMetrics) RecordMatch(duration time.Duration) {
	p.matchDuration.Observe(float64(duration.Milliseconds()))
}

func (p *PrometheusMetrics) RecordIngestStep(step, status string, duration time.Duration) {
	p.ingestSteps.WithLabelValues(step, status).Inc()
	p.ingestDuration.WithLabelValues(step).Observe(float64(duration.Milliseconds()))
}

func (p *PrometheusMetrics) UpdateQueueDepth(priority string, depth int) {
	p.queueDepth.WithLabelValues(priority).Set(float64(depth))
}
func (p *PrometheusMetrics) UpdateActiveWorkers(count int) { p.activeWorkers.Set(float64(count)) }

func (p *PrometheusMetrics) RecordJobOutcome(status string, duration time.Duration) {
	p.jobOutcomes.WithLabelValues(status).Inc()
	p.jobDuration.Observe(float64(duration.Milliseconds()))
}

func (p *PrometheusMetrics) RecordCircuitBreakerState(component string, open bool) {
	v := 0.0
	if open {
		v = 1.0
	}
	p.circuitBreakers.WithLabelValues(component).Set(v)
}

func (p *PrometheusMetrics) RecordAdmission(endpointClass string, admitted bool) {
	label := "false"
	if admitted {
		label = "true"
	}
	p.admissions.WithLabelValues(endpointClass, label).Inc()
}

func (p *PrometheusMetrics) UpdateReputation(clientID string, value float64) {
	p.reputation.WithLabelValues(clientID).Set(value)
}

func (p *PrometheusMetrics) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
