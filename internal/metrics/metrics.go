package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"retail-intel/internal/config"
)

// MetricsCollector collects and exposes metrics for the retail intel service
type MetricsCollector struct {
	config *config.MetricsConfig
	logger *zap.Logger

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Engine metrics
	evaluationsTotal      *prometheus.CounterVec
	evaluationDuration    prometheus.Histogram
	recommendationsActive *prometheus.GaugeVec
	insightsGenerated     *prometheus.CounterVec

	// Snapshot metrics
	snapshotFetchesTotal  *prometheus.CounterVec
	snapshotFetchDuration *prometheus.HistogramVec

	// Cache metrics
	cacheOperationsTotal *prometheus.CounterVec
	cacheHitRate         prometheus.Gauge
	cacheMissRate        prometheus.Gauge

	// Offline queue metrics
	offlineQueuePending prometheus.Gauge
	offlineQueueFailed  prometheus.Gauge
	offlineQueueDropped prometheus.Gauge
	offlineSyncsTotal   *prometheus.CounterVec

	// Internal state
	mu          sync.RWMutex
	cacheHits   int64
	cacheMisses int64
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector(cfg *config.MetricsConfig, logger *zap.Logger) *MetricsCollector {
	if !cfg.Enabled {
		logger.Info("metrics collection disabled")
		return &MetricsCollector{
			config: cfg,
			logger: logger,
		}
	}

	histogramBuckets := cfg.HistogramBuckets
	if len(histogramBuckets) == 0 {
		histogramBuckets = []float64{0.0005, 0.001, 0.002, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0}
	}

	collector := &MetricsCollector{
		config: cfg,
		logger: logger,

		// HTTP metrics
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "retail_intel_http_requests_total",
				Help: "Total number of HTTP requests processed",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "retail_intel_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: histogramBuckets,
			},
			[]string{"method", "endpoint"},
		),

		// Engine metrics
		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "retail_intel_evaluations_total",
				Help: "Total number of rule engine evaluations",
			},
			[]string{"result"}, // result: success/error
		),

		evaluationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "retail_intel_evaluation_duration_seconds",
				Help:    "Rule engine evaluation duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
			},
		),

		recommendationsActive: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "retail_intel_recommendations_active",
				Help: "Number of active recommendations by priority",
			},
			[]string{"priority"},
		),

		insightsGenerated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "retail_intel_insights_generated_total",
				Help: "Total number of insights generated",
			},
			[]string{"type"}, // type: opportunity/risk/trend/anomaly
		),

		// Snapshot metrics
		snapshotFetchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "retail_intel_snapshot_fetches_total",
				Help: "Total number of catalog snapshot fetches",
			},
			[]string{"source", "result"}, // source: remote/static/cache, result: success/error/fallback
		),

		snapshotFetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "retail_intel_snapshot_fetch_duration_seconds",
				Help:    "Catalog snapshot fetch duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"source"},
		),

		// Cache metrics
		cacheOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "retail_intel_cache_operations_total",
				Help: "Total number of cache operations",
			},
			[]string{"operation", "result"}, // operation: get/set/delete, result: hit/miss/error
		),

		cacheHitRate: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "retail_intel_cache_hit_rate_percent",
				Help: "Overall cache hit rate percentage",
			},
		),

		cacheMissRate: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "retail_intel_cache_miss_rate_percent",
				Help: "Overall cache miss rate percentage",
			},
		),

		// Offline queue metrics
		offlineQueuePending: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "retail_intel_offline_queue_pending",
				Help: "Number of actions pending in the offline queue",
			},
		),

		offlineQueueFailed: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "retail_intel_offline_queue_failed",
				Help: "Number of actions that exhausted their retry budget",
			},
		),

		offlineQueueDropped: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "retail_intel_offline_queue_dropped",
				Help: "Number of failed actions discarded without replay",
			},
		),

		offlineSyncsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "retail_intel_offline_syncs_total",
				Help: "Total number of offline queue sync passes",
			},
			[]string{"trigger"}, // trigger: reconnect/interval/forced/manual
		),
	}

	// Register all metrics
	collector.registerMetrics()

	logger.Info("metrics collector initialized",
		zap.Bool("enabled", cfg.Enabled),
		zap.String("path", cfg.Path))

	return collector
}

// registerMetrics registers all metrics with Prometheus
func (m *MetricsCollector) registerMetrics() {
	if !m.config.Enabled {
		return
	}

	prometheus.MustRegister(
		// HTTP metrics
		m.httpRequestsTotal,
		m.httpRequestDuration,

		// Engine metrics
		m.evaluationsTotal,
		m.evaluationDuration,
		m.recommendationsActive,
		m.insightsGenerated,

		// Snapshot metrics
		m.snapshotFetchesTotal,
		m.snapshotFetchDuration,

		// Cache metrics
		m.cacheOperationsTotal,
		m.cacheHitRate,
		m.cacheMissRate,

		// Offline queue metrics
		m.offlineQueuePending,
		m.offlineQueueFailed,
		m.offlineQueueDropped,
		m.offlineSyncsTotal,
	)
}

// RecordHTTPRequest records HTTP request metrics
func (m *MetricsCollector) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	if !m.config.Enabled {
		return
	}

	m.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordEvaluation records a rule engine evaluation
func (m *MetricsCollector) RecordEvaluation(result string, duration time.Duration) {
	if !m.config.Enabled {
		return
	}

	m.evaluationsTotal.WithLabelValues(result).Inc()
	m.evaluationDuration.Observe(duration.Seconds())
}

// UpdateRecommendationCounts updates the active recommendation gauges
func (m *MetricsCollector) UpdateRecommendationCounts(byPriority map[string]int) {
	if !m.config.Enabled {
		return
	}

	for priority, count := range byPriority {
		m.recommendationsActive.WithLabelValues(priority).Set(float64(count))
	}
}

// RecordInsight records a generated insight
func (m *MetricsCollector) RecordInsight(insightType string) {
	if !m.config.Enabled {
		return
	}

	m.insightsGenerated.WithLabelValues(insightType).Inc()
}

// RecordSnapshotFetch records a catalog snapshot fetch
func (m *MetricsCollector) RecordSnapshotFetch(source, result string, duration time.Duration) {
	if !m.config.Enabled {
		return
	}

	m.snapshotFetchesTotal.WithLabelValues(source, result).Inc()
	m.snapshotFetchDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordCacheOperation records cache operation metrics
func (m *MetricsCollector) RecordCacheOperation(operation, result string) {
	if !m.config.Enabled {
		return
	}

	m.cacheOperationsTotal.WithLabelValues(operation, result).Inc()

	m.mu.Lock()
	if operation == "get" {
		switch result {
		case "hit":
			m.cacheHits++
		case "miss":
			m.cacheMisses++
		}
	}
	m.mu.Unlock()

	m.updateCacheHitRate()
}

// UpdateOfflineQueue updates the offline queue gauges
func (m *MetricsCollector) UpdateOfflineQueue(pending, failed, dropped int) {
	if !m.config.Enabled {
		return
	}

	m.offlineQueuePending.Set(float64(pending))
	m.offlineQueueFailed.Set(float64(failed))
	m.offlineQueueDropped.Set(float64(dropped))
}

// RecordOfflineSync records an offline queue sync pass
func (m *MetricsCollector) RecordOfflineSync(trigger string) {
	if !m.config.Enabled {
		return
	}

	m.offlineSyncsTotal.WithLabelValues(trigger).Inc()
}

// updateCacheHitRate calculates and updates cache hit rate
func (m *MetricsCollector) updateCacheHitRate() {
	m.mu.RLock()
	hits := m.cacheHits
	misses := m.cacheMisses
	m.mu.RUnlock()

	total := hits + misses
	if total > 0 {
		m.cacheHitRate.Set(float64(hits) / float64(total) * 100)
		m.cacheMissRate.Set(float64(misses) / float64(total) * 100)
	}
}

// Handler returns the Prometheus metrics handler
func Handler() http.Handler {
	return promhttp.Handler()
}
