package metrics

import (
	"database/sql"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.NewRegistry()

	analysisStartedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "readability_analysis_started_total",
		Help: "Total analyses started",
	})
	analysisCompletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "readability_analysis_completed_total",
		Help: "Total analyses completed",
	})
	analysisFailedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "readability_analysis_failed_total",
		Help: "Total analyses failed, by error code",
	}, []string{"code"})
	analysisCancelledTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "readability_analysis_cancelled_total",
		Help: "Total analyses cancelled by the caller",
	})
	modelTaskTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "readability_model_task_total",
		Help: "Model extraction outcomes, by model and status",
	}, []string{"model", "status"})
	quotaEvictedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "readability_quota_evicted_total",
		Help: "Records removed by quota enforcement",
	})
	rateLimitedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "readability_rate_limited_total",
		Help: "Requests rejected by the rate limiter, by route group",
	}, []string{"group"})
	analysisDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "readability_analysis_duration_ms",
		Help:    "Analysis duration in milliseconds",
		Buckets: []float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000},
	})
)

func init() {
	registry.MustRegister(
		analysisStartedTotal,
		analysisCompletedTotal,
		analysisFailedTotal,
		analysisCancelledTotal,
		modelTaskTotal,
		quotaEvictedTotal,
		rateLimitedTotal,
		analysisDuration,
	)
}

// IncAnalysisStarted increments the started counter.
func IncAnalysisStarted() {
	analysisStartedTotal.Inc()
}

// IncAnalysisCompleted increments the completed counter.
func IncAnalysisCompleted() {
	analysisCompletedTotal.Inc()
}

// IncAnalysisFailed increments the failed counter for an error code.
func IncAnalysisFailed(code string) {
	if code == "" {
		code = "UNKNOWN"
	}
	analysisFailedTotal.WithLabelValues(code).Inc()
}

// RegisterDBStats exports connection pool statistics for db. Registering the
// same pool twice is a no-op.
func RegisterDBStats(db *sql.DB) error {
	if db == nil {
		return nil
	}
	err := registry.Register(collectors.NewDBStatsCollector(db, "readability"))
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		return nil
	}
	return err
}

// IncRateLimited records one rejected request for a route group.
func IncRateLimited(group string) {
	rateLimitedTotal.WithLabelValues(group).Inc()
}

// IncAnalysisCancelled increments the cancelled counter.
func IncAnalysisCancelled() {
	analysisCancelledTotal.Inc()
}

// IncModelTask records one settled model sub-task.
func IncModelTask(model, status string) {
	modelTaskTotal.WithLabelValues(model, status).Inc()
}

// AddQuotaEvicted records evicted records.
func AddQuotaEvicted(n int) {
	if n <= 0 {
		return
	}
	quotaEvictedTotal.Add(float64(n))
}

// ObserveAnalysisDurationMs records an analysis duration in milliseconds.
func ObserveAnalysisDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	analysisDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}

// NowMillis returns current time in milliseconds, useful for callers without time utilities.
func NowMillis() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Millisecond)
}
