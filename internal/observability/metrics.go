package observability

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/completion-engine/internal/platform/logger"
)

// Metrics is the in-process registry served at /metrics.
type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge

	aggregateOps       *CounterVec
	aggregateLatency   *HistogramVec
	aggregateConflicts *CounterVec
	aggregateRetries   *CounterVec

	recomputeRuns      *CounterVec
	recomputeCoalesced *Counter
	recomputeLanes     *Gauge

	completions  *Counter
	certificates *CounterVec

	dbStats   *GaugeVec
	redisUp   *Gauge
	redisPing *Gauge
}

func New() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("ce_api_requests_total", "API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"ce_api_request_duration_seconds",
			"API request latency in seconds by method/route.",
			[]string{"method", "route"},
			nil,
		),
		apiInflight:        NewGauge("ce_api_inflight_requests", "In-flight API requests."),
		aggregateOps:       NewCounterVec("ce_aggregate_operations_total", "Aggregate writes by operation/status.", []string{"op", "status"}),
		aggregateLatency:   NewHistogramVec("ce_aggregate_operation_duration_seconds", "Aggregate write latency by operation.", []string{"op"}, nil),
		aggregateConflicts: NewCounterVec("ce_aggregate_conflicts_total", "Aggregate writes that lost a concurrency check.", []string{"op"}),
		aggregateRetries:   NewCounterVec("ce_aggregate_retries_total", "Aggregate writes retried.", []string{"op"}),
		recomputeRuns:      NewCounterVec("ce_recompute_runs_total", "Recompute executions by result.", []string{"result"}),
		recomputeCoalesced: NewCounter("ce_recompute_coalesced_total", "Recompute requests merged into an already-queued run."),
		recomputeLanes:     NewGauge("ce_recompute_active_lanes", "Enrollments with a queued or running recompute."),
		completions:        NewCounter("ce_course_completions_total", "Enrollment completion transitions."),
		certificates:       NewCounterVec("ce_certificate_issuance_total", "Certificate issuance calls by status.", []string{"status"}),
		dbStats:            NewGaugeVec("ce_db_stats", "Database connection pool stats.", []string{"metric"}),
		redisUp:            NewGauge("ce_redis_up", "Redis connectivity (1=up, 0=down)."),
		redisPing:          NewGauge("ce_redis_ping_seconds", "Redis ping latency in seconds."),
	}
}

func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		_ = m.WritePrometheus(w)
	})
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	writers := []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.aggregateOps, m.aggregateLatency, m.aggregateConflicts, m.aggregateRetries,
		m.recomputeRuns, m.recomputeCoalesced, m.recomputeLanes,
		m.completions, m.certificates,
		m.dbStats, m.redisUp, m.redisPing,
	}
	for _, mw := range writers {
		if err := mw.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unmatched"
	}
	m.apiRequests.Inc(method, route, strconv.Itoa(status))
	m.apiLatency.Observe(dur.Seconds(), method, route)
}

func (m *Metrics) APIInflight(delta float64) {
	if m == nil {
		return
	}
	m.apiInflight.Add(delta)
}

func (m *Metrics) ObserveAggregateOperation(op, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.aggregateOps.Inc(op, status)
	m.aggregateLatency.Observe(dur.Seconds(), op)
}

func (m *Metrics) IncAggregateConflict(op string) {
	if m == nil {
		return
	}
	m.aggregateConflicts.Inc(op)
}

func (m *Metrics) IncAggregateRetry(op string) {
	if m == nil {
		return
	}
	m.aggregateRetries.Inc(op)
}

func (m *Metrics) IncRecompute(result string) {
	if m == nil {
		return
	}
	m.recomputeRuns.Inc(result)
}

func (m *Metrics) IncRecomputeCoalesced() {
	if m == nil {
		return
	}
	m.recomputeCoalesced.Inc()
}

func (m *Metrics) SetRecomputeLanes(n int) {
	if m == nil {
		return
	}
	m.recomputeLanes.Set(float64(n))
}

func (m *Metrics) IncCompletion() {
	if m == nil {
		return
	}
	m.completions.Inc()
}

func (m *Metrics) IncCertificate(status string) {
	if m == nil {
		return
	}
	m.certificates.Inc(strings.TrimSpace(status))
}

// CertificateCount reports how many issuance calls ended with status.
func (m *Metrics) CertificateCount(status string) float64 {
	if m == nil {
		return 0
	}
	return m.certificates.Value(status)
}

// StartDBCollector samples sql.DB pool stats until ctx is canceled.
func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB, interval time.Duration) {
	if m == nil || db == nil {
		return
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					log.Warn("metrics: db stats unavailable", "error", err)
					continue
				}
				stats := sqlDB.Stats()
				m.dbStats.Set(float64(stats.OpenConnections), "open_connections")
				m.dbStats.Set(float64(stats.InUse), "in_use")
				m.dbStats.Set(float64(stats.Idle), "idle")
				m.dbStats.Set(float64(stats.WaitCount), "wait_count")
				m.dbStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
			}
		}
	}()
}

// StartRedisCollector pings the given client until ctx is canceled.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb redis.UniversalClient, interval time.Duration) {
	if m == nil || rdb == nil {
		return
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					log.Warn("metrics: redis ping failed", "error", err)
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}
