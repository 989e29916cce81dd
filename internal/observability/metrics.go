package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/alanpentz/course-platform/internal/platform/envutil"
	"github.com/alanpentz/course-platform/internal/platform/logger"
)

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge

	aggregateOps       *HistogramVec
	aggregateConflicts *CounterVec
	aggregateRetries   *CounterVec

	lessonProgress    *CounterVec
	enrollmentGrants  *CounterVec
	certificates      *CounterVec
	reconcileDuration *HistogramVec
	courseCache       *CounterVec
	busPublish        *CounterVec

	pgStats   *GaugeVec
	redisUp   *Gauge
	redisPing *Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

func scrapeInterval() time.Duration {
	d := envutil.Seconds("METRICS_SCRAPE_INTERVAL_SECONDS", 10*time.Second)
	if d <= 0 {
		return 10 * time.Second
	}
	return d
}

// Init builds the process-wide metrics once. It returns nil when METRICS_ENABLED
// is off; every method on a nil *Metrics is a no-op.
func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = New()
		if log != nil {
			log.Info("metrics enabled")
		}
	})
	return instance
}

// New builds an unregistered metrics set.
func New() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("cp_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"cp_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		),
		apiInflight: NewGauge("cp_api_inflight_requests", "In-flight API requests."),

		aggregateOps: NewHistogramVec(
			"cp_aggregate_operation_duration_seconds",
			"Aggregate write latency by operation/status.",
			[]string{"op", "status"},
			[]float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
		),
		aggregateConflicts: NewCounterVec("cp_aggregate_conflicts_total", "Aggregate writes that failed with a conflict.", []string{"op"}),
		aggregateRetries:   NewCounterVec("cp_aggregate_retryable_total", "Aggregate writes that failed with a retryable error.", []string{"op"}),

		lessonProgress:   NewCounterVec("cp_lesson_progress_total", "Lesson progress reports by completion flag.", []string{"is_completed"}),
		enrollmentGrants: NewCounterVec("cp_enrollment_grants_total", "Enrollment grants by source/outcome.", []string{"source", "outcome"}),
		certificates:     NewCounterVec("cp_certificates_total", "Certificate issuance attempts by outcome.", []string{"outcome"}),
		reconcileDuration: NewHistogramVec(
			"cp_reconcile_duration_seconds",
			"Enrollment reconcile latency by trigger/outcome.",
			[]string{"trigger", "outcome"},
			[]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
		),
		courseCache: NewCounterVec("cp_course_structure_cache_total", "Course structure cache lookups by result.", []string{"result"}),
		busPublish:  NewCounterVec("cp_bus_publish_total", "Event bus publishes by type/status.", []string{"type", "status"}),

		pgStats:   NewGaugeVec("cp_postgres_pool", "database/sql pool stats.", []string{"stat"}),
		redisUp:   NewGauge("cp_redis_up", "1 when the last redis ping succeeded."),
		redisPing: NewGauge("cp_redis_ping_seconds", "Latency of the last redis ping."),
	}
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(m.WriteHTTP),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", "error", err, "addr", addr)
			}
		}
	}()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

type promWriter interface {
	WritePrometheus(w io.Writer) error
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	all := []promWriter{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.aggregateOps, m.aggregateConflicts, m.aggregateRetries,
		m.lessonProgress, m.enrollmentGrants, m.certificates, m.reconcileDuration,
		m.courseCache, m.busPublish,
		m.pgStats, m.redisUp, m.redisPing,
	}
	for _, pw := range all {
		if err := pw.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveAggregateOperation(op, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.aggregateOps.Observe(dur.Seconds(), op, status)
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

func (m *Metrics) IncLessonProgress(isCompleted bool) {
	if m == nil {
		return
	}
	if isCompleted {
		m.lessonProgress.Inc("true")
		return
	}
	m.lessonProgress.Inc("false")
}

func (m *Metrics) IncEnrollmentGrant(source, outcome string) {
	if m == nil {
		return
	}
	m.enrollmentGrants.Inc(source, outcome)
}

func (m *Metrics) IncCertificate(outcome string) {
	if m == nil {
		return
	}
	m.certificates.Inc(outcome)
}

// CertificateCount reads the certificate counter for one outcome.
func (m *Metrics) CertificateCount(outcome string) float64 {
	if m == nil {
		return 0
	}
	return m.certificates.Value(outcome)
}

func (m *Metrics) ObserveReconcile(trigger, outcome string, dur time.Duration) {
	if m == nil {
		return
	}
	m.reconcileDuration.Observe(dur.Seconds(), trigger, outcome)
}

func (m *Metrics) IncCourseCache(result string) {
	if m == nil {
		return
	}
	m.courseCache.Inc(result)
}

func (m *Metrics) IncBusPublish(eventType, status string) {
	if m == nil {
		return
	}
	m.busPublish.Inc(eventType, status)
}

func (m *Metrics) StartPostgresCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	interval := scrapeInterval()
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
					if log != nil {
						log.Warn("metrics: postgres stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.pgStats.Set(float64(stats.OpenConnections), "open_connections")
				m.pgStats.Set(float64(stats.InUse), "in_use")
				m.pgStats.Set(float64(stats.Idle), "idle")
				m.pgStats.Set(float64(stats.WaitCount), "wait_count")
				m.pgStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
				m.pgStats.Set(float64(stats.MaxOpenConnections), "max_open_connections")
			}
		}
	}()
}

// StartRedisCollector pings through the shared client; it never closes it.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb redis.UniversalClient) {
	if m == nil || rdb == nil {
		return
	}
	interval := scrapeInterval()
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
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}
