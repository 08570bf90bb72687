package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/lesson-scheduler-api/internal/models"
)

// Run modes recorded with scheduling metrics.
const (
	RunModeGenerate = "generate"
	RunModePreview  = "preview"
	RunModeRebuild  = "rebuild"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	scheduleRuns    *prometheus.CounterVec
	scheduleLatency *prometheus.HistogramVec
	lessonsPlaced   prometheus.Counter
	lockContention  prometheus.Counter
	rebuildJobs     *prometheus.CounterVec
	sweptSchedules  prometheus.Counter

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	scheduleRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lesson_schedule_runs_total",
		Help: "Scheduling runs by mode and outcome",
	}, []string{"mode", "outcome"})

	scheduleLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lesson_schedule_run_duration_seconds",
		Help:    "Duration of scheduling runs including data loading",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"mode"})

	lessonsPlaced := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lesson_schedule_lessons_placed_total",
		Help: "Lessons placed by successful persisted runs",
	})

	lockContention := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lesson_schedule_lock_contention_total",
		Help: "Generate requests rejected because another run held the lock",
	})

	rebuildJobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lesson_schedule_rebuild_jobs_total",
		Help: "Background rebuild job attempts by result",
	}, []string{"result"})

	sweptSchedules := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lesson_schedule_swept_rows_total",
		Help: "Schedule rows removed by the retention sweeper",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		scheduleRuns, scheduleLatency, lessonsPlaced, lockContention, rebuildJobs, sweptSchedules, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		scheduleRuns:    scheduleRuns,
		scheduleLatency: scheduleLatency,
		lessonsPlaced:   lessonsPlaced,
		lockContention:  lockContention,
		rebuildJobs:     rebuildJobs,
		sweptSchedules:  sweptSchedules,
	}
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveScheduleRun records one scheduling run.
func (m *MetricsService) ObserveScheduleRun(mode string, outcome models.ScheduleRunOutcome, duration time.Duration) {
	if m == nil {
		return
	}
	m.scheduleRuns.WithLabelValues(mode, string(outcome)).Inc()
	m.scheduleLatency.WithLabelValues(mode).Observe(duration.Seconds())
}

// AddLessonsPlaced counts lessons persisted by a successful run.
func (m *MetricsService) AddLessonsPlaced(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.lessonsPlaced.Add(float64(n))
}

// IncLockContention counts rejected concurrent generate calls.
func (m *MetricsService) IncLockContention() {
	if m == nil {
		return
	}
	m.lockContention.Inc()
}

// ObserveRebuildJob records the result of a background rebuild attempt.
func (m *MetricsService) ObserveRebuildJob(err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.rebuildJobs.WithLabelValues(result).Inc()
}

// AddSweptSchedules counts rows deleted by the retention sweeper.
func (m *MetricsService) AddSweptSchedules(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.sweptSchedules.Add(float64(n))
}
