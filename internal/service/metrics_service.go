package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/tutor-booking-api/internal/models"
)

// MetricsSnapshot is a lightweight JSON view over the collected counters.
type MetricsSnapshot struct {
	RequestsTotal            uint64            `json:"requestsTotal"`
	AverageRequestDurationMs float64           `json:"averageRequestDurationMs"`
	CacheHitRatio            float64           `json:"cacheHitRatio"`
	CacheHits                uint64            `json:"cacheHits"`
	CacheMisses              uint64            `json:"cacheMisses"`
	Transitions              map[string]uint64 `json:"transitions"`
	SlotConflicts            uint64            `json:"slotConflicts"`
	SettlementFailures       uint64            `json:"settlementFailures"`
	Goroutines               int               `json:"goroutines"`
	GeneratedAt              time.Time         `json:"generatedAt"`
}

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry           *prometheus.Registry
	handler            http.Handler
	requestDuration    *prometheus.HistogramVec
	requestTotal       *prometheus.CounterVec
	cacheLatency       prometheus.Observer
	cacheWrite         prometheus.Observer
	cacheHitRatio      prometheus.Gauge
	cacheLookups       *prometheus.CounterVec
	transitions        *prometheus.CounterVec
	slotConflicts      *prometheus.CounterVec
	settlementOutcomes *prometheus.CounterVec
	gatewayDuration    *prometheus.HistogramVec

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	slotConflictCount    uint64
	settlementFailCount  uint64
	transitionCounts     [len(transitionIndex)]uint64
}

var transitionIndex = [...]models.BookingStatus{
	models.BookingStatusPending,
	models.BookingStatusPaymentProcessing,
	models.BookingStatusConfirmed,
	models.BookingStatusCompleted,
	models.BookingStatusCancelled,
	models.BookingStatusPaymentFailed,
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "group", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "group", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
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

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_lookups_total",
		Help: "Cache lookups by key family and result",
	}, []string{"family", "result"})

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_transitions_total",
		Help: "Booking status transitions by source and target status",
	}, []string{"kind", "from", "to"})

	slotConflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_slot_conflicts_total",
		Help: "Slot or schedule day claims rejected because another booking owns them",
	}, []string{"kind", "stage"})

	settlementOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_settlements_total",
		Help: "Settlement jobs processed by provider and result",
	}, []string{"provider", "result"})

	gatewayDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payment_gateway_duration_seconds",
		Help:    "Latency of payment gateway intent creation",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider", "status"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheLookups,
		transitions, slotConflicts, settlementOutcomes, gatewayDuration, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:           registry,
		handler:            handler,
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		cacheLatency:       cacheLatency,
		cacheWrite:         cacheWrite,
		cacheHitRatio:      cacheHitRatio,
		cacheLookups:       cacheLookups,
		transitions:        transitions,
		slotConflicts:      slotConflicts,
		settlementOutcomes: settlementOutcomes,
		gatewayDuration:    gatewayDuration,
	}
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

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
// group names the API area the route belongs to, such as bookings or payments.
func (m *MetricsService) ObserveHTTPRequest(method, group, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, group, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, group, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records a lookup for a key family and updates the overall hit ratio.
func (m *MetricsService) RecordCacheOperation(family string, hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	if m.cacheLatency != nil {
		m.cacheLatency.Observe(duration.Seconds())
	}
	if hit {
		m.cacheLookups.WithLabelValues(family, "hit").Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheLookups.WithLabelValues(family, "miss").Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	total := hits + misses
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil || m.cacheWrite == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordTransition counts a committed booking transition.
func (m *MetricsService) RecordTransition(kind models.BookingKind, from, to models.BookingStatus) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(kind), string(from), string(to)).Inc()
	for i, status := range transitionIndex {
		if status == to {
			atomic.AddUint64(&m.transitionCounts[i], 1)
			return
		}
	}
}

// RecordSlotConflict counts a rejected slot claim. stage is create, hold or commit.
func (m *MetricsService) RecordSlotConflict(kind models.BookingKind, stage string) {
	if m == nil {
		return
	}
	m.slotConflicts.WithLabelValues(string(kind), stage).Inc()
	atomic.AddUint64(&m.slotConflictCount, 1)
}

// RecordSettlement counts a processed settlement job.
func (m *MetricsService) RecordSettlement(provider, result string) {
	if m == nil {
		return
	}
	m.settlementOutcomes.WithLabelValues(provider, result).Inc()
	if result != "ok" {
		atomic.AddUint64(&m.settlementFailCount, 1)
	}
}

// ObserveGatewayCall records the latency of a payment gateway call.
func (m *MetricsService) ObserveGatewayCall(provider string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.gatewayDuration.WithLabelValues(provider, status).Observe(duration.Seconds())
}

// Snapshot returns aggregated counters for the JSON metrics endpoint.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var cacheRatio float64
	if total := hits + misses; total > 0 {
		cacheRatio = float64(hits) / float64(total)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	transitions := make(map[string]uint64, len(transitionIndex))
	for i, status := range transitionIndex {
		if n := atomic.LoadUint64(&m.transitionCounts[i]); n > 0 {
			transitions[string(status)] = n
		}
	}

	return MetricsSnapshot{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		Transitions:              transitions,
		SlotConflicts:            atomic.LoadUint64(&m.slotConflictCount),
		SettlementFailures:       atomic.LoadUint64(&m.settlementFailCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
