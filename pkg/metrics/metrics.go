// Package metrics exposes Prometheus metrics for the traversal engine:
// per-rank traversal totals, exchange phase durations, wire traffic by tag,
// and process-level gauges.
package metrics

import (
	"net/http"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all metrics for a traversal worker.
type Registry struct {
	TraversalDuration *prometheus.HistogramVec
	VerticesVisited   *prometheus.CounterVec
	TraversalsTotal   *prometheus.CounterVec
	PhaseDuration     *prometheus.HistogramVec
	MessagesTotal     *prometheus.CounterVec
	MessageBytesTotal *prometheus.CounterVec

	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge
	UptimeSeconds    prometheus.Gauge

	registry *prometheus.Registry
	started  time.Time
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the process-wide registry.
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a registry with all collectors registered.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		started:  time.Now(),
	}

	r.TraversalDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "traverse_duration_seconds",
		Help:    "Wall-clock duration of one worker's local traversal",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 16),
	}, []string{"rank"})

	r.VerticesVisited = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "traverse_vertices_visited_total",
		Help: "Vertices visited by local traversals",
	}, []string{"rank"})

	r.TraversalsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "traverse_runs_total",
		Help: "Completed local traversals by outcome",
	}, []string{"result"})

	r.PhaseDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "traverse_phase_duration_seconds",
		Help:    "Duration of the interior, exchange and boundary phases",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
	}, []string{"phase"})

	r.MessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "traverse_messages_total",
		Help: "Transport messages by direction and tag",
	}, []string{"direction", "tag"})

	r.MessageBytesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "traverse_message_bytes_total",
		Help: "Transport bytes on the wire by direction and tag",
	}, []string{"direction", "tag"})

	r.GoRoutines = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "traverse_goroutines",
		Help: "Current number of goroutines",
	})
	r.MemoryAllocBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "traverse_memory_alloc_bytes",
		Help: "Bytes of allocated heap objects",
	})
	r.UptimeSeconds = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "traverse_uptime_seconds",
		Help: "Seconds since the worker started",
	})

	r.registry.MustRegister(
		r.TraversalDuration,
		r.VerticesVisited,
		r.TraversalsTotal,
		r.PhaseDuration,
		r.MessagesTotal,
		r.MessageBytesTotal,
		r.GoRoutines,
		r.MemoryAllocBytes,
		r.UptimeSeconds,
	)
	return r
}

// ObserveTraversal records one completed local traversal.
func (r *Registry) ObserveTraversal(rank int, found bool, d time.Duration, visited int) {
	label := strconv.Itoa(rank)
	r.TraversalDuration.WithLabelValues(label).Observe(d.Seconds())
	r.VerticesVisited.WithLabelValues(label).Add(float64(visited))
	result := "exhausted"
	if found {
		result = "found"
	}
	r.TraversalsTotal.WithLabelValues(result).Inc()
}

// ObservePhase records the duration of one orchestrator phase.
func (r *Registry) ObservePhase(phase string, d time.Duration) {
	r.PhaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// ObserveMessage records one transport message. Wired into the socket
// meshes through their observer hook.
func (r *Registry) ObserveMessage(direction, tag string, bytes int) {
	r.MessagesTotal.WithLabelValues(direction, tag).Inc()
	r.MessageBytesTotal.WithLabelValues(direction, tag).Add(float64(bytes))
}

// UpdateSystemMetrics refreshes the process-level gauges.
func (r *Registry) UpdateSystemMetrics() {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))
	r.MemoryAllocBytes.Set(float64(mem.Alloc))
	r.UptimeSeconds.Set(time.Since(r.started).Seconds())
}

// Handler returns the scrape handler for this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Serve exposes the scrape handler at /metrics on addr. It blocks, so run
// it on its own goroutine.
func (r *Registry) Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	return http.ListenAndServe(addr, mux)
}
