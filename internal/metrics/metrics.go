// Package metrics exposes Prometheus collectors for the articles service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Command outcomes recorded by ObserveCommand.
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

var (
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	commandsTotal              *prometheus.CounterVec
	commandDurationSeconds     *prometheus.HistogramVec
	commandQueueWaitSeconds    prometheus.Histogram
	activeWorkers              prometheus.Gauge
	eventsPublishedTotal       *prometheus.CounterVec
	httpRequestDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}
	commandDurationBuckets     = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}
	commandQueueWaitBuckets    = []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1}

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: httpRequestDurationBuckets,
			},
			[]string{"method", "route"},
		)

		commandsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "articles_commands_total",
				Help: "Total number of article commands executed, labeled by kind and outcome.",
			},
			[]string{"kind", "outcome"},
		)

		commandDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "articles_command_duration_seconds",
				Help:    "Histogram of store execution time per command kind.",
				Buckets: commandDurationBuckets,
			},
			[]string{"kind"},
		)

		commandQueueWaitSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "articles_command_queue_wait_seconds",
				Help:    "Time commands spend queued before a worker picks them up.",
				Buckets: commandQueueWaitBuckets,
			},
		)

		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "articles_active_workers",
				Help: "Number of workers currently executing a command.",
			},
		)

		eventsPublishedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "articles_events_published_total",
				Help: "Total article-published notifications, labeled by result.",
			},
			[]string{"result"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveCommand records one executed command.
func ObserveCommand(kind, outcome string, duration time.Duration) {
	Init()
	commandsTotal.WithLabelValues(kind, outcome).Inc()
	commandDurationSeconds.WithLabelValues(kind).Observe(duration.Seconds())
}

// ObserveQueueWait records how long a command waited in the queue.
func ObserveQueueWait(wait time.Duration) {
	Init()
	commandQueueWaitSeconds.Observe(wait.Seconds())
}

// ObserveEvent counts a publish attempt; ok reports whether it succeeded.
func ObserveEvent(ok bool) {
	Init()
	result := "ok"
	if !ok {
		result = "error"
	}
	eventsPublishedTotal.WithLabelValues(result).Inc()
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	Init()
	activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	Init()
	activeWorkers.Dec()
}
