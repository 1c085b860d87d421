package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics stores Prometheus collectors used across the service.
type Metrics struct {
	APIRequests        *prometheus.CounterVec
	APILatency         *prometheus.HistogramVec
	CacheHits          *prometheus.CounterVec
	StoreMutations     *prometheus.CounterVec
	Notifications      *prometheus.CounterVec
	PrefsFlushes       *prometheus.CounterVec
	WAOutgoingMessages *prometheus.CounterVec
	NoticesDispatched  *prometheus.CounterVec
	Errors             *prometheus.CounterVec
}

var (
	regOnce         sync.Once
	metricsInstance *Metrics
)

// Registry builds and registers the metrics singleton with optional namespace.
func Registry(namespace string) *Metrics {
	regOnce.Do(func() {
		metricsInstance = &Metrics{
			APIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Total dashboard API requests by endpoint and status.",
			}, []string{"endpoint", "status"}),
			APILatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "Latency distribution for dashboard API requests.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"endpoint", "status"}),
			CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_cache_lookups_total",
				Help:      "Redis lookups for cached API reads by result.",
			}, []string{"result"}),
			StoreMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_mutations_total",
				Help:      "Local store mutations by store and operation.",
			}, []string{"store", "op"}),
			Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_total",
				Help:      "Transient notifications by lifecycle event.",
			}, []string{"event"}),
			PrefsFlushes: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "prefs_flushes_total",
				Help:      "Persisted preference writes by outcome.",
			}, []string{"status"}),
			WAOutgoingMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "wa_outgoing_messages_total",
				Help:      "Total outgoing WhatsApp messages sent.",
			}, []string{"type"}),
			NoticesDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notices_dispatched_total",
				Help:      "Expiry notices processed by outcome.",
			}, []string{"outcome"}),
			Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total errors grouped by component.",
			}, []string{"component"}),
		}

		prometheus.MustRegister(
			metricsInstance.APIRequests,
			metricsInstance.APILatency,
			metricsInstance.CacheHits,
			metricsInstance.StoreMutations,
			metricsInstance.Notifications,
			metricsInstance.PrefsFlushes,
			metricsInstance.WAOutgoingMessages,
			metricsInstance.NoticesDispatched,
			metricsInstance.Errors,
		)
	})
	return metricsInstance
}
