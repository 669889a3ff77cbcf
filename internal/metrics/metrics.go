// Package metrics holds the Prometheus collectors shared by the HTTP surface and the listener.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Discard reasons used by the listener.
const (
	ReasonNoEmbeds       = "no_embeds"
	ReasonChannelIgnored = "channel_ignored"
	ReasonDuplicate      = "duplicate"
)

// Metrics bundles every collector of the process.
type Metrics struct {
	registry *prometheus.Registry

	BatchesAccepted   prometheus.Counter
	BatchesRejected   prometheus.Counter
	SightingsIngested prometheus.Counter
	SightingsRetained prometheus.Gauge
	FanoutFailures    *prometheus.CounterVec

	MessagesForwarded prometheus.Counter
	ForwardFailures   prometheus.Counter
	MessagesDiscarded *prometheus.CounterVec
	ForwardDuration   prometheus.Histogram
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		BatchesAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gp_notifier",
			Name:      "batches_accepted_total",
			Help:      "Embed batches accepted by POST /pets",
		}),
		BatchesRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gp_notifier",
			Name:      "batches_rejected_total",
			Help:      "Embed batches rejected as malformed",
		}),
		SightingsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gp_notifier",
			Name:      "sightings_ingested_total",
			Help:      "Sightings normalized and stored",
		}),
		SightingsRetained: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gp_notifier",
			Name:      "sightings_retained",
			Help:      "Sightings inside the retention window at last access",
		}),
		FanoutFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gp_notifier",
			Name:      "fanout_failures_total",
			Help:      "Failed fan-out publications by sink",
		}, []string{"sink"}),
		MessagesForwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gp_notifier",
			Subsystem: "listener",
			Name:      "messages_forwarded_total",
			Help:      "Chat messages forwarded to the ingestion endpoint",
		}),
		ForwardFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gp_notifier",
			Subsystem: "listener",
			Name:      "forward_failures_total",
			Help:      "Failed forwards to the ingestion endpoint",
		}),
		MessagesDiscarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gp_notifier",
			Subsystem: "listener",
			Name:      "messages_discarded_total",
			Help:      "Chat messages discarded before forwarding, by reason",
		}, []string{"reason"}),
		ForwardDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gp_notifier",
			Subsystem: "listener",
			Name:      "forward_duration_seconds",
			Help:      "Time spent forwarding one message",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		m.BatchesAccepted,
		m.BatchesRejected,
		m.SightingsIngested,
		m.SightingsRetained,
		m.FanoutFailures,
		m.MessagesForwarded,
		m.ForwardFailures,
		m.MessagesDiscarded,
		m.ForwardDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
