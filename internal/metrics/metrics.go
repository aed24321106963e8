// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "crispin"

// Metrics groups the application collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	authFailures   prometheus.Counter
	authLockouts   prometheus.Counter
	assetsIngested *prometheus.CounterVec
	pollAttempts   prometheus.Histogram
	cmsRequests    *prometheus.CounterVec
	postsIndexed   prometheus.Gauge
	feedback       *prometheus.CounterVec
}

// New registers all collectors on a fresh registry, together with the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		authFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "auth", Name: "failures_total",
			Help: "Failed password attempts.",
		}),
		authLockouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "auth", Name: "lockouts_total",
			Help: "Clients locked out after too many failures.",
		}),
		assetsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "assets", Name: "ingested_total",
			Help: "Completed asset uploads by final status.",
		}, []string{"status"}),
		pollAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "assets", Name: "poll_attempts",
			Help:    "Readiness polls needed before an asset URL appeared.",
			Buckets: prometheus.LinearBuckets(1, 1, 10),
		}),
		cmsRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cms", Name: "requests_total",
			Help: "Requests to the CMS by operation and outcome.",
		}, []string{"op", "outcome"}),
		postsIndexed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "index", Name: "posts",
			Help: "Posts in the local search index.",
		}),
		feedback: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "feedback", Name: "messages_total",
			Help: "Feedback messages by mail transport and outcome.",
		}, []string{"transport", "outcome"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.authFailures, m.authLockouts, m.assetsIngested, m.pollAttempts, m.cmsRequests, m.postsIndexed, m.feedback,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) AuthFailure() {
	if m != nil {
		m.authFailures.Inc()
	}
}

func (m *Metrics) AuthLockout() {
	if m != nil {
		m.authLockouts.Inc()
	}
}

// AssetIngested counts one finished upload under its final status.
func (m *Metrics) AssetIngested(status string) {
	if m != nil {
		m.assetsIngested.WithLabelValues(status).Inc()
	}
}

// PollAttempts observes how many readiness checks one asset needed.
func (m *Metrics) PollAttempts(n int) {
	if m != nil {
		m.pollAttempts.Observe(float64(n))
	}
}

// CMSRequest counts one CMS call. outcome is "ok" or "error".
func (m *Metrics) CMSRequest(op, outcome string) {
	if m != nil {
		m.cmsRequests.WithLabelValues(op, outcome).Inc()
	}
}

func (m *Metrics) PostsIndexed(n int) {
	if m != nil {
		m.postsIndexed.Set(float64(n))
	}
}

// FeedbackDelivered counts one feedback mail. outcome is "ok" or "error".
func (m *Metrics) FeedbackDelivered(transport, outcome string) {
	if m != nil {
		m.feedback.WithLabelValues(transport, outcome).Inc()
	}
}
