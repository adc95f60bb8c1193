package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/Harshitk-cp/thoughtgraph/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "thoughtgraph"

// Metrics records reasoning and commit outcomes in a private Prometheus
// registry.
type Metrics struct {
	registry       *prometheus.Registry
	reasonTotal    *prometheus.CounterVec
	reasonDuration prometheus.Histogram
	thoughts       *prometheus.CounterVec
	conflicts      *prometheus.CounterVec
	novelEntities  *prometheus.CounterVec
	commitTotal    *prometheus.CounterVec
	commitDuration prometheus.Histogram
	httpRequests   *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		reasonTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reason_total",
			Help:      "Reasoning calls by outcome.",
		}, []string{"outcome"}),
		reasonDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reason_duration_seconds",
			Help:      "Time spent reasoning over one candidate.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		thoughts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "thoughts_total",
			Help:      "Thoughts emitted by kind.",
		}, []string{"kind"}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conflicts_total",
			Help:      "Conflicts by kind and resolution status.",
		}, []string{"kind", "resolution"}),
		novelEntities: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "novel_entities_total",
			Help:      "Candidates whose subject or object was unseen.",
		}, []string{"role"}),
		commitTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commit_total",
			Help:      "Statement commits by outcome.",
		}, []string{"outcome"}),
		commitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "commit_duration_seconds",
			Help:      "Time spent committing one statement.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status class.",
		}, []string{"method", "status"}),
	}

	m.registry.MustRegister(
		m.reasonTotal, m.reasonDuration, m.thoughts, m.conflicts, m.novelEntities,
		m.commitTotal, m.commitDuration, m.httpRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveReason(b *domain.Bundle, d time.Duration, err error) {
	m.reasonDuration.Observe(d.Seconds())
	if err != nil {
		m.reasonTotal.WithLabelValues(outcome(err)).Inc()
		return
	}
	m.reasonTotal.WithLabelValues("ok").Inc()
	if b == nil {
		return
	}
	for _, t := range b.Thoughts {
		m.thoughts.WithLabelValues(string(t.Kind)).Inc()
		if t.Kind == domain.ThoughtConflict {
			m.conflicts.WithLabelValues(string(t.Conflict.Kind), string(t.Conflict.Resolution.Status)).Inc()
		}
	}
	if n := b.Novelty(); n != nil {
		if n.SubjectNew {
			m.novelEntities.WithLabelValues("subject").Inc()
		}
		if n.ObjectNew {
			m.novelEntities.WithLabelValues("object").Inc()
		}
	}
}

func (m *Metrics) ObserveCommit(d time.Duration, err error) {
	m.commitDuration.Observe(d.Seconds())
	m.commitTotal.WithLabelValues(outcome(err)).Inc()
}

// ObserveHTTP counts one finished request.
func (m *Metrics) ObserveHTTP(method string, status int) {
	m.httpRequests.WithLabelValues(method, statusClass(status)).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrStoreUnavailable):
		return "unavailable"
	case errors.Is(err, domain.ErrStoreIntegrity):
		return "integrity"
	default:
		return "error"
	}
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
