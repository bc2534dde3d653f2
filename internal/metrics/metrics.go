// Package metrics holds the Prometheus series exported by the collector and publisher.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "newscollector"

// Cycle outcomes.
const (
	OutcomeDone     = "done"
	OutcomeSkipped  = "skipped"
	OutcomeNoConfig = "no_config"
	OutcomeFailed   = "failed"
)

// Metrics groups every series. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ArticlesCollected *prometheus.CounterVec
	SourceErrors      *prometheus.CounterVec
	SourceDuration    *prometheus.HistogramVec
	Cycles            *prometheus.CounterVec
	Published         prometheus.Counter
	PublishErrors     prometheus.Counter
	Leader            *prometheus.GaugeVec
}

// New creates the series on a private registry together with the Go runtime collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		ArticlesCollected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_collected_total",
			Help:      "Articles stored per source",
		}, []string{"source"}),
		SourceErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_errors_total",
			Help:      "Failed source collections",
		}, []string{"source"}),
		SourceDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_duration_seconds",
			Help:      "Time spent collecting one source",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"source"}),
		Cycles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Scheduled cycles by job and outcome",
		}, []string{"job", "outcome"}),
		Published: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_published_total",
			Help:      "Articles delivered downstream",
		}),
		PublishErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Failed downstream deliveries",
		}),
		Leader: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "is_leader",
			Help:      "1 when this instance acted on its last coordination check",
		}, []string{"group"}),
	}
}

// Handler exposes the private registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry, nil for a nil receiver.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveSource(source string, stored int, took time.Duration, err error) {
	if m == nil {
		return
	}
	m.SourceDuration.WithLabelValues(source).Observe(took.Seconds())
	if err != nil {
		m.SourceErrors.WithLabelValues(source).Inc()
		return
	}
	m.ArticlesCollected.WithLabelValues(source).Add(float64(stored))
}

func (m *Metrics) ObserveCycle(job, outcome string) {
	if m == nil {
		return
	}
	m.Cycles.WithLabelValues(job, outcome).Inc()
}

func (m *Metrics) ObservePublish(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.PublishErrors.Inc()
		return
	}
	m.Published.Inc()
}

func (m *Metrics) SetLeader(group string, leader bool) {
	if m == nil {
		return
	}
	v := 0.0
	if leader {
		v = 1
	}
	m.Leader.WithLabelValues(group).Set(v)
}
