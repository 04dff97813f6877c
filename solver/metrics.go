package solver

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts optimizer activity in a private registry so a batch run can
// write it out as a node-exporter textfile when it ends.
type Metrics struct {
	reg *prometheus.Registry

	attempts *prometheus.CounterVec
	accepted *prometheus.CounterVec
	score    prometheus.Gauge
	failures prometheus.Gauge
	duration prometheus.Histogram
}

func NewMetrics() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "conference",
			Subsystem: "optimizer",
			Name:      "attempts_total",
			Help:      "Improvement attempts by strategy.",
		}, []string{"strategy"}),
		accepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "conference",
			Subsystem: "optimizer",
			Name:      "accepted_total",
			Help:      "Accepted improvements by strategy.",
		}, []string{"strategy"}),
		score: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "conference",
			Subsystem: "optimizer",
			Name:      "score",
			Help:      "Score of the live grouping.",
		}),
		failures: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "conference",
			Subsystem: "optimizer",
			Name:      "consecutive_failures",
			Help:      "Attempts since the last accepted improvement.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "conference",
			Subsystem: "optimizer",
			Name:      "attempt_seconds",
			Help:      "Wall time of a single improvement attempt.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}
	m.reg.MustRegister(m.attempts, m.accepted, m.score, m.failures, m.duration)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

func (m *Metrics) observeAttempt(strategy Strategy, improved bool, elapsed time.Duration) {
	m.attempts.WithLabelValues(string(strategy)).Inc()
	if improved {
		m.accepted.WithLabelValues(string(strategy)).Inc()
	}
	m.duration.Observe(elapsed.Seconds())
}

func (m *Metrics) setState(score float64, failures int) {
	m.score.Set(score)
	m.failures.Set(float64(failures))
}

// WriteTextfile writes the current values in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.reg)
}
