// Package metrics exposes submission counters to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "registration"

// Prometheus records one observation per submit attempt.
type Prometheus struct {
	submissions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// New registers the collectors with reg. Passing prometheus.DefaultRegisterer
// makes them visible on the default /metrics handler.
func New(reg prometheus.Registerer) *Prometheus {
	p := &Prometheus{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Submit attempts by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "submit_duration_seconds",
			Help:      "Time from submit to outcome.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"outcome"}),
	}
	reg.MustRegister(p.submissions, p.duration)
	return p
}

func (p *Prometheus) ObserveSubmit(outcome string, d time.Duration) {
	p.submissions.WithLabelValues(outcome).Inc()
	p.duration.WithLabelValues(outcome).Observe(d.Seconds())
}
