package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Reservations   *prometheus.CounterVec
	Releases       prometheus.Counter
	FallbackActive prometheus.Gauge
	CounterErrors  prometheus.Counter
}

// New registers the plan limiter metrics with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Reservations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dealflow_plan_upload_reservations_total",
			Help: "Upload reservations, by outcome (granted, exceeded)",
		}, []string{"outcome"}),
		Releases: f.NewCounter(prometheus.CounterOpts{
			Name: "dealflow_plan_upload_releases_total",
			Help: "Reservations released after a failed upload",
		}),
		FallbackActive: f.NewGauge(prometheus.GaugeOpts{
			Name: "dealflow_plan_fallback_active",
			Help: "1 while usage counters are served from the in-memory fallback",
		}),
		CounterErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "dealflow_plan_counter_errors_total",
			Help: "Errors returned by the primary usage counter store",
		}),
	}
}

func (m *Metrics) IncrementReservation(outcome string) {
	if m == nil {
		return
	}
	m.Reservations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementRelease() {
	if m == nil {
		return
	}
	m.Releases.Inc()
}

func (m *Metrics) IncrementCounterError() {
	if m == nil {
		return
	}
	m.CounterErrors.Inc()
}

func (m *Metrics) SetFallbackActive(active bool) {
	if m == nil {
		return
	}
	if active {
		m.FallbackActive.Set(1)
		return
	}
	m.FallbackActive.Set(0)
}
