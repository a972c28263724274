package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics covers the outbox relay and the overdue sweep.
type Metrics struct {
	Published      prometheus.Counter
	PublishFailed  prometheus.Counter
	BreakerState   prometheus.Gauge
	OverdueFlagged prometheus.Counter
	SweepFailures  prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Published: f.NewCounter(prometheus.CounterOpts{
			Name: "dealflow_outbox_published_total",
			Help: "Activity events relayed to Kafka",
		}),
		PublishFailed: f.NewCounter(prometheus.CounterOpts{
			Name: "dealflow_outbox_publish_failures_total",
			Help: "Outbox batches that failed to publish",
		}),
		BreakerState: f.NewGauge(prometheus.GaugeOpts{
			Name: "dealflow_outbox_circuit_breaker_state",
			Help: "Relay circuit breaker state (0=closed, 1=open)",
		}),
		OverdueFlagged: f.NewCounter(prometheus.CounterOpts{
			Name: "dealflow_conditions_overdue_flagged_total",
			Help: "Overdue notices appended by the sweep",
		}),
		SweepFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "dealflow_overdue_sweep_failures_total",
			Help: "Overdue sweeps that ended in error",
		}),
	}
}

func (m *Metrics) AddPublished(n int) {
	if m != nil {
		m.Published.Add(float64(n))
	}
}

func (m *Metrics) IncPublishFailed() {
	if m != nil {
		m.PublishFailed.Inc()
	}
}

func (m *Metrics) SetBreakerOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.BreakerState.Set(1)
		return
	}
	m.BreakerState.Set(0)
}

func (m *Metrics) AddOverdueFlagged(n int) {
	if m != nil {
		m.OverdueFlagged.Add(float64(n))
	}
}

func (m *Metrics) IncSweepFailure() {
	if m != nil {
		m.SweepFailures.Inc()
	}
}
