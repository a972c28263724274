package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the workflow engine.
// Tracks state transitions, gate refusals and mutation latency.
type Metrics struct {
	TransactionsCreated prometheus.Counter
	StepTransitions     *prometheus.CounterVec
	AdvanceRefused      *prometheus.CounterVec
	ConditionsCreated   prometheus.Counter
	ConditionsResolved  *prometheus.CounterVec
	DocumentEvents      *prometheus.CounterVec
	MutationDuration    *prometheus.HistogramVec
}

// New registers the workflow metrics with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		TransactionsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "dealflow_transactions_created_total",
			Help: "Total number of transactions instantiated from a template",
		}),
		StepTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dealflow_step_transitions_total",
			Help: "Steps closed, by outcome (completed, skipped, terminal)",
		}, []string{"outcome"}),
		AdvanceRefused: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dealflow_advance_refused_total",
			Help: "Advance or skip attempts refused, by error code",
		}, []string{"code"}),
		ConditionsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "dealflow_conditions_created_total",
			Help: "Conditions generated for transactions",
		}),
		ConditionsResolved: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dealflow_conditions_resolved_total",
			Help: "Conditions closed manually, by resolution type",
		}, []string{"resolution_type"}),
		DocumentEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dealflow_document_events_total",
			Help: "Document lifecycle events (uploaded, validated, rejected)",
		}, []string{"event"}),
		MutationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dealflow_mutation_duration_seconds",
			Help:    "Duration of workflow mutations including the storage transaction",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncrementTransactionCreated() {
	if m == nil {
		return
	}
	m.TransactionsCreated.Inc()
}

// IncrementStepTransition records a closed step.
func (m *Metrics) IncrementStepTransition(outcome string) {
	if m == nil {
		return
	}
	m.StepTransitions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementAdvanceRefused(code string) {
	if m == nil {
		return
	}
	m.AdvanceRefused.WithLabelValues(code).Inc()
}

func (m *Metrics) AddConditionsCreated(n int) {
	if m == nil || n == 0 {
		return
	}
	m.ConditionsCreated.Add(float64(n))
}

func (m *Metrics) IncrementConditionResolved(resolutionType string) {
	if m == nil {
		return
	}
	m.ConditionsResolved.WithLabelValues(resolutionType).Inc()
}

func (m *Metrics) IncrementDocumentEvent(event string) {
	if m == nil {
		return
	}
	m.DocumentEvents.WithLabelValues(event).Inc()
}

// ObserveMutation records the duration of a mutation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveMutation(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.MutationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
