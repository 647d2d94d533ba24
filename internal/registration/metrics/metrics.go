package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registration module.
type Metrics struct {
	RegistrationsStarted prometheus.Counter
	ClaimConflicts       prometheus.Counter
	StepsCompleted       *prometheus.CounterVec
	StepFailures         *prometheus.CounterVec
	StepDuration         *prometheus.HistogramVec
}

// New registers the registration metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RegistrationsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "signup_registrations_started_total",
			Help: "Total number of registrations started",
		}),
		ClaimConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "signup_registration_claim_conflicts_total",
			Help: "Registrations refused because the email is held by an in-flight registration",
		}),
		StepsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "signup_registration_steps_completed_total",
			Help: "Registration steps completed, by step",
		}, []string{"step"}),
		StepFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "signup_registration_step_failures_total",
			Help: "Registration step attempts rejected, by step and error code",
		}, []string{"step", "code"}),
		// Bcrypt dominates the initial info step, so buckets reach into seconds.
		StepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "signup_registration_step_duration_seconds",
			Help:    "Duration of registration step completion, by step",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"step"}),
	}
}

func (m *Metrics) IncrementStarted() {
	m.RegistrationsStarted.Inc()
}

func (m *Metrics) IncrementClaimConflict() {
	m.ClaimConflicts.Inc()
}

func (m *Metrics) IncrementStepCompleted(step string) {
	m.StepsCompleted.WithLabelValues(step).Inc()
}

func (m *Metrics) IncrementStepFailure(step, code string) {
	m.StepFailures.WithLabelValues(step, code).Inc()
}

// ObserveStep records the duration of a step attempt.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveStep(step string, start time.Time) {
	m.StepDuration.WithLabelValues(step).Observe(time.Since(start).Seconds())
}
