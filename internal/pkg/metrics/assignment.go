package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Assignment outcomes.
const (
	OutcomeAssigned           = "assigned"
	OutcomeNoPartnerAvailable = "no_partner_available"
	OutcomePartnerUnavailable = "partner_unavailable"
	OutcomeError              = "error"
)

// AssignmentMetrics counts assignment attempts by mode and outcome.
type AssignmentMetrics struct {
	outcomes *prometheus.CounterVec
}

// NewAssignmentMetrics registers the assignment metrics on the provided registerer.
func NewAssignmentMetrics(reg prometheus.Registerer) *AssignmentMetrics {
	if reg == nil {
		return &AssignmentMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "assignments_total",
		Help:      "Order assignment attempts by mode (auto, accept) and outcome.",
	}, []string{"mode", "outcome"})
	reg.MustRegister(outcomes)
	return &AssignmentMetrics{outcomes: outcomes}
}

// Observe counts one assignment attempt.
func (a *AssignmentMetrics) Observe(mode, outcome string) {
	if a == nil || a.outcomes == nil {
		return
	}
	a.outcomes.WithLabelValues(normalizeLabel(mode), normalizeLabel(outcome)).Inc()
}
