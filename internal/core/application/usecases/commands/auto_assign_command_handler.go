package commands

import (
	"context"
	"errors"

	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/domain/model/partner"
	"dispatch/internal/core/domain/model/tracking"
	"dispatch/internal/core/domain/services"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/keylock"
	"dispatch/internal/pkg/metrics"
)

// AutoAssignCommandHandler gives an order to the best partner near the customer.
//
// Candidates come from the registry ranked by rating, active count and distance. The
// handler claims them in that order and keeps the first claim that succeeds, so two
// orders racing for one partner never both get it.
//
// Example:
//
//	session, err := handler.Handle(ctx, cmd)
//	switch {
//	case errors.Is(err, ErrNoPartnerAvailable):
//	    // nobody online and on duty within the radius, order stays unassigned
//	case errors.Is(err, partner.ErrPartnerUnavailable):
//	    // every candidate was taken by a concurrent assignment
//	case err != nil:
//	    return err
//	}
type AutoAssignCommandHandler struct {
	assigner assigner
	radiusKm float64
}

// NewAutoAssignCommandHandler creates the handler. A non-positive radius falls back to
// DefaultAssignmentRadiusKm.
func NewAutoAssignCommandHandler(
	uowFactory UoWFactory,
	registry ports.PartnerRegistry,
	locker *keylock.Locker,
	dispatcher services.OrderDispatcher,
	notifier ports.Notifier,
	assignmentMetrics *metrics.AssignmentMetrics,
	radiusKm float64,
	clock Clock,
) AutoAssignCommandHandler {
	if radiusKm <= 0 {
		radiusKm = DefaultAssignmentRadiusKm
	}
	return AutoAssignCommandHandler{
		assigner: assigner{
			uowFactory: uowFactory,
			registry:   registry,
			locker:     locker,
			dispatcher: dispatcher,
			notifier:   notifier,
			metrics:    assignmentMetrics,
			clock:      clock,
		},
		radiusKm: radiusKm,
	}
}

// Handle processes the automatic assignment.
// Returns ErrNoPartnerAvailable when the search is empty, partner.ErrPartnerUnavailable
// when every candidate was lost to a race, errs.ObjectNotFoundError for an unknown order.
func (h AutoAssignCommandHandler) Handle(ctx context.Context, command AutoAssignCommand) (tracking.Session, error) {
	if err := command.Validate(); err != nil {
		return tracking.Session{}, err
	}

	return h.assigner.assign(ctx, "auto", command.OrderID(), h.claimNearest)
}

func (h AutoAssignCommandHandler) claimNearest(o *order.Order) (ports.Candidate, error) {
	candidates := h.assigner.registry.FindNearby(o.DeliveryLocation(), h.radiusKm)
	if len(candidates) == 0 {
		return ports.Candidate{}, ErrNoPartnerAvailable
	}

	for _, candidate := range candidates {
		err := h.assigner.registry.Claim(candidate.PartnerID, o.ID())
		if err == nil {
			return candidate, nil
		}
		if !errors.Is(err, partner.ErrPartnerUnavailable) {
			return ports.Candidate{}, err
		}
	}

	return ports.Candidate{}, partner.ErrPartnerUnavailable
}
