package commands

import (
	"context"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/domain/model/tracking"
	"dispatch/internal/core/domain/services"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/keylock"
	"dispatch/internal/pkg/metrics"
)

// AcceptOrderCommandHandler lets a partner take an order directly. The contract is the
// one of automatic assignment with the nearest-search replaced by the caller's choice.
type AcceptOrderCommandHandler struct {
	assigner assigner
}

// NewAcceptOrderCommandHandler creates the handler.
func NewAcceptOrderCommandHandler(
	uowFactory UoWFactory,
	registry ports.PartnerRegistry,
	locker *keylock.Locker,
	dispatcher services.OrderDispatcher,
	notifier ports.Notifier,
	assignmentMetrics *metrics.AssignmentMetrics,
	clock Clock,
) AcceptOrderCommandHandler {
	return AcceptOrderCommandHandler{
		assigner: assigner{
			uowFactory: uowFactory,
			registry:   registry,
			locker:     locker,
			dispatcher: dispatcher,
			notifier:   notifier,
			metrics:    assignmentMetrics,
			clock:      clock,
		},
	}
}

// Handle processes the manual assignment.
// Returns partner.ErrPartnerUnavailable when the partner is offline, off duty or busy.
func (h AcceptOrderCommandHandler) Handle(ctx context.Context, command AcceptOrderCommand) (tracking.Session, error) {
	if err := command.Validate(); err != nil {
		return tracking.Session{}, err
	}

	return h.assigner.assign(ctx, "accept", command.OrderID(), func(o *order.Order) (ports.Candidate, error) {
		return h.claim(o, command.PartnerID())
	})
}

func (h AcceptOrderCommandHandler) claim(o *order.Order, partnerID kernel.UUID) (ports.Candidate, error) {
	if err := h.assigner.registry.Claim(partnerID, o.ID()); err != nil {
		return ports.Candidate{}, err
	}

	presence, _ := h.assigner.registry.Get(partnerID)
	candidate := ports.Candidate{Presence: presence}
	candidate.PartnerID = partnerID
	if presence.Location != nil {
		if distance, err := presence.Location.DistanceKm(o.DeliveryLocation()); err == nil {
			candidate.DistanceKm = distance
		}
	}
	return candidate, nil
}
