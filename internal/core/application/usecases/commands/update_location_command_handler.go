package commands

import (
	"context"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/tracking"
	"dispatch/internal/core/domain/services"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/keylock"
)

// UpdateLocationCommandHandler records a partner position.
//
// The registry position is always overwritten. While the partner delivers an order the
// point is also appended to the order's route, which recomputes the distance to the
// customer and the ETA, and the update is broadcast to the order room. Without an active
// order only admins receive it.
type UpdateLocationCommandHandler struct {
	writer   sessionWriter
	registry ports.PartnerRegistry
	notifier ports.Notifier
	clock    Clock
}

// NewUpdateLocationCommandHandler creates the handler.
func NewUpdateLocationCommandHandler(
	uowFactory UoWFactory,
	registry ports.PartnerRegistry,
	locker *keylock.Locker,
	notifier ports.Notifier,
	clock Clock,
) UpdateLocationCommandHandler {
	return UpdateLocationCommandHandler{
		writer: sessionWriter{
			uowFactory: uowFactory,
			locker:     locker,
			dispatcher: services.NewOrderDispatcher(nil, 0, 0),
		},
		registry: registry,
		notifier: notifier,
		clock:    clock,
	}
}

// Handle processes the location report.
// Returns errs.ObjectNotFoundError when the partner is not connected, ErrNotSessionParticipant
// when the named order belongs to someone else, tracking.ErrStaleRoutePoint for an old sample.
func (h UpdateLocationCommandHandler) Handle(ctx context.Context, command UpdateLocationCommand) error {
	if err := command.Validate(); err != nil {
		return err
	}

	now := h.clock.now()
	partnerID := command.PartnerID()
	if err := h.registry.UpdateLocation(partnerID, command.Location(), now); err != nil {
		return err
	}

	point := command.RoutePoint(now)
	payload := LocationUpdatePayload{
		PartnerID: partnerID,
		Latitude:  point.Lat,
		Longitude: point.Lng,
		Speed:     point.Speed,
		Heading:   point.Heading,
		Accuracy:  point.Accuracy,
		Timestamp: point.Timestamp,
	}

	orderID := h.activeOrder(command)
	if orderID == nil {
		if err := h.savePartnerLocation(ctx, partnerID, command.Location()); err != nil {
			return err
		}
		notify(ctx, h.notifier, ports.Notification{
			Event:  ports.EventDeliveryLocationUpdate,
			Data:   payload,
			Admins: true,
		})
		return nil
	}

	session, err := h.writer.mutate(ctx, *orderID, func(uow UoW, session tracking.Session) (tracking.Session, error) {
		if err := ensurePartner(session, partnerID); err != nil {
			return session, err
		}
		next, err := session.AppendRoutePoint(point, now)
		if err != nil {
			return session, err
		}
		p, err := uow.PartnerRepository().Get(ctx, partnerID)
		if err != nil {
			return session, err
		}
		if err = p.UpdateLocation(command.Location(), now); err != nil {
			return session, err
		}
		if err = uow.PartnerRepository().Update(ctx, p); err != nil {
			return session, err
		}
		return next, nil
	})
	if err != nil {
		return err
	}

	sessionMetrics := session.Metrics()
	payload.OrderID = uuidPtr(session.OrderID())
	payload.DistanceToCustomerKm = &sessionMetrics.DistanceToCustomerKm
	payload.EstimatedDeliveryTime = &sessionMetrics.EstimatedDeliveryTime
	notify(ctx, h.notifier, ports.Notification{
		Event:     ports.EventDeliveryLocationUpdate,
		Data:      payload,
		OrderRoom: uuidPtr(session.OrderID()),
		Admins:    true,
	})
	return nil
}

func (h UpdateLocationCommandHandler) activeOrder(command UpdateLocationCommand) *kernel.UUID {
	if id := command.OrderID(); id != nil {
		return id
	}
	if presence, ok := h.registry.Get(command.PartnerID()); ok && presence.ActiveOrderID != nil {
		return presence.ActiveOrderID
	}
	return nil
}

func (h UpdateLocationCommandHandler) savePartnerLocation(
	ctx context.Context,
	partnerID kernel.UUID,
	location kernel.Location,
) error {
	uow := h.writer.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	p, err := uow.PartnerRepository().Get(ctx, partnerID)
	if err != nil {
		return err
	}
	if err = p.UpdateLocation(location, h.clock.now()); err != nil {
		return err
	}
	if err = uow.PartnerRepository().Update(ctx, p); err != nil {
		return err
	}

	return uow.Commit(ctx)
}
