package commands

import (
	"context"
	"errors"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/domain/model/partner"
	"dispatch/internal/core/domain/model/tracking"
	"dispatch/internal/core/domain/services"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/keylock"
	"dispatch/internal/pkg/metrics"
)

// DefaultAssignmentRadiusKm is the search radius of automatic assignment.
const DefaultAssignmentRadiusKm = 10.0

// ErrNoPartnerAvailable is returned when no online, on-duty partner is within range.
var ErrNoPartnerAvailable = errors.New("no partner available")

// pickPartner claims a partner for the loaded order in the registry and returns the
// claimed partner with its distance to the customer.
type pickPartner func(o *order.Order) (ports.Candidate, error)

// assigner is the shared half of automatic and manual assignment.
//
// The registry claim is the in-memory compare-and-set; the partner row read FOR UPDATE and
// partner.TakeDelivery are the durable one. Any failure after the claim releases it.
type assigner struct {
	uowFactory UoWFactory
	registry   ports.PartnerRegistry
	locker     *keylock.Locker
	dispatcher services.OrderDispatcher
	notifier   ports.Notifier
	metrics    *metrics.AssignmentMetrics
	clock      Clock
}

func (a assigner) assign(ctx context.Context, mode string, orderID kernel.UUID, pick pickPartner) (tracking.Session, error) {
	session, candidate, err := a.commit(ctx, orderID, pick)
	a.metrics.Observe(mode, outcome(err))
	if err != nil {
		return tracking.Session{}, err
	}

	notify(ctx, a.notifier, ports.Notification{
		Event: ports.EventNewOrderAssigned,
		Data: NewOrderAssignedPayload{
			OrderID:               session.OrderID(),
			CustomerID:            session.CustomerID(),
			StoreLocation:         session.StoreLocation(),
			CustomerLocation:      session.CustomerLocation(),
			DistanceKm:            candidate.DistanceKm,
			EstimatedDeliveryTime: session.Metrics().EstimatedDeliveryTime,
		},
		Partner: uuidPtr(session.PartnerID()),
	})
	notify(ctx, a.notifier, ports.Notification{
		Event: ports.EventOrderAssigned,
		Data: OrderAssignedPayload{
			OrderID:               session.OrderID(),
			PartnerID:             session.PartnerID(),
			Status:                session.Status(),
			EstimatedDeliveryTime: session.Metrics().EstimatedDeliveryTime,
		},
		OrderRoom: uuidPtr(session.OrderID()),
		Admins:    true,
	})

	return session, nil
}

func (a assigner) commit(
	ctx context.Context,
	orderID kernel.UUID,
	pick pickPartner,
) (_ tracking.Session, _ ports.Candidate, err error) {
	unlock, err := a.locker.Lock(ctx, orderID.String())
	if err != nil {
		return tracking.Session{}, ports.Candidate{}, err
	}
	defer unlock()

	uow := a.uowFactory.Create()
	if err = uow.Begin(ctx); err != nil {
		return tracking.Session{}, ports.Candidate{}, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	o, err := uow.OrderRepository().Get(ctx, orderID)
	if err != nil {
		return tracking.Session{}, ports.Candidate{}, err
	}
	if err = o.Status().ValidateAssign(); err != nil {
		return tracking.Session{}, ports.Candidate{}, err
	}

	candidate, err := pick(o)
	if err != nil {
		return tracking.Session{}, ports.Candidate{}, err
	}

	defer func() {
		if err != nil {
			a.registry.Release(candidate.PartnerID, orderID)
		}
	}()

	p, err := uow.PartnerRepository().GetForUpdate(ctx, candidate.PartnerID)
	if err != nil {
		return tracking.Session{}, ports.Candidate{}, err
	}

	session, err := a.dispatcher.Dispatch(o, p, a.clock.now())
	if err != nil {
		return tracking.Session{}, ports.Candidate{}, err
	}

	if session, err = uow.SessionRepository().Add(ctx, session); err != nil {
		return tracking.Session{}, ports.Candidate{}, err
	}
	if err = uow.OrderRepository().Update(ctx, o); err != nil {
		return tracking.Session{}, ports.Candidate{}, err
	}
	if err = uow.PartnerRepository().Update(ctx, p); err != nil {
		return tracking.Session{}, ports.Candidate{}, err
	}

	if err = uow.Commit(ctx); err != nil {
		return tracking.Session{}, ports.Candidate{}, err
	}

	return session, candidate, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeAssigned
	case errors.Is(err, ErrNoPartnerAvailable):
		return metrics.OutcomeNoPartnerAvailable
	case errors.Is(err, partner.ErrPartnerUnavailable):
		return metrics.OutcomePartnerUnavailable
	default:
		return metrics.OutcomeError
	}
}
