package commands

import (
	"context"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/tracking"
	"dispatch/internal/core/domain/services"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/keylock"
)

// ErrNotSessionParticipant is returned when a partner or customer acts on an order that
// is not theirs.
var ErrNotSessionParticipant = errs.NewValueIsInvalidError("order does not belong to the caller")

// Clock returns the current time. Handlers take one so tests can pin time.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c()
}

// sessionMutation transforms a loaded session inside the open transaction.
type sessionMutation func(uow UoW, session tracking.Session) (tracking.Session, error)

// sessionWriter runs load, transform and save of one tracking session while holding the
// order's lock, so two writers of the same order never interleave. Different orders
// proceed in parallel.
type sessionWriter struct {
	uowFactory UoWFactory
	locker     *keylock.Locker
	dispatcher services.OrderDispatcher
}

func (w sessionWriter) mutate(ctx context.Context, orderID kernel.UUID, fn sessionMutation) (tracking.Session, error) {
	unlock, err := w.locker.Lock(ctx, orderID.String())
	if err != nil {
		return tracking.Session{}, err
	}
	defer unlock()

	uow := w.uowFactory.Create()
	if err = uow.Begin(ctx); err != nil {
		return tracking.Session{}, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	current, err := uow.SessionRepository().Get(ctx, orderID)
	if err != nil {
		return tracking.Session{}, err
	}

	next, err := fn(uow, current)
	if err != nil {
		return tracking.Session{}, err
	}

	saved, err := uow.SessionRepository().Update(ctx, next)
	if err != nil {
		return tracking.Session{}, err
	}

	if err = uow.Commit(ctx); err != nil {
		return tracking.Session{}, err
	}

	return saved, nil
}

// mirror writes the session's status to the order and, for a finished session, frees
// the partner and records the outcome.
func (w sessionWriter) mirror(ctx context.Context, uow UoW, session tracking.Session) error {
	o, err := uow.OrderRepository().Get(ctx, session.OrderID())
	if err != nil {
		return err
	}

	if !session.IsTerminal() {
		if err = o.MirrorStatus(session.Status().OrderStatus()); err != nil {
			return err
		}
		return uow.OrderRepository().Update(ctx, o)
	}

	p, err := uow.PartnerRepository().GetForUpdate(ctx, session.PartnerID())
	if err != nil {
		return err
	}
	if err = w.dispatcher.Finish(session, o, p); err != nil {
		return err
	}

	if err = uow.OrderRepository().Update(ctx, o); err != nil {
		return err
	}
	return uow.PartnerRepository().Update(ctx, p)
}

func ensurePartner(session tracking.Session, partnerID kernel.UUID) error {
	if !session.PartnerID().IsEqual(partnerID) {
		return ErrNotSessionParticipant
	}
	return nil
}

func ensureCustomer(session tracking.Session, customerID kernel.UUID) error {
	if !session.CustomerID().IsEqual(customerID) {
		return ErrNotSessionParticipant
	}
	return nil
}

func notify(ctx context.Context, notifier ports.Notifier, n ports.Notification) {
	if notifier == nil {
		return
	}
	notifier.Notify(ctx, n)
}
