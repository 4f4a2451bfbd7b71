package commands

import (
	"context"
	"errors"
	"time"

	"dispatch/internal/core/domain/model/partner"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"
)

// PartnerPresenceCommandHandler keeps the registry and the durable online flag in step
// with partner connections.
//
// A connect loads the partner record, marks it online and seeds the registry from it,
// including an order still in progress. The record's active order is checked against the
// partner's open tracking session first, and the session wins. A disconnect never touches
// the order or its session; the partner is expected to reconnect and carry on.
type PartnerPresenceCommandHandler struct {
	uowFactory UoWFactory
	registry   ports.PartnerRegistry
	notifier   ports.Notifier
	clock      Clock
}

// NewPartnerPresenceCommandHandler creates the handler.
func NewPartnerPresenceCommandHandler(
	uowFactory UoWFactory,
	registry ports.PartnerRegistry,
	notifier ports.Notifier,
	clock Clock,
) PartnerPresenceCommandHandler {
	return PartnerPresenceCommandHandler{
		uowFactory: uowFactory,
		registry:   registry,
		notifier:   notifier,
		clock:      clock,
	}
}

// Handle processes the connect or disconnect and returns the resulting presence.
// A connect for an unknown partner returns errs.ObjectNotFoundError and registers nothing.
// A disconnect that does not match the registered connection is a no-op.
func (h PartnerPresenceCommandHandler) Handle(ctx context.Context, command PartnerPresenceCommand) (ports.Presence, error) {
	if err := command.Validate(); err != nil {
		return ports.Presence{}, err
	}

	now := h.clock.now()
	partnerID := command.PartnerID()

	if !command.Online() {
		if !h.registry.SetOffline(partnerID, command.Handle(), now) {
			presence, _ := h.registry.Get(partnerID)
			return presence, nil
		}
		goOffline := func(_ UoW, p *partner.Partner) error {
			p.GoOffline(now)
			return nil
		}
		if _, err := h.persist(ctx, command, goOffline); err != nil {
			return ports.Presence{}, err
		}
		h.announce(ctx, ports.Presence{PartnerID: partnerID}, now)
		return ports.Presence{PartnerID: partnerID, LastSeen: now}, nil
	}

	p, err := h.persist(ctx, command, func(uow UoW, p *partner.Partner) error {
		p.GoOnline(now)
		return syncActiveOrder(ctx, uow, p)
	})
	if err != nil {
		return ports.Presence{}, err
	}

	location, hasLocation := p.Location()
	snapshot := ports.PresenceSnapshot{
		OnDuty:        p.Availability().IsOnDuty,
		LocationAt:    p.LocationUpdatedAt(),
		Rating:        p.Statistics().AvgRating,
		ActiveOrderID: p.ActiveOrderID(),
	}
	if hasLocation {
		snapshot.Location = &location
	}
	h.registry.SetOnline(partnerID, command.Handle(), snapshot, now)

	presence, _ := h.registry.Get(partnerID)
	h.announce(ctx, presence, now)
	return presence, nil
}

func (h PartnerPresenceCommandHandler) persist(
	ctx context.Context,
	command PartnerPresenceCommand,
	apply func(UoW, *partner.Partner) error,
) (*partner.Partner, error) {
	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	p, err := uow.PartnerRepository().GetForUpdate(ctx, command.PartnerID())
	if err != nil {
		return nil, err
	}
	if err = apply(uow, p); err != nil {
		return nil, err
	}
	if err = uow.PartnerRepository().Update(ctx, p); err != nil {
		return nil, err
	}

	if err = uow.Commit(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// syncActiveOrder points the record at the partner's open session, or clears it when
// there is none.
func syncActiveOrder(ctx context.Context, uow UoW, p *partner.Partner) error {
	session, err := uow.SessionRepository().GetActiveByPartner(ctx, p.ID())
	switch {
	case err == nil:
		orderID := session.OrderID()
		_, err = p.SyncActiveOrder(&orderID)
		return err
	case errors.Is(err, errs.ErrObjectNotFound):
		_, err = p.SyncActiveOrder(nil)
		return err
	default:
		return err
	}
}

func (h PartnerPresenceCommandHandler) announce(ctx context.Context, presence ports.Presence, now time.Time) {
	notify(ctx, h.notifier, ports.Notification{
		Event: ports.EventPartnerAvailabilityChanged,
		Data: AvailabilityPayload{
			PartnerID: presence.PartnerID,
			IsOnline:  presence.Online,
			IsOnDuty:  presence.OnDuty,
			Timestamp: now,
		},
		Admins: true,
	})
}
