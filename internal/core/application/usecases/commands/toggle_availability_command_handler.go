package commands

import (
	"context"

	"dispatch/internal/core/ports"
)

// ToggleAvailabilityCommandHandler flips a connected partner's duty flag in the registry
// and in the partner record. A failed durable write puts the registry flag back.
type ToggleAvailabilityCommandHandler struct {
	uowFactory PartnerUoWFactory
	registry   ports.PartnerRegistry
	notifier   ports.Notifier
	clock      Clock
}

// NewToggleAvailabilityCommandHandler creates the handler.
func NewToggleAvailabilityCommandHandler(
	uowFactory PartnerUoWFactory,
	registry ports.PartnerRegistry,
	notifier ports.Notifier,
	clock Clock,
) ToggleAvailabilityCommandHandler {
	return ToggleAvailabilityCommandHandler{
		uowFactory: uowFactory,
		registry:   registry,
		notifier:   notifier,
		clock:      clock,
	}
}

// Handle processes the toggle.
// Returns errs.ObjectNotFoundError when the partner is not connected and
// partner.ErrPartnerHasActiveOrder while it delivers.
func (h ToggleAvailabilityCommandHandler) Handle(ctx context.Context, command ToggleAvailabilityCommand) error {
	if err := command.Validate(); err != nil {
		return err
	}

	now := h.clock.now()
	partnerID := command.PartnerID()
	previous, _ := h.registry.Get(partnerID)
	if err := h.registry.SetOnDuty(partnerID, command.OnDuty(), now); err != nil {
		return err
	}

	if err := h.persist(ctx, command); err != nil {
		_ = h.registry.SetOnDuty(partnerID, previous.OnDuty, now)
		return err
	}

	notify(ctx, h.notifier, ports.Notification{
		Event: ports.EventPartnerAvailabilityChanged,
		Data: AvailabilityPayload{
			PartnerID: partnerID,
			IsOnline:  true,
			IsOnDuty:  command.OnDuty(),
			Timestamp: now,
		},
		Admins: true,
	})
	return nil
}

func (h ToggleAvailabilityCommandHandler) persist(ctx context.Context, command ToggleAvailabilityCommand) error {
	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	p, err := uow.PartnerRepository().GetForUpdate(ctx, command.PartnerID())
	if err != nil {
		return err
	}
	if err = p.SetOnDuty(command.OnDuty(), h.clock.now()); err != nil {
		return err
	}
	if err = uow.PartnerRepository().Update(ctx, p); err != nil {
		return err
	}

	return uow.Commit(ctx)
}
