package commands

import (
	"context"

	"dispatch/internal/core/domain/model/tracking"
	"dispatch/internal/core/domain/services"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/keylock"
)

// UpdateStatusCommandHandler applies a partner's status change to the tracking session
// and mirrors it onto the order. Entering a terminal status also frees the partner, both
// durably and in the registry, and records the outcome in its statistics.
type UpdateStatusCommandHandler struct {
	writer   sessionWriter
	registry ports.PartnerRegistry
	notifier ports.Notifier
	clock    Clock
}

// NewUpdateStatusCommandHandler creates the handler.
func NewUpdateStatusCommandHandler(
	uowFactory UoWFactory,
	registry ports.PartnerRegistry,
	locker *keylock.Locker,
	dispatcher services.OrderDispatcher,
	notifier ports.Notifier,
	clock Clock,
) UpdateStatusCommandHandler {
	return UpdateStatusCommandHandler{
		writer: sessionWriter{
			uowFactory: uowFactory,
			locker:     locker,
			dispatcher: dispatcher,
		},
		registry: registry,
		notifier: notifier,
		clock:    clock,
	}
}

// Handle processes the status change.
// Returns tracking.ErrTerminalState, tracking.ErrIllegalTransition or
// tracking.ErrDeliveryProofRequired from the state machine; the session is unchanged then.
func (h UpdateStatusCommandHandler) Handle(ctx context.Context, command UpdateStatusCommand) (tracking.Session, error) {
	if err := command.Validate(); err != nil {
		return tracking.Session{}, err
	}

	now := h.clock.now()
	session, err := h.writer.mutate(ctx, command.OrderID(), func(uow UoW, session tracking.Session) (tracking.Session, error) {
		if err := ensurePartner(session, command.PartnerID()); err != nil {
			return session, err
		}
		next, err := session.Transition(command.Status(), command.Details(), now)
		if err != nil {
			return session, err
		}
		if err = h.writer.mirror(ctx, uow, next); err != nil {
			return session, err
		}
		return next, nil
	})
	if err != nil {
		return tracking.Session{}, err
	}

	if session.IsTerminal() {
		h.registry.Release(session.PartnerID(), session.OrderID())
	}

	notify(ctx, h.notifier, ports.Notification{
		Event:     ports.EventDeliveryStatusUpdate,
		Data:      statusUpdatePayload(session),
		OrderRoom: uuidPtr(session.OrderID()),
		Admins:    true,
	})
	return session, nil
}
