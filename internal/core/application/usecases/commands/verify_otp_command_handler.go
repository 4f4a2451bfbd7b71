package commands

import (
	"context"

	"dispatch/internal/core/domain/model/tracking"
	"dispatch/internal/core/domain/services"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/keylock"
)

// VerifyOTPCommandHandler completes a delivery with the customer's one-time code.
//
// Failure codes are kept distinct: kernel.ErrInvalidOTP, kernel.ErrOTPExpired and
// kernel.ErrOTPAlreadyUsed. A failed attempt changes nothing. A success marks the OTP used,
// moves the session to delivered, mirrors the order and frees the partner.
type VerifyOTPCommandHandler struct {
	writer   sessionWriter
	registry ports.PartnerRegistry
	notifier ports.Notifier
	clock    Clock
}

// NewVerifyOTPCommandHandler creates the handler.
func NewVerifyOTPCommandHandler(
	uowFactory UoWFactory,
	registry ports.PartnerRegistry,
	locker *keylock.Locker,
	dispatcher services.OrderDispatcher,
	notifier ports.Notifier,
	clock Clock,
) VerifyOTPCommandHandler {
	return VerifyOTPCommandHandler{
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

// Handle processes the verification and returns the delivered session.
func (h VerifyOTPCommandHandler) Handle(ctx context.Context, command VerifyOTPCommand) (tracking.Session, error) {
	if err := command.Validate(); err != nil {
		return tracking.Session{}, err
	}

	now := h.clock.now()
	session, err := h.writer.mutate(ctx, command.OrderID(), func(uow UoW, session tracking.Session) (tracking.Session, error) {
		if customerID := command.CustomerID(); customerID != nil {
			if err := ensureCustomer(session, *customerID); err != nil {
				return session, err
			}
		}
		next, err := session.VerifyOTP(command.Code(), now)
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

	h.registry.Release(session.PartnerID(), session.OrderID())

	notify(ctx, h.notifier, ports.Notification{
		Event:     ports.EventDeliveryStatusUpdate,
		Data:      statusUpdatePayload(session),
		OrderRoom: uuidPtr(session.OrderID()),
		Admins:    true,
	})
	return session, nil
}
