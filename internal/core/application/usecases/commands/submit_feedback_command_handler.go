package commands

import (
	"context"

	"dispatch/internal/core/domain/model/tracking"
	"dispatch/internal/core/domain/services"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/keylock"
)

// SubmitFeedbackCommandHandler attaches the customer's feedback to a delivered session
// and folds the rating into the partner's running average, in one transaction. The new
// average is then pushed to the registry so that assignment ranks on it.
type SubmitFeedbackCommandHandler struct {
	writer   sessionWriter
	registry ports.PartnerRegistry
	notifier ports.Notifier
	clock    Clock
}

// NewSubmitFeedbackCommandHandler creates the handler.
func NewSubmitFeedbackCommandHandler(
	uowFactory UoWFactory,
	registry ports.PartnerRegistry,
	locker *keylock.Locker,
	notifier ports.Notifier,
	clock Clock,
) SubmitFeedbackCommandHandler {
	return SubmitFeedbackCommandHandler{
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

// Handle processes the feedback.
// Returns tracking.ErrFeedbackNotAllowed unless delivered and
// tracking.ErrFeedbackAlreadySubmitted for a second submission.
func (h SubmitFeedbackCommandHandler) Handle(ctx context.Context, command SubmitFeedbackCommand) error {
	if err := command.Validate(); err != nil {
		return err
	}

	now := h.clock.now()
	var avgRating float64
	session, err := h.writer.mutate(ctx, command.OrderID(), func(uow UoW, session tracking.Session) (tracking.Session, error) {
		if err := ensureCustomer(session, command.CustomerID()); err != nil {
			return session, err
		}
		next, err := session.AttachFeedback(command.Rating(), command.Comment(), now)
		if err != nil {
			return session, err
		}

		p, err := uow.PartnerRepository().GetForUpdate(ctx, session.PartnerID())
		if err != nil {
			return session, err
		}
		if err = p.AddRating(command.Rating()); err != nil {
			return session, err
		}
		if err = uow.PartnerRepository().Update(ctx, p); err != nil {
			return session, err
		}
		avgRating = p.Statistics().AvgRating
		return next, nil
	})
	if err != nil {
		return err
	}
	h.registry.SetRating(session.PartnerID(), avgRating)

	notify(ctx, h.notifier, ports.Notification{
		Event: ports.EventDeliveryFeedback,
		Data: FeedbackPayload{
			OrderID:   session.OrderID(),
			PartnerID: session.PartnerID(),
			Rating:    command.Rating(),
			Comment:   command.Comment(),
		},
		OrderRoom: uuidPtr(session.OrderID()),
		Admins:    true,
	})
	return nil
}
