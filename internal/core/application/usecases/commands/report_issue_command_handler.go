package commands

import (
	"context"

	"dispatch/internal/core/domain/model/tracking"
	"dispatch/internal/core/domain/services"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/keylock"
)

// ReportIssueCommandHandler appends an issue to the session. The status does not change.
type ReportIssueCommandHandler struct {
	writer   sessionWriter
	notifier ports.Notifier
	clock    Clock
}

// NewReportIssueCommandHandler creates the handler.
func NewReportIssueCommandHandler(
	uowFactory UoWFactory,
	locker *keylock.Locker,
	notifier ports.Notifier,
	clock Clock,
) ReportIssueCommandHandler {
	return ReportIssueCommandHandler{
		writer: sessionWriter{
			uowFactory: uowFactory,
			locker:     locker,
			dispatcher: services.NewOrderDispatcher(nil, 0, 0),
		},
		notifier: notifier,
		clock:    clock,
	}
}

// Handle processes the report and returns the stored issue.
// Returns tracking.ErrTerminalState for a finished delivery.
func (h ReportIssueCommandHandler) Handle(ctx context.Context, command ReportIssueCommand) (tracking.Issue, error) {
	if err := command.Validate(); err != nil {
		return tracking.Issue{}, err
	}

	var issue tracking.Issue
	now := h.clock.now()
	session, err := h.writer.mutate(ctx, command.OrderID(), func(_ UoW, session tracking.Session) (tracking.Session, error) {
		if err := ensurePartner(session, command.PartnerID()); err != nil {
			return session, err
		}
		next, reported, err := session.ReportIssue(command.IssueType(), command.Description(), now)
		if err != nil {
			return session, err
		}
		issue = reported
		return next, nil
	})
	if err != nil {
		return tracking.Issue{}, err
	}

	notify(ctx, h.notifier, ports.Notification{
		Event: ports.EventDeliveryIssueReported,
		Data: IssueReportedPayload{
			OrderID:   session.OrderID(),
			PartnerID: session.PartnerID(),
			Issue:     issue,
		},
		OrderRoom: uuidPtr(session.OrderID()),
		Admins:    true,
	})
	return issue, nil
}
