package commands

import (
	"errors"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/tracking"
	"dispatch/internal/pkg/guard"
)

var ErrUpdateStatusCommandIsNotConstructed = errors.New(
	"UpdateStatusCommand must be created via NewUpdateStatusCommand constructor",
)

// UpdateStatusCommand is a partner's request to move its delivery to another status.
type UpdateStatusCommand struct { //nolint:recvcheck //using for validation
	partnerID kernel.UUID
	orderID   kernel.UUID
	status    tracking.Status
	details   tracking.TransitionDetails

	guard guard.ConstructorGuard
}

// NewUpdateStatusCommand validates the identifiers and parses the status name.
// Location, notes and imageProof are optional.
func NewUpdateStatusCommand(
	partnerID, orderID kernel.UUID,
	status string,
	location *kernel.Location,
	notes, imageProof string,
) (UpdateStatusCommand, error) {
	parsed, statusErr := tracking.ParseStatus(status)

	var locErr error
	if location != nil {
		locErr = location.Validate()
	}

	if err := errors.Join(partnerID.Validate(), orderID.Validate(), statusErr, locErr); err != nil {
		return UpdateStatusCommand{}, err
	}

	details := tracking.TransitionDetails{Notes: notes, Proof: imageProof}
	if location != nil {
		loc := *location
		details.Location = &loc
	}

	return UpdateStatusCommand{
		partnerID: partnerID,
		orderID:   orderID,
		status:    parsed,
		details:   details,
		guard:     guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the command was created through the constructor.
func (c UpdateStatusCommand) Validate() error {
	return c.guard.Validate(ErrUpdateStatusCommandIsNotConstructed)
}

// PartnerID returns the reporting partner.
func (c UpdateStatusCommand) PartnerID() kernel.UUID {
	return c.partnerID
}

// OrderID returns the order being updated.
func (c UpdateStatusCommand) OrderID() kernel.UUID {
	return c.orderID
}

// Status returns the target status.
func (c UpdateStatusCommand) Status() tracking.Status {
	return c.status
}

// Details returns the location, notes and proof recorded with the change.
func (c UpdateStatusCommand) Details() tracking.TransitionDetails {
	return c.details
}
