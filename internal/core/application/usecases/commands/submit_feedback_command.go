package commands

import (
	"errors"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/partner"
	"dispatch/internal/pkg/guard"
)

var ErrSubmitFeedbackCommandIsNotConstructed = errors.New(
	"SubmitFeedbackCommand must be created via NewSubmitFeedbackCommand constructor",
)

// SubmitFeedbackCommand is a customer's rating of a delivered order.
type SubmitFeedbackCommand struct { //nolint:recvcheck //using for validation
	customerID kernel.UUID
	orderID    kernel.UUID
	rating     int
	comment    string

	guard guard.ConstructorGuard
}

// NewSubmitFeedbackCommand validates the identifiers and the 1..5 rating.
func NewSubmitFeedbackCommand(customerID, orderID kernel.UUID, rating int, comment string) (SubmitFeedbackCommand, error) {
	if err := errors.Join(
		customerID.Validate(),
		orderID.Validate(),
		partner.ValidateRating(rating),
	); err != nil {
		return SubmitFeedbackCommand{}, err
	}

	return SubmitFeedbackCommand{
		customerID: customerID,
		orderID:    orderID,
		rating:     rating,
		comment:    comment,
		guard:      guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the command was created through the constructor.
func (c SubmitFeedbackCommand) Validate() error {
	return c.guard.Validate(ErrSubmitFeedbackCommandIsNotConstructed)
}

// CustomerID returns the rating customer.
func (c SubmitFeedbackCommand) CustomerID() kernel.UUID {
	return c.customerID
}

// OrderID returns the rated order.
func (c SubmitFeedbackCommand) OrderID() kernel.UUID {
	return c.orderID
}

// Rating returns the 1..5 score.
func (c SubmitFeedbackCommand) Rating() int {
	return c.rating
}

// Comment returns the optional comment.
func (c SubmitFeedbackCommand) Comment() string {
	return c.comment
}
