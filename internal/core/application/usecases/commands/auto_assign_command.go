package commands

import (
	"errors"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/guard"
)

var ErrAutoAssignCommandIsNotConstructed = errors.New(
	"AutoAssignCommand must be created via NewAutoAssignCommand constructor",
)

// AutoAssignCommand asks the engine to give an order to the best nearby partner.
//
// Example:
//
//	cmd, err := NewAutoAssignCommand(orderID)
//	if err != nil {
//	    return err
//	}
//	session, err := handler.Handle(ctx, cmd)
type AutoAssignCommand struct { //nolint:recvcheck //using for validation
	orderID kernel.UUID

	guard guard.ConstructorGuard
}

// NewAutoAssignCommand creates the command. The order ID must be valid.
func NewAutoAssignCommand(orderID kernel.UUID) (AutoAssignCommand, error) {
	if err := orderID.Validate(); err != nil {
		return AutoAssignCommand{}, err
	}

	return AutoAssignCommand{
		orderID: orderID,
		guard:   guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the command was created through the constructor.
func (c AutoAssignCommand) Validate() error {
	return c.guard.Validate(ErrAutoAssignCommandIsNotConstructed)
}

// OrderID returns the order to assign.
func (c AutoAssignCommand) OrderID() kernel.UUID {
	return c.orderID
}
