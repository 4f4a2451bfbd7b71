package commands

import (
	"errors"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"
)

var ErrVerifyOTPCommandIsNotConstructed = errors.New(
	"VerifyOTPCommand must be created via NewVerifyOTPCommand constructor",
)

// VerifyOTPCommand carries the code a customer read from the partner at the door.
type VerifyOTPCommand struct { //nolint:recvcheck //using for validation
	orderID    kernel.UUID
	customerID *kernel.UUID
	code       string

	guard guard.ConstructorGuard
}

// NewVerifyOTPCommand validates the command. A nil customerID skips the ownership check
// and is meant for trusted service callers. An empty code is rejected here; a code of the
// wrong shape is reported as a mismatch by the session.
func NewVerifyOTPCommand(orderID kernel.UUID, customerID *kernel.UUID, code string) (VerifyOTPCommand, error) {
	var customerErr, codeErr error
	if customerID != nil {
		customerErr = customerID.Validate()
	}
	if code == "" {
		codeErr = errs.NewValueIsRequiredError("otp")
	}
	if err := errors.Join(orderID.Validate(), customerErr, codeErr); err != nil {
		return VerifyOTPCommand{}, err
	}

	cmd := VerifyOTPCommand{
		orderID: orderID,
		code:    code,
		guard:   guard.NewConstructorGuard(),
	}
	if customerID != nil {
		id := *customerID
		cmd.customerID = &id
	}
	return cmd, nil
}

// Validate ensures the command was created through the constructor.
func (c VerifyOTPCommand) Validate() error {
	return c.guard.Validate(ErrVerifyOTPCommandIsNotConstructed)
}

// OrderID returns the order being delivered.
func (c VerifyOTPCommand) OrderID() kernel.UUID {
	return c.orderID
}

// CustomerID returns the submitting customer, nil for service callers.
func (c VerifyOTPCommand) CustomerID() *kernel.UUID {
	return c.customerID
}

// Code returns the submitted code.
func (c VerifyOTPCommand) Code() string {
	return c.code
}
