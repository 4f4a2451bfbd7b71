package commands

import (
	"errors"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/guard"
)

var ErrToggleAvailabilityCommandIsNotConstructed = errors.New(
	"ToggleAvailabilityCommand must be created via NewToggleAvailabilityCommand constructor",
)

// ToggleAvailabilityCommand starts or ends a partner's shift.
type ToggleAvailabilityCommand struct { //nolint:recvcheck //using for validation
	partnerID kernel.UUID
	onDuty    bool

	guard guard.ConstructorGuard
}

// NewToggleAvailabilityCommand creates the command. The partner ID must be valid.
func NewToggleAvailabilityCommand(partnerID kernel.UUID, onDuty bool) (ToggleAvailabilityCommand, error) {
	if err := partnerID.Validate(); err != nil {
		return ToggleAvailabilityCommand{}, err
	}

	return ToggleAvailabilityCommand{
		partnerID: partnerID,
		onDuty:    onDuty,
		guard:     guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the command was created through the constructor.
func (c ToggleAvailabilityCommand) Validate() error {
	return c.guard.Validate(ErrToggleAvailabilityCommandIsNotConstructed)
}

// PartnerID returns the partner.
func (c ToggleAvailabilityCommand) PartnerID() kernel.UUID {
	return c.partnerID
}

// OnDuty returns the requested duty flag.
func (c ToggleAvailabilityCommand) OnDuty() bool {
	return c.onDuty
}
