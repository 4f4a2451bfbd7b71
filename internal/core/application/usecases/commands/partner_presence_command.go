package commands

import (
	"errors"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/guard"
)

var ErrPartnerPresenceCommandIsNotConstructed = errors.New(
	"PartnerPresenceCommand must be created via NewPartnerPresenceCommand constructor",
)

// PartnerPresenceCommand reports a partner connection opening or closing.
//
// Handle identifies the connection. On disconnect it must match the registered one, so a
// late disconnect of an old connection does not take a reconnected partner offline. The
// presence sweep passes the handle it observed.
type PartnerPresenceCommand struct { //nolint:recvcheck //using for validation
	partnerID kernel.UUID
	handle    string
	online    bool

	guard guard.ConstructorGuard
}

// NewPartnerPresenceCommand creates the command.
func NewPartnerPresenceCommand(partnerID kernel.UUID, handle string, online bool) (PartnerPresenceCommand, error) {
	if err := partnerID.Validate(); err != nil {
		return PartnerPresenceCommand{}, err
	}

	return PartnerPresenceCommand{
		partnerID: partnerID,
		handle:    handle,
		online:    online,
		guard:     guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the command was created through the constructor.
func (c PartnerPresenceCommand) Validate() error {
	return c.guard.Validate(ErrPartnerPresenceCommandIsNotConstructed)
}

// PartnerID returns the partner.
func (c PartnerPresenceCommand) PartnerID() kernel.UUID {
	return c.partnerID
}

// Handle returns the connection handle.
func (c PartnerPresenceCommand) Handle() string {
	return c.handle
}

// Online reports whether the connection opened.
func (c PartnerPresenceCommand) Online() bool {
	return c.online
}
