package ports

import (
	"context"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/tracking"
)

// SessionRepository stores tracking sessions as whole documents keyed by order id.
type SessionRepository interface {
	// Add stores a new session. A second session for the same order is rejected with
	// errs.ConflictError.
	Add(ctx context.Context, session tracking.Session) (tracking.Session, error)

	// Update replaces the stored document if its version still equals session.Version().
	// Returns the session stamped with the new version, or errs.VersionIsInvalidError
	// when another writer got there first.
	Update(ctx context.Context, session tracking.Session) (tracking.Session, error)

	// Get retrieves the session of an order.
	Get(ctx context.Context, orderID kernel.UUID) (tracking.Session, error)

	// GetActiveByPartner retrieves the partner's non-terminal session, if any.
	// Returns errs.ObjectNotFoundError when the partner is free.
	GetActiveByPartner(ctx context.Context, partnerID kernel.UUID) (tracking.Session, error)
}
