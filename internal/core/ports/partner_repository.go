package ports

import (
	"context"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/partner"
)

// PartnerRepository is the partner collaborator as seen by the dispatch core.
// Only location, availability, active order and statistics are written.
type PartnerRepository interface {
	// Get retrieves a partner by its identifier.
	Get(ctx context.Context, id kernel.UUID) (*partner.Partner, error)

	// GetForUpdate retrieves a partner and locks its row until the transaction ends.
	// Assignment uses it so the durable availability check and flip cannot interleave
	// with another assignment of the same partner.
	GetForUpdate(ctx context.Context, id kernel.UUID) (*partner.Partner, error)

	// Update writes location, availability, active order and statistics.
	Update(ctx context.Context, aggregate *partner.Partner) error

	// MarkAllOffline clears the online flag of every partner. Connections do not survive a
	// restart, so the process calls it once on startup.
	MarkAllOffline(ctx context.Context) (int64, error)
}
