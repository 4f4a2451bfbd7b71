// Package ports defines the contracts between the dispatch core and its collaborators:
// the order and partner records, the tracking session store, the partner registry and
// the realtime notifier. Adapters implement them; command handlers depend on them.
package ports

import (
	"context"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
)

// OrderRepository is the order collaborator as seen by the dispatch core.
// The core reads delivery coordinates and the OTP, and writes the status, the OTP
// verification flag and the assignment fields. It never creates or deletes orders.
type OrderRepository interface {
	// Get retrieves an order by its identifier.
	// Returns errs.ObjectNotFoundError when the order does not exist.
	Get(ctx context.Context, id kernel.UUID) (*order.Order, error)

	// Update writes the status, assignment, OTP and ETA fields of an order.
	Update(ctx context.Context, aggregate *order.Order) error
}
