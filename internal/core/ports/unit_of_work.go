package ports

import (
	"context"
)

// UnitOfWorkFactory hands out a fresh UnitOfWork per command.
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// UnitOfWork spans one database transaction over the order, partner and session tables.
// Callers open it with Begin and always end it with Commit or Rollback; a Rollback after
// Commit is harmless and only returns an error.
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	// The repositories below share the transaction opened by Begin.
	OrderRepository() OrderRepository
	PartnerRepository() PartnerRepository
	SessionRepository() SessionRepository
}
