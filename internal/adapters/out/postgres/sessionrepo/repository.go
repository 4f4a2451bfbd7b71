package sessionrepo

import (
	"context"
	"errors"
	"fmt"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/tracking"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"

	"gorm.io/gorm"
)

var _ ports.SessionRepository = (*GormSessionRepository)(nil)

// ErrSessionAlreadyExists is returned when an order already has a tracking session.
var ErrSessionAlreadyExists = errs.NewConflictError("session", "session already exists for order")

// GormSessionRepository implements SessionRepository using GORM.
type GormSessionRepository struct {
	db      *gorm.DB
	tracker aggregateTracker
}

type aggregateTracker interface {
	TrackAggregate(id kernel.UUID, aggregate any)
}

// NewGormSessionRepository creates a new GORM session repository.
func NewGormSessionRepository(db *gorm.DB, tracker aggregateTracker) *GormSessionRepository {
	return &GormSessionRepository{
		db:      db,
		tracker: tracker,
	}
}

// Add stores a new session at version 1.
func (r *GormSessionRepository) Add(ctx context.Context, session tracking.Session) (tracking.Session, error) {
	if err := session.Validate(); err != nil {
		return tracking.Session{}, err
	}

	stored := session.WithVersion(1)
	dto := fromDomain(stored)
	if err := r.db.WithContext(ctx).Create(&dto).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return tracking.Session{}, ErrSessionAlreadyExists
		}
		return tracking.Session{}, errs.NewPersistenceError("add session", err)
	}

	r.tracker.TrackAggregate(stored.OrderID(), stored)
	return stored, nil
}

// Update replaces the document when the stored version still equals session.Version().
func (r *GormSessionRepository) Update(ctx context.Context, session tracking.Session) (tracking.Session, error) {
	if err := session.Validate(); err != nil {
		return tracking.Session{}, err
	}

	expected := session.Version()
	stored := session.WithVersion(expected + 1)
	dto := fromDomain(stored)

	result := r.db.WithContext(ctx).
		Model(&SessionDTO{}).
		Where("order_id = ? AND version = ?", dto.OrderID, expected).
		Select("status", "version", "document", "updated_at").
		Updates(&dto)
	if result.Error != nil {
		return tracking.Session{}, errs.NewPersistenceError("update session", result.Error)
	}

	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&SessionDTO{}).
			Where("order_id = ?", dto.OrderID).Count(&count).Error; err != nil {
			return tracking.Session{}, errs.NewPersistenceError("update session", err)
		}
		if count == 0 {
			return tracking.Session{}, errs.NewObjectNotFoundError("session", session.OrderID().String())
		}
		return tracking.Session{}, errs.NewVersionIsInvalidError("session",
			fmt.Errorf("expected version %d for order %s", expected, session.OrderID()))
	}

	r.tracker.TrackAggregate(stored.OrderID(), stored)
	return stored, nil
}

// Get retrieves the session of an order.
func (r *GormSessionRepository) Get(ctx context.Context, orderID kernel.UUID) (tracking.Session, error) {
	if err := orderID.Validate(); err != nil {
		return tracking.Session{}, err
	}

	var dto SessionDTO
	if err := r.db.WithContext(ctx).First(&dto, "order_id = ?", orderKey(orderID)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tracking.Session{}, errs.NewObjectNotFoundError("session", orderID.String())
		}
		return tracking.Session{}, errs.NewPersistenceError("get session", err)
	}

	return toDomain(dto)
}

// GetActiveByPartner retrieves the partner's most recent non-terminal session.
func (r *GormSessionRepository) GetActiveByPartner(
	ctx context.Context,
	partnerID kernel.UUID,
) (tracking.Session, error) {
	if err := partnerID.Validate(); err != nil {
		return tracking.Session{}, err
	}

	var dto SessionDTO
	err := r.db.WithContext(ctx).
		Where("partner_id = ? AND status NOT IN ?", partnerID.Bytes(), terminalStatuses()).
		Order("created_at DESC").
		First(&dto).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tracking.Session{}, errs.NewObjectNotFoundError("session", partnerID.String())
		}
		return tracking.Session{}, errs.NewPersistenceError("get active session", err)
	}

	return toDomain(dto)
}
