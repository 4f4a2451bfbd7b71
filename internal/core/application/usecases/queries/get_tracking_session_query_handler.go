package queries

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/tracking"
	"dispatch/internal/pkg/errs"

	"gorm.io/gorm"
)

// ErrSessionNotVisible is returned when the viewer is not a participant of the order.
// It is reported as not found so order ids cannot be enumerated.
var ErrSessionNotVisible = errs.NewObjectNotFoundError("session", "not visible to viewer")

// GetTrackingSessionQueryHandler reads the session document straight from
// tracking_sessions without restoring the aggregate.
type GetTrackingSessionQueryHandler struct {
	db *gorm.DB
}

// NewGetTrackingSessionQueryHandler creates the handler.
func NewGetTrackingSessionQueryHandler(db *gorm.DB) GetTrackingSessionQueryHandler {
	return GetTrackingSessionQueryHandler{db: db}
}

// Handle returns the session snapshot as the viewer is allowed to see it.
func (h GetTrackingSessionQueryHandler) Handle(
	ctx context.Context,
	query GetTrackingSessionQuery,
) (tracking.Snapshot, error) {
	if err := query.Validate(); err != nil {
		return tracking.Snapshot{}, err
	}

	var (
		version  int64
		document []byte
	)
	row := h.db.WithContext(ctx).Raw(`
		SELECT
			version,
			document
		FROM tracking_sessions
		WHERE order_id = ?
	`, query.OrderID().Bytes()).Row()
	if err := row.Scan(&version, &document); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return tracking.Snapshot{}, errs.NewObjectNotFoundError("session", query.OrderID().String())
		}
		return tracking.Snapshot{}, errs.NewPersistenceError("read session", err)
	}

	var snapshot tracking.Snapshot
	if err := json.Unmarshal(document, &snapshot); err != nil {
		return tracking.Snapshot{}, errs.NewPersistenceError("decode session", err)
	}
	snapshot.Version = version

	return visibleTo(snapshot, query.Viewer())
}

func visibleTo(snapshot tracking.Snapshot, viewer kernel.Principal) (tracking.Snapshot, error) {
	switch viewer.Role {
	case kernel.RoleCustomer:
		if !snapshot.CustomerID.IsEqual(viewer.ID) {
			return tracking.Snapshot{}, ErrSessionNotVisible
		}
		return snapshot, nil
	case kernel.RolePartner:
		if !snapshot.PartnerID.IsEqual(viewer.ID) {
			return tracking.Snapshot{}, ErrSessionNotVisible
		}
		return snapshot.WithoutOTP(), nil
	case kernel.RoleAdmin:
		return snapshot.WithoutOTP(), nil
	default:
		return tracking.Snapshot{}, kernel.ErrUnknownRole
	}
}
