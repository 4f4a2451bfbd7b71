package queries

import (
	"context"
	"database/sql"
	"errors"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrOrderRoomForbidden is returned when a customer or partner asks for the room of an
// order that is not theirs.
var ErrOrderRoomForbidden = errs.NewValueIsInvalidError("forbidden for role")

// AuthorizeOrderRoomQueryHandler checks room access against the order's customer and
// assigned partner columns.
type AuthorizeOrderRoomQueryHandler struct {
	db *gorm.DB
}

func NewAuthorizeOrderRoomQueryHandler(db *gorm.DB) AuthorizeOrderRoomQueryHandler {
	return AuthorizeOrderRoomQueryHandler{db: db}
}

// Handle returns nil when the viewer may join the room. Admins may join any room of an
// existing order.
func (h AuthorizeOrderRoomQueryHandler) Handle(ctx context.Context, query AuthorizeOrderRoomQuery) error {
	if err := query.Validate(); err != nil {
		return err
	}

	var (
		customerID uuid.UUID
		partnerID  uuid.NullUUID
	)
	row := h.db.WithContext(ctx).Raw(`
		SELECT
			customer_id,
			partner_id
		FROM orders
		WHERE id = ?
	`, query.OrderID().Bytes()).Row()
	if err := row.Scan(&customerID, &partnerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errs.NewObjectNotFoundError("order", query.OrderID().String())
		}
		return errs.NewPersistenceError("read order participants", err)
	}

	viewer := query.Viewer()
	switch viewer.Role {
	case kernel.RoleAdmin:
		return nil
	case kernel.RoleCustomer:
		if customerID == viewer.ID.Bytes() {
			return nil
		}
	case kernel.RolePartner:
		if partnerID.Valid && partnerID.UUID == viewer.ID.Bytes() {
			return nil
		}
	default:
		return kernel.ErrUnknownRole
	}
	return ErrOrderRoomForbidden
}
