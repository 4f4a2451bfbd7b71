// Package sessionrepo stores tracking sessions as JSON documents keyed by order id.
//
// The document column holds tracking.Snapshot verbatim. partner_id and status are copied
// out of it so the active session of a partner can be found without scanning documents,
// and version carries the optimistic lock.
package sessionrepo

import (
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/tracking"

	"github.com/google/uuid"
)

// SessionDTO represents one row of tracking_sessions.
type SessionDTO struct {
	OrderID   uuid.UUID         `gorm:"type:uuid;primaryKey"`
	PartnerID uuid.UUID         `gorm:"type:uuid;index:idx_sessions_partner_status;not null"`
	Status    string            `gorm:"type:varchar(32);index:idx_sessions_partner_status;not null"`
	Version   int64             `gorm:"not null"`
	Document  tracking.Snapshot `gorm:"type:jsonb;serializer:json;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName specifies the database table name for tracking sessions.
func (SessionDTO) TableName() string {
	return "tracking_sessions"
}

func fromDomain(session tracking.Session) SessionDTO {
	snap := session.Snapshot()
	return SessionDTO{
		OrderID:   snap.OrderID.Bytes(),
		PartnerID: snap.PartnerID.Bytes(),
		Status:    string(snap.Status),
		Version:   snap.Version,
		Document:  snap,
		CreatedAt: snap.CreatedAt,
		UpdatedAt: snap.UpdatedAt,
	}
}

func toDomain(dto SessionDTO) (tracking.Session, error) {
	snap := dto.Document
	snap.Version = dto.Version
	return tracking.RestoreSession(snap)
}

func terminalStatuses() []string {
	return []string{
		string(tracking.Delivered),
		string(tracking.Failed),
		string(tracking.Returned),
		string(tracking.Cancelled),
	}
}

func orderKey(id kernel.UUID) uuid.UUID {
	return id.Bytes()
}
