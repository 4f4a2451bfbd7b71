// Package orderrepo maps the order record the dispatch engine reads and writes onto the
// orders table. The engine never creates orders; Add exists for seeding and tests.
package orderrepo

import (
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"

	"github.com/google/uuid"
)

// OrderDTO represents the database structure for persisting the dispatch view of an order.
type OrderDTO struct {
	ID                    uuid.UUID   `gorm:"type:uuid;primaryKey"`
	CustomerID            uuid.UUID   `gorm:"type:uuid;index;not null"`
	Store                 LocationDTO `gorm:"embedded;embeddedPrefix:store_"`
	Delivery              LocationDTO `gorm:"embedded;embeddedPrefix:delivery_"`
	Status                string      `gorm:"type:varchar(32);index;not null"`
	PartnerID             *uuid.UUID  `gorm:"type:uuid;index"`
	OTP                   *OTPDTO     `gorm:"type:jsonb;serializer:json"`
	EstimatedDeliveryTime *time.Time
	UpdatedAt             time.Time
}

// TableName specifies the database table name for order entities.
func (OrderDTO) TableName() string {
	return "orders"
}

// LocationDTO is an embedded latitude/longitude pair.
type LocationDTO struct {
	Lat float64 `gorm:"type:double precision"`
	Lng float64 `gorm:"type:double precision"`
}

// OTPDTO is the stored delivery code.
type OTPDTO struct {
	Code       string     `json:"code"`
	ExpiresAt  time.Time  `json:"expiresAt"`
	Verified   bool       `json:"verified"`
	VerifiedAt *time.Time `json:"verifiedAt,omitempty"`
}

func fromDomain(aggregate *order.Order) OrderDTO {
	dto := OrderDTO{
		ID:                    aggregate.ID().Bytes(),
		CustomerID:            aggregate.CustomerID().Bytes(),
		Store:                 locationDTO(aggregate.StoreLocation()),
		Delivery:              locationDTO(aggregate.DeliveryLocation()),
		Status:                string(aggregate.Status()),
		EstimatedDeliveryTime: aggregate.EstimatedDeliveryTime(),
	}

	if id := aggregate.AssignedPartner(); id != nil {
		raw := id.Bytes()
		dto.PartnerID = &raw
	}
	if otp := aggregate.OTP(); otp != nil {
		dto.OTP = &OTPDTO{
			Code:       otp.Code(),
			ExpiresAt:  otp.ExpiresAt(),
			Verified:   otp.Verified(),
			VerifiedAt: otp.VerifiedAt(),
		}
	}

	return dto
}

func toDomain(dto OrderDTO) (*order.Order, error) {
	id, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return nil, err
	}
	customerID, err := kernel.UUIDFromBytes(dto.CustomerID[:])
	if err != nil {
		return nil, err
	}
	store, err := kernel.NewLocation(dto.Store.Lat, dto.Store.Lng)
	if err != nil {
		return nil, err
	}
	delivery, err := kernel.NewLocation(dto.Delivery.Lat, dto.Delivery.Lng)
	if err != nil {
		return nil, err
	}
	status, err := order.ParseStatus(dto.Status)
	if err != nil {
		return nil, err
	}

	params := order.RestoreParams{
		ID:                    id,
		CustomerID:            customerID,
		StoreLocation:         store,
		DeliveryLocation:      delivery,
		Status:                status,
		EstimatedDeliveryTime: dto.EstimatedDeliveryTime,
	}

	if dto.PartnerID != nil {
		partnerID, partnerErr := kernel.UUIDFromBytes((*dto.PartnerID)[:])
		if partnerErr != nil {
			return nil, partnerErr
		}
		params.AssignedPartnerID = &partnerID
	}
	if dto.OTP != nil {
		otp, otpErr := kernel.RestoreOTP(dto.OTP.Code, dto.OTP.ExpiresAt, dto.OTP.Verified, dto.OTP.VerifiedAt)
		if otpErr != nil {
			return nil, otpErr
		}
		params.OTP = &otp
	}

	return order.RestoreOrder(params)
}

func locationDTO(loc kernel.Location) LocationDTO {
	return LocationDTO{Lat: loc.Lat(), Lng: loc.Lng()}
}
