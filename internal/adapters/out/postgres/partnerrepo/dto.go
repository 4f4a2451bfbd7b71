// Package partnerrepo persists the dispatch view of delivery partners: location,
// availability, the active order and cumulative statistics.
package partnerrepo

import (
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/partner"

	"github.com/google/uuid"
)

// PartnerDTO represents the database structure for persisting partner aggregates.
type PartnerDTO struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name              string    `gorm:"not null"`
	VehicleType       string
	VehicleNumber     string
	Lat               *float64 `gorm:"type:double precision"`
	Lng               *float64 `gorm:"type:double precision"`
	LocationUpdatedAt *time.Time
	IsOnline          bool `gorm:"index;not null;default:false"`
	IsOnDuty          bool `gorm:"not null;default:false"`
	LastSeen          time.Time
	ActiveOrderID     *uuid.UUID    `gorm:"type:uuid;index"`
	Statistics        StatisticsDTO `gorm:"embedded;embeddedPrefix:stats_"`
}

// TableName specifies the database table name for partner entities.
func (PartnerDTO) TableName() string {
	return "partners"
}

// StatisticsDTO holds the embedded delivery counters.
type StatisticsDTO struct {
	TotalDeliveries      int `gorm:"not null;default:0"`
	SuccessfulDeliveries int `gorm:"not null;default:0"`
	FailedDeliveries     int `gorm:"not null;default:0"`
	TotalRatings         int `gorm:"not null;default:0"`
	AvgRating            float64
	TotalDistanceKm      float64
}

func fromDomain(aggregate *partner.Partner) PartnerDTO {
	vehicle := aggregate.Vehicle()
	availability := aggregate.Availability()
	stats := aggregate.Statistics()

	dto := PartnerDTO{
		ID:            aggregate.ID().Bytes(),
		Name:          aggregate.Name(),
		VehicleType:   vehicle.Type,
		VehicleNumber: vehicle.Number,
		IsOnline:      availability.IsOnline,
		IsOnDuty:      availability.IsOnDuty,
		LastSeen:      availability.LastSeen,
		Statistics: StatisticsDTO{
			TotalDeliveries:      stats.TotalDeliveries,
			SuccessfulDeliveries: stats.SuccessfulDeliveries,
			FailedDeliveries:     stats.FailedDeliveries,
			TotalRatings:         stats.TotalRatings,
			AvgRating:            stats.AvgRating,
			TotalDistanceKm:      stats.TotalDistanceKm,
		},
	}

	if loc, ok := aggregate.Location(); ok {
		lat, lng := loc.Lat(), loc.Lng()
		at := aggregate.LocationUpdatedAt()
		dto.Lat, dto.Lng, dto.LocationUpdatedAt = &lat, &lng, &at
	}
	if id := aggregate.ActiveOrderID(); id != nil {
		raw := id.Bytes()
		dto.ActiveOrderID = &raw
	}

	return dto
}

func toDomain(dto PartnerDTO) (*partner.Partner, error) {
	id, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return nil, err
	}

	params := partner.RestoreParams{
		ID:      id,
		Name:    dto.Name,
		Vehicle: partner.Vehicle{Type: dto.VehicleType, Number: dto.VehicleNumber},
		Availability: partner.Availability{
			IsOnline: dto.IsOnline,
			IsOnDuty: dto.IsOnDuty,
			LastSeen: dto.LastSeen,
		},
		Statistics: partner.Statistics{
			TotalDeliveries:      dto.Statistics.TotalDeliveries,
			SuccessfulDeliveries: dto.Statistics.SuccessfulDeliveries,
			FailedDeliveries:     dto.Statistics.FailedDeliveries,
			TotalRatings:         dto.Statistics.TotalRatings,
			AvgRating:            dto.Statistics.AvgRating,
			TotalDistanceKm:      dto.Statistics.TotalDistanceKm,
		},
	}

	if dto.Lat != nil && dto.Lng != nil {
		loc, locErr := kernel.NewLocation(*dto.Lat, *dto.Lng)
		if locErr != nil {
			return nil, locErr
		}
		params.Location = &loc
		if dto.LocationUpdatedAt != nil {
			params.LocationUpdatedAt = *dto.LocationUpdatedAt
		}
	}
	if dto.ActiveOrderID != nil {
		orderID, orderErr := kernel.UUIDFromBytes((*dto.ActiveOrderID)[:])
		if orderErr != nil {
			return nil, orderErr
		}
		params.ActiveOrderID = &orderID
	}

	return partner.RestorePartner(params)
}
