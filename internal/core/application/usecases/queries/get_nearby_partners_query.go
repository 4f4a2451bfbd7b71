package queries

import (
	"errors"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"
)

// MaxNearbyRadiusKm bounds an admin nearby search.
const MaxNearbyRadiusKm = 100.0

var (
	ErrGetNearbyPartnersQueryIsNotConstructed = errors.New(
		"GetNearbyPartnersQuery must be created via NewGetNearbyPartnersQuery constructor",
	)
)

// GetNearbyPartnersQuery lists assignable partners around a point.
type GetNearbyPartnersQuery struct {
	location kernel.Location
	radiusKm float64

	guard guard.ConstructorGuard
}

// NewGetNearbyPartnersQuery validates the point and the radius (0, MaxNearbyRadiusKm].
func NewGetNearbyPartnersQuery(lat, lng, radiusKm float64) (GetNearbyPartnersQuery, error) {
	location, locErr := kernel.NewLocation(lat, lng)
	var radiusErr error
	if radiusKm <= 0 || radiusKm > MaxNearbyRadiusKm {
		radiusErr = errs.NewValueIsOutOfRangeError("radiusKm", radiusKm, 0, MaxNearbyRadiusKm)
	}
	if err := errors.Join(locErr, radiusErr); err != nil {
		return GetNearbyPartnersQuery{}, err
	}

	return GetNearbyPartnersQuery{
		location: location,
		radiusKm: radiusKm,
		guard:    guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the query was created through the constructor.
func (q GetNearbyPartnersQuery) Validate() error {
	return q.guard.Validate(ErrGetNearbyPartnersQueryIsNotConstructed)
}

// Location returns the search center.
func (q GetNearbyPartnersQuery) Location() kernel.Location {
	return q.location
}

// RadiusKm returns the search radius.
func (q GetNearbyPartnersQuery) RadiusKm() float64 {
	return q.radiusKm
}

// NearbyPartner is one row of the nearby read model.
type NearbyPartner struct {
	PartnerID   kernel.UUID     `json:"partnerId"`
	Location    kernel.Location `json:"location"`
	DistanceKm  float64         `json:"distanceKm"`
	Rating      float64         `json:"rating"`
	ActiveCount int             `json:"activeCount"`
}
