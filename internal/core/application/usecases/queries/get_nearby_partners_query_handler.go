package queries

import (
	"context"

	"dispatch/internal/core/ports"
)

// GetNearbyPartnersQueryHandler answers from the in-memory registry. Only connected,
// on-duty, free partners are listed, best candidate first.
type GetNearbyPartnersQueryHandler struct {
	registry ports.PartnerRegistry
}

// NewGetNearbyPartnersQueryHandler creates the handler.
func NewGetNearbyPartnersQueryHandler(registry ports.PartnerRegistry) GetNearbyPartnersQueryHandler {
	return GetNearbyPartnersQueryHandler{registry: registry}
}

// Handle runs the search.
func (h GetNearbyPartnersQueryHandler) Handle(
	_ context.Context,
	query GetNearbyPartnersQuery,
) ([]NearbyPartner, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	candidates := h.registry.FindNearby(query.Location(), query.RadiusKm())
	partners := make([]NearbyPartner, 0, len(candidates))
	for _, c := range candidates {
		if c.Location == nil {
			continue
		}
		partners = append(partners, NearbyPartner{
			PartnerID:   c.PartnerID,
			Location:    *c.Location,
			DistanceKm:  c.DistanceKm,
			Rating:      c.Rating,
			ActiveCount: c.ActiveCount,
		})
	}

	return partners, nil
}
