package queries_test

import (
	"testing"
	"time"

	"dispatch/internal/core/application/usecases/queries"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/ports"
	"dispatch/internal/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetNearbyPartnersQueryHandler_Handle(t *testing.T) {
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	reg := registry.New(4)

	online := func(lat, lng, rating float64) kernel.UUID {
		id := kernel.NewUUID()
		loc := kernel.MustNewLocation(lat, lng)
		reg.SetOnline(id, "conn-"+id.String(), ports.PresenceSnapshot{
			OnDuty: true, Location: &loc, LocationAt: now, Rating: rating,
		}, now)
		return id
	}

	near := online(28.601, 77.201, 4.0)
	better := online(28.61, 77.21, 4.9)
	busy := online(28.602, 77.202, 5.0)
	require.NoError(t, reg.Claim(busy, kernel.NewUUID()))
	online(28.90, 77.50, 5.0) // ~40 km away

	handler := queries.NewGetNearbyPartnersQueryHandler(reg)
	query, err := queries.NewGetNearbyPartnersQuery(28.60, 77.20, 5)
	require.NoError(t, err)

	result, err := handler.Handle(t.Context(), query)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, better, result[0].PartnerID)
	assert.Equal(t, near, result[1].PartnerID)
	assert.Less(t, result[1].DistanceKm, result[0].DistanceKm)
	for _, p := range result {
		assert.NotEqual(t, busy, p.PartnerID)
		assert.LessOrEqual(t, p.DistanceKm, 5.0)
	}
}

func TestGetNearbyPartnersQueryHandler_EmptyRegistry(t *testing.T) {
	handler := queries.NewGetNearbyPartnersQueryHandler(registry.New(0))
	query, err := queries.NewGetNearbyPartnersQuery(28.60, 77.20, 5)
	require.NoError(t, err)

	result, err := handler.Handle(t.Context(), query)
	require.NoError(t, err)
	assert.NotNil(t, result)
	assert.Empty(t, result)
}

func TestGetNearbyPartnersQueryHandler_RejectsZeroQuery(t *testing.T) {
	handler := queries.NewGetNearbyPartnersQueryHandler(registry.New(0))
	_, err := handler.Handle(t.Context(), queries.GetNearbyPartnersQuery{})
	require.ErrorIs(t, err, queries.ErrGetNearbyPartnersQueryIsNotConstructed)
}
