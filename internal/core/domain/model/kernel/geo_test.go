package kernel_test

import (
	"testing"
	"time"

	"dispatch/internal/core/domain/model/kernel"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocation_DistanceKm(t *testing.T) {
	t.Run("should be zero for identical points", func(t *testing.T) {
		points := []kernel.Location{
			kernel.MustNewLocation(0, 0),
			kernel.MustNewLocation(28.6, 77.2),
			kernel.MustNewLocation(-33.87, 151.21),
			kernel.MustNewLocation(90, 180),
		}

		for _, p := range points {
			d, err := p.DistanceKm(p)
			require.NoError(t, err)
			assert.Zero(t, d, p.String())
		}
	})

	t.Run("should be symmetric", func(t *testing.T) {
		pairs := [][2]kernel.Location{
			{kernel.MustNewLocation(28.60, 77.20), kernel.MustNewLocation(28.61, 77.21)},
			{kernel.MustNewLocation(51.5074, -0.1278), kernel.MustNewLocation(48.8566, 2.3522)},
			{kernel.MustNewLocation(-10, 179.9), kernel.MustNewLocation(-10, -179.9)},
		}

		for _, pair := range pairs {
			ab, err := pair[0].DistanceKm(pair[1])
			require.NoError(t, err)
			ba, err := pair[1].DistanceKm(pair[0])
			require.NoError(t, err)
			assert.InDelta(t, ab, ba, 1e-9)
		}
	})

	t.Run("should match known distances", func(t *testing.T) {
		testCases := []struct {
			name     string
			a, b     kernel.Location
			expected float64
			delta    float64
		}{
			{
				name:     "london to paris",
				a:        kernel.MustNewLocation(51.5074, -0.1278),
				b:        kernel.MustNewLocation(48.8566, 2.3522),
				expected: 343.5,
				delta:    1,
			},
			{
				name:     "one degree of latitude",
				a:        kernel.MustNewLocation(0, 0),
				b:        kernel.MustNewLocation(1, 0),
				expected: 111.19,
				delta:    0.01,
			},
			{
				name:     "store to nearby customer",
				a:        kernel.MustNewLocation(28.61, 77.21),
				b:        kernel.MustNewLocation(28.60, 77.20),
				expected: 1.48,
				delta:    0.01,
			},
		}

		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				d, err := tc.a.DistanceKm(tc.b)

				require.NoError(t, err)
				assert.InDelta(t, tc.expected, d, tc.delta)
			})
		}
	})

	t.Run("should reject unconstructed locations", func(t *testing.T) {
		_, err := kernel.MustNewLocation(1, 1).DistanceKm(kernel.Location{})

		require.ErrorIs(t, err, kernel.ErrLocationIsNotConstructed)
	})
}

func TestBoundingBoxAround(t *testing.T) {
	center := kernel.MustNewLocation(28.60, 77.20)

	box := kernel.BoundingBoxAround(center, 10)

	assert.InDelta(t, 10/kernel.KmPerDegreeLat, box.MaxLat-center.Lat(), 1e-9)
	assert.Greater(t, box.MaxLng-center.Lng(), box.MaxLat-center.Lat(), "longitude span widens away from equator")
	assert.True(t, box.Contains(center))
	assert.True(t, box.Contains(kernel.MustNewLocation(28.61, 77.21)))
	assert.False(t, box.Contains(kernel.MustNewLocation(28.80, 77.20)))
	assert.False(t, box.Contains(kernel.MustNewLocation(28.60, 77.50)))

	t.Run("should contain every point within radius", func(t *testing.T) {
		inside := []kernel.Location{
			kernel.MustNewLocation(28.68, 77.20),
			kernel.MustNewLocation(28.60, 77.29),
			kernel.MustNewLocation(28.55, 77.15),
		}
		for _, p := range inside {
			d, err := center.DistanceKm(p)
			require.NoError(t, err)
			require.LessOrEqual(t, d, 10.0)
			assert.True(t, box.Contains(p), p.String())
		}
	})
}

func TestETA(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		name     string
		distance float64
		speed    float64
		expected time.Duration
	}{
		{"uses reported speed", 5, 20, 15 * time.Minute},
		{"zero speed falls back", 5, 0, 10 * time.Minute},
		{"speed at threshold falls back", 5, kernel.MinSpeedThresholdKmh, 10 * time.Minute},
		{"negative speed falls back", 15, -3, 30 * time.Minute},
		{"zero distance", 0, 20, 0},
		{"negative distance treated as zero", -4, 20, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			eta := kernel.ETA(now, tc.distance, tc.speed)

			assert.Equal(t, now.Add(tc.expected), eta)
		})
	}
}
