package kernel

import (
	"errors"
	"math"
	"time"
)

const (
	// EarthRadiusKm is the mean Earth radius used by the haversine formula.
	EarthRadiusKm = 6371.0

	// KmPerDegreeLat is the length of one degree of latitude.
	KmPerDegreeLat = 111.32

	// MinSpeedThresholdKmh is the lowest reported speed trusted for ETA arithmetic.
	// Anything at or below it (including 0) is replaced by FallbackSpeedKmh.
	MinSpeedThresholdKmh = 1.0

	// FallbackSpeedKmh is the nominal urban delivery speed.
	FallbackSpeedKmh = 30.0
)

// DistanceKm returns the great-circle (haversine) distance between two locations.
//
// The result is 0 for identical points and symmetric in its arguments.
// Both locations must be constructed; coordinates are range-checked at construction,
// so no clamping happens here.
//
// Example:
//
//	store := kernel.MustNewLocation(28.61, 77.21)
//	customer := kernel.MustNewLocation(28.60, 77.20)
//	km, err := store.DistanceKm(customer) // ≈ 1.48
func (l Location) DistanceKm(other Location) (float64, error) {
	if err := errors.Join(l.Validate(), other.Validate()); err != nil {
		return 0, err
	}

	if l.lat == other.lat && l.lng == other.lng {
		return 0, nil
	}

	lat1 := degreesToRadians(l.lat)
	lat2 := degreesToRadians(other.lat)
	dLat := lat2 - lat1
	dLng := degreesToRadians(other.lng - l.lng)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c, nil
}

// BoundingBox is a latitude/longitude rectangle used as a cheap pre-filter before the
// exact haversine check.
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

// BoundingBoxAround returns the box spanning radiusKm in every direction from center.
// Longitude span is corrected by cos(latitude). The approximation degrades near the
// poles and across the ±180° meridian.
func BoundingBoxAround(center Location, radiusKm float64) BoundingBox {
	latDelta := radiusKm / KmPerDegreeLat

	cosLat := math.Cos(degreesToRadians(center.lat))
	lngDelta := MaxLongitude
	if cosLat > 1e-9 {
		lngDelta = radiusKm / (KmPerDegreeLat * cosLat)
	}

	return BoundingBox{
		MinLat: center.lat - latDelta,
		MaxLat: center.lat + latDelta,
		MinLng: center.lng - lngDelta,
		MaxLng: center.lng + lngDelta,
	}
}

// Contains reports whether loc lies inside the box, edges included.
func (b BoundingBox) Contains(loc Location) bool {
	return loc.lat >= b.MinLat && loc.lat <= b.MaxLat &&
		loc.lng >= b.MinLng && loc.lng <= b.MaxLng
}

// ETA returns now + distanceKm / effectiveSpeed.
//
// effectiveSpeed is speedKmh when it exceeds MinSpeedThresholdKmh and FallbackSpeedKmh
// otherwise, so a stationary or unknown speed never yields an unbounded ETA.
// Negative distances are treated as zero.
//
// Example:
//
//	eta := kernel.ETA(now, 5, 0)  // now + 10m (fallback 30 km/h)
//	eta = kernel.ETA(now, 5, 20)  // now + 15m
func ETA(now time.Time, distanceKm, speedKmh float64) time.Time {
	return now.Add(TravelTime(distanceKm, speedKmh))
}

// TravelTime is the duration part of ETA.
func TravelTime(distanceKm, speedKmh float64) time.Duration {
	if distanceKm <= 0 || math.IsNaN(distanceKm) {
		return 0
	}

	speed := FallbackSpeedKmh
	if speedKmh > MinSpeedThresholdKmh && !math.IsInf(speedKmh, 0) {
		speed = speedKmh
	}

	hours := distanceKm / speed
	return time.Duration(math.Round(hours * float64(time.Hour)))
}

func degreesToRadians(d float64) float64 {
	return d * math.Pi / 180
}
