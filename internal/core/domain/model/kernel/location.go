package kernel

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"
)

const (
	// MinLatitude is the southernmost valid latitude in degrees.
	MinLatitude = -90.0
	// MaxLatitude is the northernmost valid latitude in degrees.
	MaxLatitude = 90.0
	// MinLongitude is the westernmost valid longitude in degrees.
	MinLongitude = -180.0
	// MaxLongitude is the easternmost valid longitude in degrees.
	MaxLongitude = 180.0
)

// ErrLocationIsNotConstructed is returned when using a zero-value Location.
var ErrLocationIsNotConstructed = errs.NewValueIsRequiredError(
	"location must be created via NewLocation")

// Location is a WGS84 point with validated latitude and longitude.
// Location is an immutable value object. Out-of-range coordinates are rejected by the
// constructor, never clamped. The zero value is invalid.
//
// Example:
//
//	customer, err := kernel.NewLocation(28.60, 77.20)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(customer) // Location(28.600000,77.200000)
type Location struct { //nolint:recvcheck //using for validation
	lat   float64
	lng   float64
	guard guard.ConstructorGuard
}

// NewLocation creates a Location.
//
// Parameters:
//   - lat: latitude in degrees, within [MinLatitude..MaxLatitude]
//   - lng: longitude in degrees, within [MinLongitude..MaxLongitude]
//
// Returns:
//   - Location: a valid location
//   - error: ValueIsOutOfRangeError for every coordinate out of bounds (joined)
func NewLocation(lat, lng float64) (Location, error) {
	loc := Location{
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(loc.setLat(lat), loc.setLng(lng)); err != nil {
		return Location{}, err
	}

	return loc, nil
}

// MustNewLocation is NewLocation for literals; it panics on invalid input.
func MustNewLocation(lat, lng float64) Location {
	loc, err := NewLocation(lat, lng)
	if err != nil {
		panic(err)
	}
	return loc
}

// Validate reports whether the Location was built by NewLocation.
func (l Location) Validate() error {
	return l.guard.Validate(ErrLocationIsNotConstructed)
}

// Lat returns the latitude in degrees.
func (l Location) Lat() float64 {
	return l.lat
}

// Lng returns the longitude in degrees.
func (l Location) Lng() float64 {
	return l.lng
}

// String implements fmt.Stringer.
func (l Location) String() string {
	return fmt.Sprintf("Location(%f,%f)", l.lat, l.lng)
}

// IsEqual compares two constructed locations coordinate by coordinate.
func (l Location) IsEqual(other Location) (bool, error) {
	if err := errors.Join(l.Validate(), other.Validate()); err != nil {
		return false, err
	}

	return l.lat == other.lat && l.lng == other.lng, nil
}

type locationJSON struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// MarshalJSON encodes the location as {"lat":..,"lng":..}.
func (l Location) MarshalJSON() ([]byte, error) {
	return json.Marshal(locationJSON{Lat: l.lat, Lng: l.lng})
}

// UnmarshalJSON decodes {"lat":..,"lng":..} through NewLocation, so stored or received
// coordinates are validated on the way in.
func (l *Location) UnmarshalJSON(data []byte) error {
	var raw locationJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	loc, err := NewLocation(raw.Lat, raw.Lng)
	if err != nil {
		return err
	}
	*l = loc
	return nil
}

func (l *Location) setLat(lat float64) error {
	if lat < MinLatitude || lat > MaxLatitude || math.IsNaN(lat) {
		return errs.NewValueIsOutOfRangeError("latitude", lat, MinLatitude, MaxLatitude)
	}

	l.lat = lat
	return nil
}

func (l *Location) setLng(lng float64) error {
	if lng < MinLongitude || lng > MaxLongitude || math.IsNaN(lng) {
		return errs.NewValueIsOutOfRangeError("longitude", lng, MinLongitude, MaxLongitude)
	}

	l.lng = lng
	return nil
}
