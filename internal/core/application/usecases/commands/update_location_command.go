package commands

import (
	"errors"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/tracking"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"
)

var ErrUpdateLocationCommandIsNotConstructed = errors.New(
	"UpdateLocationCommand must be created via NewUpdateLocationCommand constructor",
)

// UpdateLocationParams is the raw location report of a partner.
type UpdateLocationParams struct {
	PartnerID kernel.UUID
	// OrderID is the order the partner says it is delivering. Nil means "use the
	// registry's active order, if any".
	OrderID   *kernel.UUID
	Latitude  float64
	Longitude float64
	Speed     float64
	Heading   float64
	Accuracy  float64
}

// UpdateLocationCommand is a validated location report.
type UpdateLocationCommand struct { //nolint:recvcheck //using for validation
	partnerID kernel.UUID
	orderID   *kernel.UUID
	location  kernel.Location
	speed     float64
	heading   float64
	accuracy  float64

	guard guard.ConstructorGuard
}

// NewUpdateLocationCommand validates the report.
//
// Returns:
//   - UpdateLocationCommand: The command
//   - error: Joined validation errors for the partner ID, the order ID, the coordinates
//     and negative speed or accuracy
func NewUpdateLocationCommand(params UpdateLocationParams) (UpdateLocationCommand, error) {
	location, locErr := kernel.NewLocation(params.Latitude, params.Longitude)

	var orderErr error
	if params.OrderID != nil {
		orderErr = params.OrderID.Validate()
	}

	var speedErr, accuracyErr error
	if params.Speed < 0 {
		speedErr = errs.NewValueIsInvalidError("speed")
	}
	if params.Accuracy < 0 {
		accuracyErr = errs.NewValueIsInvalidError("accuracy")
	}

	if err := errors.Join(params.PartnerID.Validate(), orderErr, locErr, speedErr, accuracyErr); err != nil {
		return UpdateLocationCommand{}, err
	}

	cmd := UpdateLocationCommand{
		partnerID: params.PartnerID,
		location:  location,
		speed:     params.Speed,
		heading:   params.Heading,
		accuracy:  params.Accuracy,
		guard:     guard.NewConstructorGuard(),
	}
	if params.OrderID != nil {
		id := *params.OrderID
		cmd.orderID = &id
	}
	return cmd, nil
}

// Validate ensures the command was created through the constructor.
func (c UpdateLocationCommand) Validate() error {
	return c.guard.Validate(ErrUpdateLocationCommandIsNotConstructed)
}

// PartnerID returns the reporting partner.
func (c UpdateLocationCommand) PartnerID() kernel.UUID {
	return c.partnerID
}

// OrderID returns the order named in the report, or nil.
func (c UpdateLocationCommand) OrderID() *kernel.UUID {
	if c.orderID == nil {
		return nil
	}
	id := *c.orderID
	return &id
}

// Location returns the reported position.
func (c UpdateLocationCommand) Location() kernel.Location {
	return c.location
}

// RoutePoint returns the report as a route sample received at at.
// Device clocks are ignored.
func (c UpdateLocationCommand) RoutePoint(at time.Time) tracking.RoutePoint {
	return tracking.RoutePoint{
		Lat:       c.location.Lat(),
		Lng:       c.location.Lng(),
		Timestamp: at,
		Speed:     c.speed,
		Heading:   c.heading,
		Accuracy:  c.accuracy,
	}
}
