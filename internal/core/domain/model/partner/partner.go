package partner

import (
	"errors"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"
)

// Domain errors for partner operations.
var (
	// ErrNameIsRequired is returned when attempting to create a partner without a name.
	ErrNameIsRequired = errs.NewValueIsRequiredError("name")
	// ErrPartnerIsNotConstructed is returned when using an improperly initialized Partner.
	ErrPartnerIsNotConstructed = errors.New("Partner must be created via NewPartner constructor")
	// ErrPartnerUnavailable is returned when a partner cannot take an order: offline,
	// off duty or already delivering.
	ErrPartnerUnavailable = errs.NewConflictError("partner", "PartnerUnavailable")
	// ErrPartnerHasActiveOrder is returned when toggling duty while an order is in progress.
	ErrPartnerHasActiveOrder = errs.NewConflictError("partner", "partner has an active order")
	// ErrOrderIsNotActive is returned when releasing an order the partner does not hold.
	ErrOrderIsNotActive = errs.NewConflictError("order", "order is not the partner's active order")
)

// Availability is the durable presence state of a partner.
//
// IsOnDuty means "on shift and free to take an order". It is cleared while an order is
// being delivered and set again when the order reaches a terminal state.
type Availability struct {
	IsOnline bool      `json:"isOnline"`
	IsOnDuty bool      `json:"isOnDuty"`
	LastSeen time.Time `json:"lastSeen"`
}

// Assignable reports whether the partner can be given a new order.
func (a Availability) Assignable() bool {
	return a.IsOnline && a.IsOnDuty
}

// Partner is a delivery partner as seen by the dispatch engine.
// It is an aggregate root holding location, availability and statistics.
//
// Business rules:
//   - Partner must have a valid UUID and non-empty name
//   - At most one active order at a time
//   - A partner can only take an order while online and on duty
//   - Duty cannot be toggled while an order is active
//
// Example usage:
//
//	p, err := partner.NewPartner(kernel.NewUUID(), "Ravi", partner.Vehicle{Type: "bike"})
//	if err != nil {
//	    return err
//	}
//	p.GoOnline(time.Now())
//	_ = p.SetOnDuty(true, time.Now())
type Partner struct {
	// id uniquely identifies the partner
	id kernel.UUID
	// name is the display name of the partner
	name string
	// vehicle is the partner's registered vehicle
	vehicle Vehicle
	// location is the last known position, nil until the first report
	location *kernel.Location
	// locationUpdatedAt is the time of the last location report
	locationUpdatedAt time.Time
	// availability holds online/on-duty flags
	availability Availability
	// activeOrderID is the order being delivered, nil when free
	activeOrderID *kernel.UUID
	// statistics are the cumulative counters
	statistics Statistics
	// guard ensures the partner was properly constructed
	guard guard.ConstructorGuard
}

// NewPartner creates a new Partner that is offline, off duty and has no history.
//
// Parameters:
//   - id: Unique identifier for the partner (must be valid UUID)
//   - name: Display name (must be non-empty)
//   - vehicle: Registered vehicle
//
// Returns:
//   - *Partner: A fully initialized partner
//   - error: Validation error if any parameter is invalid (aggregated errors for multiple issues)
func NewPartner(id kernel.UUID, name string, vehicle Vehicle) (*Partner, error) {
	p := &Partner{
		vehicle: vehicle,
		guard:   guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		p.setID(id),
		p.setName(name),
	); err != nil {
		return nil, err
	}

	return p, nil
}

// RestoreParams carries the persisted state of a partner.
type RestoreParams struct {
	ID                kernel.UUID
	Name              string
	Vehicle           Vehicle
	Location          *kernel.Location
	LocationUpdatedAt time.Time
	Availability      Availability
	ActiveOrderID     *kernel.UUID
	Statistics        Statistics
}

// RestorePartner reconstructs a Partner aggregate from persistent storage.
//
// Unlike NewPartner, this constructor accepts location, availability, active order and
// statistics as they were persisted.
//
// Returns:
//   - *Partner: Restored partner aggregate
//   - error: Validation error if any field is invalid
//
// Business Rules:
//   - Partner ID must be valid
//   - Name cannot be empty
//   - A partner with an active order cannot be on duty
//   - Statistics counters cannot be negative
func RestorePartner(params RestoreParams) (*Partner, error) {
	p := &Partner{
		vehicle:           params.Vehicle,
		locationUpdatedAt: params.LocationUpdatedAt,
		availability:      params.Availability,
		guard:             guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		p.setID(params.ID),
		p.setName(params.Name),
		p.setLocationPtr(params.Location),
		p.setActiveOrder(params.ActiveOrderID),
		params.Statistics.validate(),
	); err != nil {
		return nil, err
	}
	p.statistics = params.Statistics

	if p.activeOrderID != nil && p.availability.IsOnDuty {
		return nil, errs.NewValueIsInvalidError("partner with an active order cannot be on duty")
	}

	return p, nil
}

// IsEqual compares two partners by ID.
func (p *Partner) IsEqual(other *Partner) bool {
	if other == nil {
		return false
	}
	return p.id.IsEqual(other.id)
}

// Validate checks if the Partner was properly constructed.
func (p *Partner) Validate() error {
	if p == nil {
		return ErrPartnerIsNotConstructed
	}
	return p.guard.Validate(ErrPartnerIsNotConstructed)
}

// ID returns the unique identifier of the partner.
func (p *Partner) ID() kernel.UUID {
	return p.id
}

// Name returns the display name of the partner.
func (p *Partner) Name() string {
	return p.name
}

// Vehicle returns the partner's vehicle.
func (p *Partner) Vehicle() Vehicle {
	return p.vehicle
}

// Location returns the last known position and false if the partner never reported one.
func (p *Partner) Location() (kernel.Location, bool) {
	if p.location == nil {
		return kernel.Location{}, false
	}
	return *p.location, true
}

// LocationUpdatedAt returns the time of the last location report.
func (p *Partner) LocationUpdatedAt() time.Time {
	return p.locationUpdatedAt
}

// Availability returns the presence flags.
func (p *Partner) Availability() Availability {
	return p.availability
}

// ActiveOrderID returns the order the partner is delivering, or nil.
func (p *Partner) ActiveOrderID() *kernel.UUID {
	if p.activeOrderID == nil {
		return nil
	}
	id := *p.activeOrderID
	return &id
}

// Statistics returns the cumulative delivery counters.
func (p *Partner) Statistics() Statistics {
	return p.statistics
}

// GoOnline marks the partner connected. Duty is left as it was.
func (p *Partner) GoOnline(now time.Time) {
	p.availability.IsOnline = true
	p.availability.LastSeen = now
}

// GoOffline marks the partner disconnected. A disconnect never cancels an active order,
// so the active order and the duty flag are kept.
func (p *Partner) GoOffline(now time.Time) {
	p.availability.IsOnline = false
	p.availability.LastSeen = now
}

// UpdateLocation overwrites the last known position. No history is kept here.
//
// Parameters:
//   - location: New position (must be valid)
//   - now: Time of the report, also recorded as LastSeen
//
// Returns:
//   - error: Validation error if location is invalid
func (p *Partner) UpdateLocation(location kernel.Location, now time.Time) error {
	if err := location.Validate(); err != nil {
		return err
	}

	p.location = &location
	p.locationUpdatedAt = now
	p.availability.LastSeen = now
	return nil
}

// SetOnDuty toggles the partner's shift flag.
//
// Returns:
//   - error: ErrPartnerHasActiveOrder if an order is being delivered
func (p *Partner) SetOnDuty(onDuty bool, now time.Time) error {
	if p.activeOrderID != nil {
		return ErrPartnerHasActiveOrder
	}

	p.availability.IsOnDuty = onDuty
	p.availability.LastSeen = now
	return nil
}

// TakeDelivery binds the partner to an order. It is the durable half of the assignment
// compare-and-set: the partner must be online, on duty and free.
//
// State changes:
//   - IsOnDuty becomes false
//   - ActiveOrderID is set
//
// Returns:
//   - error: ErrPartnerUnavailable if the partner cannot take the order
func (p *Partner) TakeDelivery(orderID kernel.UUID) error {
	if err := orderID.Validate(); err != nil {
		return err
	}
	if !p.availability.Assignable() || p.activeOrderID != nil {
		return ErrPartnerUnavailable
	}

	p.availability.IsOnDuty = false
	p.activeOrderID = &orderID
	return nil
}

// ReleaseDelivery frees the partner after the order reached a terminal state and
// records the outcome in the statistics.
//
// Parameters:
//   - orderID: The order being finished (must be the active order)
//   - successful: true for delivered, false for failed/returned/cancelled
//   - distanceKm: Distance travelled while delivering
//
// Returns:
//   - error: ErrOrderIsNotActive if orderID is not the partner's active order
func (p *Partner) ReleaseDelivery(orderID kernel.UUID, successful bool, distanceKm float64) error {
	if p.activeOrderID == nil || !p.activeOrderID.IsEqual(orderID) {
		return ErrOrderIsNotActive
	}

	p.activeOrderID = nil
	p.availability.IsOnDuty = true
	p.statistics = p.statistics.WithDelivery(successful, distanceKm)
	return nil
}

// SyncActiveOrder aligns the active order with the partner's open tracking session and
// reports whether anything changed. A nil orderID frees the partner without touching the
// statistics; an order takes the partner off duty as TakeDelivery does.
func (p *Partner) SyncActiveOrder(orderID *kernel.UUID) (bool, error) {
	if orderID == nil {
		if p.activeOrderID == nil {
			return false, nil
		}
		p.activeOrderID = nil
		p.availability.IsOnDuty = true
		return true, nil
	}
	if err := orderID.Validate(); err != nil {
		return false, err
	}
	if p.activeOrderID != nil && p.activeOrderID.IsEqual(*orderID) {
		return false, nil
	}

	id := *orderID
	p.activeOrderID = &id
	p.availability.IsOnDuty = false
	return true, nil
}

// AddRating folds a customer rating into the running average.
//
// Returns:
//   - error: ValueIsOutOfRangeError if rating is outside 1..5
func (p *Partner) AddRating(rating int) error {
	stats, err := p.statistics.WithRating(rating)
	if err != nil {
		return err
	}

	p.statistics = stats
	return nil
}

func (p *Partner) setID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}

	p.id = id
	return nil
}

func (p *Partner) setName(name string) error {
	if name == "" {
		return ErrNameIsRequired
	}

	p.name = name
	return nil
}

func (p *Partner) setLocationPtr(location *kernel.Location) error {
	if location == nil {
		p.location = nil
		return nil
	}
	if err := location.Validate(); err != nil {
		return err
	}

	loc := *location
	p.location = &loc
	return nil
}

func (p *Partner) setActiveOrder(orderID *kernel.UUID) error {
	if orderID == nil {
		p.activeOrderID = nil
		return nil
	}
	if err := orderID.Validate(); err != nil {
		return err
	}

	id := *orderID
	p.activeOrderID = &id
	return nil
}
