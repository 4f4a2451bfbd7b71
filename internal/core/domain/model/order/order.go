package order

import (
	"errors"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/guard"
)

var (
	// ErrOrderIsNotConstructed is returned when an Order instance was not created through
	// NewOrder or RestoreOrder.
	ErrOrderIsNotConstructed = errors.New("Order must be created via NewOrder constructor")
)

// Order is the slice of the external order record the dispatch engine works with.
// The order collaborator owns the record; the engine reads delivery coordinates and
// the OTP, and writes the status, OTP verification flag and assignment fields.
//
// Order follows these invariants:
//   - Must have valid order and customer identifiers
//   - Must have valid store and delivery locations
//   - An assigned partner implies an OTP and an estimated delivery time
type Order struct {
	// id is the unique identifier for the order
	id kernel.UUID

	// customerID identifies the customer who placed the order
	customerID kernel.UUID

	// storeLocation is the pickup point
	storeLocation kernel.Location

	// deliveryLocation is the customer's delivery address
	deliveryLocation kernel.Location

	// status mirrors the tracking session once a partner is assigned
	status Status

	// assignedPartnerID is nil while unassigned
	assignedPartnerID *kernel.UUID

	// otp is issued at assignment
	otp *kernel.OTP

	// estimatedDeliveryTime is set at assignment
	estimatedDeliveryTime *time.Time

	guard guard.ConstructorGuard
}

// NewOrder creates a freshly placed order with no partner.
//
// Parameters:
//   - id: Unique identifier for the order
//   - customerID: The customer who placed it
//   - storeLocation: Pickup point
//   - deliveryLocation: Customer coordinates
//
// Returns:
//   - *Order: The order in Placed status
//   - error: Validation error if any parameter is invalid
func NewOrder(id, customerID kernel.UUID, storeLocation, deliveryLocation kernel.Location) (*Order, error) {
	order := &Order{
		status: Placed,
		guard:  guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		order.setIDs(id, customerID),
		order.setLocations(storeLocation, deliveryLocation),
	); err != nil {
		return nil, err
	}

	return order, nil
}

// RestoreParams carries the persisted state of an order.
type RestoreParams struct {
	ID                    kernel.UUID
	CustomerID            kernel.UUID
	StoreLocation         kernel.Location
	DeliveryLocation      kernel.Location
	Status                Status
	AssignedPartnerID     *kernel.UUID
	OTP                   *kernel.OTP
	EstimatedDeliveryTime *time.Time
}

// RestoreOrder reconstructs an Order from persistent storage.
func RestoreOrder(params RestoreParams) (*Order, error) {
	order := &Order{
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		order.setIDs(params.ID, params.CustomerID),
		order.setLocations(params.StoreLocation, params.DeliveryLocation),
		params.Status.Validate(),
	); err != nil {
		return nil, err
	}
	order.status = params.Status

	if params.AssignedPartnerID != nil {
		if err := params.AssignedPartnerID.Validate(); err != nil {
			return nil, err
		}
		id := *params.AssignedPartnerID
		order.assignedPartnerID = &id
	}
	if params.OTP != nil {
		if err := params.OTP.Validate(); err != nil {
			return nil, err
		}
		otp := *params.OTP
		order.otp = &otp
	}
	if params.EstimatedDeliveryTime != nil {
		eta := *params.EstimatedDeliveryTime
		order.estimatedDeliveryTime = &eta
	}

	return order, nil
}

// Validate ensures the Order instance was properly constructed.
func (o *Order) Validate() error {
	if o == nil {
		return ErrOrderIsNotConstructed
	}
	return o.guard.Validate(ErrOrderIsNotConstructed)
}

// IsEqual compares two orders by their unique identifiers.
func (o *Order) IsEqual(other *Order) bool {
	return other != nil && o.id.IsEqual(other.id)
}

// ID returns the order's unique identifier.
func (o *Order) ID() kernel.UUID {
	return o.id
}

// CustomerID returns the customer who placed the order.
func (o *Order) CustomerID() kernel.UUID {
	return o.customerID
}

// StoreLocation returns the pickup point.
func (o *Order) StoreLocation() kernel.Location {
	return o.storeLocation
}

// DeliveryLocation returns the customer's coordinates.
func (o *Order) DeliveryLocation() kernel.Location {
	return o.deliveryLocation
}

// Status returns the current status of the order.
func (o *Order) Status() Status {
	return o.status
}

// AssignedPartner returns the assigned partner's ID, nil if unassigned.
func (o *Order) AssignedPartner() *kernel.UUID {
	if o.assignedPartnerID == nil {
		return nil
	}
	id := *o.assignedPartnerID
	return &id
}

// OTP returns the delivery OTP, nil before assignment.
func (o *Order) OTP() *kernel.OTP {
	if o.otp == nil {
		return nil
	}
	otp := *o.otp
	return &otp
}

// EstimatedDeliveryTime returns the ETA written at assignment, nil before.
func (o *Order) EstimatedDeliveryTime() *time.Time {
	if o.estimatedDeliveryTime == nil {
		return nil
	}
	eta := *o.estimatedDeliveryTime
	return &eta
}

// Assign binds the order to a partner and records the OTP and ETA.
//
// This method enforces the following business rules:
//   - The partner ID and OTP must be valid
//   - The order must be in Placed or Confirmed status
//
// Example:
//
//	otp, _ := kernel.NewOTP("482913", now.Add(30*time.Minute))
//	if err := o.Assign(partnerID, otp, now.Add(35*time.Minute)); err != nil {
//	    return err
//	}
func (o *Order) Assign(partnerID kernel.UUID, otp kernel.OTP, eta time.Time) error {
	if err := errors.Join(partnerID.Validate(), otp.Validate()); err != nil {
		return err
	}
	if err := o.status.ValidateAssign(); err != nil {
		return err
	}

	o.status = Assigned
	o.assignedPartnerID = &partnerID
	o.otp = &otp
	o.estimatedDeliveryTime = &eta
	return nil
}

// MirrorStatus overwrites the status with the one derived from the tracking session.
// The tracking state machine already validated the transition, so only the value is checked.
func (o *Order) MirrorStatus(status Status) error {
	if err := status.Validate(); err != nil {
		return err
	}

	o.status = status
	return nil
}

// MarkOTPVerified stores the verified OTP returned by the tracking session.
func (o *Order) MarkOTPVerified(otp kernel.OTP) error {
	if err := otp.Validate(); err != nil {
		return err
	}
	if !otp.Verified() {
		return errors.New("otp is not verified")
	}

	o.otp = &otp
	return nil
}

func (o *Order) setIDs(id, customerID kernel.UUID) error {
	if err := errors.Join(id.Validate(), customerID.Validate()); err != nil {
		return err
	}
	o.id = id
	o.customerID = customerID
	return nil
}

func (o *Order) setLocations(store, delivery kernel.Location) error {
	if err := errors.Join(store.Validate(), delivery.Validate()); err != nil {
		return err
	}
	o.storeLocation = store
	o.deliveryLocation = delivery
	return nil
}
