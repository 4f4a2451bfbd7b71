package tracking

import (
	"fmt"

	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/pkg/errs"
)

// Status is the delivery state of a tracking session.
type Status string

const (
	Assigned      Status = "assigned"
	PickupStarted Status = "pickup_started"
	PickedUp      Status = "picked_up"
	InTransit     Status = "in_transit"
	Arrived       Status = "arrived"
	Delivered     Status = "delivered"
	Failed        Status = "failed"
	Returned      Status = "returned"
	Cancelled     Status = "cancelled"
)

// happyPath maps every non-terminal status to its single forward successor.
var happyPath = map[Status]Status{
	Assigned:      PickupStarted,
	PickupStarted: PickedUp,
	PickedUp:      InTransit,
	InTransit:     Arrived,
	Arrived:       Delivered,
}

// sideExits are reachable from any non-terminal status.
var sideExits = map[Status]struct{}{
	Failed:    {},
	Returned:  {},
	Cancelled: {},
}

// orderMirror is the fixed mapping from delivery state to order lifecycle status.
var orderMirror = map[Status]order.Status{
	Assigned:      order.Assigned,
	PickupStarted: order.Assigned,
	PickedUp:      order.PickedUp,
	InTransit:     order.OutForDelivery,
	Arrived:       order.OutForDelivery,
	Delivered:     order.Delivered,
	Failed:        order.Failed,
	Returned:      order.Returned,
	Cancelled:     order.Cancelled,
}

// ParseStatus converts an inbound status name.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if err := status.Validate(); err != nil {
		return "", err
	}
	return status, nil
}

// Validate checks that s is a known status.
func (s Status) Validate() error {
	if _, ok := orderMirror[s]; !ok {
		return errs.NewValueIsInvalidErrorWithCause("status", fmt.Errorf("%q is not a valid status", string(s)))
	}
	return nil
}

// String implements fmt.Stringer.
func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is allowed from s.
func (s Status) IsTerminal() bool {
	switch s {
	case Delivered, Failed, Returned, Cancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether s → next is an allowed edge.
func (s Status) CanTransitionTo(next Status) bool {
	if s.Validate() != nil || next.Validate() != nil || s.IsTerminal() {
		return false
	}
	if _, ok := sideExits[next]; ok {
		return true
	}
	return happyPath[s] == next
}

// OrderStatus returns the order lifecycle status mirrored for s.
func (s Status) OrderStatus() order.Status {
	return orderMirror[s]
}
