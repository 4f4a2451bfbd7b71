package order

import (
	"fmt"

	"dispatch/internal/pkg/errs"
)

// Status is the order lifecycle status as stored by the order collaborator.
//
// The dispatch engine reads it to decide whether an order can be assigned and writes
// it as a mirror of the tracking session:
//
//	placed ─┬─> confirmed ──> assigned ──> picked_up ──> out_for_delivery ──> delivered
//	        │                    │             │                │
//	        └────────────────────┴─────────────┴────────────────┴──> failed | returned | cancelled
type Status string

const (
	// Placed is a paid order waiting for dispatch.
	Placed Status = "placed"
	// Confirmed is an order accepted by the store; still assignable.
	Confirmed Status = "confirmed"
	// Assigned is an order bound to a partner (pickup not yet done).
	Assigned Status = "assigned"
	// PickedUp is an order collected from the store.
	PickedUp Status = "picked_up"
	// OutForDelivery is an order travelling to or waiting at the customer.
	OutForDelivery Status = "out_for_delivery"
	// Delivered is an order handed to the customer.
	Delivered Status = "delivered"
	// Failed is a delivery that could not be completed.
	Failed Status = "failed"
	// Returned is an order brought back to the store.
	Returned Status = "returned"
	// Cancelled is an order cancelled before completion.
	Cancelled Status = "cancelled"
)

func getValidStatuses() map[Status]struct{} {
	return map[Status]struct{}{
		Placed:         {},
		Confirmed:      {},
		Assigned:       {},
		PickedUp:       {},
		OutForDelivery: {},
		Delivered:      {},
		Failed:         {},
		Returned:       {},
		Cancelled:      {},
	}
}

// ParseStatus converts a stored string into a Status.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if err := status.Validate(); err != nil {
		return "", err
	}
	return status, nil
}

// Validate checks if the Status value is one of the known statuses.
func (s Status) Validate() error {
	if _, ok := getValidStatuses()[s]; !ok {
		return errs.NewValueIsInvalidErrorWithCause("status is invalid", fmt.Errorf("%q is not a valid status", string(s)))
	}
	return nil
}

// String implements fmt.Stringer.
func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether the order lifecycle is over.
func (s Status) IsTerminal() bool {
	switch s {
	case Delivered, Failed, Returned, Cancelled:
		return true
	default:
		return false
	}
}

// ValidateAssign checks if the status allows binding a partner.
//
// Valid statuses for assignment: Placed, Confirmed.
// An order that already has a partner, or is finished, cannot be assigned again.
func (s Status) ValidateAssign() error {
	if s != Placed && s != Confirmed {
		return errs.NewValueIsInvalidErrorWithCause(
			"status is invalid",
			fmt.Errorf("%s is not a valid status to assign", s.String()),
		)
	}
	return nil
}
