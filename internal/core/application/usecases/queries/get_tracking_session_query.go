// Package queries contains read operations for retrieving system state.
// Queries bypass the aggregates and return read models shaped for one caller.
package queries

import (
	"errors"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/guard"
)

var (
	ErrGetTrackingSessionQueryIsNotConstructed = errors.New(
		"GetTrackingSessionQuery must be created via NewGetTrackingSessionQuery constructor",
	)
)

// GetTrackingSessionQuery reads back the tracking session of one order on behalf of
// viewer. Customers see their own orders with the OTP, partners see the orders they
// deliver, admins see everything without the OTP.
//
// Example:
//
//	query, err := queries.NewGetTrackingSessionQuery(orderID, kernel.Principal{ID: customerID, Role: kernel.RoleCustomer})
//	if err != nil {
//	    return err
//	}
//	snapshot, err := handler.Handle(ctx, query)
type GetTrackingSessionQuery struct {
	orderID kernel.UUID
	viewer  kernel.Principal

	guard guard.ConstructorGuard
}

// NewGetTrackingSessionQuery validates the order id and the viewer.
func NewGetTrackingSessionQuery(orderID kernel.UUID, viewer kernel.Principal) (GetTrackingSessionQuery, error) {
	_, roleErr := kernel.ParseRole(string(viewer.Role))
	if err := errors.Join(orderID.Validate(), viewer.ID.Validate(), roleErr); err != nil {
		return GetTrackingSessionQuery{}, err
	}

	return GetTrackingSessionQuery{
		orderID: orderID,
		viewer:  viewer,
		guard:   guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the query was created through the constructor.
func (q GetTrackingSessionQuery) Validate() error {
	return q.guard.Validate(ErrGetTrackingSessionQueryIsNotConstructed)
}

// OrderID returns the order whose session is read.
func (q GetTrackingSessionQuery) OrderID() kernel.UUID {
	return q.orderID
}

// Viewer returns the caller.
func (q GetTrackingSessionQuery) Viewer() kernel.Principal {
	return q.viewer
}
