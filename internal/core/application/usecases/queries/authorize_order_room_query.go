package queries

import (
	"errors"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/guard"
)

var ErrAuthorizeOrderRoomQueryIsNotConstructed = errors.New(
	"AuthorizeOrderRoomQuery must be created via NewAuthorizeOrderRoomQuery constructor",
)

// AuthorizeOrderRoomQuery asks whether viewer may watch the realtime room of an order.
type AuthorizeOrderRoomQuery struct {
	orderID kernel.UUID
	viewer  kernel.Principal

	guard guard.ConstructorGuard
}

// NewAuthorizeOrderRoomQuery validates the order id and the viewer.
func NewAuthorizeOrderRoomQuery(orderID kernel.UUID, viewer kernel.Principal) (AuthorizeOrderRoomQuery, error) {
	_, roleErr := kernel.ParseRole(string(viewer.Role))
	if err := errors.Join(orderID.Validate(), viewer.ID.Validate(), roleErr); err != nil {
		return AuthorizeOrderRoomQuery{}, err
	}

	return AuthorizeOrderRoomQuery{
		orderID: orderID,
		viewer:  viewer,
		guard:   guard.NewConstructorGuard(),
	}, nil
}

func (q AuthorizeOrderRoomQuery) Validate() error {
	return q.guard.Validate(ErrAuthorizeOrderRoomQueryIsNotConstructed)
}

func (q AuthorizeOrderRoomQuery) OrderID() kernel.UUID {
	return q.orderID
}

func (q AuthorizeOrderRoomQuery) Viewer() kernel.Principal {
	return q.viewer
}
