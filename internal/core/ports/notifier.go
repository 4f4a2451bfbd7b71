package ports

import (
	"context"

	"dispatch/internal/core/domain/model/kernel"
)

// Outbound realtime event names.
const (
	EventNewOrderAssigned           = "new_order_assigned"
	EventOrderAssigned              = "order_assigned"
	EventDeliveryLocationUpdate     = "delivery_location_update"
	EventDeliveryStatusUpdate       = "delivery_status_update"
	EventPartnerAvailabilityChanged = "partner_availability_changed"
	EventDeliveryIssueReported      = "delivery_issue_reported"
	EventDeliveryFeedback           = "delivery_feedback_received"
)

// Notification is one outbound broadcast. Every non-empty audience receives it once.
type Notification struct {
	Event string
	Data  any

	// OrderRoom targets every connection that joined the order's room.
	OrderRoom *kernel.UUID
	// Partner targets every connection of one partner.
	Partner *kernel.UUID
	// Admins targets every admin connection.
	Admins bool
}

// Notifier fans notifications out to connected clients. Delivery is best effort: a
// failure for one recipient is logged by the implementation and never returned.
type Notifier interface {
	Notify(ctx context.Context, notification Notification)
}
