package commands

import (
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/tracking"
)

// Payloads of the outbound realtime events emitted by the handlers.
type (
	// NewOrderAssignedPayload is sent to the partner an order was given to.
	NewOrderAssignedPayload struct {
		OrderID               kernel.UUID     `json:"orderId"`
		CustomerID            kernel.UUID     `json:"customerId"`
		StoreLocation         kernel.Location `json:"storeLocation"`
		CustomerLocation      kernel.Location `json:"customerLocation"`
		DistanceKm            float64         `json:"distanceKm"`
		EstimatedDeliveryTime time.Time       `json:"estimatedDeliveryTime"`
	}

	// OrderAssignedPayload is sent to the order room and admins.
	OrderAssignedPayload struct {
		OrderID               kernel.UUID     `json:"orderId"`
		PartnerID             kernel.UUID     `json:"partnerId"`
		Status                tracking.Status `json:"status"`
		EstimatedDeliveryTime time.Time       `json:"estimatedDeliveryTime"`
	}

	// LocationUpdatePayload carries a partner position. Order fields are empty when the
	// partner is not delivering.
	LocationUpdatePayload struct {
		OrderID               *kernel.UUID `json:"orderId,omitempty"`
		PartnerID             kernel.UUID  `json:"partnerId"`
		Latitude              float64      `json:"latitude"`
		Longitude             float64      `json:"longitude"`
		Speed                 float64      `json:"speed"`
		Heading               float64      `json:"heading"`
		Accuracy              float64      `json:"accuracy"`
		Timestamp             time.Time    `json:"timestamp"`
		DistanceToCustomerKm  *float64     `json:"distanceToCustomer,omitempty"`
		EstimatedDeliveryTime *time.Time   `json:"estimatedDeliveryTime,omitempty"`
	}

	// StatusUpdatePayload is sent to the order room and admins on every status change.
	StatusUpdatePayload struct {
		OrderID   kernel.UUID      `json:"orderId"`
		PartnerID kernel.UUID      `json:"partnerId"`
		Status    tracking.Status  `json:"status"`
		Timestamp time.Time        `json:"timestamp"`
		Location  *kernel.Location `json:"location,omitempty"`
		Notes     string           `json:"notes,omitempty"`
		Metrics   tracking.Metrics `json:"metrics"`
	}

	// AvailabilityPayload is sent to admins when a partner connects, disconnects or
	// toggles duty.
	AvailabilityPayload struct {
		PartnerID kernel.UUID `json:"partnerId"`
		IsOnline  bool        `json:"isOnline"`
		IsOnDuty  bool        `json:"isOnDuty"`
		Timestamp time.Time   `json:"timestamp"`
	}

	// IssueReportedPayload is sent to the order room and admins.
	IssueReportedPayload struct {
		OrderID   kernel.UUID    `json:"orderId"`
		PartnerID kernel.UUID    `json:"partnerId"`
		Issue     tracking.Issue `json:"issue"`
	}

	// FeedbackPayload is sent to the order room and admins.
	FeedbackPayload struct {
		OrderID   kernel.UUID `json:"orderId"`
		PartnerID kernel.UUID `json:"partnerId"`
		Rating    int         `json:"rating"`
		Comment   string      `json:"comment,omitempty"`
	}
)

func statusUpdatePayload(session tracking.Session) StatusUpdatePayload {
	timeline := session.Timeline()
	last := timeline[len(timeline)-1]
	return StatusUpdatePayload{
		OrderID:   session.OrderID(),
		PartnerID: session.PartnerID(),
		Status:    session.Status(),
		Timestamp: last.Timestamp,
		Location:  last.Location,
		Notes:     last.Notes,
		Metrics:   session.Metrics(),
	}
}

func uuidPtr(id kernel.UUID) *kernel.UUID {
	return &id
}
