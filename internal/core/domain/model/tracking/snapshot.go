package tracking

import (
	"errors"
	"slices"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"
)

// Snapshot is the whole-document form of a Session, used for persistence and for the
// read-back sent to clients.
type Snapshot struct {
	OrderID          kernel.UUID     `json:"orderId"`
	PartnerID        kernel.UUID     `json:"partnerId"`
	CustomerID       kernel.UUID     `json:"customerId"`
	Status           Status          `json:"status"`
	Timeline         []TimelineEntry `json:"timeline"`
	Route            []RoutePoint    `json:"route"`
	StoreLocation    kernel.Location `json:"storeLocation"`
	CustomerLocation kernel.Location `json:"customerLocation"`
	Metrics          Metrics         `json:"metrics"`
	DeliveryDetails  DeliveryDetails `json:"deliveryDetails"`
	Issues           []Issue         `json:"issues"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
	Version          int64           `json:"version"`
}

// DeliveryDetails groups the proof-of-delivery data.
type DeliveryDetails struct {
	OTP         *kernel.OTP `json:"otp,omitempty"`
	OTPVerified bool        `json:"otpVerified"`
	Feedback    *Feedback   `json:"feedback,omitempty"`
}

// Snapshot returns the document form of s. Slices are copies.
func (s Session) Snapshot() Snapshot {
	otp := s.otp
	return Snapshot{
		OrderID:          s.orderID,
		PartnerID:        s.partnerID,
		CustomerID:       s.customerID,
		Status:           s.status,
		Timeline:         nonNil(s.timeline),
		Route:            nonNil(s.route),
		StoreLocation:    s.storeLocation,
		CustomerLocation: s.customerLocation,
		Metrics:          copyMetrics(s.metrics),
		DeliveryDetails: DeliveryDetails{
			OTP:         &otp,
			OTPVerified: otp.Verified(),
			Feedback:    s.Feedback(),
		},
		Issues:    nonNil(s.issues),
		CreatedAt: s.createdAt,
		UpdatedAt: s.updatedAt,
		Version:   s.version,
	}
}

// WithoutOTP returns a copy without the OTP record, for viewers other than the customer.
func (snap Snapshot) WithoutOTP() Snapshot {
	snap.DeliveryDetails.OTP = nil
	return snap
}

// RestoreSession rebuilds a Session from its persisted document.
//
// Returns:
//   - Session: The restored session
//   - error: Validation error for an invalid identifier, location, status or OTP
func RestoreSession(snap Snapshot) (Session, error) {
	if snap.DeliveryDetails.OTP == nil {
		return Session{}, errs.NewValueIsRequiredError("deliveryDetails.otp")
	}
	if err := errors.Join(
		snap.OrderID.Validate(),
		snap.PartnerID.Validate(),
		snap.CustomerID.Validate(),
		snap.StoreLocation.Validate(),
		snap.CustomerLocation.Validate(),
		snap.Status.Validate(),
		snap.DeliveryDetails.OTP.Validate(),
	); err != nil {
		return Session{}, err
	}
	if len(snap.Timeline) == 0 {
		return Session{}, errs.NewValueIsRequiredError("timeline")
	}
	for i := 1; i < len(snap.Route); i++ {
		if snap.Route[i].Timestamp.Before(snap.Route[i-1].Timestamp) {
			return Session{}, ErrStaleRoutePoint
		}
	}

	var feedback *Feedback
	if snap.DeliveryDetails.Feedback != nil {
		f := *snap.DeliveryDetails.Feedback
		feedback = &f
	}

	return Session{
		orderID:          snap.OrderID,
		partnerID:        snap.PartnerID,
		customerID:       snap.CustomerID,
		status:           snap.Status,
		timeline:         slices.Clone(snap.Timeline),
		route:            slices.Clone(snap.Route),
		storeLocation:    snap.StoreLocation,
		customerLocation: snap.CustomerLocation,
		metrics:          copyMetrics(snap.Metrics),
		otp:              *snap.DeliveryDetails.OTP,
		feedback:         feedback,
		issues:           slices.Clone(snap.Issues),
		createdAt:        snap.CreatedAt,
		updatedAt:        snap.UpdatedAt,
		version:          snap.Version,
		guard:            guard.NewConstructorGuard(),
	}, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return slices.Clone(s)
}
