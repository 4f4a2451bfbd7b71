package services

import (
	"errors"
	"fmt"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/domain/model/partner"
	"dispatch/internal/core/domain/model/tracking"
	"dispatch/internal/pkg/errs"
)

const (
	// DefaultOTPTTL is how long a delivery OTP stays valid.
	DefaultOTPTTL = 30 * time.Minute
	// DefaultDeliveryOffset is the nominal assignment-to-delivery time used for the
	// first ETA, before any route point is known.
	DefaultDeliveryOffset = 35 * time.Minute
)

// ErrSessionIsNotTerminal is returned by Finish for a session still in progress.
var ErrSessionIsNotTerminal = errs.NewValueIsInvalidError("session is not in a terminal state")

// OrderDispatcher is a domain service that performs the in-memory part of an
// assignment and of a delivery completion. Persistence and locking are the caller's job.
//
// Business rules:
//   - Orders must be Placed or Confirmed to be dispatched
//   - The partner must be online, on duty and free (partner.TakeDelivery)
//   - The OTP is 6 digits and expires after the configured TTL
//   - The first ETA is now plus a fixed nominal offset
//
// Example usage:
//
//	dispatcher := services.NewOrderDispatcher(services.RandomOTP, 30*time.Minute, 35*time.Minute)
//	session, err := dispatcher.Dispatch(o, p, time.Now())
//	if errors.Is(err, partner.ErrPartnerUnavailable) {
//	    // partner went off duty between selection and commit
//	}
type OrderDispatcher struct {
	generateOTP    OTPGenerator
	otpTTL         time.Duration
	deliveryOffset time.Duration
}

// NewOrderDispatcher creates an OrderDispatcher. Zero durations fall back to the defaults
// and a nil generator to RandomOTP.
func NewOrderDispatcher(generateOTP OTPGenerator, otpTTL, deliveryOffset time.Duration) OrderDispatcher {
	if generateOTP == nil {
		generateOTP = RandomOTP
	}
	if otpTTL <= 0 {
		otpTTL = DefaultOTPTTL
	}
	if deliveryOffset <= 0 {
		deliveryOffset = DefaultDeliveryOffset
	}
	return OrderDispatcher{
		generateOTP:    generateOTP,
		otpTTL:         otpTTL,
		deliveryOffset: deliveryOffset,
	}
}

// Dispatch binds the order to the partner and opens the tracking session.
//
// Parameters:
//   - o: The order (must be assignable)
//   - p: The partner (must be online, on duty and free)
//   - now: Assignment time
//
// Returns:
//   - tracking.Session: The new session in the assigned state
//   - error: order status error, partner.ErrPartnerUnavailable, or OTP generation failure
//
// State changes on success:
//   - partner: IsOnDuty=false, active order set
//   - order: status assigned, partner, OTP and ETA recorded
func (d OrderDispatcher) Dispatch(o *order.Order, p *partner.Partner, now time.Time) (tracking.Session, error) {
	if err := errors.Join(o.Validate(), p.Validate()); err != nil {
		return tracking.Session{}, err
	}
	if err := o.Status().ValidateAssign(); err != nil {
		return tracking.Session{}, err
	}

	code, err := d.generateOTP()
	if err != nil {
		return tracking.Session{}, err
	}
	otp, err := kernel.NewOTP(code, now.Add(d.otpTTL))
	if err != nil {
		return tracking.Session{}, err
	}
	eta := now.Add(d.deliveryOffset)

	session, err := tracking.NewSession(tracking.NewSessionParams{
		OrderID:               o.ID(),
		PartnerID:             p.ID(),
		CustomerID:            o.CustomerID(),
		StoreLocation:         o.StoreLocation(),
		CustomerLocation:      o.DeliveryLocation(),
		OTP:                   otp,
		EstimatedDeliveryTime: eta,
		Now:                   now,
	})
	if err != nil {
		return tracking.Session{}, err
	}

	if err = p.TakeDelivery(o.ID()); err != nil {
		return tracking.Session{}, err
	}
	if err = o.Assign(p.ID(), otp, eta); err != nil {
		return tracking.Session{}, fmt.Errorf("assign order %s: %w", o.ID(), err)
	}

	return session, nil
}

// Finish mirrors a terminal session onto the order and frees the partner.
//
// Returns:
//   - error: ErrSessionIsNotTerminal for a session in progress, partner.ErrOrderIsNotActive
//     when the partner does not hold the order
//
// State changes on success:
//   - order: status mirrored, verified OTP stored
//   - partner: IsOnDuty=true, statistics updated (delivered counts as successful)
func (d OrderDispatcher) Finish(session tracking.Session, o *order.Order, p *partner.Partner) error {
	if err := errors.Join(session.Validate(), o.Validate(), p.Validate()); err != nil {
		return err
	}
	if !session.IsTerminal() {
		return ErrSessionIsNotTerminal
	}

	if err := o.MirrorStatus(session.Status().OrderStatus()); err != nil {
		return err
	}
	if otp := session.OTP(); otp.Verified() {
		if err := o.MarkOTPVerified(otp); err != nil {
			return err
		}
	}

	successful := session.Status() == tracking.Delivered
	return p.ReleaseDelivery(session.OrderID(), successful, session.Metrics().TotalDistanceKm)
}
