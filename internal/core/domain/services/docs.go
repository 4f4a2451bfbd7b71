// Package services provides domain services that coordinate the order, partner and
// tracking aggregates.
//
// The package includes:
//   - OrderDispatcher: binds an order to a partner, issues the OTP and opens the tracking
//     session; mirrors a finished session back onto the order and the partner
//   - OTP generation backed by crypto/rand
package services
