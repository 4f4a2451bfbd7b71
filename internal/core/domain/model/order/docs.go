// Package order models the external order record as the dispatch engine sees it.
//
// The package includes:
//   - Order: identity, customer, store and delivery coordinates, assignment fields and OTP
//   - Status: the order lifecycle status, written as a mirror of the tracking session
//
// Key business rules:
//   - Only Placed or Confirmed orders can be assigned
//   - Assignment records the partner, the OTP and the estimated delivery time together
//   - Status after assignment is never decided here; it follows the tracking session
package order
