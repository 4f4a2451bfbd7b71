// Package partner contains the Partner aggregate: a delivery partner's last known
// location, availability flags and cumulative delivery statistics.
//
// The partner-management collaborator owns the partner record. This package models only
// the slice of it the dispatch engine reads and writes:
//   - currentLocation {lat, lng, updatedAt}
//   - availability {isOnline, isOnDuty, lastSeen}
//   - statistics {totalDeliveries, successfulDeliveries, failedDeliveries, avgRating, ...}
//
// Availability invariant: a partner holds at most one active order. TakeDelivery flips
// isOnDuty to false and records the order; ReleaseDelivery flips it back once the order's
// tracking session reaches a terminal state.
package partner
