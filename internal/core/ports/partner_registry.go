package ports

import (
	"time"

	"dispatch/internal/core/domain/model/kernel"
)

// Presence is the registry's view of one connected partner.
type Presence struct {
	PartnerID     kernel.UUID
	Handle        string
	Online        bool
	OnDuty        bool
	Location      *kernel.Location
	LocationAt    time.Time
	LastSeen      time.Time
	Rating        float64
	ActiveCount   int
	ActiveOrderID *kernel.UUID
}

// Assignable reports whether the partner can be claimed for a new order.
func (p Presence) Assignable() bool {
	return p.Online && p.OnDuty && p.ActiveOrderID == nil
}

// Candidate is a partner returned by a nearby search, with its distance to the target.
type Candidate struct {
	Presence
	DistanceKm float64
}

// PresenceSnapshot seeds a registry entry when a partner connects.
type PresenceSnapshot struct {
	OnDuty        bool
	Location      *kernel.Location
	LocationAt    time.Time
	Rating        float64
	ActiveOrderID *kernel.UUID
}

// PartnerRegistry is the in-memory, authoritative view of connected partners.
// Every operation is atomic per partner id.
type PartnerRegistry interface {
	// SetOnline registers or refreshes a partner connection. Last writer wins.
	SetOnline(partnerID kernel.UUID, handle string, snapshot PresenceSnapshot, at time.Time)

	// SetOffline marks the partner offline when handle is empty or matches the registered
	// connection, so a stale disconnect cannot knock a reconnected partner offline.
	// Reports whether the partner was marked offline.
	SetOffline(partnerID kernel.UUID, handle string, at time.Time) bool

	// UpdateLocation overwrites the last known position and refreshes LastSeen.
	UpdateLocation(partnerID kernel.UUID, location kernel.Location, at time.Time) error

	// Touch refreshes LastSeen of an online partner without other changes.
	Touch(partnerID kernel.UUID, at time.Time) bool

	// SetRating replaces the average rating FindNearby ranks by.
	SetRating(partnerID kernel.UUID, rating float64) bool

	// SetOnDuty flips the duty flag. Refused while the partner holds an active order.
	SetOnDuty(partnerID kernel.UUID, onDuty bool, at time.Time) error

	// Claim is the compare-and-set half of an assignment: it succeeds only for an online,
	// on-duty, free partner and marks it busy with orderID.
	Claim(partnerID, orderID kernel.UUID) error

	// Release undoes Claim for orderID. Releasing an order the partner does not hold is a no-op.
	Release(partnerID, orderID kernel.UUID)

	// FindNearby returns assignable partners within radiusKm of location, best first:
	// rating desc, active count asc, distance asc.
	FindNearby(location kernel.Location, radiusKm float64) []Candidate

	// Get returns the presence of a partner.
	Get(partnerID kernel.UUID) (Presence, bool)

	// Stale returns online partners whose LastSeen is before cutoff.
	Stale(cutoff time.Time) []Presence
}
