// Package registry holds the in-memory index of connected delivery partners.
//
// Entries are striped over a fixed number of shards by partner id; each shard has its
// own RWMutex, so operations on different partners rarely contend and every operation on
// one partner is atomic. The registry never touches durable storage.
package registry

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/partner"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/shard"
)

var _ ports.PartnerRegistry = (*Registry)(nil)

type bucket struct {
	mu      sync.RWMutex
	entries map[kernel.UUID]ports.Presence
}

// Registry is a sharded partner presence index. The zero value is not usable; create
// one with New.
type Registry struct {
	buckets []*bucket
}

// New creates a Registry with shards stripes (shard.DefaultCount when non-positive).
func New(shards int) *Registry {
	n := shard.Count(shards)
	r := &Registry{buckets: make([]*bucket, n)}
	for i := range r.buckets {
		r.buckets[i] = &bucket{entries: make(map[kernel.UUID]ports.Presence)}
	}
	return r
}

func (r *Registry) bucketFor(id kernel.UUID) *bucket {
	return r.buckets[shard.Index(id.String(), len(r.buckets))]
}

// SetOnline registers the partner's connection. An existing entry keeps its location
// when the snapshot has none, and keeps an in-memory claim the snapshot does not know of.
func (r *Registry) SetOnline(partnerID kernel.UUID, handle string, snapshot ports.PresenceSnapshot, at time.Time) {
	b := r.bucketFor(partnerID)
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, exists := b.entries[partnerID]
	if !exists {
		entry = ports.Presence{PartnerID: partnerID}
	}

	entry.Handle = handle
	entry.Online = true
	entry.LastSeen = at
	entry.Rating = snapshot.Rating
	if snapshot.Location != nil {
		loc := *snapshot.Location
		entry.Location = &loc
		entry.LocationAt = snapshot.LocationAt
	}
	if snapshot.ActiveOrderID != nil {
		id := *snapshot.ActiveOrderID
		entry.ActiveOrderID = &id
		entry.ActiveCount = 1
	}
	entry.OnDuty = snapshot.OnDuty && entry.ActiveOrderID == nil

	b.entries[partnerID] = entry
}

// SetOffline marks the partner offline. A non-empty handle must match the registered
// connection. The entry is kept so a claim survives a reconnect.
func (r *Registry) SetOffline(partnerID kernel.UUID, handle string, at time.Time) bool {
	b := r.bucketFor(partnerID)
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.entries[partnerID]
	if !ok || !entry.Online {
		return false
	}
	if handle != "" && entry.Handle != handle {
		return false
	}

	entry.Online = false
	entry.Handle = ""
	entry.LastSeen = at
	if entry.ActiveOrderID == nil {
		delete(b.entries, partnerID)
		return true
	}
	b.entries[partnerID] = entry
	return true
}

// UpdateLocation overwrites the last known position.
func (r *Registry) UpdateLocation(partnerID kernel.UUID, location kernel.Location, at time.Time) error {
	if err := location.Validate(); err != nil {
		return err
	}

	b := r.bucketFor(partnerID)
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.entries[partnerID]
	if !ok || !entry.Online {
		return errs.NewObjectNotFoundError("partner", partnerID)
	}

	entry.Location = &location
	entry.LocationAt = at
	entry.LastSeen = at
	b.entries[partnerID] = entry
	return nil
}

// Touch refreshes LastSeen of an online partner and reports whether it is online.
func (r *Registry) Touch(partnerID kernel.UUID, at time.Time) bool {
	b := r.bucketFor(partnerID)
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.entries[partnerID]
	if !ok || !entry.Online {
		return false
	}
	if at.After(entry.LastSeen) {
		entry.LastSeen = at
		b.entries[partnerID] = entry
	}
	return true
}

// SetRating replaces the rating used for ranking. Reports whether the partner is known.
func (r *Registry) SetRating(partnerID kernel.UUID, rating float64) bool {
	b := r.bucketFor(partnerID)
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.entries[partnerID]
	if !ok {
		return false
	}
	entry.Rating = rating
	b.entries[partnerID] = entry
	return true
}

// SetOnDuty flips the duty flag of a connected partner.
func (r *Registry) SetOnDuty(partnerID kernel.UUID, onDuty bool, at time.Time) error {
	b := r.bucketFor(partnerID)
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.entries[partnerID]
	if !ok || !entry.Online {
		return errs.NewObjectNotFoundError("partner", partnerID)
	}
	if entry.ActiveOrderID != nil {
		return partner.ErrPartnerHasActiveOrder
	}

	entry.OnDuty = onDuty
	entry.LastSeen = at
	b.entries[partnerID] = entry
	return nil
}

// Claim marks an assignable partner busy with orderID in one step under the shard lock.
// It returns partner.ErrPartnerUnavailable when the partner is unknown, offline, off
// duty or already busy.
func (r *Registry) Claim(partnerID, orderID kernel.UUID) error {
	b := r.bucketFor(partnerID)
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.entries[partnerID]
	if !ok || !entry.Assignable() {
		return partner.ErrPartnerUnavailable
	}

	id := orderID
	entry.OnDuty = false
	entry.ActiveCount++
	entry.ActiveOrderID = &id
	b.entries[partnerID] = entry
	return nil
}

// Release returns the partner to duty after its order finished or the claim was
// abandoned. Offline partners are dropped from the index.
func (r *Registry) Release(partnerID, orderID kernel.UUID) {
	b := r.bucketFor(partnerID)
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.entries[partnerID]
	if !ok || entry.ActiveOrderID == nil || !entry.ActiveOrderID.IsEqual(orderID) {
		return
	}

	entry.ActiveOrderID = nil
	if entry.ActiveCount > 0 {
		entry.ActiveCount--
	}
	if !entry.Online {
		delete(b.entries, partnerID)
		return
	}
	entry.OnDuty = true
	b.entries[partnerID] = entry
}

// FindNearby returns assignable partners within radiusKm of location, best first.
// A bounding box check runs before the exact haversine distance.
func (r *Registry) FindNearby(location kernel.Location, radiusKm float64) []ports.Candidate {
	if location.Validate() != nil || radiusKm <= 0 {
		return nil
	}
	box := kernel.BoundingBoxAround(location, radiusKm)

	var candidates []ports.Candidate
	for _, b := range r.buckets {
		b.mu.RLock()
		for _, entry := range b.entries {
			if !entry.Assignable() || entry.Location == nil || !box.Contains(*entry.Location) {
				continue
			}
			distance, err := location.DistanceKm(*entry.Location)
			if err != nil || distance > radiusKm {
				continue
			}
			candidates = append(candidates, ports.Candidate{Presence: clonePresence(entry), DistanceKm: distance})
		}
		b.mu.RUnlock()
	}

	slices.SortFunc(candidates, compareCandidates)
	return candidates
}

// Get returns a copy of the partner's entry.
func (r *Registry) Get(partnerID kernel.UUID) (ports.Presence, bool) {
	b := r.bucketFor(partnerID)
	b.mu.RLock()
	defer b.mu.RUnlock()

	entry, ok := b.entries[partnerID]
	if !ok {
		return ports.Presence{}, false
	}
	return clonePresence(entry), true
}

// Stale returns online partners not seen since cutoff.
func (r *Registry) Stale(cutoff time.Time) []ports.Presence {
	var stale []ports.Presence
	for _, b := range r.buckets {
		b.mu.RLock()
		for _, entry := range b.entries {
			if entry.Online && entry.LastSeen.Before(cutoff) {
				stale = append(stale, clonePresence(entry))
			}
		}
		b.mu.RUnlock()
	}
	return stale
}

// Len returns the number of online partners.
func (r *Registry) Len() int {
	n := 0
	for _, b := range r.buckets {
		b.mu.RLock()
		for _, entry := range b.entries {
			if entry.Online {
				n++
			}
		}
		b.mu.RUnlock()
	}
	return n
}

func compareCandidates(a, b ports.Candidate) int {
	return cmp.Or(
		cmp.Compare(b.Rating, a.Rating),
		cmp.Compare(a.ActiveCount, b.ActiveCount),
		cmp.Compare(a.DistanceKm, b.DistanceKm),
	)
}

func clonePresence(p ports.Presence) ports.Presence {
	if p.Location != nil {
		loc := *p.Location
		p.Location = &loc
	}
	if p.ActiveOrderID != nil {
		id := *p.ActiveOrderID
		p.ActiveOrderID = &id
	}
	return p
}
