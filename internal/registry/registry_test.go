package registry_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/partner"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	now      = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	customer = kernel.MustNewLocation(28.60, 77.20)
)

func online(t *testing.T, r *registry.Registry, loc kernel.Location, rating float64) kernel.UUID {
	t.Helper()
	id := kernel.NewUUID()
	r.SetOnline(id, "conn-"+id.String(), ports.PresenceSnapshot{OnDuty: true, Location: &loc, LocationAt: now, Rating: rating}, now)
	return id
}

func ids(candidates []ports.Candidate) []kernel.UUID {
	out := make([]kernel.UUID, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.PartnerID)
	}
	return out
}

func TestRegistry_SetOnlineOffline(t *testing.T) {
	r := registry.New(4)
	id := kernel.NewUUID()

	r.SetOnline(id, "a", ports.PresenceSnapshot{OnDuty: true, Rating: 4.5}, now)
	r.SetOnline(id, "a", ports.PresenceSnapshot{OnDuty: true, Rating: 4.5}, now)

	p, ok := r.Get(id)
	require.True(t, ok)
	assert.True(t, p.Online)
	assert.True(t, p.OnDuty)
	assert.Equal(t, "a", p.Handle)
	assert.Equal(t, 1, r.Len())

	t.Run("stale handle does not knock a reconnected partner offline", func(t *testing.T) {
		r.SetOnline(id, "b", ports.PresenceSnapshot{OnDuty: true}, now)

		assert.False(t, r.SetOffline(id, "a", now))
		p, _ := r.Get(id)
		assert.True(t, p.Online)
	})

	t.Run("matching handle marks offline idempotently", func(t *testing.T) {
		assert.True(t, r.SetOffline(id, "b", now))
		assert.False(t, r.SetOffline(id, "b", now))
		assert.Equal(t, 0, r.Len())
	})
}

func TestRegistry_UpdateLocation(t *testing.T) {
	r := registry.New(4)
	id := online(t, r, customer, 4)
	moved := kernel.MustNewLocation(28.62, 77.22)
	later := now.Add(time.Minute)

	require.NoError(t, r.UpdateLocation(id, moved, later))

	p, _ := r.Get(id)
	require.NotNil(t, p.Location)
	assert.Equal(t, moved, *p.Location)
	assert.Equal(t, later, p.LastSeen)

	err := r.UpdateLocation(kernel.NewUUID(), moved, later)
	require.ErrorIs(t, err, errs.ErrObjectNotFound)
}

func TestRegistry_FindNearby(t *testing.T) {
	t.Run("should order by rating then load then distance", func(t *testing.T) {
		r := registry.New(8)
		far := online(t, r, kernel.MustNewLocation(28.65, 77.25), 4.0)
		near := online(t, r, kernel.MustNewLocation(28.61, 77.21), 4.0)
		best := online(t, r, kernel.MustNewLocation(28.64, 77.24), 4.9)

		got := r.FindNearby(customer, 10)

		assert.Equal(t, []kernel.UUID{best, near, far}, ids(got))
		assert.Less(t, got[1].DistanceKm, got[2].DistanceKm)
	})

	t.Run("should exclude partners outside the radius", func(t *testing.T) {
		r := registry.New(8)
		online(t, r, kernel.MustNewLocation(28.80, 77.20), 5)
		online(t, r, kernel.MustNewLocation(28.60, 77.35), 5)
		inside := online(t, r, kernel.MustNewLocation(28.65, 77.25), 3)

		assert.Equal(t, []kernel.UUID{inside}, ids(r.FindNearby(customer, 10)))
	})

	t.Run("should never return busy off duty or offline partners", func(t *testing.T) {
		r := registry.New(8)
		loc := kernel.MustNewLocation(28.61, 77.21)
		busy := online(t, r, loc, 5)
		require.NoError(t, r.Claim(busy, kernel.NewUUID()))
		offDuty := online(t, r, loc, 5)
		require.NoError(t, r.SetOnDuty(offDuty, false, now))
		gone := online(t, r, loc, 5)
		r.SetOffline(gone, "", now)
		noLocation := kernel.NewUUID()
		r.SetOnline(noLocation, "x", ports.PresenceSnapshot{OnDuty: true, Rating: 5}, now)
		free := online(t, r, loc, 1)

		got := r.FindNearby(customer, 10)

		assert.Equal(t, []kernel.UUID{free}, ids(got))
		for _, c := range got {
			assert.True(t, c.Online)
			assert.True(t, c.OnDuty)
		}
	})

	t.Run("should return nothing when nobody is around", func(t *testing.T) {
		assert.Empty(t, registry.New(2).FindNearby(customer, 10))
	})
}

func TestRegistry_Claim(t *testing.T) {
	t.Run("should flip duty and record the order", func(t *testing.T) {
		r := registry.New(4)
		id := online(t, r, customer, 4)
		orderID := kernel.NewUUID()

		require.NoError(t, r.Claim(id, orderID))

		p, _ := r.Get(id)
		assert.False(t, p.OnDuty)
		assert.Equal(t, 1, p.ActiveCount)
		assert.True(t, p.ActiveOrderID.IsEqual(orderID))
		require.ErrorIs(t, r.Claim(id, kernel.NewUUID()), partner.ErrPartnerUnavailable)
		require.ErrorIs(t, r.SetOnDuty(id, true, now), partner.ErrPartnerHasActiveOrder)
	})

	t.Run("should let exactly one concurrent claimer win", func(t *testing.T) {
		r := registry.New(4)
		id := online(t, r, customer, 4)

		var (
			wg      sync.WaitGroup
			wins    atomic.Int32
			losses  atomic.Int32
			start   = make(chan struct{})
			workers = 64
		)
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				if err := r.Claim(id, kernel.NewUUID()); err != nil {
					assert.ErrorIs(t, err, partner.ErrPartnerUnavailable)
					losses.Add(1)
					return
				}
				wins.Add(1)
			}()
		}
		close(start)
		wg.Wait()

		assert.Equal(t, int32(1), wins.Load())
		assert.Equal(t, int32(workers-1), losses.Load())
	})

	t.Run("release returns the partner to duty", func(t *testing.T) {
		r := registry.New(4)
		id := online(t, r, customer, 4)
		orderID := kernel.NewUUID()
		require.NoError(t, r.Claim(id, orderID))

		r.Release(id, kernel.NewUUID())
		p, _ := r.Get(id)
		assert.False(t, p.OnDuty, "foreign order is ignored")

		r.Release(id, orderID)
		p, _ = r.Get(id)
		assert.True(t, p.OnDuty)
		assert.Nil(t, p.ActiveOrderID)
		assert.Zero(t, p.ActiveCount)
	})

	t.Run("claim survives disconnect and reconnect", func(t *testing.T) {
		r := registry.New(4)
		id := online(t, r, customer, 4)
		orderID := kernel.NewUUID()
		require.NoError(t, r.Claim(id, orderID))

		require.True(t, r.SetOffline(id, "", now))
		r.SetOnline(id, "again", ports.PresenceSnapshot{OnDuty: true}, now)

		p, ok := r.Get(id)
		require.True(t, ok)
		assert.False(t, p.OnDuty)
		assert.True(t, p.ActiveOrderID.IsEqual(orderID))
	})
}

func TestRegistry_Stale(t *testing.T) {
	r := registry.New(4)
	old := online(t, r, customer, 4)
	fresh := kernel.NewUUID()
	r.SetOnline(fresh, "f", ports.PresenceSnapshot{}, now.Add(5*time.Minute))

	stale := r.Stale(now.Add(time.Minute))

	require.Len(t, stale, 1)
	assert.True(t, stale[0].PartnerID.IsEqual(old))
}

func TestRegistry_TouchKeepsPartnerFresh(t *testing.T) {
	r := registry.New(4)
	id := online(t, r, customer, 4)

	assert.True(t, r.Touch(id, now.Add(10*time.Minute)))
	assert.Empty(t, r.Stale(now.Add(5*time.Minute)))

	assert.True(t, r.Touch(id, now), "older touches are ignored")
	assert.Empty(t, r.Stale(now.Add(5*time.Minute)))

	assert.False(t, r.Touch(kernel.NewUUID(), now))
	require.True(t, r.SetOffline(id, "", now))
	assert.False(t, r.Touch(id, now.Add(time.Hour)))
}

func TestRegistry_SetRatingReordersNearby(t *testing.T) {
	r := registry.New(4)
	loc := kernel.MustNewLocation(28.61, 77.21)
	top := online(t, r, loc, 5)
	other := online(t, r, loc, 4)
	require.Equal(t, []kernel.UUID{top, other}, ids(r.FindNearby(customer, 10)))

	require.True(t, r.SetRating(top, 1))

	assert.Equal(t, []kernel.UUID{other, top}, ids(r.FindNearby(customer, 10)))
	presence, _ := r.Get(top)
	assert.InDelta(t, 1.0, presence.Rating, 1e-9)
	assert.False(t, r.SetRating(kernel.NewUUID(), 3))
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := registry.New(8)
	partners := make([]kernel.UUID, 32)
	for i := range partners {
		partners[i] = online(t, r, customer, float64(i%5))
	}

	var wg sync.WaitGroup
	for i, id := range partners {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := range 50 {
				loc := kernel.MustNewLocation(28.60+float64(j)/10000, 77.20+float64(i)/10000)
				assert.NoError(t, r.UpdateLocation(id, loc, now))
			}
		}()
		go func() {
			defer wg.Done()
			for range 50 {
				_ = r.FindNearby(customer, 10)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, len(partners), r.Len())
}
