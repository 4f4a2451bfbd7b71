package realtime

import (
	"sync"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/metrics"
	"dispatch/internal/pkg/shard"
)

type memberSet map[*Client]struct{}

type hubShard struct {
	mu       sync.RWMutex
	rooms    map[kernel.UUID]memberSet
	partners map[kernel.UUID]memberSet
}

// Hub indexes live connections by order room, by partner and by admin role.
// Rooms and partners are striped over shards by id; admins live in one set.
type Hub struct {
	shards []*hubShard

	adminsMu sync.RWMutex
	admins   memberSet

	metrics *metrics.GatewayMetrics
}

// NewHub creates a Hub with shards stripes (shard.DefaultCount when non-positive).
func NewHub(shards int, gatewayMetrics *metrics.GatewayMetrics) *Hub {
	n := shard.Count(shards)
	h := &Hub{
		shards:  make([]*hubShard, n),
		admins:  make(memberSet),
		metrics: gatewayMetrics,
	}
	for i := range h.shards {
		h.shards[i] = &hubShard{
			rooms:    make(map[kernel.UUID]memberSet),
			partners: make(map[kernel.UUID]memberSet),
		}
	}
	return h
}

func (h *Hub) shardFor(id kernel.UUID) *hubShard {
	return h.shards[shard.Index(id.String(), len(h.shards))]
}

// Register indexes an authenticated client by its role.
func (h *Hub) Register(c *Client) {
	switch c.principal.Role {
	case kernel.RolePartner:
		s := h.shardFor(c.principal.ID)
		s.mu.Lock()
		set, ok := s.partners[c.principal.ID]
		if !ok {
			set = make(memberSet)
			s.partners[c.principal.ID] = set
		}
		set[c] = struct{}{}
		s.mu.Unlock()
	case kernel.RoleAdmin:
		h.adminsMu.Lock()
		h.admins[c] = struct{}{}
		h.adminsMu.Unlock()
	}
	h.metrics.Connected(string(c.principal.Role))
}

// Unregister removes the client from every index. For a partner it reports whether
// this was the partner's last open connection.
func (h *Hub) Unregister(c *Client) bool {
	for _, orderID := range c.roomIDs() {
		h.Leave(c, orderID)
	}

	last := false
	switch c.principal.Role {
	case kernel.RolePartner:
		s := h.shardFor(c.principal.ID)
		s.mu.Lock()
		if set, ok := s.partners[c.principal.ID]; ok {
			delete(set, c)
			if len(set) == 0 {
				delete(s.partners, c.principal.ID)
				last = true
			}
		}
		s.mu.Unlock()
	case kernel.RoleAdmin:
		h.adminsMu.Lock()
		delete(h.admins, c)
		h.adminsMu.Unlock()
	}
	h.metrics.Disconnected(string(c.principal.Role))
	return last
}

// Join adds the client to the order's room. Joining twice is a no-op.
func (h *Hub) Join(c *Client, orderID kernel.UUID) {
	s := h.shardFor(orderID)
	s.mu.Lock()
	set, ok := s.rooms[orderID]
	if !ok {
		set = make(memberSet)
		s.rooms[orderID] = set
	}
	set[c] = struct{}{}
	s.mu.Unlock()

	c.addRoom(orderID)
}

// Leave removes the client from the order's room. Empty rooms are dropped.
func (h *Hub) Leave(c *Client, orderID kernel.UUID) {
	s := h.shardFor(orderID)
	s.mu.Lock()
	if set, ok := s.rooms[orderID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(s.rooms, orderID)
		}
	}
	s.mu.Unlock()

	c.removeRoom(orderID)
}

// Deliver hands the broadcast to every local member of its audiences, once per
// connection. A slow member loses the message; the others are unaffected.
func (h *Hub) Deliver(b Broadcast) int {
	recipients := make(memberSet)

	if b.OrderRoom != nil {
		s := h.shardFor(*b.OrderRoom)
		s.mu.RLock()
		for c := range s.rooms[*b.OrderRoom] {
			recipients[c] = struct{}{}
		}
		s.mu.RUnlock()
	}
	if b.Partner != nil {
		s := h.shardFor(*b.Partner)
		s.mu.RLock()
		for c := range s.partners[*b.Partner] {
			recipients[c] = struct{}{}
		}
		s.mu.RUnlock()
	}
	if b.Admins {
		h.adminsMu.RLock()
		for c := range h.admins {
			recipients[c] = struct{}{}
		}
		h.adminsMu.RUnlock()
	}

	delivered := 0
	for c := range recipients {
		if c.enqueue(b.Frame, b.Event) {
			delivered++
		}
	}
	return delivered
}

// RoomSize returns the number of connections in an order's room.
func (h *Hub) RoomSize(orderID kernel.UUID) int {
	s := h.shardFor(orderID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms[orderID])
}

// PartnerConnections returns the number of open connections of a partner.
func (h *Hub) PartnerConnections(partnerID kernel.UUID) int {
	s := h.shardFor(partnerID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.partners[partnerID])
}
