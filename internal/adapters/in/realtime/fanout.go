package realtime

import "context"

// Deliverer hands a broadcast to the connections of this instance.
type Deliverer interface {
	Deliver(b Broadcast) int
}

// Fanout carries a broadcast to every instance that may hold a recipient.
type Fanout interface {
	Publish(ctx context.Context, b Broadcast) error
}

// LocalFanout delivers to this instance only. It is the single-instance default.
type LocalFanout struct {
	deliverer Deliverer
}

// NewLocalFanout creates a LocalFanout.
func NewLocalFanout(deliverer Deliverer) LocalFanout {
	return LocalFanout{deliverer: deliverer}
}

// Publish delivers b synchronously. It never fails.
func (f LocalFanout) Publish(_ context.Context, b Broadcast) error {
	f.deliverer.Deliver(b)
	return nil
}
