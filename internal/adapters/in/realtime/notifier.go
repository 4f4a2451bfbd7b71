package realtime

import (
	"context"
	"encoding/json"

	"dispatch/internal/core/ports"

	"github.com/rs/zerolog"
)

var _ ports.Notifier = (*Notifier)(nil)

// Notifier encodes use case notifications once and publishes them through a Fanout.
type Notifier struct {
	fanout Fanout
	logger zerolog.Logger
}

// NewNotifier creates a Notifier.
func NewNotifier(fanout Fanout, logger zerolog.Logger) *Notifier {
	return &Notifier{fanout: fanout, logger: logger}
}

// Notify publishes n. Failures are logged; the caller's operation already succeeded.
func (n *Notifier) Notify(ctx context.Context, notification ports.Notification) {
	if notification.OrderRoom == nil && notification.Partner == nil && !notification.Admins {
		return
	}

	frame, err := json.Marshal(Outbound{Event: notification.Event, Data: notification.Data})
	if err != nil {
		n.logger.Error().Err(err).Str("event", notification.Event).Msg("encode notification")
		return
	}

	b := Broadcast{
		Event:     notification.Event,
		Frame:     frame,
		OrderRoom: notification.OrderRoom,
		Partner:   notification.Partner,
		Admins:    notification.Admins,
	}
	if err = n.fanout.Publish(ctx, b); err != nil {
		n.logger.Warn().Err(err).Str("event", notification.Event).Msg("publish notification")
	}
}
