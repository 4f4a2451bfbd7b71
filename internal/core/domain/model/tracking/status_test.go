package tracking_test

import (
	"testing"

	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/domain/model/tracking"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allStatuses = []tracking.Status{
	tracking.Assigned,
	tracking.PickupStarted,
	tracking.PickedUp,
	tracking.InTransit,
	tracking.Arrived,
	tracking.Delivered,
	tracking.Failed,
	tracking.Returned,
	tracking.Cancelled,
}

func TestStatus_CanTransitionTo(t *testing.T) {
	allowed := map[tracking.Status][]tracking.Status{
		tracking.Assigned:      {tracking.PickupStarted, tracking.Failed, tracking.Returned, tracking.Cancelled},
		tracking.PickupStarted: {tracking.PickedUp, tracking.Failed, tracking.Returned, tracking.Cancelled},
		tracking.PickedUp:      {tracking.InTransit, tracking.Failed, tracking.Returned, tracking.Cancelled},
		tracking.InTransit:     {tracking.Arrived, tracking.Failed, tracking.Returned, tracking.Cancelled},
		tracking.Arrived:       {tracking.Delivered, tracking.Failed, tracking.Returned, tracking.Cancelled},
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			t.Run(from.String()+"->"+to.String(), func(t *testing.T) {
				expected := false
				for _, s := range allowed[from] {
					if s == to {
						expected = true
					}
				}

				assert.Equal(t, expected, from.CanTransitionTo(to))
			})
		}
	}

	assert.False(t, tracking.Assigned.CanTransitionTo("teleported"))
	assert.False(t, tracking.Status("teleported").CanTransitionTo(tracking.Failed))
}

func TestStatus_IsTerminal(t *testing.T) {
	terminal := map[tracking.Status]bool{
		tracking.Delivered: true,
		tracking.Failed:    true,
		tracking.Returned:  true,
		tracking.Cancelled: true,
	}

	for _, s := range allStatuses {
		assert.Equal(t, terminal[s], s.IsTerminal(), s.String())
	}
}

func TestStatus_OrderStatus(t *testing.T) {
	expected := map[tracking.Status]order.Status{
		tracking.Assigned:      order.Assigned,
		tracking.PickupStarted: order.Assigned,
		tracking.PickedUp:      order.PickedUp,
		tracking.InTransit:     order.OutForDelivery,
		tracking.Arrived:       order.OutForDelivery,
		tracking.Delivered:     order.Delivered,
		tracking.Failed:        order.Failed,
		tracking.Returned:      order.Returned,
		tracking.Cancelled:     order.Cancelled,
	}

	for _, s := range allStatuses {
		assert.Equal(t, expected[s], s.OrderStatus(), s.String())
		require.NoError(t, s.OrderStatus().Validate())
	}
}

func TestParseStatus(t *testing.T) {
	s, err := tracking.ParseStatus("in_transit")
	require.NoError(t, err)
	assert.Equal(t, tracking.InTransit, s)

	_, err = tracking.ParseStatus("IN_TRANSIT")
	require.Error(t, err)
}
