package order_test

import (
	"testing"

	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"placed", "confirmed", "assigned", "picked_up", "out_for_delivery", "delivered", "failed", "returned", "cancelled"} {
		t.Run(s, func(t *testing.T) {
			status, err := order.ParseStatus(s)

			require.NoError(t, err)
			assert.Equal(t, s, status.String())
		})
	}

	_, err := order.ParseStatus("Completed")
	require.ErrorIs(t, err, errs.ErrValueIsInvalid)
}

func TestStatus_ValidateAssign(t *testing.T) {
	testCases := []struct {
		status     order.Status
		assignable bool
		terminal   bool
	}{
		{order.Placed, true, false},
		{order.Confirmed, true, false},
		{order.Assigned, false, false},
		{order.PickedUp, false, false},
		{order.OutForDelivery, false, false},
		{order.Delivered, false, true},
		{order.Failed, false, true},
		{order.Returned, false, true},
		{order.Cancelled, false, true},
	}

	for _, tc := range testCases {
		t.Run(tc.status.String(), func(t *testing.T) {
			err := tc.status.ValidateAssign()
			if tc.assignable {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
			assert.Equal(t, tc.terminal, tc.status.IsTerminal())
		})
	}
}
