package tracking_test

import (
	"encoding/json"
	"testing"
	"time"

	"dispatch/internal/core/domain/model/tracking"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRestoreSession(t *testing.T) {
	t.Run("should survive a document round trip", func(t *testing.T) {
		s := advance(t, createSession(t), createdAt.Add(time.Minute), tracking.PickupStarted, tracking.PickedUp)
		s, err := s.AppendRoutePoint(tracking.RoutePoint{Lat: 28.61, Lng: 77.21, Speed: 20, Timestamp: createdAt.Add(2 * time.Minute)}, createdAt.Add(2*time.Minute))
		require.NoError(t, err)
		s, _, err = s.ReportIssue("traffic", "jam", createdAt.Add(3*time.Minute))
		require.NoError(t, err)
		s = s.WithVersion(4)

		data, err := json.Marshal(s.Snapshot())
		require.NoError(t, err)
		var snap tracking.Snapshot
		require.NoError(t, json.Unmarshal(data, &snap))
		restored, err := tracking.RestoreSession(snap)

		require.NoError(t, err)
		assert.True(t, restored.OrderID().IsEqual(s.OrderID()))
		assert.Equal(t, tracking.PickedUp, restored.Status())
		assert.Len(t, restored.Timeline(), 3)
		assert.Len(t, restored.Route(), 1)
		assert.Len(t, restored.Issues(), 1)
		assert.Equal(t, otpCode, restored.OTP().Code())
		assert.Equal(t, int64(4), restored.Version())
		assert.True(t, restored.Metrics().ActualPickupTime.Equal(*s.Metrics().ActualPickupTime))

		_, err = restored.VerifyOTP(otpCode, createdAt.Add(5*time.Minute))
		require.ErrorIs(t, err, tracking.ErrIllegalTransition)
	})

	t.Run("should hide otp from other viewers", func(t *testing.T) {
		snap := createSession(t).Snapshot()
		require.NotNil(t, snap.DeliveryDetails.OTP)

		assert.Nil(t, snap.WithoutOTP().DeliveryDetails.OTP)
		assert.NotNil(t, snap.DeliveryDetails.OTP)
	})

	t.Run("should reject documents without otp or timeline", func(t *testing.T) {
		snap := createSession(t).Snapshot()

		noOTP := snap
		noOTP.DeliveryDetails.OTP = nil
		_, err := tracking.RestoreSession(noOTP)
		require.Error(t, err)

		noTimeline := snap
		noTimeline.Timeline = nil
		_, err = tracking.RestoreSession(noTimeline)
		require.Error(t, err)
	})
}
