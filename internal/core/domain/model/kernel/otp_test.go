package kernel_test

import (
	"encoding/json"
	"testing"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOTP(t *testing.T) {
	expires := time.Date(2026, 1, 1, 12, 30, 0, 0, time.UTC)

	t.Run("should accept six digits", func(t *testing.T) {
		otp, err := kernel.NewOTP("012345", expires)

		require.NoError(t, err)
		assert.Equal(t, "012345", otp.Code())
		assert.Equal(t, expires, otp.ExpiresAt())
		assert.False(t, otp.Verified())
		assert.Nil(t, otp.VerifiedAt())
	})

	t.Run("should reject malformed codes", func(t *testing.T) {
		for _, code := range []string{"", "12345", "1234567", "12a456", "١٢٣٤٥٦"} {
			_, err := kernel.NewOTP(code, expires)
			require.ErrorIs(t, err, errs.ErrValueIsInvalid, code)
		}
	})

	t.Run("should require expiry", func(t *testing.T) {
		_, err := kernel.NewOTP("123456", time.Time{})
		require.ErrorIs(t, err, errs.ErrValueIsRequired)
	})
}

func TestOTP_Verify(t *testing.T) {
	issued := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	expires := issued.Add(30 * time.Minute)
	otp, err := kernel.NewOTP("482913", expires)
	require.NoError(t, err)

	t.Run("should reject wrong code", func(t *testing.T) {
		got, err := otp.Verify("000000", issued)

		require.ErrorIs(t, err, kernel.ErrInvalidOTP)
		assert.False(t, got.Verified())
	})

	t.Run("should reject expired code", func(t *testing.T) {
		_, err := otp.Verify("482913", expires.Add(time.Second))

		require.ErrorIs(t, err, kernel.ErrOTPExpired)
		require.ErrorIs(t, err, errs.ErrExpired)
	})

	t.Run("should accept at expiry instant", func(t *testing.T) {
		got, err := otp.Verify("482913", expires)

		require.NoError(t, err)
		assert.True(t, got.Verified())
	})

	t.Run("should be single use", func(t *testing.T) {
		verified, err := otp.Verify("482913", issued.Add(time.Minute))
		require.NoError(t, err)
		require.NotNil(t, verified.VerifiedAt())
		assert.False(t, otp.Verified(), "original value is untouched")

		for _, code := range []string{"482913", "000000"} {
			_, err = verified.Verify(code, issued.Add(2*time.Minute))
			require.ErrorIs(t, err, kernel.ErrOTPAlreadyUsed)
		}
	})
}

func TestOTP_JSON(t *testing.T) {
	expires := time.Date(2026, 1, 1, 12, 30, 0, 0, time.UTC)
	otp, err := kernel.NewOTP("482913", expires)
	require.NoError(t, err)
	otp, err = otp.Verify("482913", expires.Add(-time.Minute))
	require.NoError(t, err)

	data, err := json.Marshal(otp)
	require.NoError(t, err)

	var decoded kernel.OTP
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "482913", decoded.Code())
	assert.True(t, decoded.Verified())
	assert.True(t, decoded.ExpiresAt().Equal(expires))
}
