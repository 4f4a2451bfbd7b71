package errs_test

import (
	"errors"
	"testing"

	"dispatch/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypedErrors_MessageAndSentinel(t *testing.T) {
	storeDown := errors.New("connection refused")

	tests := []struct {
		name     string
		err      error
		message  string
		sentinel error
	}{
		{
			name:     "not found",
			err:      errs.NewObjectNotFoundError("order", "6f1c"),
			message:  "object not found: 6f1c",
			sentinel: errs.ErrObjectNotFound,
		},
		{
			name:     "not found with cause",
			err:      errs.NewObjectNotFoundErrorWithCause("session", "6f1c", storeDown),
			message:  "object not found: param is: session, ID is: 6f1c (cause: connection refused)",
			sentinel: errs.ErrObjectNotFound,
		},
		{
			name:     "invalid",
			err:      errs.NewValueIsInvalidError("status"),
			message:  "value is invalid: status",
			sentinel: errs.ErrValueIsInvalid,
		},
		{
			name:     "invalid with cause",
			err:      errs.NewValueIsInvalidErrorWithCause("payload", errors.New("rating: max")),
			message:  "value is invalid: payload (cause: rating: max)",
			sentinel: errs.ErrValueIsInvalid,
		},
		{
			name:     "out of range",
			err:      errs.NewValueIsOutOfRangeError("latitude", 91.5, -90, 90),
			message:  "value is invalid: 91.5 is latitude, min value is -90, max value is 90",
			sentinel: errs.ErrValueIsOutOfRange,
		},
		{
			name: "out of range with cause",
			err: errs.NewValueIsOutOfRangeErrorWithCause("rating", 7, 1, 5,
				errors.New("feedback rejected")),
			message:  "value is invalid: 7 is rating, min value is 1, max value is 5 (cause: feedback rejected)",
			sentinel: errs.ErrValueIsOutOfRange,
		},
		{
			name:     "required",
			err:      errs.NewValueIsRequiredError("orderId"),
			message:  "value is required: orderId",
			sentinel: errs.ErrValueIsRequired,
		},
		{
			name:     "required with cause",
			err:      errs.NewValueIsRequiredErrorWithCause("otp", errors.New("empty body")),
			message:  "value is required: otp (cause: empty body)",
			sentinel: errs.ErrValueIsRequired,
		},
		{
			name:     "version",
			err:      errs.NewVersionIsInvalidError("session", errors.New("stale write")),
			message:  "version is invalid: session (cause: stale write)",
			sentinel: errs.ErrVersionIsInvalid,
		},
		{
			name:     "version without cause",
			err:      errs.NewVersionIsInvalidErrorWithCause("session"),
			message:  "version is invalid: session",
			sentinel: errs.ErrVersionIsInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.message, tt.err.Error())
			require.ErrorIs(t, tt.err, tt.sentinel)
		})
	}
}

func TestObjectNotFoundError_Fields(t *testing.T) {
	cause := errors.New("no rows")
	err := errs.NewObjectNotFoundErrorWithCause("partner", "p-1", cause)

	assert.Equal(t, "partner", err.ParamName)
	assert.Equal(t, "p-1", err.ID)
	assert.Equal(t, cause, err.Cause)
}

func TestValueIsOutOfRangeError_SanitizesNewlines(t *testing.T) {
	err := errs.NewValueIsOutOfRangeError("notes", "left at\ngate", 0, 500)

	assert.Contains(t, err.Error(), "left at gate")
	assert.NotContains(t, err.Error(), "\n")
}

func TestSentinelMessages(t *testing.T) {
	sentinels := map[error]string{
		errs.ErrObjectNotFound:    "object not found",
		errs.ErrValueIsInvalid:    "value is invalid",
		errs.ErrValueIsOutOfRange: "value is out of range",
		errs.ErrValueIsRequired:   "value is required",
		errs.ErrVersionIsInvalid:  "version is invalid",
		errs.ErrConflict:          "conflict",
		errs.ErrExpired:           "expired",
		errs.ErrUnauthorized:      "unauthorized",
		errs.ErrPersistence:       "persistence failure",
	}

	for sentinel, message := range sentinels {
		assert.Equal(t, message, sentinel.Error())
	}
}

func TestConflictError(t *testing.T) {
	err := errs.NewConflictError("partner", "already on a delivery")

	assert.Equal(t, "conflict: partner: already on a delivery", err.Error())
	require.ErrorIs(t, err, errs.ErrConflict)
}

func TestExpiredError(t *testing.T) {
	err := errs.NewExpiredError("otp")

	assert.Equal(t, "expired: otp", err.Error())
	require.ErrorIs(t, err, errs.ErrExpired)
}

func TestUnauthorizedError(t *testing.T) {
	t.Run("without cause", func(t *testing.T) {
		err := errs.NewUnauthorizedError("missing bearer token")
		assert.Equal(t, "unauthorized: missing bearer token", err.Error())
		require.ErrorIs(t, err, errs.ErrUnauthorized)
	})

	t.Run("with cause", func(t *testing.T) {
		err := errs.NewUnauthorizedErrorWithCause("invalid token", errors.New("signature mismatch"))
		assert.Equal(t, "unauthorized: invalid token (cause: signature mismatch)", err.Error())
		require.ErrorIs(t, err, errs.ErrUnauthorized)
	})
}

func TestPersistenceError(t *testing.T) {
	cause := errors.New("connection reset")
	err := errs.NewPersistenceError("save session", cause)

	assert.Equal(t, "persistence failure: save session (cause: connection reset)", err.Error())
	require.ErrorIs(t, err, errs.ErrPersistence)
	require.ErrorIs(t, err, cause)
}
