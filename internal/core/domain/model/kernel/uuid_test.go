package kernel_test

import (
	"encoding/json"
	"testing"

	"dispatch/internal/core/domain/model/kernel"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUUID(t *testing.T) {
	id1 := kernel.NewUUID()
	id2 := kernel.NewUUID()

	require.NoError(t, id1.Validate())
	assert.False(t, id1.IsEqual(id2))
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", id1.String())
}

func TestUUIDFromString(t *testing.T) {
	validUUID := "550e8400-e29b-41d4-a716-446655440000"

	t.Run("canonical form", func(t *testing.T) {
		id, err := kernel.UUIDFromString(validUUID)
		require.NoError(t, err)
		assert.Equal(t, validUUID, id.String())
	})

	t.Run("urn form", func(t *testing.T) {
		id, err := kernel.UUIDFromString("urn:uuid:" + validUUID)
		require.NoError(t, err)
		assert.Equal(t, validUUID, id.String())
	})

	t.Run("garbage is rejected", func(t *testing.T) {
		_, err := kernel.UUIDFromString("order-1")
		require.Error(t, err)
	})

	t.Run("nil uuid is rejected", func(t *testing.T) {
		_, err := kernel.UUIDFromString("00000000-0000-0000-0000-000000000000")
		require.ErrorIs(t, err, kernel.ErrUUIDIsNotConstructed)
	})
}

func TestUUID_Validate(t *testing.T) {
	var id kernel.UUID

	assert.True(t, id.IsZero())
	assert.Equal(t, kernel.ErrUUIDIsNotConstructed, id.Validate())
}

func TestUUID_JSON(t *testing.T) {
	type payload struct {
		OrderID kernel.UUID `json:"orderId"`
	}

	t.Run("round trips through json", func(t *testing.T) {
		in := payload{OrderID: kernel.NewUUID()}
		raw, err := json.Marshal(in)
		require.NoError(t, err)

		var out payload
		require.NoError(t, json.Unmarshal(raw, &out))
		assert.True(t, in.OrderID.IsEqual(out.OrderID))
	})

	t.Run("empty string leaves zero value", func(t *testing.T) {
		var out payload
		require.NoError(t, json.Unmarshal([]byte(`{"orderId":""}`), &out))
		assert.True(t, out.OrderID.IsZero())
	})

	t.Run("malformed id fails decoding", func(t *testing.T) {
		var out payload
		require.Error(t, json.Unmarshal([]byte(`{"orderId":"nope"}`), &out))
	})
}
