package shard_test

import (
	"fmt"
	"testing"

	"dispatch/internal/pkg/shard"

	"github.com/stretchr/testify/assert"
)

func TestIndex(t *testing.T) {
	t.Run("should be stable and in range", func(t *testing.T) {
		for i := range 1000 {
			key := fmt.Sprintf("partner-%d", i)
			idx := shard.Index(key, 16)

			assert.GreaterOrEqual(t, idx, 0)
			assert.Less(t, idx, 16)
			assert.Equal(t, idx, shard.Index(key, 16))
		}
	})

	t.Run("should spread keys across stripes", func(t *testing.T) {
		used := make(map[int]struct{})
		for i := range 1000 {
			used[shard.Index(fmt.Sprintf("order-%d", i), 8)] = struct{}{}
		}

		assert.Len(t, used, 8)
	})

	t.Run("should tolerate non positive counts", func(t *testing.T) {
		assert.Equal(t, 0, shard.Index("x", 0))
		assert.Equal(t, shard.DefaultCount, shard.Count(0))
		assert.Equal(t, 4, shard.Count(4))
	})
}
