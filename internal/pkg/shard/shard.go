// Package shard maps keys onto a fixed number of lock stripes.
package shard

import "hash/fnv"

// DefaultCount is used when a non-positive shard count is configured.
const DefaultCount = 32

// Index returns the stripe of key among n stripes using FNV-1a.
func Index(key string, n int) int {
	if n <= 0 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(n)) //nolint:gosec // n is a small positive shard count
}

// Count normalizes a configured shard count.
func Count(n int) int {
	if n <= 0 {
		return DefaultCount
	}
	return n
}
