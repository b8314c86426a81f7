// Package cache provides the key/value cache used for read-through user
// lookups, OAuth state tokens and third-party API responses.
package cache

import (
	"context"
	"encoding/json"
	"time"
)

// DefaultTTL applies when callers pass a non-positive ttl.
const DefaultTTL = time.Hour

// Cache is a byte-oriented cache with prefix invalidation.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	// Add stores the value only when the key is absent and reports whether it did.
	Add(ctx context.Context, key string, value []byte, ttl time.Duration) bool
	// Take returns the value and removes it atomically.
	Take(ctx context.Context, key string) ([]byte, bool)
	InvalidateByPrefix(ctx context.Context, prefix string)
}

// GetJSON unmarshals a cached JSON value into out.
func GetJSON(ctx context.Context, c Cache, key string, out interface{}) bool {
	b, ok := c.Get(ctx, key)
	if !ok {
		return false
	}
	return json.Unmarshal(b, out) == nil
}

// SetJSON marshals v and stores the JSON bytes.
func SetJSON(ctx context.Context, c Cache, key string, v interface{}, ttl time.Duration) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.Set(ctx, key, b, ttl)
}
