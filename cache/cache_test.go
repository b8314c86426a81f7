package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryGetSetExpire(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	m.Set(ctx, "k", []byte("v"), time.Minute)
	b, ok := m.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), b)

	now = now.Add(time.Minute)
	_, ok = m.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMemoryTakeIsSingleUse(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.Set(ctx, "state", []byte("google"), 0)

	b, ok := m.Take(ctx, "state")
	assert.True(t, ok)
	assert.Equal(t, "google", string(b))

	_, ok = m.Take(ctx, "state")
	assert.False(t, ok)
}

func TestMemoryInvalidateByPrefix(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.Set(ctx, "cache:user:id:1", []byte("a"), time.Hour)
	m.Set(ctx, "cache:user:name:Sam", []byte("b"), time.Hour)
	m.Set(ctx, "cache:emoji:grin", []byte("c"), time.Hour)

	m.InvalidateByPrefix(ctx, "cache:user:")
	_, ok := m.Get(ctx, "cache:user:id:1")
	assert.False(t, ok)
	_, ok = m.Get(ctx, "cache:user:name:Sam")
	assert.False(t, ok)
	_, ok = m.Get(ctx, "cache:emoji:grin")
	assert.True(t, ok)
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	type item struct{ Name string }

	SetJSON(ctx, m, "item", item{Name: "x"}, time.Hour)
	var got item
	assert.True(t, GetJSON(ctx, m, "item", &got))
	assert.Equal(t, "x", got.Name)

	m.Set(ctx, "broken", []byte("{"), time.Hour)
	assert.False(t, GetJSON(ctx, m, "broken", &got))
	assert.False(t, GetJSON(ctx, m, "missing", &got))
}

func TestMemorySetCopiesValue(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	buf := []byte("abc")
	m.Set(ctx, "k", buf, time.Hour)
	buf[0] = 'z'
	b, _ := m.Get(ctx, "k")
	assert.Equal(t, "abc", string(b))
}

func TestMemoryAddOnlyWhenAbsent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	assert.True(t, m.Add(ctx, "gen", []byte("a"), time.Minute))
	assert.False(t, m.Add(ctx, "gen", []byte("b"), time.Minute))
	b, _ := m.Get(ctx, "gen")
	assert.Equal(t, "a", string(b))

	now = now.Add(time.Minute)
	assert.True(t, m.Add(ctx, "gen", []byte("c"), time.Minute))
	b, _ = m.Get(ctx, "gen")
	assert.Equal(t, "c", string(b))
}
