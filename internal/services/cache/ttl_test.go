package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestTTLCache_Expiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 3, 3, 14, 0, 0, 0, time.UTC)}
	c := NewTTLCache[float64](5*time.Second, clock.Now)

	c.Put("AAPL", 187.5)

	clock.Advance(3 * time.Second)
	v, ok := c.Get("AAPL")
	assert.True(t, ok)
	assert.Equal(t, 187.5, v)

	clock.Advance(2 * time.Second)
	_, ok = c.Get("AAPL")
	assert.True(t, ok, "entry is still valid at exactly ttl")

	clock.Advance(3 * time.Second)
	_, ok = c.Get("AAPL")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "expired entry is removed on read")
}

func TestTTLCache_PutResetsAge(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	c := NewTTLCache[string](time.Minute, clock.Now)

	c.Put("k", "a")
	clock.Advance(50 * time.Second)
	c.Put("k", "b")
	clock.Advance(50 * time.Second)

	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "b", v)
}

func TestTTLCache_RemoveAndClear(t *testing.T) {
	c := NewTTLCache[int](time.Hour, nil)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)

	c.Remove("a")
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 2, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
}
