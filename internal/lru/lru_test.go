package lru

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetPutRoundTrip(t *testing.T) {
	c := New[string, []byte](DefaultCapacity)
	c.Put("a", []byte("A"))
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, []byte("A"), v)
}

func TestCapacityClamped(t *testing.T) {
	c := New[string, int](1)
	assert.Equal(t, DefaultCapacity, c.capacity)
	c2 := New[string, int](100000)
	assert.Equal(t, MaxCapacity, c2.capacity)
}

func TestStrictLRUEviction(t *testing.T) {
	c := New[int, int](DefaultCapacity)
	for i := 0; i < DefaultCapacity; i++ {
		c.Put(i, i)
	}
	// touch key 0 to make it most-recently-used
	_, _ = c.Get(0)
	// insert one more, should evict key 1 (the new oldest), not key 0
	c.Put(DefaultCapacity, DefaultCapacity)

	_, ok := c.Get(0)
	assert.True(t, ok, "recently-used key 0 must survive eviction")
	_, ok = c.Get(1)
	assert.False(t, ok, "least-recently-used key 1 must be evicted")
	assert.Equal(t, DefaultCapacity, c.Len())
}

func TestPutExistingKeyUpdatesAndPromotes(t *testing.T) {
	c := New[string, int](DefaultCapacity)
	c.Put("x", 1)
	c.Put("x", 2)
	v, ok := c.Get("x")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, c.Len())
}
