package stmtcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEntry struct {
	destroyed *bool
}

func (f fakeEntry) Destroy() { *f.destroyed = true }

func newFakeEntry() (Entry, *bool) {
	destroyed := new(bool)
	return fakeEntry{destroyed: destroyed}, destroyed
}

func TestCache_PutThenGetHits(t *testing.T) {
	c := New(2)
	a, _ := newFakeEntry()
	c.Put("A", a)

	got, ok := c.Get("A")
	require.True(t, ok)
	assert.Equal(t, a, got)
}

func TestCache_EvictsLRUAtCapacity(t *testing.T) {
	// cap=2, prepare A, B, A (hit), then C evicts B.
	c := New(2)
	a, aDestroyed := newFakeEntry()
	b, bDestroyed := newFakeEntry()
	cc, _ := newFakeEntry()

	c.Put("A", a)
	c.Put("B", b)

	_, ok := c.Get("A")
	require.True(t, ok, "third prepare of A should be a cache hit")
	assert.False(t, *aDestroyed)
	assert.False(t, *bDestroyed)

	c.Put("C", cc)

	assert.True(t, *bDestroyed, "B was least-recently-used and should be evicted exactly once")
	assert.False(t, *aDestroyed)
	assert.Equal(t, 2, c.Len())
}

func TestCache_RemoveDestroysEntry(t *testing.T) {
	c := New(2)
	a, aDestroyed := newFakeEntry()
	c.Put("A", a)

	assert.True(t, c.Remove("A"))
	assert.True(t, *aDestroyed)
	assert.False(t, c.Remove("A"))
}

func TestCache_ClearDestroysEverything(t *testing.T) {
	c := New(4)
	a, aDestroyed := newFakeEntry()
	b, bDestroyed := newFakeEntry()
	c.Put("A", a)
	c.Put("B", b)

	c.Clear()

	assert.True(t, *aDestroyed)
	assert.True(t, *bDestroyed)
	assert.Equal(t, 0, c.Len())
}

func TestCache_ZeroCapacityDisablesCache(t *testing.T) {
	c := New(0)
	a, aDestroyed := newFakeEntry()
	c.Put("A", a)

	assert.True(t, *aDestroyed, "disabled cache must destroy rather than retain")
	_, ok := c.Get("A")
	assert.False(t, ok)
}

func TestCache_AtMostCapacityDistinctKeysRetained(t *testing.T) {
	c := New(3)
	keys := []string{"A", "B", "C", "D", "E"}
	for _, k := range keys {
		e, _ := newFakeEntry()
		c.Put(k, e)
	}
	assert.LessOrEqual(t, c.Len(), 3)
	// Most recently used should still be present.
	_, ok := c.Get("E")
	assert.True(t, ok)
}
