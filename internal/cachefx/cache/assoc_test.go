package cache

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// End-to-end seed scenario: fully-associative LRU, 4-way sequence.
func TestAssocCache_LRU_FourWaySequence(t *testing.T) {
	ac := NewAssocCache(4, ReplLRU, false, rand.New(rand.NewSource(1)))

	for tag := Tag(0); tag < 4; tag++ {
		resp := ac.Read(tag, ContextAttacker)
		require.Len(t, resp, 1)
		assert.False(t, resp[0].Hit, "cold miss expected for tag %d", tag)
	}

	// Touch 0,1,2 again so 3 becomes the LRU way.
	ac.Read(0, ContextAttacker)
	ac.Read(1, ContextAttacker)
	ac.Read(2, ContextAttacker)

	resp := ac.Read(4, ContextAttacker)
	require.Len(t, resp, 1)
	assert.True(t, resp[0].Eviction)
	assert.Equal(t, Tag(3), resp[0].EvictedTag, "the only untouched way must be the one evicted")

	hit := ac.Read(0, ContextAttacker)
	assert.True(t, hit[0].Hit, "0 survived the eviction and still hits")
}

// Invariant: a Read/Write/Exec that reports a hit never also reports an
// eviction.
func TestAssocCache_HitNeverEvicts(t *testing.T) {
	ac := NewAssocCache(2, ReplLRU, false, rand.New(rand.NewSource(2)))
	ac.Read(10, ContextVictim)
	resp := ac.Read(10, ContextVictim)
	require.Len(t, resp, 1)
	assert.True(t, resp[0].Hit)
	assert.False(t, resp[0].Eviction)
}

// Invariant: evict-then-read always misses.
func TestAssocCache_EvictThenMiss(t *testing.T) {
	ac := NewAssocCache(2, ReplLRU, false, rand.New(rand.NewSource(3)))
	ac.Read(1, ContextAttacker)
	evResp := ac.Evict(1, ContextAttacker)
	require.Len(t, evResp, 1)
	assert.True(t, evResp[0].Hit, "evicting a present tag reports hit=true on the Evict call itself")

	resp := ac.Read(1, ContextAttacker)
	assert.False(t, resp[0].Hit, "the evicted tag must miss on next access")
}

// Invariant: tree-PLRU silently falls back to bit-PLRU when size is not a
// power of two (§4.1, §7 item 1), rather than erroring.
func TestAssocCache_TreePLRUFallback(t *testing.T) {
	ac := NewAssocCache(3, ReplTreePLRU, false, rand.New(rand.NewSource(4)))
	assert.Equal(t, AlgoBitPLRU, ac.Geometry().Algorithm, "non-power-of-two size must fall back to bit-PLRU")
	assert.Nil(t, ac.plruTree, "fallback must not allocate the tree-PLRU direction-bit array")
}

func TestAssocCache_TreePLRU_PowerOfTwo_NoFallback(t *testing.T) {
	ac := NewAssocCache(4, ReplTreePLRU, false, rand.New(rand.NewSource(5)))
	assert.Equal(t, AlgoTreePLRU, ac.Geometry().Algorithm)
	assert.Len(t, ac.plruTree, 3)
}

// Invariant: statistics counters are monotone non-decreasing under any
// access sequence.
func TestAssocCache_StatsMonotone(t *testing.T) {
	ac := NewAssocCache(4, ReplLRU, false, rand.New(rand.NewSource(6)))
	r := rand.New(rand.NewSource(7))
	var prev Statistics
	for i := 0; i < 200; i++ {
		ac.Read(Tag(r.Intn(8)), ContextAttacker)
		cur := ac.Stats(ContextAttacker)
		assert.GreaterOrEqual(t, cur.ReadHits, prev.ReadHits)
		assert.GreaterOrEqual(t, cur.ReadMisses, prev.ReadMisses)
		assert.GreaterOrEqual(t, cur.ReadEvicts, prev.ReadEvicts)
		prev = cur
	}
}

func TestAssocCache_HasCollisionAlwaysTrue(t *testing.T) {
	ac := NewAssocCache(4, ReplLRU, false, rand.New(rand.NewSource(8)))
	assert.True(t, ac.HasCollision(1, ContextAttacker, 99, ContextVictim))
}
