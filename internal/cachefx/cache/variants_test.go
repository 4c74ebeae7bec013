package cache

// Lighter-weight coverage for the remaining catalogue variants (§4.1):
// each gets a read/write round trip and its documented fallback or
// degenerate-case behaviour, without repeating the fully-associative and
// set-associative suites' exhaustive sequence tests.

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCEASERSCache_NonDivisiblePartitionsFallsBackToOne(t *testing.T) {
	c := NewCEASERSCache(4, 3, 2, newRNGFn(1)()) // 3 ways do not divide into 2 partitions
	assert.Equal(t, 1, c.npartitions, "§7 item 1: a non-divisor partition count must silently fall back to 1")
}

func TestCEASERSCache_ReadWriteRoundTrip(t *testing.T) {
	c := NewCEASERSCache(4, 4, 2, newRNGFn(2)())
	miss := c.Read(3, ContextAttacker)
	assert.False(t, miss[0].Hit)
	hit := c.Read(3, ContextAttacker)
	assert.True(t, hit[0].Hit)
}

func TestScatterCache_ReadWriteRoundTrip(t *testing.T) {
	c := NewScatterCache(4, 4, newRNGFn(3)())
	miss := c.Read(11, ContextVictim)
	assert.False(t, miss[0].Hit)
	hit := c.Read(11, ContextVictim)
	assert.True(t, hit[0].Hit)
}

func TestPhantomCache_TagStaysFindableAcrossCandidateSets(t *testing.T) {
	c := NewPhantomCache(4, 2, 3, ReplLRU, newRNGFn(4), newRNGFn(5)())
	first := c.Read(5, ContextAttacker)
	assert.False(t, first[0].Hit)
	hit := c.Read(5, ContextAttacker)
	assert.True(t, hit[0].Hit, "a tag must remain findable across its own R candidate sets")
}

func TestNewCacheVariant_ReadWriteRoundTrip(t *testing.T) {
	c := NewNewCacheVariant(8, 4, newRNGFn(6)())
	miss := c.Read(2, ContextAttacker)
	assert.False(t, miss[0].Hit)
	hit := c.Read(2, ContextAttacker)
	assert.True(t, hit[0].Hit)
}

func TestPLCache_ReadWriteRoundTrip(t *testing.T) {
	c := NewPLCache(4, 2, newRNGFn(7))
	miss := c.Read(6, ContextVictim)
	assert.False(t, miss[0].Hit)
	hit := c.Read(6, ContextVictim)
	assert.True(t, hit[0].Hit)
}

func TestDuelCache_RoutesToOnePolicyAtATime(t *testing.T) {
	primary := NewAssocCache(4, ReplLRU, false, newRNGFn(8)())
	secondary := NewAssocCache(4, ReplBIP, false, newRNGFn(9)())
	require.NoError(t, ValidateDuelCompatible("fully-associative"))
	d := NewDuelCache(primary, secondary, false)

	resp := d.Read(1, ContextAttacker)
	require.Len(t, resp, 1)
	assert.False(t, resp[0].Hit)
}

func TestDuelCache_PselSaturatesAndSwitchesSelection(t *testing.T) {
	// A 1-way primary starved by round-robin tags 0/1 misses on every
	// access (it can only ever hold one of the two), while a 2-way
	// secondary holds both and hits from the second access onward. Psel
	// must climb on every one-sided primary miss until it saturates past
	// the halfway point, at which point Read starts returning the
	// secondary's (hitting) response.
	primary := NewAssocCache(1, ReplLRU, false, newRNGFn(10)())
	secondary := NewAssocCache(2, ReplLRU, false, newRNGFn(11)())
	d := NewDuelCache(primary, secondary, false)

	var last []Response
	for i := 0; i < 20; i++ {
		tag := Tag(i % 2)
		last = d.Read(tag, ContextAttacker)
	}
	assert.True(t, last[0].Hit, "after enough one-sided primary misses, psel should have switched selection to the secondary")
}

func TestDuelCache_GeometryLabelsAlgorithmByMode(t *testing.T) {
	primary := NewAssocCache(4, ReplLRU, false, newRNGFn(12)())
	secondary := NewAssocCache(4, ReplBIP, false, newRNGFn(13)())

	dip := NewDuelCache(primary, secondary, false)
	assert.Equal(t, AlgoDIP, dip.Geometry().Algorithm)

	drrip := NewDuelCache(primary, secondary, true)
	assert.Equal(t, AlgoDRRIP, drrip.Geometry().Algorithm)
}

func TestValidateDuelCompatible_RejectsIncompatibleVariants(t *testing.T) {
	for _, name := range []string{"scatter", "newcache", "ceaser-s"} {
		assert.Error(t, ValidateDuelCompatible(name), "%s must be rejected as a DIP/DRRIP sub-cache", name)
	}
	assert.NoError(t, ValidateDuelCompatible("set-associative"))
}
