package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// End-to-end seed scenario: a single physical way forces every new
// (context, lnreg) key to evict whatever mapping currently owns that way,
// and the response must report the evicted tag so MMU telemetry can harvest
// it (§4.2).
func TestNewCacheVariant_LnregMissReportsEviction(t *testing.T) {
	c := NewNewCacheVariant(1, 4, newRNGFn(1)())

	first := c.Read(2, ContextAttacker) // lnreg=2%4=2, upper=2/4=0
	assert.False(t, first[0].Hit)
	assert.False(t, first[0].Eviction)

	second := c.Read(1, ContextVictim) // lnreg=1%4=1, upper=1/4=0, distinct key
	assert.False(t, second[0].Hit)
	assert.True(t, second[0].Eviction, "the only physical way was already occupied by a different lnreg mapping")
	assert.Equal(t, Tag(2), second[0].EvictedTag)
}

func TestNewCacheVariant_LnregHitTagMismatchOverwritesInPlace(t *testing.T) {
	c := NewNewCacheVariant(2, 4, newRNGFn(2)())

	first := c.Read(1, ContextAttacker) // lnreg=1, upper=0
	assert.False(t, first[0].Hit)

	// Same (ctx, lnreg) key, different upper tag: lnreg hit, tag mismatch.
	second := c.Read(5, ContextAttacker) // lnreg=1, upper=1
	assert.False(t, second[0].Hit)
	assert.False(t, second[0].Eviction, "an in-place lnreg overwrite is not an eviction")

	third := c.Read(5, ContextAttacker)
	assert.True(t, third[0].Hit)
}
