package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// End-to-end seed scenario: CEASER fixed developer key gives a deterministic
// keyed-index permutation, so collision/non-collision pairs are stable
// across construction.
func TestCEASERCache_FixedKeyCollisionIsDeterministic(t *testing.T) {
	c1 := NewCEASERCache(4, 2, ReplLRU, false, newRNGFn(1))
	c2 := NewCEASERCache(4, 2, ReplLRU, false, newRNGFn(2))

	// The keyed permutation depends only on the fixed developer key, not on
	// the replacement-policy RNG stream, so both instances must agree on
	// every pair's collision verdict.
	var foundCollision, foundNonCollision bool
	for a := Tag(0); a < 64 && !(foundCollision && foundNonCollision); a++ {
		for b := a + 1; b < 64; b++ {
			v1 := c1.HasCollision(a, ContextAttacker, b, ContextVictim)
			v2 := c2.HasCollision(a, ContextAttacker, b, ContextVictim)
			require.Equal(t, v1, v2, "collision verdict must not depend on the replacement RNG seed")
			if v1 {
				foundCollision = true
			} else {
				foundNonCollision = true
			}
		}
	}
	assert.True(t, foundCollision, "some pair among 64 tags must collide into a 4-set cache")
	assert.True(t, foundNonCollision, "some pair among 64 tags must land in different sets")
}

func TestCEASERCache_ReadWriteRoundTrip(t *testing.T) {
	c := NewCEASERCache(4, 2, ReplLRU, false, newRNGFn(3))
	miss := c.Read(7, ContextAttacker)
	assert.False(t, miss[0].Hit)
	hit := c.Read(7, ContextAttacker)
	assert.True(t, hit[0].Hit)
}
