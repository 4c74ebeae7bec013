package attacker

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cachefx/cachefx/internal/cachefx/cache"
	"github.com/cachefx/cachefx/internal/cachefx/mmu"
	"github.com/cachefx/cachefx/internal/cachefx/profiler"
	"github.com/cachefx/cachefx/internal/cachefx/victim"
	"github.com/cachefx/cachefx/internal/cachefx/stats"
)

func TestDistinguisher_NonOverlappingIntervalsSucceed(t *testing.T) {
	a := stats.NewAccumulator()
	b := stats.NewAccumulator()
	for i := 0; i < 50; i++ {
		a.Add(10.0)
		b.Add(0.0)
	}
	d := Distinguisher{Margin: 0.05}
	assert.True(t, d.Test(a, b))
}

func TestDistinguisher_OverlappingIntervalsFail(t *testing.T) {
	a := stats.NewAccumulator()
	b := stats.NewAccumulator()
	for i := 0; i < 50; i++ {
		a.Add(5.0 + float64(i%3))
		b.Add(5.0 + float64((i+1)%3))
	}
	d := Distinguisher{Margin: 0.05}
	assert.False(t, d.Test(a, b))
}

func TestDistinguisher_RequiresAtLeastTwoSamplesEachSide(t *testing.T) {
	a := stats.NewAccumulator()
	b := stats.NewAccumulator()
	a.Add(1)
	b.Add(1)
	d := Distinguisher{Margin: 0.01}
	assert.False(t, d.Test(a, b), "a single sample per side must never be enough to declare success")
}

func TestDistinguisher_MarginGatesSmallButSignificantGaps(t *testing.T) {
	a := stats.NewAccumulator()
	b := stats.NewAccumulator()
	for i := 0; i < 1000; i++ {
		a.Add(1.0)
		b.Add(1.001)
	}
	tight := Distinguisher{Margin: 0.05}
	assert.False(t, tight.Test(a, b), "a tiny but statistically separable gap must still fail the margin gate")
}

// End-to-end seed scenario: binary victim + eviction attacker + LRU,
// give-up bound 10000, expect success within a small number of iterations
// thanks to a deterministic 2-line collision.
func TestEvictionAttacker_BinaryVictim_SucceedsQuickly(t *testing.T) {
	c := cache.NewAssocCache(1, cache.ReplLRU, false, rand.New(rand.NewSource(1)))
	m := mmu.New(c, 0)
	v := victim.NewBinaryVictim(m, 128)
	h := v.(interface{ PrimaryHandle() *mmu.Handle }).PrimaryHandle()
	require.NotNil(t, h)

	p := profiler.NewP90Profiler(0.9)
	evSet := p.CreateEvictionSet(v, h, c.Geometry().EvictionSetSize, 10000)
	require.NotEmpty(t, evSet)

	cfg := DefaultConfig()
	cfg.GiveUp = 10000
	d := NewEvictionAttacker(cfg, h, v, evSet, rand.New(rand.NewSource(2)))
	res := d.Run()

	assert.True(t, res.Success, "a single-line fully-associative cache must separate the binary victim's two branches quickly")
	assert.LessOrEqual(t, res.Iterations, 200)
}

func TestOccupancyAttacker_SingleFixedTargetRunsToGiveUp(t *testing.T) {
	c := cache.NewAssocCache(2, cache.ReplLRU, false, rand.New(rand.NewSource(3)))
	m := mmu.New(c, 0)
	v := victim.NewSingleAccessVictim(m, 256, false, rand.New(rand.NewSource(4)))
	h := v.(interface{ PrimaryHandle() *mmu.Handle }).PrimaryHandle()

	cfg := DefaultConfig()
	cfg.GiveUp = 50
	d := NewOccupancyAttacker(cfg, h, v, []uint64{0, 64}, rand.New(rand.NewSource(5)))
	res := d.Run()

	assert.Equal(t, 50, res.Iterations, "an occupancy attack against a single fixed-target victim should run to the give-up bound rather than spuriously succeed")
}
