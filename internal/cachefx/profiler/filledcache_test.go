package profiler

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cachefx/cachefx/internal/cachefx/cache"
	"github.com/cachefx/cachefx/internal/cachefx/mmu"
	"github.com/cachefx/cachefx/internal/cachefx/victim"
)

func newAttackerFixture(nways int) (victim.Victim, *mmu.Handle, *cache.AssocCache) {
	c := cache.NewAssocCache(nways, cache.ReplLRU, false, rand.New(rand.NewSource(11)))
	m := mmu.New(c, 0)
	v := victim.NewSingleAccessVictim(m, 1024, false, rand.New(rand.NewSource(12)))
	h := v.(interface{ PrimaryHandle() *mmu.Handle }).PrimaryHandle()
	return v, h, c
}

func TestFilledCacheProfiler_LRUModeProducesEvictionSet(t *testing.T) {
	v, h, _ := newAttackerFixture(4)
	p := NewFilledCacheProfiler(ModeLRU, rand.New(rand.NewSource(13)))
	evSet := p.CreateEvictionSet(v, h, 0, 20)
	assert.NotEmpty(t, evSet)
}

func TestFilledCacheProfiler_ProbabilisticModeReportsSetSize(t *testing.T) {
	v, h, _ := newAttackerFixture(4)
	p := NewFilledCacheProfiler(ModeProbabilistic, rand.New(rand.NewSource(14)))
	p.SelectionFactor = 4
	evSet := p.CreateEvictionSet(v, h, 0, 30)
	stat := p.Statistics()
	assert.Equal(t, len(evSet), stat.EvictionSetSize)
}

func TestFilledCacheProfiler_EvaluateReportsTrueAndFalsePositives(t *testing.T) {
	v, h, _ := newAttackerFixture(4)
	p := NewFilledCacheProfiler(ModeLRU, rand.New(rand.NewSource(15)))
	evSet := p.CreateEvictionSet(v, h, 0, 20)
	require.NotEmpty(t, evSet)
	stat := p.EvaluateEvictionSet(v, h, evSet, 50)
	assert.Equal(t, len(evSet), stat.TruePositives+stat.FalsePositives)
}
