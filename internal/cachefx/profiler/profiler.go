// Package profiler implements the eviction-set construction engine (§4.4):
// algorithms that, given black-box access to a victim, discover a minimal
// set of attacker addresses that reliably evict the victim's secret line.
package profiler

import (
	"github.com/cachefx/cachefx/internal/cachefx/cache"
	"github.com/cachefx/cachefx/internal/cachefx/mmu"
	"github.com/cachefx/cachefx/internal/cachefx/victim"
)

// Statistic is the common result shape every profiler variant populates,
// matching the original's ProfilingStatistic.
type Statistic struct {
	ProfilingRuns          int
	EvaluationRuns         int
	EvictionSetSize        int
	TruePositives          int
	FalsePositives         int
	MissesUnderRun         int
	MissesUnderEvict       int
	MissesUnderFlush       int
	AttackMemorySize       uint64
}

// Profiler is the shared contract every eviction-set construction algorithm
// implements (§4.4).
type Profiler interface {
	CreateEvictionSet(v victim.Victim, h *mmu.Handle, targetSize, maxIterations int) []uint64
	EvaluateEvictionSet(v victim.Victim, h *mmu.Handle, evSet []uint64, numRuns int) Statistic
	Statistics() Statistic
}

// evictionSetTags converts a slice of byte offsets into an MMU handle into
// the cache-line Tag set the victim's eviction observer expects.
func evictionSetTags(h *mmu.Handle, evSet []uint64) map[cache.Tag]bool {
	out := make(map[cache.Tag]bool, len(evSet))
	for _, off := range evSet {
		out[cache.Tag(h.Translate(off)/cache.CacheLineSize)] = true
	}
	return out
}
