package profiler

import (
	"math/rand"

	"github.com/cachefx/cachefx/internal/cachefx/mmu"
	"github.com/cachefx/cachefx/internal/cachefx/victim"
)

// SingleHoldProfiler implements (d) single-hold pruning (§4.4d): start from
// a pool of candidate lines large enough to guarantee conflict, then drop
// one randomly chosen candidate at a time and keep the removal only if the
// victim's line is still evicted without it (a candidate whose removal lets
// the victim's line survive stays in) — whichever candidates remain after
// maxIterations trials form the eviction set. Grounded on
// Profiling/FilledCacheProfiling/FilledCacheProfilingSingleHold.cpp.
type SingleHoldProfiler struct {
	rng  *rand.Rand
	stat Statistic
}

func NewSingleHoldProfiler(rng *rand.Rand) *SingleHoldProfiler {
	return &SingleHoldProfiler{rng: rng}
}

// holds reports whether the victim's target line is still resident after
// accessing every address in candidates once: invalidate, install the
// victim's line with one access, prime the candidates against it, then
// check whether the victim's line is still a hit (it survived, i.e. no
// eviction occurred).
func holds(v victim.Victim, h *mmu.Handle, candidates []uint64) bool {
	v.InvalidateAddress()
	v.AccessAddress()
	primeCache(h, candidates)
	return v.AccessAddress()
}

func (p *SingleHoldProfiler) CreateEvictionSet(v victim.Victim, h *mmu.Handle, targetSize, maxIterations int) []uint64 {
	nLines := int(h.Size() / 64)
	if targetSize <= 0 || targetSize > nLines {
		targetSize = nLines
	}

	pool := make([]uint64, 0, targetSize)
	// Seed the pool with enough candidates to guarantee eviction, walking
	// forward until the victim's line is actually displaced.
	for i := 0; i < nLines && holds(v, h, pool); i++ {
		pool = append(pool, uint64(i)*64)
	}
	if len(pool) > 0 && holds(v, h, pool) {
		// Never managed to evict; return the full pool as a best-effort set
		// (§7: profiling failure is best-effort, not fatal).
		p.stat = Statistic{ProfilingRuns: maxIterations, EvictionSetSize: len(pool), AttackMemorySize: h.Size()}
		return pool
	}

	for iter := 0; iter < maxIterations && len(pool) > 1; iter++ {
		idx := p.rng.Intn(len(pool))
		trial := make([]uint64, 0, len(pool)-1)
		trial = append(trial, pool[:idx]...)
		trial = append(trial, pool[idx+1:]...)

		if holds(v, h, trial) {
			// Removing this candidate let the victim's line survive, so it
			// was load-bearing: keep it.
			continue
		}
		// Victim line still evicted without it: drop it permanently.
		pool = trial
	}

	p.stat = Statistic{ProfilingRuns: maxIterations, EvictionSetSize: len(pool), TruePositives: len(pool), AttackMemorySize: h.Size()}
	return pool
}

func (p *SingleHoldProfiler) EvaluateEvictionSet(v victim.Victim, h *mmu.Handle, evSet []uint64, numRuns int) Statistic {
	misses := 0
	for i := 0; i < numRuns; i++ {
		if !holds(v, h, evSet) {
			misses++
		}
	}
	p.stat.EvaluationRuns = numRuns
	p.stat.MissesUnderRun = misses
	return p.stat
}

func (p *SingleHoldProfiler) Statistics() Statistic { return p.stat }

// GroupElimProfiler implements (e) group elimination (§4.4e): partition the
// candidate pool into roughly sqrt(N) groups, try removing each group in
// turn and commit the removal whenever the remaining candidates still evict
// the victim's line; when a round removes nothing, double the group count
// (up to one candidate per group) and retry. Grounded on
// Profiling/FilledCacheProfiling/FilledCacheProfilingGroupElim.cpp.
type GroupElimProfiler struct {
	rng  *rand.Rand
	stat Statistic
}

func NewGroupElimProfiler(rng *rand.Rand) *GroupElimProfiler {
	return &GroupElimProfiler{rng: rng}
}

func sqrtGroups(n int) int {
	g := 1
	for g*g < n {
		g++
	}
	if g < 1 {
		g = 1
	}
	return g
}

// partition splits pool into numGroups near-equal contiguous chunks.
func partition(pool []uint64, numGroups int) [][]uint64 {
	if numGroups <= 0 {
		numGroups = 1
	}
	groups := make([][]uint64, 0, numGroups)
	base := len(pool) / numGroups
	rem := len(pool) % numGroups
	idx := 0
	for g := 0; g < numGroups && idx < len(pool); g++ {
		size := base
		if g < rem {
			size++
		}
		end := idx + size
		if end > len(pool) {
			end = len(pool)
		}
		groups = append(groups, pool[idx:end])
		idx = end
	}
	return groups
}

// removeGroup returns pool with every address in group filtered out.
func removeGroup(pool, group []uint64) []uint64 {
	drop := make(map[uint64]bool, len(group))
	for _, addr := range group {
		drop[addr] = true
	}
	out := make([]uint64, 0, len(pool)-len(group))
	for _, addr := range pool {
		if !drop[addr] {
			out = append(out, addr)
		}
	}
	return out
}

func (p *GroupElimProfiler) CreateEvictionSet(v victim.Victim, h *mmu.Handle, targetSize, maxIterations int) []uint64 {
	nLines := int(h.Size() / 64)
	if targetSize <= 0 || targetSize > nLines {
		targetSize = nLines
	}

	pool := make([]uint64, targetSize)
	for i := range pool {
		pool[i] = uint64(i) * 64
	}

	numGroups := sqrtGroups(len(pool))
	for iter := 0; iter < maxIterations && len(pool) > 1; iter++ {
		groups := partition(pool, numGroups)
		if len(groups) <= 1 {
			// A single group holds the whole pool; removing it can never
			// leave an evicting set, so stop.
			break
		}

		working := append([]uint64{}, pool...)
		removedAny := false
		for _, g := range groups {
			trial := removeGroup(working, g)
			// A group is essential if removing it stops the eviction: keep
			// it by leaving it out of this round's removals. Otherwise the
			// remaining candidates still evict without it, so drop it and
			// commit the removal before testing the next group.
			if holds(v, h, trial) {
				continue
			}
			working = trial
			removedAny = true
		}

		if !removedAny {
			// No progress this round: double the group count and retry.
			numGroups *= 2
			if numGroups > len(pool) {
				numGroups = len(pool)
			}
			continue
		}
		pool = working
		numGroups = sqrtGroups(len(pool))
	}

	p.stat = Statistic{ProfilingRuns: maxIterations, EvictionSetSize: len(pool), TruePositives: len(pool), AttackMemorySize: h.Size()}
	return pool
}

func (p *GroupElimProfiler) EvaluateEvictionSet(v victim.Victim, h *mmu.Handle, evSet []uint64, numRuns int) Statistic {
	misses := 0
	for i := 0; i < numRuns; i++ {
		if !holds(v, h, evSet) {
			misses++
		}
	}
	p.stat.EvaluationRuns = numRuns
	p.stat.MissesUnderRun = misses
	return p.stat
}

func (p *GroupElimProfiler) Statistics() Statistic { return p.stat }
