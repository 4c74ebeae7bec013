package profiler

import (
	"math/rand"

	"github.com/cachefx/cachefx/internal/cachefx/mmu"
	"github.com/cachefx/cachefx/internal/cachefx/victim"
)

// defaultSelectionFactor controls how sparsely candidates are drawn from the
// pool: roughly 1-per-cacheline when marking candidates, matching the
// original's `rand()%selectionFactor==0`.
const defaultSelectionFactor = 64

// FilledCacheMode distinguishes the pruning variants this file implements;
// Probabilistic marks/prunes statistically, LRU marks everything and prunes
// with exact miss/hit information, PLRU samples candidates and prunes until
// a pass sees no miss.
type FilledCacheMode int

const (
	ModeProbabilistic FilledCacheMode = iota
	ModeLRU
	ModePLRU
)

// FilledCacheProfiler implements (b) probabilistic pruning and (c) LRU/PLRU
// deterministic pruning (§4.4b/c). Grounded on
// Profiling/FilledCacheProfiling/{FilledCacheProfiling,
// FilledCacheProfilingProbabilistic, FilledCacheProfilingLRU}.cpp.
type FilledCacheProfiler struct {
	Mode                 FilledCacheMode
	PruningStopCondition float64 // probabilistic variant; default 0.01
	SelectionFactor       int
	rng                   *rand.Rand
	stat                  Statistic
}

func NewFilledCacheProfiler(mode FilledCacheMode, rng *rand.Rand) *FilledCacheProfiler {
	return &FilledCacheProfiler{
		Mode:                 mode,
		PruningStopCondition: 0.01,
		SelectionFactor:      defaultSelectionFactor,
		rng:                  rng,
	}
}

func (p *FilledCacheProfiler) selectCandidates(nLines int) []uint64 {
	var out []uint64
	switch p.Mode {
	case ModeLRU:
		for i := 0; i < nLines; i++ {
			out = append(out, uint64(i)*64)
		}
	case ModePLRU:
		factor := 2 * p.SelectionFactor
		for i := 0; i < nLines; i++ {
			if p.rng.Intn(factor) == 0 {
				out = append(out, uint64(i)*64)
			}
		}
	default: // probabilistic
		factor := p.SelectionFactor
		if factor <= 0 {
			factor = defaultSelectionFactor
		}
		for i := 0; i < nLines; i++ {
			if p.rng.Intn(factor) == 0 {
				out = append(out, uint64(i)*64)
			}
		}
	}
	return out
}

func primeCache(h *mmu.Handle, candidates []uint64) {
	for _, addr := range candidates {
		h.Read(addr)
	}
}

func flushCacheLines(h *mmu.Handle, candidates []uint64) {
	for _, addr := range candidates {
		h.Flush(addr)
	}
}

// pruneCandidateSet removes candidates that miss on re-read. The
// probabilistic variant scans forward once per pass and loops until the
// observed miss rate drops below PruningStopCondition; the (P)LRU variant
// scans in reverse and, for plain LRU, prunes in a single pass (a prime
// followed by one reverse prune already stabilises under true LRU); the
// PLRU variant loops until a pass produces no misses.
func (p *FilledCacheProfiler) pruneCandidateSet(h *mmu.Handle, candidates []uint64) []uint64 {
	if p.Mode == ModeProbabilistic {
		for {
			primeCache(h, candidates)
			kept := make([]uint64, 0, len(candidates))
			misses := 0
			for _, addr := range candidates {
				resp := h.Read(addr)
				if len(resp) > 0 && resp[len(resp)-1].Hit {
					kept = append(kept, addr)
				} else {
					misses++
				}
			}
			candidates = kept
			if len(candidates) == 0 || float64(misses)/float64(len(candidates)+misses) <= p.PruningStopCondition {
				return candidates
			}
		}
	}

	prune := func() ([]uint64, bool) {
		primeCache(h, candidates)
		kept := make([]uint64, 0, len(candidates))
		missObserved := false
		for i := len(candidates) - 1; i >= 0; i-- {
			addr := candidates[i]
			resp := h.Read(addr)
			if len(resp) > 0 && resp[len(resp)-1].Hit {
				kept = append([]uint64{addr}, kept...)
			} else {
				missObserved = true
			}
		}
		return kept, missObserved
	}

	if p.Mode == ModeLRU {
		kept, _ := prune()
		return kept
	}
	// ModePLRU: loop until a pass makes no changes.
	for {
		kept, missObserved := prune()
		candidates = kept
		if !missObserved {
			return candidates
		}
	}
}

// probeCacheFirstMiss reads candidates and tallies misses into counts, keyed
// by candidate index, stopping at the first miss per call; the LRU/PLRU
// variants use it. The probabilistic variant records every miss through
// probeCacheAllMisses.
func probeCacheFirstMiss(h *mmu.Handle, candidates []uint64, counts []int) []uint64 {
	var firstMisses []uint64
	for i, addr := range candidates {
		resp := h.Read(addr)
		if len(resp) > 0 && !resp[len(resp)-1].Hit {
			counts[i]++
			firstMisses = append(firstMisses, addr)
			break
		}
	}
	return firstMisses
}

func probeCacheAllMisses(h *mmu.Handle, candidates []uint64, counts []int) {
	for i, addr := range candidates {
		resp := h.Read(addr)
		if len(resp) > 0 && !resp[len(resp)-1].Hit {
			counts[i]++
		}
	}
}

func (p *FilledCacheProfiler) CreateEvictionSet(v victim.Victim, h *mmu.Handle, targetSize, maxIterations int) []uint64 {
	nLines := int(h.Size() / 64)
	missCounts := map[uint64]int{}
	collisionTested := map[uint64]bool{}
	collisionResult := map[uint64]bool{}

	for iter := 0; iter < maxIterations; iter++ {
		candidates := p.selectCandidates(nLines)
		candidates = p.pruneCandidateSet(h, candidates)
		v.AccessAddress()

		counts := make([]int, len(candidates))
		if p.Mode == ModeProbabilistic {
			probeCacheAllMisses(h, candidates, counts)
		} else {
			probeCacheFirstMiss(h, candidates, counts)
		}
		for i, addr := range candidates {
			missCounts[addr] += counts[i]
			if !collisionTested[addr] {
				collisionTested[addr] = true
				collisionResult[addr] = v.HasCollision(h, addr)
			}
		}
		flushCacheLines(h, candidates)
	}

	threshold := p.threshold(missCounts, collisionResult)

	var evSet []uint64
	for addr, c := range missCounts {
		if float64(c) > threshold {
			evSet = append(evSet, addr)
		}
	}
	p.stat = Statistic{ProfilingRuns: maxIterations, EvictionSetSize: len(evSet), AttackMemorySize: h.Size()}
	return evSet
}

// threshold implements the simple-average / profiled-midpoint choice
// (§4.4b): for the probabilistic variant split candidates by the
// hasCollision oracle and take the midpoint of each group's average miss
// count; otherwise a plain average.
func (p *FilledCacheProfiler) threshold(missCounts map[uint64]int, collision map[uint64]bool) float64 {
	if len(missCounts) == 0 {
		return 0
	}
	if p.Mode != ModeProbabilistic {
		sum, n := 0, 0
		for _, c := range missCounts {
			sum += c
			n++
		}
		return float64(sum) / float64(n)
	}

	var withSum, withoutSum float64
	var withN, withoutN int
	for addr, c := range missCounts {
		if collision[addr] {
			withSum += float64(c)
			withN++
		} else {
			withoutSum += float64(c)
			withoutN++
		}
	}
	if withN == 0 || withoutN == 0 {
		sum, n := 0, 0
		for _, c := range missCounts {
			sum += c
			n++
		}
		return float64(sum) / float64(n)
	}
	return ((withSum / float64(withN)) + (withoutSum / float64(withoutN))) / 2
}

func (p *FilledCacheProfiler) EvaluateEvictionSet(v victim.Victim, h *mmu.Handle, evSet []uint64, numRuns int) Statistic {
	plain, withEvict, withFlush := 0, 0, 0
	truePos, falsePos := 0, 0
	for _, addr := range evSet {
		if v.HasCollision(h, addr) {
			truePos++
		} else {
			falsePos++
		}
	}
	for i := 0; i < numRuns; i++ {
		v.InvalidateAddress()
		primeCache(h, evSet)
		v.AccessAddress()
		if !v.AccessAddress() {
			plain++
		}

		v.InvalidateAddress()
		for _, addr := range evSet {
			h.Flush(addr)
		}
		primeCache(h, evSet)
		v.AccessAddress()
		if !v.AccessAddress() {
			withEvict++
		}

		v.InvalidateAddress()
		flushCacheLines(h, evSet)
		primeCache(h, evSet)
		v.AccessAddress()
		if !v.AccessAddress() {
			withFlush++
		}
	}
	p.stat.EvaluationRuns = numRuns
	p.stat.MissesUnderRun = plain
	p.stat.MissesUnderEvict = withEvict
	p.stat.MissesUnderFlush = withFlush
	p.stat.TruePositives = truePos
	p.stat.FalsePositives = falsePos
	return p.stat
}

func (p *FilledCacheProfiler) Statistics() Statistic { return p.stat }
