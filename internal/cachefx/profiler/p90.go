package profiler

import (
	"github.com/cachefx/cachefx/internal/cachefx/mmu"
	"github.com/cachefx/cachefx/internal/cachefx/victim"
)

// evaluationRuns is the number of prime/probe trials P90 uses to estimate
// the current success rate, matching the original's hard-coded 500.
const evaluationRuns = 500

// P90Profiler walks the attacker address space, accepting every candidate
// the victim's hasCollision oracle agrees with, periodically re-measuring
// the running success rate, and stopping once it clears the target
// effectiveness or the requested set size. Grounded on
// Profiling/EvictionSetSizeProfiling.cpp.
type P90Profiler struct {
	TargetEffectiveness float64 // default 0.9
	stat                Statistic
}

func NewP90Profiler(targetEffectiveness float64) *P90Profiler {
	if targetEffectiveness <= 0 {
		targetEffectiveness = 0.9
	}
	return &P90Profiler{TargetEffectiveness: targetEffectiveness}
}

// testEvictionSet measures the miss rate of a second victim access after
// invalidating the target, flushing evSet, letting the victim run once,
// re-reading evSet, and accessing the victim again.
func testEvictionSet(v victim.Victim, h *mmu.Handle, evSet []uint64) float64 {
	misses := 0
	for r := 0; r < evaluationRuns; r++ {
		v.InvalidateAddress()
		for _, off := range evSet {
			h.Flush(off)
		}
		v.AccessAddress()
		for _, off := range evSet {
			h.Read(off)
		}
		if !v.AccessAddress() {
			misses++
		}
	}
	return float64(misses) / float64(evaluationRuns)
}

func (p *P90Profiler) CreateEvictionSet(v victim.Victim, h *mmu.Handle, targetSize, maxIterations int) []uint64 {
	nLines := int(h.Size() / 64)
	if targetSize <= 0 {
		targetSize = nLines
	}

	var evSet []uint64
	successRate := 0.0
	index := 0
	testInterval := targetSize / 10
	if testInterval == 0 {
		testInterval = 1
	}
	testCnt := 0

	for successRate < p.TargetEffectiveness && index < nLines && len(evSet) < targetSize {
		collisionFound := false
		for !collisionFound && index < nLines {
			addr := uint64(index) * 64
			if v.HasCollision(h, addr) {
				evSet = append(evSet, addr)
				collisionFound = true
				testCnt++
			}
			index++
		}
		if len(evSet) >= targetSize || testCnt >= testInterval || maxIterations <= 0 {
			successRate = testEvictionSet(v, h, evSet)
			testCnt = 0
		}
	}

	p.stat = Statistic{
		ProfilingRuns:    1,
		EvictionSetSize:  len(evSet),
		TruePositives:    len(evSet),
		AttackMemorySize: h.Size(),
	}
	return evSet
}

func (p *P90Profiler) EvaluateEvictionSet(v victim.Victim, h *mmu.Handle, evSet []uint64, numRuns int) Statistic {
	misses := 0
	for i := 0; i < numRuns; i++ {
		v.InvalidateAddress()
		for _, off := range evSet {
			h.Flush(off)
		}
		v.AccessAddress()
		for _, off := range evSet {
			h.Read(off)
		}
		if !v.AccessAddress() {
			misses++
		}
	}
	p.stat.EvaluationRuns = numRuns
	p.stat.MissesUnderRun = misses
	return p.stat
}

func (p *P90Profiler) Statistics() Statistic { return p.stat }
