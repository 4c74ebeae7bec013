package cache

import "math/rand"

// SetAssocCache is NSets independent fully-associative sets, each a
// first-class AssocCache, indexed by tag mod NSets. Grounded on
// Cache/SetAssocCache.cpp.
type SetAssocCache struct {
	sets []*AssocCache
}

// NewSetAssocCache builds an N-set, W-way cache whose set index is always
// tag % nsets. Keyed/skewed variants (CEASER, CEASER-S, Scatter) compute
// their own index over their own storage, so they don't go through this
// type.
func NewSetAssocCache(nsets, nways int, repl Replacement, invalidFirst bool, newRNG func() *rand.Rand) *SetAssocCache {
	sc := &SetAssocCache{sets: make([]*AssocCache, nsets)}
	for i := range sc.sets {
		sc.sets[i] = NewAssocCache(nways, repl, invalidFirst, newRNG())
	}
	return sc
}

func (sc *SetAssocCache) setIndex(tag Tag) int {
	return int(uint64(tag) % uint64(len(sc.sets)))
}

func (sc *SetAssocCache) Read(tag Tag, ctx Context) []Response {
	return sc.sets[sc.setIndex(tag)].Read(tag, ctx)
}
func (sc *SetAssocCache) Write(tag Tag, ctx Context) []Response {
	return sc.sets[sc.setIndex(tag)].Write(tag, ctx)
}
func (sc *SetAssocCache) Exec(tag Tag, ctx Context) []Response {
	return sc.sets[sc.setIndex(tag)].Exec(tag, ctx)
}
func (sc *SetAssocCache) Evict(tag Tag, ctx Context) []Response {
	return sc.sets[sc.setIndex(tag)].Evict(tag, ctx)
}

// HasCollision is true only when both tags land in the same set and that
// set's (fully-associative) oracle agrees — matching
// SetAssocCache::hasCollision.
func (sc *SetAssocCache) HasCollision(tag1 Tag, ctx1 Context, tag2 Tag, ctx2 Context) bool {
	i1, i2 := sc.setIndex(tag1), sc.setIndex(tag2)
	if i1 != i2 {
		return false
	}
	return sc.sets[i1].HasCollision(tag1, ctx1, tag2, ctx2)
}

func (sc *SetAssocCache) Geometry() Geometry {
	g := sc.sets[0].Geometry()
	return Geometry{
		NLines:          g.NLines * len(sc.sets),
		NSets:           len(sc.sets),
		NWays:           g.NWays,
		EvictionSetSize: g.NWays + 1,
		GHMGroupSize:    g.NWays,
		Algorithm:       g.Algorithm,
	}
}

func (sc *SetAssocCache) Stats(ctx Context) Statistics {
	var total Statistics
	for _, s := range sc.sets {
		st := s.Stats(ctx)
		total.ReadHits += st.ReadHits
		total.ReadMisses += st.ReadMisses
		total.ReadEvicts += st.ReadEvicts
		total.WriteHits += st.WriteHits
		total.WriteMisses += st.WriteMisses
		total.WriteEvicts += st.WriteEvicts
		total.ExecHits += st.ExecHits
		total.ExecMisses += st.ExecMisses
		total.ExecEvicts += st.ExecEvicts
		total.InvalidateHits += st.InvalidateHits
		total.InvalidateMisses += st.InvalidateMisses
	}
	return total
}
