package cache

import "math/rand"

// PLCacheSet is a single set of the PL-cache (per-line locking) variant: a
// plain LRU-ordered set, except a replacement only evicts the resident way
// if the resident line's owning context matches the INCOMING access's
// context. On a context mismatch, the incoming line is dropped entirely —
// no replacement happens — and the resident line is promoted to MRU
// instead, as if it had just been re-read. Grounded on Cache/PLcache.cpp
// (AssocPLcache).
type PLCacheSet struct {
	ways  []assocWay
	clock uint64
	rng   *rand.Rand
	stats map[Context]*Statistics
}

func newPLCacheSet(nways int, rng *rand.Rand) *PLCacheSet {
	s := &PLCacheSet{ways: make([]assocWay, nways), rng: rng, stats: make(map[Context]*Statistics)}
	for i := range s.ways {
		s.ways[i].tag = TagUnset
	}
	return s
}

func (s *PLCacheSet) statsFor(ctx Context) *Statistics {
	st, ok := s.stats[ctx]
	if !ok {
		st = &Statistics{}
		s.stats[ctx] = st
	}
	return st
}

func (s *PLCacheSet) find(tag Tag) int {
	for i := range s.ways {
		if s.ways[i].valid && s.ways[i].tag == tag {
			return i
		}
	}
	return -1
}

func (s *PLCacheSet) lruWay() int {
	best := 0
	for i := range s.ways {
		if !s.ways[i].valid {
			return i
		}
		if s.ways[i].lastUse < s.ways[best].lastUse {
			best = i
		}
	}
	return best
}

func (s *PLCacheSet) access(tag Tag, ctx Context, kind accessKind) []Response {
	s.clock++
	st := s.statsFor(ctx)

	if i := s.find(tag); i >= 0 {
		s.ways[i].lastUse = s.clock
		s.ways[i].ctx = ctx
		resp := hitResponse(0)
		st.record(kind, resp)
		return []Response{resp}
	}

	way := s.lruWay()
	w := &s.ways[way]
	if w.valid && w.ctx != ctx {
		// Context mismatch: drop the incoming line, promote the resident.
		w.lastUse = s.clock
		resp := missResponse(0)
		st.record(kind, resp)
		return []Response{resp}
	}

	evicting := w.valid
	evictedTag := w.tag
	w.valid = true
	w.tag = tag
	w.ctx = ctx
	w.lastUse = s.clock

	var resp Response
	if evicting {
		resp = evictionResponse(0, evictedTag)
	} else {
		resp = missResponse(0)
	}
	st.record(kind, resp)
	return []Response{resp}
}

func (s *PLCacheSet) evict(tag Tag, ctx Context) []Response {
	if i := s.find(tag); i >= 0 {
		s.ways[i].valid = false
		s.ways[i].tag = TagUnset
		return []Response{{Hit: true, Eviction: true, EvictedTag: tag}}
	}
	return []Response{missResponse(0)}
}

// HasCollision for a single PL-cache set holds whenever both tags could
// compete for the same LRU victim way and share a context (cross-context
// accesses never evict each other under the locking rule).
func (s *PLCacheSet) hasCollision(ctx1, ctx2 Context) bool { return ctx1 == ctx2 }

// PLCache is the set-associative wrapper around PLCacheSet, routed by
// tag % nsets like SetAssocCache.
type PLCache struct {
	sets []*PLCacheSet
}

func NewPLCache(nsets, nways int, newRNG func() *rand.Rand) *PLCache {
	pc := &PLCache{sets: make([]*PLCacheSet, nsets)}
	for i := range pc.sets {
		pc.sets[i] = newPLCacheSet(nways, newRNG())
	}
	return pc
}

func (pc *PLCache) setIndex(tag Tag) int { return int(uint64(tag) % uint64(len(pc.sets))) }

func (pc *PLCache) Read(tag Tag, ctx Context) []Response {
	return pc.sets[pc.setIndex(tag)].access(tag, ctx, accessRead)
}
func (pc *PLCache) Write(tag Tag, ctx Context) []Response {
	return pc.sets[pc.setIndex(tag)].access(tag, ctx, accessWrite)
}
func (pc *PLCache) Exec(tag Tag, ctx Context) []Response {
	return pc.sets[pc.setIndex(tag)].access(tag, ctx, accessExec)
}
func (pc *PLCache) Evict(tag Tag, ctx Context) []Response {
	return pc.sets[pc.setIndex(tag)].evict(tag, ctx)
}

func (pc *PLCache) HasCollision(tag1 Tag, ctx1 Context, tag2 Tag, ctx2 Context) bool {
	if pc.setIndex(tag1) != pc.setIndex(tag2) {
		return false
	}
	return pc.sets[0].hasCollision(ctx1, ctx2)
}

func (pc *PLCache) Geometry() Geometry {
	return Geometry{
		NLines:          len(pc.sets) * len(pc.sets[0].ways),
		NSets:           len(pc.sets),
		NWays:           len(pc.sets[0].ways),
		EvictionSetSize: len(pc.sets[0].ways) + 1,
		GHMGroupSize:    len(pc.sets[0].ways),
		Algorithm:       AlgoLRU,
	}
}

func (pc *PLCache) Stats(ctx Context) Statistics {
	var total Statistics
	for _, s := range pc.sets {
		if st, ok := s.stats[ctx]; ok {
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
	}
	return total
}
