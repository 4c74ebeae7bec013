package cache

import "math/rand"

// PhantomCache is a set-associative cache with R salted candidate sets per
// tag. A read searches all R candidates for a match; a miss picks a random
// one of the R sets to install into. HasCollision is the non-empty
// intersection of the two tags' candidate-set lists. Grounded on
// Cache/PhantomCache.cpp.
type PhantomCache struct {
	sets  []*AssocCache
	salts []uint64
	nsets int
	r     int
	rng   *rand.Rand
}

func NewPhantomCache(nsets, nways, r int, repl Replacement, newRNG func() *rand.Rand, rng *rand.Rand) *PhantomCache {
	c := &PhantomCache{
		sets:  make([]*AssocCache, nsets),
		salts: make([]uint64, r),
		nsets: nsets,
		r:     r,
		rng:   rng,
	}
	for i := range c.sets {
		c.sets[i] = NewAssocCache(nways, repl, false, newRNG())
	}
	for i := range c.salts {
		c.salts[i] = rng.Uint64()
	}
	return c
}

// candidateSets returns the r set indices tag may reside in, mirroring the
// original's salted hash-with-candidates scheme.
func (c *PhantomCache) candidateSets(tag Tag) []int {
	out := make([]int, c.r)
	for i, salt := range c.salts {
		out[i] = int((uint64(tag) ^ salt) % uint64(c.nsets))
	}
	return out
}

func (c *PhantomCache) access(tag Tag, ctx Context, kind accessKind) []Response {
	candidates := c.candidateSets(tag)
	for _, s := range candidates {
		if c.sets[s].find(tag) >= 0 {
			switch kind {
			case accessRead:
				return c.sets[s].Read(tag, ctx)
			case accessWrite:
				return c.sets[s].Write(tag, ctx)
			case accessExec:
				return c.sets[s].Exec(tag, ctx)
			}
		}
	}
	chosen := candidates[c.rng.Intn(len(candidates))]
	switch kind {
	case accessWrite:
		return c.sets[chosen].Write(tag, ctx)
	case accessExec:
		return c.sets[chosen].Exec(tag, ctx)
	default:
		return c.sets[chosen].Read(tag, ctx)
	}
}

func (c *PhantomCache) Read(tag Tag, ctx Context) []Response  { return c.access(tag, ctx, accessRead) }
func (c *PhantomCache) Write(tag Tag, ctx Context) []Response { return c.access(tag, ctx, accessWrite) }
func (c *PhantomCache) Exec(tag Tag, ctx Context) []Response  { return c.access(tag, ctx, accessExec) }

func (c *PhantomCache) Evict(tag Tag, ctx Context) []Response {
	for _, s := range c.candidateSets(tag) {
		if c.sets[s].find(tag) >= 0 {
			return c.sets[s].Evict(tag, ctx)
		}
	}
	return []Response{missResponse(0)}
}

func (c *PhantomCache) HasCollision(tag1 Tag, _ Context, tag2 Tag, _ Context) bool {
	s1 := c.candidateSets(tag1)
	s2 := c.candidateSets(tag2)
	seen := make(map[int]bool, len(s1))
	for _, s := range s1 {
		seen[s] = true
	}
	for _, s := range s2 {
		if seen[s] {
			return true
		}
	}
	return false
}

func (c *PhantomCache) Geometry() Geometry {
	g := c.sets[0].Geometry()
	return Geometry{
		NLines:          g.NLines * c.nsets,
		NSets:           c.nsets,
		NWays:           g.NWays,
		EvictionSetSize: g.NWays * c.r,
		GHMGroupSize:    g.NWays,
		Algorithm:       g.Algorithm,
		NumParams:       1,
		Param:           func(i int) int64 { return int64(c.r) },
	}
}

func (c *PhantomCache) Stats(ctx Context) Statistics {
	var total Statistics
	for _, s := range c.sets {
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
