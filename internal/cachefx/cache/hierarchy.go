package cache

// Hierarchy chains caches L1..Ln. Read/Write/Exec try L1 first, and on miss
// fall through to the next level; the returned response slice carries one
// entry per level touched, each tagged with its 1-indexed level. Evict
// broadcasts to every level unconditionally. Grounded on
// Cache/CacheHierarchy.cpp — including normalising the original's
// inconsistency where read-path levels are 1-indexed but the evict
// broadcast path used 0-indexed level tags; we use 1-indexed everywhere.
type Hierarchy struct {
	levels []Cache
}

func NewHierarchy(levels ...Cache) *Hierarchy {
	return &Hierarchy{levels: levels}
}

func (h *Hierarchy) chase(tag Tag, ctx Context, do func(Cache, Tag, Context) []Response) []Response {
	var out []Response
	for i, lvl := range h.levels {
		resps := do(lvl, tag, ctx)
		for _, r := range resps {
			r.Level = i + 1
			out = append(out, r)
		}
		if len(resps) > 0 && resps[len(resps)-1].Hit {
			break
		}
	}
	return out
}

func (h *Hierarchy) Read(tag Tag, ctx Context) []Response {
	return h.chase(tag, ctx, Cache.Read)
}
func (h *Hierarchy) Write(tag Tag, ctx Context) []Response {
	return h.chase(tag, ctx, Cache.Write)
}
func (h *Hierarchy) Exec(tag Tag, ctx Context) []Response {
	return h.chase(tag, ctx, Cache.Exec)
}

func (h *Hierarchy) Evict(tag Tag, ctx Context) []Response {
	var out []Response
	for i, lvl := range h.levels {
		for _, r := range lvl.Evict(tag, ctx) {
			r.Level = i + 1
			out = append(out, r)
		}
	}
	return out
}

// HasCollision checks each level in order and returns true (with the first
// colliding level implied) as soon as one reports a collision, matching the
// original's level+1-or-0 scheme reduced to a boolean contract.
func (h *Hierarchy) HasCollision(tag1 Tag, ctx1 Context, tag2 Tag, ctx2 Context) bool {
	for _, lvl := range h.levels {
		if lvl.HasCollision(tag1, ctx1, tag2, ctx2) {
			return true
		}
	}
	return false
}

// Geometry only delegates meaningfully when the hierarchy has exactly one
// level; for longer chains it reports aggregated line/set/way counts and a
// degenerate algorithm, matching the original's documented limitation.
func (h *Hierarchy) Geometry() Geometry {
	if len(h.levels) == 1 {
		return h.levels[0].Geometry()
	}
	var nlines, maxSets int
	for _, lvl := range h.levels {
		g := lvl.Geometry()
		nlines += g.NLines
		if g.NSets > maxSets {
			maxSets = g.NSets
		}
	}
	nways := 0
	if maxSets > 0 {
		nways = nlines / maxSets
	}
	return Geometry{NLines: nlines, NSets: maxSets, NWays: nways, Algorithm: AlgoRandom}
}

func (h *Hierarchy) Stats(ctx Context) Statistics {
	var total Statistics
	for _, lvl := range h.levels {
		st := lvl.Stats(ctx)
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
