package cache

// WayPartitionCache routes requests to one of two independent
// set-associative domains strictly by context; an access under any other
// context is a silent no-op. Because the domains never share storage,
// HasCollision across them is always false — the testable "Partitioning"
// invariant (§8). Grounded on Cache/WayPartitionCache.cpp.
type WayPartitionCache struct {
	domain0, domain1     *SetAssocCache
	context0, context1   Context
}

func NewWayPartitionCache(domain0, domain1 *SetAssocCache, ctx0, ctx1 Context) *WayPartitionCache {
	return &WayPartitionCache{domain0: domain0, domain1: domain1, context0: ctx0, context1: ctx1}
}

func (w *WayPartitionCache) route(ctx Context) *SetAssocCache {
	switch ctx {
	case w.context0:
		return w.domain0
	case w.context1:
		return w.domain1
	default:
		return nil
	}
}

func (w *WayPartitionCache) Read(tag Tag, ctx Context) []Response {
	if d := w.route(ctx); d != nil {
		return d.Read(tag, ctx)
	}
	return []Response{missResponse(0)}
}
func (w *WayPartitionCache) Write(tag Tag, ctx Context) []Response {
	if d := w.route(ctx); d != nil {
		return d.Write(tag, ctx)
	}
	return []Response{missResponse(0)}
}
func (w *WayPartitionCache) Exec(tag Tag, ctx Context) []Response {
	if d := w.route(ctx); d != nil {
		return d.Exec(tag, ctx)
	}
	return []Response{missResponse(0)}
}
func (w *WayPartitionCache) Evict(tag Tag, ctx Context) []Response {
	if d := w.route(ctx); d != nil {
		return d.Evict(tag, ctx)
	}
	return []Response{missResponse(0)}
}

// HasCollision delegates to the routed domain's own oracle when both
// contexts land in the same domain, since within a domain tags still
// compete for the same ways; across domains storage is disjoint, so no pair
// of tags can ever collide (the §8 partitioning invariant).
func (w *WayPartitionCache) HasCollision(tag1 Tag, ctx1 Context, tag2 Tag, ctx2 Context) bool {
	d1, d2 := w.route(ctx1), w.route(ctx2)
	if d1 == nil || d2 == nil || d1 != d2 {
		return false
	}
	return d1.HasCollision(tag1, ctx1, tag2, ctx2)
}

func (w *WayPartitionCache) Geometry() Geometry {
	g0 := w.domain0.Geometry()
	g1 := w.domain1.Geometry()
	return Geometry{
		NLines:          g0.NLines + g1.NLines,
		NSets:           g0.NSets,
		NWays:           g0.NWays + g1.NWays,
		EvictionSetSize: g0.NWays + 1, // the "secure" (smaller) domain is the interesting target
		GHMGroupSize:    g0.NWays,
		Algorithm:       g0.Algorithm,
	}
}

func (w *WayPartitionCache) Stats(ctx Context) Statistics {
	if d := w.route(ctx); d != nil {
		return d.Stats(ctx)
	}
	return Statistics{}
}
