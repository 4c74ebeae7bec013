package cache

import (
	"math/rand"

	"github.com/cachefx/cachefx/internal/cachefx/cipher"
)

var scatterKey = [4]uint32{0x06FADE60, 0xCAB4BEEF, 0xCAFEEFAC, 0x47110815}

// ScatterCache gives every way an independent index function, tweaked by
// (way, context) instead of partition. A lookup walks every way looking for
// a tag match at that way's own computed index; a miss picks a random empty
// way (or any way, ties broken randomly) as in CEASERSCache's virtual-set
// random replacement. Grounded on Cache/ScatterCache.cpp.
type ScatterCache struct {
	entries [][]assocWay // entries[way][set]
	perm    *cipher.Speck64
	nsets   int
	nways   int
	rng     *rand.Rand
	stats   map[Context]*Statistics
}

func NewScatterCache(nsets, nways int, rng *rand.Rand) *ScatterCache {
	c := &ScatterCache{
		entries: make([][]assocWay, nways),
		perm:    cipher.NewSpeck64(scatterKey),
		nsets:   nsets,
		nways:   nways,
		rng:     rng,
		stats:   make(map[Context]*Statistics),
	}
	for w := range c.entries {
		c.entries[w] = make([]assocWay, nsets)
		for s := range c.entries[w] {
			c.entries[w][s].tag = TagUnset
		}
	}
	return c
}

// scatterTweak matches the original's `(maskedWay | (sdid<<8)) * 0x0001000100010001`.
func scatterTweak(way int, ctx Context) uint64 {
	maskedWay := uint64(way) & 0xFF
	sdid := uint64(uint32(ctx)) & 0xFF
	return (maskedWay | (sdid << 8)) * 0x0001000100010001
}

func (c *ScatterCache) setIndex(tag Tag, way int, ctx Context) int {
	permuted := c.perm.Permute64(uint64(tag), scatterTweak(way, ctx))
	return int(permuted % uint64(c.nsets))
}

func (c *ScatterCache) statsFor(ctx Context) *Statistics {
	s, ok := c.stats[ctx]
	if !ok {
		s = &Statistics{}
		c.stats[ctx] = s
	}
	return s
}

func (c *ScatterCache) access(tag Tag, ctx Context, kind accessKind) []Response {
	st := c.statsFor(ctx)
	for way := 0; way < c.nways; way++ {
		set := c.setIndex(tag, way, ctx)
		e := &c.entries[way][set]
		if e.valid && e.tag == tag {
			resp := hitResponse(0)
			st.record(kind, resp)
			return []Response{resp}
		}
	}

	// miss: prefer an empty candidate way, else pick one at random.
	empties := make([]int, 0, c.nways)
	for way := 0; way < c.nways; way++ {
		set := c.setIndex(tag, way, ctx)
		if !c.entries[way][set].valid {
			empties = append(empties, way)
		}
	}
	var victim int
	if len(empties) > 0 {
		victim = empties[c.rng.Intn(len(empties))]
	} else {
		victim = c.rng.Intn(c.nways)
	}
	set := c.setIndex(tag, victim, ctx)
	e := &c.entries[victim][set]
	evicting := e.valid
	evictedTag := e.tag
	e.valid = true
	e.tag = tag
	e.ctx = ctx

	var resp Response
	if evicting {
		resp = evictionResponse(0, evictedTag)
	} else {
		resp = missResponse(0)
	}
	st.record(kind, resp)
	return []Response{resp}
}

func (c *ScatterCache) Read(tag Tag, ctx Context) []Response  { return c.access(tag, ctx, accessRead) }
func (c *ScatterCache) Write(tag Tag, ctx Context) []Response { return c.access(tag, ctx, accessWrite) }
func (c *ScatterCache) Exec(tag Tag, ctx Context) []Response  { return c.access(tag, ctx, accessExec) }

func (c *ScatterCache) Evict(tag Tag, ctx Context) []Response {
	for way := 0; way < c.nways; way++ {
		set := c.setIndex(tag, way, ctx)
		e := &c.entries[way][set]
		if e.valid && e.tag == tag {
			e.valid = false
			e.tag = TagUnset
			return []Response{{Hit: true, Eviction: true, EvictedTag: tag}}
		}
	}
	return []Response{missResponse(0)}
}

// HasCollision is true if any way index computed for tag1 under ctx1
// matches the same way's index for tag2 under ctx2.
func (c *ScatterCache) HasCollision(tag1 Tag, ctx1 Context, tag2 Tag, ctx2 Context) bool {
	for way := 0; way < c.nways; way++ {
		if c.setIndex(tag1, way, ctx1) == c.setIndex(tag2, way, ctx2) {
			return true
		}
	}
	return false
}

func (c *ScatterCache) Geometry() Geometry {
	return Geometry{
		NLines:          c.nsets * c.nways,
		NSets:           c.nsets,
		NWays:           c.nways,
		EvictionSetSize: c.nways + 1,
		GHMGroupSize:    c.nways,
		Algorithm:       AlgoRandom,
	}
}

func (c *ScatterCache) Stats(ctx Context) Statistics {
	if s, ok := c.stats[ctx]; ok {
		return *s
	}
	return Statistics{}
}
