package cache

import (
	"math/rand"

	"github.com/cachefx/cachefx/internal/cachefx/cipher"
)

// ceaserSKey is the fixed developer key CEASER-S's permutation uses,
// distinct from plain CEASER's so the two variants never derive the same
// indices from the same tag. Grounded on Cache/CEASERSCache.cpp.
var ceaserSKey = [4]uint32{0x06FADE60, 0xCAB4BEEF, 0x04866840, 0x80866808}

// CEASERSCache is the skewed variant: the NWays ways are split into
// NPartitions partitions, each using the shared permutation tweaked by its
// partition index, so two addresses only collide if their tweaked indices
// agree in at least one partition. If NWays doesn't divide evenly by the
// requested partition count, the original silently falls back to a single
// partition (§7 item 1); we do the same, also silently.
type CEASERSCache struct {
	entries     [][]assocWay // entries[way][set]
	perm        *cipher.Speck64
	nsets       int
	nways       int
	npartitions int
	waysPerPart int
	rng         *rand.Rand
	stats       map[Context]*Statistics
}

func (c *CEASERSCache) statsFor(ctx Context) *Statistics {
	if c.stats == nil {
		c.stats = make(map[Context]*Statistics)
	}
	s, ok := c.stats[ctx]
	if !ok {
		s = &Statistics{}
		c.stats[ctx] = s
	}
	return s
}

func NewCEASERSCache(nsets, nways, npartitions int, rng *rand.Rand) *CEASERSCache {
	if npartitions <= 0 || nways%npartitions != 0 {
		npartitions = 1
	}
	c := &CEASERSCache{
		entries:     make([][]assocWay, nways),
		perm:        cipher.NewSpeck64(ceaserSKey),
		nsets:       nsets,
		nways:       nways,
		npartitions: npartitions,
		waysPerPart: nways / npartitions,
		rng:         rng,
	}
	for w := range c.entries {
		c.entries[w] = make([]assocWay, nsets)
		for s := range c.entries[w] {
			c.entries[w][s].tag = TagUnset
		}
	}
	return c
}

func (c *CEASERSCache) partitionOf(way int) int { return way / c.waysPerPart }

// tweak folds the partition index into the permutation, matching the
// original's `(partition & 0xFF) * 0x0101010101010101` byte-broadcast
// tweak.
func tweakForPartition(partition int) uint64 {
	return uint64(partition&0xFF) * 0x0101010101010101
}

func (c *CEASERSCache) setIndex(tag Tag, partition int) int {
	permuted := c.perm.Permute64(uint64(tag), tweakForPartition(partition))
	return int(permuted % uint64(c.nsets))
}

// wayIndex is the row a tag occupies within way w: every way in the same
// partition shares one permutation, so this is just that partition's
// setIndex, but keyed per-way so each partition's skew is independent of
// the others (the P independent skews of §4.1, mirroring how
// ScatterCache.setIndex keys off the way directly).
func (c *CEASERSCache) wayIndex(tag Tag, way int) int {
	return c.setIndex(tag, c.partitionOf(way))
}

func (c *CEASERSCache) access(tag Tag, ctx Context, kind accessKind) []Response {
	st := c.statsFor(ctx)

	for way := 0; way < c.nways; way++ {
		set := c.wayIndex(tag, way)
		e := &c.entries[way][set]
		if e.valid && e.tag == tag {
			e.lastUse++
			resp := hitResponse(0)
			st.record(kind, resp)
			return []Response{resp}
		}
	}

	// miss: prefer an empty way at its own partition's index, else pick one
	// uniformly at random across all ways, matching the original's
	// random() % nWays.
	empties := make([]int, 0, c.nways)
	for way := 0; way < c.nways; way++ {
		if !c.entries[way][c.wayIndex(tag, way)].valid {
			empties = append(empties, way)
		}
	}
	var victim int
	if len(empties) > 0 {
		victim = empties[c.rng.Intn(len(empties))]
	} else {
		victim = c.rng.Intn(c.nways)
	}
	set := c.wayIndex(tag, victim)
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

func (c *CEASERSCache) Read(tag Tag, ctx Context) []Response  { return c.access(tag, ctx, accessRead) }
func (c *CEASERSCache) Write(tag Tag, ctx Context) []Response { return c.access(tag, ctx, accessWrite) }
func (c *CEASERSCache) Exec(tag Tag, ctx Context) []Response  { return c.access(tag, ctx, accessExec) }

func (c *CEASERSCache) Evict(tag Tag, ctx Context) []Response {
	for way := 0; way < c.nways; way++ {
		set := c.wayIndex(tag, way)
		e := &c.entries[way][set]
		if e.valid && e.tag == tag {
			e.valid = false
			e.tag = TagUnset
			return []Response{{Hit: true, Eviction: true, EvictedTag: tag}}
		}
	}
	return []Response{missResponse(0)}
}

// HasCollision is true if some partition's independent skew maps both tags
// to the same row: each partition is its own physical set, so two tags can
// only ever occupy the same way if at least one partition's setIndex agrees
// for both, matching CEASERSCache::hasCollision.
func (c *CEASERSCache) HasCollision(tag1 Tag, _ Context, tag2 Tag, _ Context) bool {
	for p := 0; p < c.npartitions; p++ {
		if c.setIndex(tag1, p) == c.setIndex(tag2, p) {
			return true
		}
	}
	return false
}

func (c *CEASERSCache) Geometry() Geometry {
	return Geometry{
		NLines:          c.nsets * c.nways,
		NSets:           c.nsets,
		NWays:           c.nways,
		EvictionSetSize: c.waysPerPart + 1,
		GHMGroupSize:    c.nways,
		Algorithm:       AlgoRandom,
		NumParams:       1,
		Param:           func(i int) int64 { return int64(c.npartitions) },
	}
}

func (c *CEASERSCache) Stats(ctx Context) Statistics {
	if s, ok := c.stats[ctx]; ok {
		return *s
	}
	return Statistics{}
}
