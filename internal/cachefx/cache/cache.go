// Package cache implements the CacheFX cache-model engine: the catalogue of
// cache variants (fully-associative, set-associative, skewed/encrypted-index,
// partitioned, line-locked) behind one uniform access contract, plus the
// cache hierarchy that chains them.
//
// The original C++ source models every variant as a subclass of a Cache
// base class with virtual readCl/writeCl/evictCl methods. We replace the
// class hierarchy with one interface: Cache is the single contract, and the
// concrete variants (AssocCache, SetAssocCache, CEASERCache, ...) are plain
// structs that implement it. Profilers, the MMU and the attacker are written against the Cache
// interface only and never type-switch on the concrete variant.
package cache

import "fmt"

// Tag identifies a cache-line-sized region of the flat simulated address
// space. Line size is a fixed power of two (CacheLineSize).
type Tag uint64

// Sentinel tag values. TagUnset never appears as a resident line; TagInvalid
// marks an empty way that may be filled before any real line is installed.
const (
	TagUnset   Tag = ^Tag(0)
	TagInvalid Tag = ^Tag(0) - 1
)

// CacheLineSize is the fixed line size in bytes used throughout the core.
const CacheLineSize = 64

// Context is a small integer identifying the security domain/core of an
// access. Partitioned caches route on it, skewed caches tweak their index
// function with it, and the telemetry layer keys per-context statistics on
// it.
type Context int32

// Well-known contexts. Additional contexts are legal (e.g. per-core IDs in
// way-partition configurations) but these two cover every scenario the spec
// names.
const (
	ContextAttacker Context = 0
	ContextVictim   Context = 1
)

// Response is produced by every access. A single logical access yields a
// sequence of Responses — one per level consulted in a hierarchy — with the
// last one authoritative for hit/miss statistics.
type Response struct {
	Level      int  // 1-indexed level that answered, 0 outside a hierarchy
	Hit        bool
	Eviction   bool
	EvictedTag Tag // valid only if Eviction
}

func hitResponse(level int) Response { return Response{Level: level, Hit: true} }

func missResponse(level int) Response { return Response{Level: level, Hit: false} }

func evictionResponse(level int, evicted Tag) Response {
	return Response{Level: level, Hit: false, Eviction: true, EvictedTag: evicted}
}

// Statistics tracks the monotone non-decreasing, per-context counters the
// spec requires (§3 invariants). Every Cache implementation reports these
// per Context through Stats.
type Statistics struct {
	ReadHits   uint64
	ReadMisses uint64
	ReadEvicts uint64

	WriteHits   uint64
	WriteMisses uint64
	WriteEvicts uint64

	ExecHits   uint64
	ExecMisses uint64
	ExecEvicts uint64

	InvalidateHits   uint64
	InvalidateMisses uint64
}

func (s *Statistics) record(kind accessKind, resp Response) {
	switch kind {
	case accessRead:
		if resp.Hit {
			s.ReadHits++
		} else {
			s.ReadMisses++
		}
		if resp.Eviction {
			s.ReadEvicts++
		}
	case accessWrite:
		if resp.Hit {
			s.WriteHits++
		} else {
			s.WriteMisses++
		}
		if resp.Eviction {
			s.WriteEvicts++
		}
	case accessExec:
		if resp.Hit {
			s.ExecHits++
		} else {
			s.ExecMisses++
		}
		if resp.Eviction {
			s.ExecEvicts++
		}
	case accessInvalidate:
		if resp.Hit {
			s.InvalidateHits++
		} else {
			s.InvalidateMisses++
		}
	}
}

type accessKind int

const (
	accessRead accessKind = iota
	accessWrite
	accessExec
	accessInvalidate
)

// Algorithm names the replacement policy or variant family a cache reports
// through Geometry, for diagnostics. The config loader does not read it; its
// DIP/DRRIP checks go by configured type names.
type Algorithm string

const (
	AlgoLRU      Algorithm = "lru"
	AlgoBitPLRU  Algorithm = "bit-plru"
	AlgoTreePLRU Algorithm = "tree-plru"
	AlgoRandom   Algorithm = "random"
	AlgoLIP      Algorithm = "lip"
	AlgoBIP      Algorithm = "bip"
	AlgoSRRIP    Algorithm = "srrip"
	AlgoBRRIP    Algorithm = "brrip"
	AlgoDIP      Algorithm = "dip"
	AlgoDRRIP    Algorithm = "drrip"
)

// Geometry reports the structural parameters a profiler or attacker needs
// without knowing the concrete variant.
type Geometry struct {
	NLines          int
	NSets           int
	NWays           int
	EvictionSetSize int // minimum attacker lines to force one victim eviction
	GHMGroupSize    int // "group hit miss" group size; reported only, the profilers do not read it
	Algorithm       Algorithm
	NumParams       int
	Param           func(i int) int64
}

// Cache is the uniform contract every variant implements (§4.1). Profilers
// and the attack driver are polymorphic over this interface only.
type Cache interface {
	Read(tag Tag, ctx Context) []Response
	Write(tag Tag, ctx Context) []Response
	Exec(tag Tag, ctx Context) []Response
	Evict(tag Tag, ctx Context) []Response

	// HasCollision is a design-time oracle: would these two accesses ever
	// compete for the same way(s)? It never mutates cache state.
	HasCollision(tag1 Tag, ctx1 Context, tag2 Tag, ctx2 Context) bool

	Geometry() Geometry
	Stats(ctx Context) Statistics
}

// ErrUnknownCacheType is returned by the config-driven factory when a
// configuration document names a cache variant the core does not recognise.
type ErrUnknownCacheType struct{ Type string }

func (e ErrUnknownCacheType) Error() string {
	return fmt.Sprintf("cachefx: unknown cache type %q", e.Type)
}
