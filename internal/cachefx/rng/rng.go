// Package rng provides the single process-wide deterministic generator the
// core draws all randomness from (replacement-policy tie breaks, salt
// generation, plaintext generation, noise address selection).
package rng

import (
	"hash/fnv"
	"math/rand"
)

// Generator is the process-wide PRNG handle. The spec requires a single
// seeded generator per experiment (§5); subsystems never construct their
// own math/rand source. Generator is not safe for concurrent use — the
// core is strictly single-threaded (§5).
type Generator struct {
	seed    int64
	master  *rand.Rand
	streams map[string]*rand.Rand
}

// New seeds a fresh generator. Same seed, same configuration, same run.
func New(seed int64) *Generator {
	return &Generator{
		seed:    seed,
		master:  rand.New(rand.NewSource(seed)),
		streams: make(map[string]*rand.Rand),
	}
}

// Seed reports the seed this generator was constructed with.
func (g *Generator) Seed() int64 { return g.seed }

// Stream returns a deterministic sub-generator for name, derived from the
// master seed by XOR-ing it with an FNV-1a hash of the name. Order of first
// access does not affect the derived seed, so constructing caches, handles
// and victims in any order yields the same per-subsystem streams.
func (g *Generator) Stream(name string) *rand.Rand {
	if r, ok := g.streams[name]; ok {
		return r
	}
	h := fnv.New64a()
	h.Write([]byte(name))
	derived := g.seed ^ int64(h.Sum64())
	r := rand.New(rand.NewSource(derived))
	g.streams[name] = r
	return r
}

// Intn draws from the master stream, for callers that don't need an
// isolated named stream.
func (g *Generator) Intn(n int) int { return g.master.Intn(n) }

// Float64 draws a uniform float from the master stream.
func (g *Generator) Float64() float64 { return g.master.Float64() }

// Subsystem name constants for common streams, so callers share a
// consistent derivation without repeating string literals.
const (
	StreamReplacement = "replacement"
	StreamCipherSalt  = "cipher-salt"
	StreamPlaintext   = "plaintext"
	StreamNoise       = "noise"
	StreamMMU         = "mmu"
)
