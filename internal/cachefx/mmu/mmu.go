// Package mmu implements the memory-handle / MMU layer: named, per-context
// allocations over a flat simulated address space, translated to cache-line
// tags and forwarded to the cache model while harvesting per-access
// telemetry. Grounded on MMU/DirectMMU.cpp and include/MemHandle/*.h.
package mmu

import (
	"fmt"

	"github.com/cachefx/cachefx/internal/cachefx/cache"
)

const defaultAlign = 128

// MMU owns a contiguous simulated address space and every handle it hands
// out. Handles borrow the MMU for the duration of a call and never outlive
// it (§9 "Shared handle ↔ MMU ownership").
type MMU struct {
	cache cache.Cache
	last  uint64
	byName map[string][]*Handle // public-name chains, first entry anchors the shared base
}

// New builds an MMU over the given cache. start is the first free address;
// pass 0 for a deterministic layout (the spec requires bit-reproducible
// runs given a seed, §5), or a PRNG-derived offset if the caller wants
// randomized layout for a specific experiment.
func New(c cache.Cache, start uint64) *MMU {
	return &MMU{cache: c, last: start, byName: make(map[string][]*Handle)}
}

func (m *MMU) Cache() cache.Cache { return m.cache }

func alignUp(v, align uint64) uint64 {
	if align == 0 {
		return v
	}
	rem := v % align
	if rem == 0 {
		return v
	}
	return v + (align - rem)
}

// AllocateOpts mirrors the original's allocate(name, size, align, fix,
// context, pub) convenience overloads collapsed into one options struct,
// since Go has no default-argument overloading.
type AllocateOpts struct {
	Align   uint64 // 0 defaults to defaultAlign
	Fixed   uint64 // additional fixed offset added after alignment
	Context cache.Context
	Public  bool
}

// Allocate creates or joins a named handle. Re-allocating an existing
// non-public name fails. Re-allocating a public name under a new context
// creates a fresh handle that SHARES the first handle's base address
// (the mechanism behind "public name shares base address across contexts",
// §4.2/§6); re-allocating under a context already present in the chain
// returns that existing handle.
func (m *MMU) Allocate(name string, size uint64, opts AllocateOpts) (*Handle, error) {
	if opts.Align == 0 {
		opts.Align = defaultAlign
	}

	if chain, ok := m.byName[name]; ok {
		if !opts.Public || !chain[0].public {
			return nil, fmt.Errorf("cachefx: handle %q already allocated", name)
		}
		for _, h := range chain {
			if h.context == opts.Context {
				return h, nil
			}
		}
		h := &Handle{
			mmu:         m,
			name:        name,
			base:        chain[0].base,
			size:        size,
			context:     opts.Context,
			public:      true,
			accessType:  AccessAll,
		}
		m.byName[name] = append(chain, h)
		return h, nil
	}

	base := alignUp(m.last, opts.Align) + opts.Fixed
	h := &Handle{
		mmu:        m,
		name:       name,
		base:       base,
		size:       size,
		context:    opts.Context,
		public:     opts.Public,
		accessType: AccessAll,
	}
	m.last = base + size
	m.byName[name] = []*Handle{h}
	return h, nil
}

// Free releases a handle from the MMU's bookkeeping. The original treats
// this as a no-op on the underlying bump allocator (addresses are never
// reused within an experiment); we match that.
func (m *MMU) Free(h *Handle) {
	chain := m.byName[h.name]
	for i, c := range chain {
		if c == h {
			m.byName[h.name] = append(chain[:i], chain[i+1:]...)
			break
		}
	}
}
