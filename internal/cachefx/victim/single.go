package victim

import (
	"math/rand"

	"github.com/cachefx/cachefx/internal/cachefx/cache"
	"github.com/cachefx/cachefx/internal/cachefx/mmu"
)

// SingleAccessVictim drives exactly one address per cipher() call,
// ignoring its input/output entirely. Grounded on
// Victim/SingleAccessVictim.cpp.
type SingleAccessVictim struct {
	Base
	handle *mmu.Handle
	offset uint64
}

// NewSingleAccessVictim allocates a handle of cacheSize bytes and, if
// randomize is set, picks the target offset from rng; otherwise it targets
// offset 0, matching the deterministic default the spec requires (§5).
func NewSingleAccessVictim(m *mmu.MMU, cacheSize uint64, randomize bool, rng *rand.Rand) *SingleAccessVictim {
	h, err := m.Allocate("SingleAccessVictim", cacheSize, mmu.AllocateOpts{Context: cache.ContextVictim})
	if err != nil {
		panic(err)
	}
	h.SetAccessType(mmu.AccessAll)
	v := &SingleAccessVictim{handle: h}
	v.Track(h)
	if randomize {
		lines := cacheSize / cache.CacheLineSize
		v.offset = uint64(rng.Int63n(int64(lines))) * cache.CacheLineSize
	}
	h.SetTargetLine(int(v.offset / cache.CacheLineSize))
	return v
}

func (v *SingleAccessVictim) KeySize() int    { return 1 }
func (v *SingleAccessVictim) InputSize() int  { return 1 }
func (v *SingleAccessVictim) OutputSize() int { return 1 }

func (v *SingleAccessVictim) GenerateKeyPair() KeyPair { return KeyPair{A: []byte{0}, B: []byte{1}} }
func (v *SingleAccessVictim) RandomPlaintext() []byte  { return []byte{0} }
func (v *SingleAccessVictim) SetKey([]byte)             {}

func (v *SingleAccessVictim) Cipher(in, out []byte) { v.handle.Read(v.offset) }

func (v *SingleAccessVictim) AccessAddress() bool {
	resps := v.handle.Read(v.offset)
	return len(resps) > 0 && resps[len(resps)-1].Hit
}

func (v *SingleAccessVictim) InvalidateAddress() { v.handle.Flush(v.offset) }

func (v *SingleAccessVictim) HasCollision(h *mmu.Handle, offset uint64) bool {
	return v.handle.HasCollision(v.offset, h, offset)
}
