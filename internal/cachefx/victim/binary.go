package victim

import (
	"github.com/cachefx/cachefx/internal/cachefx/cache"
	"github.com/cachefx/cachefx/internal/cachefx/mmu"
)

// BinaryVictim allocates a whole-cache-sized handle and picks two
// addresses at least one cache line apart: cipher() reads addressB when
// the (single-bit) key is 0, addressA otherwise — the canonical two-branch
// secret-dependent access victim (CLI victim=binary). Grounded on
// Victim/BinaryVictim.cpp.
type BinaryVictim struct {
	Base
	handle             *mmu.Handle
	addressA, addressB uint64
	key                byte
}

func NewBinaryVictim(m *mmu.MMU, cacheSize uint64) *BinaryVictim {
	h, err := m.Allocate("BinaryVictim", cacheSize, mmu.AllocateOpts{Context: cache.ContextVictim})
	if err != nil {
		panic(err)
	}
	h.SetAccessType(mmu.AccessAll)
	v := &BinaryVictim{
		handle:   h,
		addressA: 0,
		addressB: cache.CacheLineSize, // at least one line apart, per the original's ">= 64 bytes"
	}
	v.Track(h)
	h.SetTargetLine(int(v.addressA / cache.CacheLineSize))
	return v
}

func (v *BinaryVictim) KeySize() int    { return 1 }
func (v *BinaryVictim) InputSize() int  { return 1 }
func (v *BinaryVictim) OutputSize() int { return 1 }

func (v *BinaryVictim) GenerateKeyPair() KeyPair { return KeyPair{A: []byte{0}, B: []byte{1}} }
func (v *BinaryVictim) RandomPlaintext() []byte  { return []byte{0} }

func (v *BinaryVictim) SetKey(k []byte) {
	if len(k) > 0 {
		v.key = k[0]
	}
}

func (v *BinaryVictim) Cipher(in, out []byte) {
	if v.key == 0 {
		v.handle.Read(v.addressB)
	} else {
		v.handle.Read(v.addressA)
	}
}

func (v *BinaryVictim) AccessAddress() bool {
	resps := v.handle.Read(v.addressA)
	return len(resps) > 0 && resps[len(resps)-1].Hit
}

func (v *BinaryVictim) InvalidateAddress() { v.handle.Flush(v.addressA) }

func (v *BinaryVictim) HasCollision(h *mmu.Handle, offset uint64) bool {
	return v.handle.HasCollision(v.addressA, h, offset)
}
