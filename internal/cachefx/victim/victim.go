// Package victim implements the victim abstraction (§4.3): a stateful
// object that hides key/input generation and per-cipher access patterns
// behind a fixed contract, so profilers and the attack driver never need
// to know which concrete victim they're driving. Grounded on
// include/Victim/Victim.h.
package victim

import (
	"github.com/cachefx/cachefx/internal/cachefx/cache"
	"github.com/cachefx/cachefx/internal/cachefx/mmu"
)

// KeyPair is two keys differing in exactly one secret bit or byte, as
// produced by GenerateKeyPair.
type KeyPair struct {
	A []byte
	B []byte
}

// Victim is the core contract every concrete victim (single-access, binary
// two-address, and the external AES/square-and-multiply victims) must
// satisfy.
type Victim interface {
	KeySize() int
	InputSize() int
	OutputSize() int

	GenerateKeyPair() KeyPair
	RandomPlaintext() []byte

	SetKey(key []byte)
	Cipher(in, out []byte)

	// AccessAddress touches the victim's target line and reports whether it
	// hit, mirroring the original's accessAddress() == 0 (miss) check.
	AccessAddress() bool
	InvalidateAddress()
	HasCollision(h *mmu.Handle, offset uint64) bool

	UniqueTagsTouched() int
	ClearUniqueTags()

	ResetAttackerAddressesEvicted()
	AttackerAddressesEvicted() uint64
	ClearCorrectEvictions()
	ClearIncorrectEvictions()
	CorrectEvictions() uint64
	IncorrectEvictions() uint64
}

// Base provides the telemetry plumbing shared by every concrete victim:
// the eviction observer wiring against its handles. Concrete victims embed
// Base and only need to implement KeySize/InputSize/OutputSize/
// GenerateKeyPair/RandomPlaintext/SetKey/Cipher/AccessAddress*/
// InvalidateAddress/HasCollision themselves.
type Base struct {
	handles []*mmu.Handle
	obs     mmu.EvictionObserver
}

// Track registers a handle so Base's telemetry pass-throughs aggregate over
// it. Call this once per handle a concrete victim allocates.
func (b *Base) Track(h *mmu.Handle) { b.handles = append(b.handles, h) }

// PrimaryHandle returns the first handle tracked, the one profilers and
// the attack driver prime/probe through. Victims with a single handle
// (single-access, binary) satisfy the HandleProvider interface for free by
// embedding Base.
func (b *Base) PrimaryHandle() *mmu.Handle {
	if len(b.handles) == 0 {
		return nil
	}
	return b.handles[0]
}

// HandleProvider is implemented by any victim embedding Base; callers that
// need direct handle access (profilers, the CLI) type-assert against it
// instead of reaching into concrete victim fields.
type HandleProvider interface {
	PrimaryHandle() *mmu.Handle
}

// ArmEvictionSet installs the attacker eviction-set tag set as the shared
// observer on every tracked handle, matching "the driver installs an
// observer on the victim's handles" (§9).
func (b *Base) ArmEvictionSet(evSet map[cache.Tag]bool) {
	b.obs = mmu.EvictionObserver{EvictionSet: evSet}
	for _, h := range b.handles {
		h.InstallObserver(&b.obs)
	}
}

func (b *Base) ResetAttackerAddressesEvicted() { b.obs.AttackerAddressesEvicted = 0 }
func (b *Base) AttackerAddressesEvicted() uint64 { return b.obs.AttackerAddressesEvicted }
func (b *Base) ClearCorrectEvictions()   { b.obs.CorrectEvictions = 0 }
func (b *Base) ClearIncorrectEvictions() { b.obs.IncorrectEvictions = 0 }
func (b *Base) CorrectEvictions() uint64   { return b.obs.CorrectEvictions }
func (b *Base) IncorrectEvictions() uint64 { return b.obs.IncorrectEvictions }

func (b *Base) UniqueTagsTouched() int {
	total := 0
	for _, h := range b.handles {
		total += h.UniqueTagsTouched()
	}
	return total
}

func (b *Base) ClearUniqueTags() {
	for _, h := range b.handles {
		h.ClearUniqueTags()
	}
}
