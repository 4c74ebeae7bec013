package cipher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpeck64_Deterministic(t *testing.T) {
	key := [4]uint32{0xDEADBEEF, 0x000CAFFE, 0x47111174, 0x08155180}
	a := NewSpeck64(key)
	b := NewSpeck64(key)
	assert.Equal(t, a.Encrypt(12345), b.Encrypt(12345), "same key and plaintext must yield the same ciphertext every time")
}

func TestSpeck64_DifferentKeysDiverge(t *testing.T) {
	a := NewSpeck64([4]uint32{1, 2, 3, 4})
	b := NewSpeck64([4]uint32{5, 6, 7, 8})
	assert.NotEqual(t, a.Encrypt(1), b.Encrypt(1))
}

func TestSpeck64_PermuteIsDeterministic(t *testing.T) {
	s := NewSpeck64([4]uint32{1, 2, 3, 4})
	permuted := s.Permute64(999, 0x42)
	// XEX construction: XOR-in, encrypt, XOR-out is not self-inverting without
	// decrypt, but the same (input, tweak) pair must be idempotent across
	// calls.
	assert.Equal(t, permuted, s.Permute64(999, 0x42))
}

func TestSpeck64_DifferentTweaksDiverge(t *testing.T) {
	s := NewSpeck64([4]uint32{1, 2, 3, 4})
	assert.NotEqual(t, s.Permute64(10, 1), s.Permute64(10, 2))
}
