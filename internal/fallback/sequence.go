package fallback

import (
	"crypto/sha256"
	"encoding/binary"
)

// 64-bit linear congruential constants (Knuth, MMIX).
const (
	lcgMultiplier uint64 = 6364136223846793005
	lcgIncrement  uint64 = 1442695040888963407
)

// Sequence is a reproducible index generator seeded from a single SHA-256 digest.
// The same key always yields the same series of indices.
type Sequence struct {
	state uint64
}

// NewSequence seeds a sequence from the digest of key.
func NewSequence(key string) *Sequence {
	sum := sha256.Sum256([]byte(key))
	return &Sequence{state: binary.BigEndian.Uint64(sum[:8])}
}

func (s *Sequence) next() uint64 {
	s.state = s.state*lcgMultiplier + lcgIncrement
	// High bits of an LCG have the longest period.
	return s.state >> 33
}

// Intn returns the next index in [0, n). It returns 0 when n <= 0.
func (s *Sequence) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(s.next() % uint64(n))
}

// Pick returns the next pseudo-random element of items.
func Pick[T any](s *Sequence, items []T) T {
	var zero T
	if len(items) == 0 {
		return zero
	}
	return items[s.Intn(len(items))]
}
