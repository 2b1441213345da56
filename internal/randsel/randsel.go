// Package randsel is the single source of randomness in the pipeline: a
// seeded 32-bit generator whose stream is bit-exact across platforms. Every
// selection that affects output order must go through a Selector; the
// ambient math/rand source is never used.
package randsel

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// Selector is a deterministic PRNG (additive constant mix with
// xorshift-style finalization, 32-bit state). Identical seeds produce
// byte-identical shuffles on every platform; the only floating point
// involved is one IEEE-754 double division per draw.
type Selector struct {
	state uint32
}

// New returns a Selector seeded with seed.
func New(seed uint32) *Selector { return &Selector{state: seed} }

// DeriveSeed builds the seed from the document content hash and the
// seed-affecting pipeline parameters: the first 8 hex chars of
// SHA-256(contentHash + params) parsed as a 32-bit integer.
func DeriveSeed(contentHash, params string) uint32 {
	sum := sha256.Sum256([]byte(contentHash + params))
	v, err := strconv.ParseUint(hex.EncodeToString(sum[:])[:8], 16, 32)
	if err != nil {
		// unreachable: input is 8 hex chars by construction
		return 0
	}
	return uint32(v)
}

func (s *Selector) nextUint32() uint32 {
	s.state += 0x6D2B79F5
	z := s.state
	z = (z ^ (z >> 15)) * (z | 1)
	z ^= z + (z^(z>>7))*(z|61)
	return z ^ (z >> 14)
}

// Next returns the next draw in [0, 1).
func (s *Selector) Next() float64 {
	return float64(s.nextUint32()) / 4294967296.0
}

// Intn returns a draw in [0, n). n must be positive.
func (s *Selector) Intn(n int) int {
	return int(s.Next() * float64(n))
}

// Choice returns a deterministically chosen index into a list of length n,
// or -1 for an empty list.
func (s *Selector) Choice(n int) int {
	if n <= 0 {
		return -1
	}
	return s.Intn(n)
}

// Shuffle permutes xs in place with a Fisher–Yates walk over successive
// draws.
func Shuffle[T any](s *Selector, xs []T) {
	for i := len(xs) - 1; i > 0; i-- {
		j := s.Intn(i + 1)
		xs[i], xs[j] = xs[j], xs[i]
	}
}
