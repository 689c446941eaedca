// Package bitsource provides the deterministic pseudo-random streams the
// samplers draw from. A Source wraps exactly one engine, chosen at construction
// and fixed for its lifetime.
package bitsource

import (
	"fmt"

	cryptorand "github.com/decred/dcrd/crypto/rand"
	"gonum.org/v1/gonum/mathext/prng"
	sfc "pgregory.net/rand"
)

// f53Mul scales a 53-bit integer into [0, 1).
const f53Mul = 0x1.0p-53

// Source is a seedable pseudo-random stream. Methods are not safe for
// concurrent use; give each goroutine its own Source (see Fork).
type Source struct {
	alg    Algorithm
	sfc    *sfc.Rand
	mt     *prng.MT19937_64
	seeded bool
}

// New returns a Source for alg. A nil seed draws the seed from the system
// entropy pool, in which case two Sources never repeat each other's stream.
func New(alg Algorithm, seed *uint64) (*Source, error) {
	if !alg.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrUnknownAlgorithm, alg)
	}
	s := &Source{alg: alg, seeded: seed != nil}
	var v uint64
	if seed != nil {
		v = *seed
	} else {
		v = cryptorand.Uint64()
	}
	s.reseed(v)
	return s, nil
}

// NewSeeded is New with an explicit seed.
func NewSeeded(alg Algorithm, seed uint64) (*Source, error) {
	return New(alg, &seed)
}

func (s *Source) reseed(v uint64) {
	switch s.alg {
	case FastChaotic:
		s.sfc = sfc.New(v)
	case MersenneTwister:
		mt := prng.NewMT19937_64()
		mt.Seed(v)
		s.mt = mt
	}
}

// Algorithm returns the engine behind s.
func (s *Source) Algorithm() Algorithm { return s.alg }

// Seeded reports whether the stream was started from an explicit seed, i.e.
// whether it is reproducible.
func (s *Source) Seeded() bool { return s.seeded }

// Uint64 returns the next 64 bits of the stream.
func (s *Source) Uint64() uint64 {
	if s.alg == FastChaotic {
		return s.sfc.Uint64()
	}
	return s.mt.Uint64()
}

// Float64 returns a uniform value in [0, 1) built from the top 53 bits of one
// Uint64, so it advances both engines by the same single step.
func (s *Source) Float64() float64 {
	return float64(s.Uint64()>>11) * f53Mul
}

// Fork returns a new Source of the same algorithm. With a seed it is simply a
// fresh stream; without one the child is seeded from the parent's next value,
// which keeps a seeded parent's whole family of streams reproducible.
func (s *Source) Fork(seed *uint64) *Source {
	child := &Source{alg: s.alg}
	if seed != nil {
		child.seeded = true
		child.reseed(*seed)
		return child
	}
	child.seeded = s.seeded
	child.reseed(s.Uint64())
	return child
}
