// Package prng implements the runtime's shared pseudo-random source: the
// Park-Miller minimal standard generator with a lock-free, CAS-updated seed.
//
// The generator is deterministic for a single-threaded caller. Under
// contention the exact interleaving is unspecified, but every returned value
// is a valid iterate of some previously stored seed.
package prng

import "sync/atomic"

// DefaultSeed is the seed installed by New before the embedding runtime has
// a chance to pick its own.
const DefaultSeed = 1234567

const (
	multiplier = 16807
	modulus    = 2147483647 // 2^31 - 1
)

// Source is a shared random source. Safe for concurrent use.
type Source struct {
	seed atomic.Uint32
}

// New returns a source seeded with DefaultSeed.
func New() *Source {
	s := &Source{}
	s.Init(DefaultSeed)
	return s
}

// Init replaces the current seed.
func (s *Source) Init(seed uint32) {
	s.seed.Store(seed)
}

// nextRandom computes (16807*seed) mod (2^31-1) without 64-bit division,
// using Carta's split multiplication: the product is split at bit 31 and the
// high part folded back in, incrementing on each overflow past the modulus.
// See Park & Miller, CACM 31:10 (1988) and Carta, CACM 33:1 (1990).
func nextRandom(seed uint32) uint32 {
	lo := multiplier * (seed & 0xFFFF)
	hi := multiplier * (seed >> 16)
	lo += (hi & 0x7FFF) << 16

	if lo > modulus {
		lo &= modulus
		lo++
	}
	lo += hi >> 15

	if lo > modulus {
		lo &= modulus
		lo++
	}
	return lo
}

// Next returns the next iterate as a non-negative 31-bit integer.
// Retries until its CAS of the seed wins.
func (s *Source) Next() int32 {
	for {
		seed := s.seed.Load()
		rand := nextRandom(seed)
		if s.seed.CompareAndSwap(seed, rand) {
			return int32(rand)
		}
	}
}
