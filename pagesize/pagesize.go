// Package pagesize provides a compact set type for the page sizes a host
// supports. The set is a bitset over powers of two: membership of page size
// p is simply bit p. All operations require power-of-two arguments.
package pagesize

import (
	"fmt"
	"io"
	"strings"

	"github.com/battleblow/osal/internal/bits"
	"github.com/battleblow/osal/internal/vmerr"
)

const (
	kb = uint64(1) << 10
	mb = uint64(1) << 20
	gb = uint64(1) << 30
)

// Sizes is a set of supported page sizes. The zero value is the empty set.
// Built once during initialization and read-only afterwards; concurrent
// readers need no synchronization.
type Sizes struct {
	v uint64
}

func checkPowerOf2(p uint64) {
	if !bits.IsPowerOf2(p) {
		vmerr.Fatal("page size must be a power of 2: %#x", p)
	}
}

// Add inserts page size p into the set.
func (s *Sizes) Add(p uint64) {
	checkPowerOf2(p)
	s.v |= p
}

// Contains reports whether p is in the set.
func (s *Sizes) Contains(p uint64) bool {
	checkPowerOf2(p)
	return s.v&p != 0
}

// NextSmaller returns the largest member smaller than p, or 0.
func (s *Sizes) NextSmaller(p uint64) uint64 {
	checkPowerOf2(p)
	v2 := s.v & (p - 1)
	if v2 == 0 {
		return 0
	}
	return bits.RoundDownPowerOf2(v2)
}

// NextLarger returns the smallest member larger than p, or 0.
func (s *Sizes) NextLarger(p uint64) uint64 {
	checkPowerOf2(p)
	if p == bits.MaxPowerOf2 { // shifting past the top bit would wrap
		return 0
	}
	// Remove p and everything smaller.
	v2 := s.v &^ (p + (p - 1))
	if v2 == 0 {
		return 0
	}
	return uint64(1) << bits.CountTrailingZeros(v2)
}

// Largest returns the largest member, or 0 for the empty set.
func (s *Sizes) Largest() uint64 {
	if s.Contains(bits.MaxPowerOf2) {
		return bits.MaxPowerOf2
	}
	return s.NextSmaller(bits.MaxPowerOf2)
}

// Smallest returns the smallest member, or 0 for the empty set.
// Sizes below the VM page size are not rejected here; callers filter.
func (s *Sizes) Smallest() uint64 {
	return s.NextLarger(1)
}

// PrintOn writes a human-readable listing, e.g. "4k, 2M, 1G".
func (s *Sizes) PrintOn(w io.Writer) {
	fmt.Fprint(w, s.String())
}

// String renders the set smallest-first, or "empty".
func (s *Sizes) String() string {
	var b strings.Builder
	first := true
	for sz := s.Smallest(); sz != 0; sz = s.NextLarger(sz) {
		if !first {
			b.WriteString(", ")
		}
		first = false
		switch {
		case sz < mb:
			fmt.Fprintf(&b, "%dk", sz/kb)
		case sz < gb:
			fmt.Fprintf(&b, "%dM", sz/mb)
		default:
			fmt.Fprintf(&b, "%dG", sz/gb)
		}
	}
	if first {
		return "empty"
	}
	return b.String()
}
