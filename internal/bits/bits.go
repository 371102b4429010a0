// Package bits contains small arithmetic helpers shared by the memory and
// diagnostic layers: power-of-two predicates, alignment, and bitfield
// extraction used by the hex dumper.
package bits

import (
	"math/bits"
	"unsafe"
)

// WordSize is the machine word size in bytes.
const WordSize = int(unsafe.Sizeof(uintptr(0)))

// BitsPerByte is the number of bits in a byte.
const BitsPerByte = 8

// IsPowerOf2 reports whether v is a power of two. Zero is not.
func IsPowerOf2(v uint64) bool {
	return v != 0 && v&(v-1) == 0
}

// AlignDown returns v rounded down to the nearest multiple of alignment.
// alignment must be a power of two.
func AlignDown(v, alignment uintptr) uintptr {
	return v &^ (alignment - 1)
}

// AlignUp returns v rounded up to the nearest multiple of alignment.
// alignment must be a power of two.
func AlignUp(v, alignment uintptr) uintptr {
	return (v + alignment - 1) &^ (alignment - 1)
}

// IsAligned reports whether v is a multiple of alignment (a power of two).
func IsAligned(v, alignment uintptr) bool {
	return v&(alignment-1) == 0
}

// RoundDownPowerOf2 returns the largest power of two <= v. v must be nonzero.
func RoundDownPowerOf2(v uint64) uint64 {
	return 1 << (63 - bits.LeadingZeros64(v))
}

// MaxPowerOf2 is the largest power of two representable in a uint64.
const MaxPowerOf2 = uint64(1) << 63

// CountTrailingZeros returns the number of trailing zero bits in v.
func CountTrailingZeros(v uint64) int {
	return bits.TrailingZeros64(v)
}

// Bitfield extracts width bits of v starting at bit offset start.
func Bitfield(v uintptr, start, width int) uintptr {
	return (v >> start) & ((1 << width) - 1)
}
