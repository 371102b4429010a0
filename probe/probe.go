// Package probe provides fault-tolerant reads of arbitrary addresses.
//
// The crash reporter and the "what is this pointer" diagnostics walk memory
// that may be unmapped or corrupted. Every indirected read on those paths
// must go through this package: a read either succeeds and yields the word,
// or reports failure, and the fault never propagates.
//
// The mechanism converts the access fault into a recoverable panic for the
// duration of the read (runtime/debug.SetPanicOnFault). The read path does
// not allocate.
package probe

import (
	"runtime/debug"
	"syscall"
	"unsafe"
)

var minPageSize = uintptr(syscall.Getpagesize())

// Read32 reads a 32-bit value from addr. addr must be 4-aligned.
// Returns false if the address cannot be read.
func Read32(addr uintptr) (v uint32, ok bool) {
	old := debug.SetPanicOnFault(true)
	defer debug.SetPanicOnFault(old)
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	v = *(*uint32)(unsafe.Pointer(addr))
	return v, true
}

// ReadWord reads a machine word from addr. addr must be word-aligned.
// Returns false if the address cannot be read.
func ReadWord(addr uintptr) (v uintptr, ok bool) {
	old := debug.SetPanicOnFault(true)
	defer debug.SetPanicOnFault(old)
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	v = *(*uintptr)(unsafe.Pointer(addr))
	return v, true
}

// IsReadable reports whether a 4-byte read at p (aligned down to 4) would
// succeed. Helps prove validity of a non-null pointer.
func IsReadable(p uintptr) bool {
	_, ok := Read32(p &^ 3)
	return ok
}

// IsReadableRange reports whether every page in [from, to) is readable.
// Returns false for an empty or inverted range.
func IsReadableRange(from, to uintptr) bool {
	if from >= to {
		return false
	}
	for p := from &^ (minPageSize - 1); p < to; p += minPageSize {
		if !IsReadable(p) {
			return false
		}
	}
	return true
}
