//go:build linux

package vmem

import (
	"math/bits"
	"unsafe"

	"golang.org/x/sys/unix"
)

// MAP_NORESERVE keeps reservations from counting against overcommit limits.
const reserveExtraFlags = unix.MAP_NORESERVE

const madvDisclaim = unix.MADV_DONTNEED

// sysReserveSpecial reserves and commits bytes backed by explicit huge
// pages of the given size in one mmap call.
func sysReserveSpecial(addr, bytes, pageSize uintptr, executable bool) ([]byte, error) {
	flags := unix.MAP_PRIVATE | unix.MAP_ANON | unix.MAP_HUGETLB
	flags |= bits.TrailingZeros64(uint64(pageSize)) << unix.MAP_HUGE_SHIFT
	p, err := unix.MmapPtr(-1, 0, unsafe.Pointer(addr), bytes,
		protFor(false, executable), flags)
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*byte)(p), bytes), nil
}
