//go:build linux || darwin

package vmem

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

func protFor(readOnly, executable bool) int {
	prot := unix.PROT_READ
	if !readOnly {
		prot |= unix.PROT_WRITE
	}
	if executable {
		prot |= unix.PROT_EXEC
	}
	return prot
}

// sysReserve maps bytes of address space with no access rights and no
// backing. addr of 0 lets the OS choose; a nonzero addr is a hint, and the
// caller checks placement.
func sysReserve(addr, bytes uintptr, executable bool) ([]byte, error) {
	p, err := unix.MmapPtr(-1, 0, unsafe.Pointer(addr), bytes,
		unix.PROT_NONE,
		unix.MAP_PRIVATE|unix.MAP_ANON|reserveExtraFlags)
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*byte)(p), bytes), nil
}

// sysCommit grants access to a reserved range, binding backing on first
// touch.
func sysCommit(seg []byte, executable bool) error {
	return unix.Mprotect(seg, protFor(false, executable))
}

// sysCommitHint is sysCommit; the alignment hint has no effect here (the
// kernel picks backing pages itself).
func sysCommitHint(seg []byte, _ uintptr, executable bool) error {
	return sysCommit(seg, executable)
}

// sysUncommit drops the backing and access rights while keeping the
// address range reserved.
func sysUncommit(seg []byte) error {
	if err := unix.Mprotect(seg, unix.PROT_NONE); err != nil {
		return err
	}
	return unix.Madvise(seg, madvDisclaim)
}

func sysRelease(seg []byte) error {
	return unix.MunmapPtr(unsafe.Pointer(&seg[0]), uintptr(len(seg)))
}

// sysDisclaim tells the kernel the content of the range is disposable.
func sysDisclaim(seg []byte, _ uintptr) {
	_ = unix.Madvise(seg, madvDisclaim)
}

func sysRealign(_ []byte, _ uintptr) {}

// sysMapFile maps bytes of fd at fileOffset. addr of 0 lets the OS choose.
func sysMapFile(addr, bytes uintptr, fd int, fileOffset int64, readOnly, allowExec bool) ([]byte, error) {
	flags := unix.MAP_SHARED
	if readOnly {
		flags = unix.MAP_PRIVATE
	}
	p, err := unix.MmapPtr(fd, fileOffset, unsafe.Pointer(addr), bytes,
		protFor(readOnly, allowExec), flags)
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*byte)(p), bytes), nil
}

// sysRemapFile replaces the mapping at addr with a fresh view of the file.
func sysRemapFile(addr, bytes uintptr, fd int, fileOffset int64, readOnly, allowExec bool) ([]byte, error) {
	flags := unix.MAP_SHARED | unix.MAP_FIXED
	if readOnly {
		flags = unix.MAP_PRIVATE | unix.MAP_FIXED
	}
	p, err := unix.MmapPtr(fd, fileOffset, unsafe.Pointer(addr), bytes,
		protFor(readOnly, allowExec), flags)
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*byte)(p), bytes), nil
}
