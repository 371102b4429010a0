//go:build linux || darwin

package diag

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

// ErrnoName returns the symbolic name of an OS error number, e.g. "ENOENT".
func ErrnoName(errno int) string {
	if name := unix.ErrnoName(syscall.Errno(errno)); name != "" {
		return name
	}
	return fmt.Sprintf("errno %d", errno)
}

// ErrnoDescription returns the human-readable message for errno.
func ErrnoDescription(errno int) string {
	return syscall.Errno(errno).Error()
}
