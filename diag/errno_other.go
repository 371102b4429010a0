//go:build !linux && !darwin

package diag

import (
	"fmt"
	"syscall"
)

// ErrnoName returns a symbolic form of an OS error number.
func ErrnoName(errno int) string {
	return fmt.Sprintf("errno %d", errno)
}

// ErrnoDescription returns the human-readable message for errno.
func ErrnoDescription(errno int) string {
	return syscall.Errno(errno).Error()
}
