//go:build linux || darwin

package paths

import (
	"os"

	"golang.org/x/sys/unix"
)

// Open is a stdio-style open that guarantees the descriptor closes across
// exec. mode accepts the fopen mode strings ("r", "r+", "w", "w+", "a",
// "a+"; a trailing "b" is ignored).
func Open(path, mode string) (*os.File, error) {
	flags, err := modeFlags(mode)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, flags|unix.O_CLOEXEC, 0666)
	if err != nil {
		return nil, err
	}
	// O_CLOEXEC in the open itself is the common case; keep the fcntl
	// fallback for libcs that ignore unknown open flags.
	if unix.O_CLOEXEC == 0 {
		fd := int(f.Fd())
		if fl, ferr := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0); ferr == nil {
			_, _ = unix.FcntlInt(uintptr(fd), unix.F_SETFD, fl|unix.FD_CLOEXEC)
		}
	}
	return f, nil
}
