//go:build darwin

package vmem

import "golang.org/x/sys/unix"

// Darwin has no MAP_NORESERVE; anonymous PROT_NONE mappings are already
// lazily backed.
const reserveExtraFlags = 0

// MADV_FREE lets the kernel reclaim the pages lazily.
const madvDisclaim = unix.MADV_FREE

// Explicit large-page placement is not exposed on Darwin.
func sysReserveSpecial(addr, bytes, pageSize uintptr, executable bool) ([]byte, error) {
	return nil, ErrUnsupported
}
