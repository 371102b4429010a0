//go:build !linux && !darwin

package vmem

func sysReserve(addr, bytes uintptr, executable bool) ([]byte, error) {
	return nil, ErrUnsupported
}

func sysReserveSpecial(addr, bytes, pageSize uintptr, executable bool) ([]byte, error) {
	return nil, ErrUnsupported
}

func sysCommit(seg []byte, executable bool) error { return ErrUnsupported }

func sysCommitHint(seg []byte, alignmentHint uintptr, executable bool) error {
	return ErrUnsupported
}

func sysUncommit(seg []byte) error { return ErrUnsupported }

func sysRelease(seg []byte) error { return ErrUnsupported }

func sysDisclaim(seg []byte, alignmentHint uintptr) {}

func sysRealign(seg []byte, alignmentHint uintptr) {}

func sysMapFile(addr, bytes uintptr, fd int, fileOffset int64, readOnly, allowExec bool) ([]byte, error) {
	return nil, ErrUnsupported
}

func sysRemapFile(addr, bytes uintptr, fd int, fileOffset int64, readOnly, allowExec bool) ([]byte, error) {
	return nil, ErrUnsupported
}
