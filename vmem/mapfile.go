package vmem

import (
	"github.com/battleblow/osal/internal/vmlog"
	"github.com/battleblow/osal/tracker"
)

// MapMemoryToFile maps bytes of the file behind fd anywhere in the address
// space. The mapping counts as reserved and committed.
func (m *Manager) MapMemoryToFile(bytes uintptr, fd int, cat tracker.Category) ([]byte, error) {
	b, err := sysMapFile(0, bytes, fd, 0, false, false)
	if err != nil {
		return nil, err
	}
	m.tr.RecordVirtualMemoryReserveAndCommit(base(b), bytes, cat, tracker.Here(1))
	return b, nil
}

// AttemptMapMemoryToFileAt maps the file at exactly addr, or fails.
func (m *Manager) AttemptMapMemoryToFileAt(addr, bytes uintptr, fd int, cat tracker.Category) ([]byte, error) {
	b, err := sysMapFile(addr, bytes, fd, 0, false, false)
	if err != nil {
		return nil, err
	}
	if base(b) != addr {
		_ = sysRelease(b)
		return nil, ErrWrongAddress
	}
	m.tr.RecordVirtualMemoryReserveAndCommit(addr, bytes, cat, tracker.Here(1))
	return b, nil
}

// MapMemory maps bytes of the named file at fileOffset. fileName is only
// used for log output.
func (m *Manager) MapMemory(fd int, fileName string, fileOffset int64, addr, bytes uintptr,
	readOnly, allowExec bool, cat tracker.Category) ([]byte, error) {
	b, err := sysMapFile(addr, bytes, fd, fileOffset, readOnly, allowExec)
	if err != nil {
		vmlog.L.Debug("map failed", "file", fileName, "offset", fileOffset,
			"bytes", bytes, "err", err)
		return nil, err
	}
	m.tr.RecordVirtualMemoryReserveAndCommit(base(b), bytes, cat, tracker.Here(1))
	return b, nil
}

// RemapMemory replaces an existing mapping with a fresh view of the file.
// Not recorded: the region identity is unchanged.
func (m *Manager) RemapMemory(fd int, fileName string, fileOffset int64, addr, bytes uintptr,
	readOnly, allowExec bool) ([]byte, error) {
	b, err := sysRemapFile(addr, bytes, fd, fileOffset, readOnly, allowExec)
	if err != nil {
		vmlog.L.Debug("remap failed", "file", fileName, "offset", fileOffset,
			"bytes", bytes, "err", err)
		return nil, err
	}
	return b, nil
}

// UnmapMemory removes a file mapping and its accounting.
func (m *Manager) UnmapMemory(seg []byte) error {
	if err := checkNonempty(seg); err != nil {
		return err
	}
	if err := sysRelease(seg); err != nil {
		return err
	}
	m.tr.RecordVirtualMemoryRelease(base(seg), uintptr(len(seg)))
	return nil
}
