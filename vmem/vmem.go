// Package vmem manages virtual address space for the runtime: reserving,
// committing, uncommitting and releasing ranges, large-page selection,
// file-backed mappings, and pretouch.
//
// Every successful reserve or commit is recorded with the memory tracker
// before the caller can publish the range; failures record nothing. Ranges
// are represented as byte slices over the mapped address space, the way the
// platform mapping calls hand them out.
package vmem

import (
	"errors"
	"syscall"
	"unsafe"

	"github.com/battleblow/osal/internal/bits"
	"github.com/battleblow/osal/internal/vmerr"
	"github.com/battleblow/osal/internal/vmlog"
	"github.com/battleblow/osal/pagesize"
	"github.com/battleblow/osal/tracker"
)

var (
	// ErrEmptyRange indicates a commit/uncommit/release of an empty or
	// nil range, which violates the caller contract.
	ErrEmptyRange = errors.New("vmem: empty range")

	// ErrWrongAddress indicates the OS could not place a mapping at the
	// requested address.
	ErrWrongAddress = errors.New("vmem: mapping not placed at requested address")

	// ErrUnsupported indicates the operation is not available on this
	// platform.
	ErrUnsupported = errors.New("vmem: operation not supported on this platform")
)

// Options configures a Manager.
type Options struct {
	// Tracker receives accounting records. nil means a disabled tracker.
	Tracker *tracker.Tracker

	// PageSizes is the set of usable page sizes. When nil, the set holds
	// only the VM page size.
	PageSizes *pagesize.Sizes

	// UseLargePages enables large-page selection in PageSizeForRegion.
	UseLargePages bool
}

// Manager is the virtual-memory layer. Safe for concurrent use; the OS and
// the tracker provide the synchronization.
type Manager struct {
	tr            *tracker.Tracker
	sizes         *pagesize.Sizes
	vmPageSize    uintptr
	useLargePages bool
}

// New returns a manager. The VM page size is taken from the host.
func New(opts Options) *Manager {
	tr := opts.Tracker
	if tr == nil {
		tr = tracker.New(false, 0)
	}
	pg := uintptr(syscall.Getpagesize())
	sizes := opts.PageSizes
	if sizes == nil {
		sizes = &pagesize.Sizes{}
		sizes.Add(uint64(pg))
	}
	return &Manager{
		tr:            tr,
		sizes:         sizes,
		vmPageSize:    pg,
		useLargePages: opts.UseLargePages,
	}
}

// VMPageSize returns the default page size.
func (m *Manager) VMPageSize() uintptr { return m.vmPageSize }

// PageSizes returns the supported page-size set.
func (m *Manager) PageSizes() *pagesize.Sizes { return m.sizes }

func base(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b[0]))
}

func checkNonempty(b []byte) error {
	if len(b) == 0 {
		return ErrEmptyRange
	}
	return nil
}

// Reserve obtains bytes of address space with no backing committed.
// Returns nil and an error on failure; a failed reserve is non-fatal.
func (m *Manager) Reserve(bytes uintptr, executable bool, cat tracker.Category) ([]byte, error) {
	b, err := sysReserve(0, bytes, executable)
	if err != nil {
		vmlog.L.Debug("reserve failed", "bytes", bytes, "err", err)
		return nil, err
	}
	m.tr.RecordVirtualMemoryReserve(base(b), bytes, cat, tracker.Here(1))
	return b, nil
}

// ReserveAt attempts to reserve bytes at exactly addr. If the OS places the
// mapping elsewhere the attempt is undone and ErrWrongAddress returned.
func (m *Manager) ReserveAt(addr, bytes uintptr, executable bool, cat tracker.Category) ([]byte, error) {
	b, err := sysReserve(addr, bytes, executable)
	if err != nil {
		vmlog.L.Debug("attempt to reserve memory at address failed",
			"addr", addr, "bytes", bytes, "err", err)
		return nil, err
	}
	if base(b) != addr {
		_ = sysRelease(b)
		vmlog.L.Debug("attempt to reserve memory at address failed",
			"addr", addr, "bytes", bytes, "got", base(b))
		return nil, ErrWrongAddress
	}
	m.tr.RecordVirtualMemoryReserve(addr, bytes, cat, tracker.Here(1))
	return b, nil
}

// ReserveSpecial reserves and commits bytes in one step using OS large
// pages of the given size. alignment applies to the placement, addr is an
// optional fixed request.
func (m *Manager) ReserveSpecial(bytes, alignment, pageSize, addr uintptr, executable bool, cat tracker.Category) ([]byte, error) {
	if addr != 0 && !bits.IsAligned(addr, alignment) {
		return nil, errors.New("vmem: unaligned request address")
	}
	b, err := sysReserveSpecial(addr, bytes, pageSize, executable)
	if err != nil {
		vmlog.L.Debug("large page reservation failed",
			"bytes", bytes, "page_size", pageSize, "err", err)
		return nil, err
	}
	// The memory is committed by the OS call itself.
	m.tr.RecordVirtualMemoryReserveAndCommit(base(b), bytes, cat, tracker.Here(1))
	return b, nil
}

// Commit binds backing to a reserved range. The range must be exactly the
// one the caller wants committed; sub-dividing is the caller's job.
func (m *Manager) Commit(seg []byte, executable bool) error {
	if err := checkNonempty(seg); err != nil {
		return err
	}
	if err := sysCommit(seg, executable); err != nil {
		vmlog.L.Debug("commit failed", "addr", base(seg), "bytes", len(seg), "err", err)
		return err
	}
	m.tr.RecordVirtualMemoryCommit(base(seg), uintptr(len(seg)))
	return nil
}

// CommitWithHint is Commit with an alignment hint the platform may use to
// pick a coarser backing page.
func (m *Manager) CommitWithHint(seg []byte, alignmentHint uintptr, executable bool) error {
	if err := checkNonempty(seg); err != nil {
		return err
	}
	if err := sysCommitHint(seg, alignmentHint, executable); err != nil {
		vmlog.L.Debug("commit failed", "addr", base(seg), "bytes", len(seg), "err", err)
		return err
	}
	m.tr.RecordVirtualMemoryCommit(base(seg), uintptr(len(seg)))
	return nil
}

// CommitOrExit is Commit with failure promoted to a fatal exit carrying
// mesg. The only fatal variant besides strdup_check_oom.
func (m *Manager) CommitOrExit(seg []byte, executable bool, mesg string) {
	if err := m.Commit(seg, executable); err != nil {
		vmerr.ExitOutOfMemory(uint64(len(seg)), mesg)
	}
}

// Uncommit returns the backing of a committed range to the OS while keeping
// the address space reserved.
func (m *Manager) Uncommit(seg []byte) error {
	if err := checkNonempty(seg); err != nil {
		return err
	}
	if err := sysUncommit(seg); err != nil {
		return err
	}
	m.tr.RecordVirtualMemoryUncommit(base(seg), uintptr(len(seg)))
	return nil
}

// Release undoes a Reserve, uncommitting anything still committed.
func (m *Manager) Release(res []byte) error {
	if err := checkNonempty(res); err != nil {
		return err
	}
	if err := sysRelease(res); err != nil {
		vmlog.L.Info("release failed", "addr", base(res), "bytes", len(res), "err", err)
		return err
	}
	m.tr.RecordVirtualMemoryRelease(base(res), uintptr(len(res)))
	return nil
}

// ReleaseSpecial releases a ReserveSpecial mapping.
func (m *Manager) ReleaseSpecial(res []byte) error {
	return m.Release(res)
}

// FreeMemory tells the OS the content of a committed range is disposable.
// The range stays committed. Best effort.
func (m *Manager) FreeMemory(seg []byte, alignmentHint uintptr) {
	if len(seg) == 0 {
		return
	}
	sysDisclaim(seg, alignmentHint)
}

// RealignMemory re-establishes a large-page backing hint after FreeMemory.
// Best effort, no-op on most platforms.
func (m *Manager) RealignMemory(seg []byte, alignmentHint uintptr) {
	sysRealign(seg, alignmentHint)
}

// PageSizeForRegion picks the largest usable page size for a region that
// must hold at least minPages pages: the largest known page <= region/min,
// additionally dividing the region evenly when mustBeAligned is set. Falls
// back to the VM page size.
func (m *Manager) PageSizeForRegion(regionSize, minPages uintptr, mustBeAligned bool) uintptr {
	if minPages == 0 {
		vmerr.Fatal("page_size_for_region: min_pages must be positive")
	}
	if m.useLargePages {
		maxPageSize := regionSize / minPages

		for ps := m.sizes.Largest(); ps != 0; ps = m.sizes.NextSmaller(ps) {
			if uintptr(ps) <= maxPageSize {
				if !mustBeAligned || bits.IsAligned(regionSize, uintptr(ps)) {
					return uintptr(ps)
				}
			}
		}
	}
	return m.vmPageSize
}

// PageSizeForRegionAligned requires the page to divide the region evenly.
func (m *Manager) PageSizeForRegionAligned(regionSize, minPages uintptr) uintptr {
	return m.PageSizeForRegion(regionSize, minPages, true)
}

// PageSizeForRegionUnaligned drops the alignment requirement.
func (m *Manager) PageSizeForRegionUnaligned(regionSize, minPages uintptr) uintptr {
	return m.PageSizeForRegion(regionSize, minPages, false)
}

// TracePageSizes logs the page selection for a sized region.
func (m *Manager) TracePageSizes(what string, regionMin, regionMax, pageSize uintptr, addr, size uintptr) {
	vmlog.L.Info("page sizes", "what", what,
		"min", regionMin, "max", regionMax,
		"base", addr, "page_size", pageSize, "size", size)
}

// TracePageSizesForRequestedSize logs the selection for a single requested
// size, including whether a fallback page size was used.
func (m *Manager) TracePageSizesForRequestedSize(what string, requestedSize, requestedPage uintptr, addr, size, pageSize uintptr) {
	vmlog.L.Info("page sizes", "what", what,
		"requested_size", requestedSize, "requested_page_size", requestedPage,
		"base", addr, "page_size", pageSize, "size", size)
}
