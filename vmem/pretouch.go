package vmem

import (
	"sync/atomic"
	"unsafe"

	"github.com/battleblow/osal/internal/bits"
	"github.com/battleblow/osal/internal/vmerr"
)

// PretouchMemory forces page-in of [start, end) by touching one word per
// page.
//
// The touch must be a store: loads from fresh anonymous memory can all be
// satisfied from the shared zero page. An atomic add of zero is used
// instead of a plain store so other goroutines may already be using the
// region while pretouch runs; a store of zero would race with their writes.
func (m *Manager) PretouchMemory(start, end, pageSize uintptr) {
	if start > end {
		vmerr.Fatal("pretouch_memory: invalid range [%#x, %#x)", start, end)
	}
	if !bits.IsPowerOf2(uint64(pageSize)) || pageSize < 4 {
		vmerr.Fatal("pretouch_memory: bad page size %d", pageSize)
	}
	if start == end {
		return
	}
	// Page granularity means any address within a page works; the page
	// start keeps the iteration simple.
	first := bits.AlignDown(start, pageSize)
	last := bits.AlignDown(end-1, pageSize)

	// Touch, then compare against the last page rather than advancing
	// first: cur+pageSize may wrap to zero when the region abuts the top
	// of the address space.
	for cur := first; ; cur += pageSize {
		atomic.AddInt32((*int32)(unsafe.Pointer(cur)), 0)
		if cur >= last {
			break
		}
	}
}
