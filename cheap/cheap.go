// Package cheap implements the runtime's tracked C-heap: a wrapper around a
// raw system allocator that prefixes every block with an integrity header,
// enforces the malloc quota, and reverses accounting deterministically on
// free and realloc.
//
// Before the runtime configuration is parsed the allocator runs in a preinit
// mode: requests go straight to the system allocator, and the resulting
// pointers are remembered in a side table so a later Free or Realloc can
// recognize them after tracking has been switched on.
package cheap

import (
	"sync"
	"unsafe"

	"github.com/battleblow/osal/internal/vmerr"
	"github.com/battleblow/osal/internal/vmlog"
	"github.com/battleblow/osal/tracker"
)

// Options configures an Allocator.
type Options struct {
	// System is the raw allocator. Default: NewSystemAllocator().
	System SystemAllocator

	// Debug enables poison fills of fresh memory and the catch-pointer
	// trap.
	Debug bool

	// CatchPtr, when nonzero in debug mode, stops the process in the
	// debugger when the allocator returns or frees exactly this address.
	CatchPtr uintptr
}

// Allocator is the tracked heap. Safe for concurrent use; operations on
// distinct pointers are independent. Concurrently freeing the same pointer
// is a caller error.
type Allocator struct {
	sys      SystemAllocator
	debug    bool
	catchPtr uintptr

	// tr is nil until Promote. Reads race only with one Promote call,
	// which the embedding runtime performs before starting threads that
	// allocate.
	tr *tracker.Tracker

	preinit struct {
		mu  sync.Mutex
		set map[uintptr]struct{}
	}
}

// New returns an allocator in preinit mode.
func New(opts Options) *Allocator {
	sys := opts.System
	if sys == nil {
		sys = NewSystemAllocator()
	}
	a := &Allocator{sys: sys, debug: opts.Debug, catchPtr: opts.CatchPtr}
	a.preinit.set = make(map[uintptr]struct{})
	return a
}

// Promote ends the preinit phase and attaches the tracker. Must be called
// exactly once, after configuration is parsed and before concurrent use.
func (a *Allocator) Promote(tr *tracker.Tracker) {
	if a.tr != nil {
		vmerr.Fatal("tracked heap promoted twice")
	}
	if tr == nil {
		tr = tracker.New(false, 0)
	}
	a.tr = tr
}

func (a *Allocator) tracking() bool {
	return a.tr != nil && a.tr.Enabled()
}

func (a *Allocator) isPreinit(p unsafe.Pointer) bool {
	a.preinit.mu.Lock()
	_, ok := a.preinit.set[uintptr(p)]
	a.preinit.mu.Unlock()
	return ok
}

func (a *Allocator) addPreinit(p unsafe.Pointer) {
	a.preinit.mu.Lock()
	a.preinit.set[uintptr(p)] = struct{}{}
	a.preinit.mu.Unlock()
}

func (a *Allocator) removePreinit(p unsafe.Pointer) {
	a.preinit.mu.Lock()
	delete(a.preinit.set, uintptr(p))
	a.preinit.mu.Unlock()
}

func (a *Allocator) checkCaught(p unsafe.Pointer) {
	if a.debug && a.catchPtr != 0 && uintptr(p) == a.catchPtr {
		vmlog.L.Warn("ptr caught", "ptr", uintptr(p))
		breakpoint()
	}
}

// Malloc returns a pointer to at least max(size, 1) bytes, or nil on
// failure. The memory content is unspecified (poisoned in debug mode).
func (a *Allocator) Malloc(size uintptr, cat tracker.Category, site tracker.CallSite) unsafe.Pointer {
	if a.tr == nil {
		// Preinit phase: raw allocation, remembered in the side table.
		p := a.sys.Alloc(maxSize(size))
		if p != nil {
			a.addPreinit(p)
		}
		return p
	}

	// malloc(3) may return null or a unique pointer for a zero-size
	// request; unify on the latter.
	size = maxSize(size)

	if !a.tracking() {
		p := a.sys.Alloc(size)
		a.checkCaught(p)
		return p
	}

	if a.tr.CheckExceedsLimit(uint64(size), cat) {
		return nil
	}

	outer := size + overhead
	if outer < size { // overflow
		return nil
	}

	op := a.sys.Alloc(outer)
	if op == nil {
		return nil
	}

	h := (*header)(op)
	h.size = uint64(size)
	h.site = uint64(site)
	h.cat = uint16(cat)
	h.markLive()
	a.tr.RecordMalloc(uint64(size), cat, site)

	inner := h.payload()
	if a.debug {
		fill(inner, size, poisonByte)
	}
	a.checkCaught(inner)
	return inner
}

// Realloc resizes the block at p, preserving contents up to min(old, new).
// The block may move. On failure nil is returned and the old block stays
// live. Realloc(nil, ...) behaves as Malloc.
func (a *Allocator) Realloc(p unsafe.Pointer, size uintptr, cat tracker.Category, site tracker.CallSite) unsafe.Pointer {
	if p == nil {
		return a.Malloc(size, cat, site)
	}
	if a.tr == nil || a.isPreinit(p) {
		np := a.sys.Realloc(p, maxSize(size))
		if np != nil {
			a.removePreinit(p)
			a.addPreinit(np)
		}
		return np
	}

	size = maxSize(size)

	if !a.tracking() {
		np := a.sys.Realloc(p, size)
		a.checkCaught(np)
		return np
	}

	outer := size + overhead
	if outer < size {
		return nil
	}

	// Validate the old header before anything else; corruption is fatal.
	h := resolveChecked(p, "os::realloc")
	oldSize := uintptr(h.size)
	oldCat := h.category()
	oldSite := tracker.CallSite(h.site)

	if size > oldSize && a.tr.CheckExceedsLimit(uint64(size-oldSize), cat) {
		return nil
	}

	// Mark the old block dead *before* handing it to the system
	// reallocator, which may invalidate the header. A racing free of the
	// same pointer then trips the liveness check instead of observing a
	// transiently valid header.
	h.markDead()

	np := a.sys.Realloc(unsafe.Pointer(h), outer)
	if np == nil {
		// The block still exists; undo the death mark.
		h.revive()
		return nil
	}

	// Old block gone: reverse its accounting, then account the resized
	// block under its new size.
	a.tr.DeaccountMalloc(uint64(oldSize), oldCat, oldSite)

	nh := (*header)(np)
	nh.size = uint64(size)
	nh.site = uint64(site)
	nh.cat = uint16(cat)
	nh.markLive()
	a.tr.RecordMalloc(uint64(size), cat, site)

	inner := nh.payload()
	if a.debug && size > oldSize {
		fill(unsafe.Add(inner, oldSize), size-oldSize, poisonByte)
	}
	a.checkCaught(inner)
	return inner
}

// Free releases a block. Free(nil) is a no-op. Header corruption and double
// frees are diagnosed fatally.
func (a *Allocator) Free(p unsafe.Pointer) {
	if p == nil {
		return
	}
	if a.tr == nil || a.isPreinit(p) {
		a.removePreinit(p)
		a.sys.Free(p)
		return
	}
	a.checkCaught(p)
	if !a.tracking() {
		a.sys.Free(p)
		return
	}

	h := resolveChecked(p, "os::free")
	h.markDead()
	a.tr.DeaccountMalloc(h.size, h.category(), tracker.CallSite(h.site))
	a.sys.Free(unsafe.Pointer(h))
}

// Strdup copies s into a freshly malloced, NUL-terminated block and returns
// the payload pointer, or nil on failure.
func (a *Allocator) Strdup(s string, cat tracker.Category) unsafe.Pointer {
	p := a.Malloc(uintptr(len(s))+1, cat, tracker.Here(1))
	if p == nil {
		return nil
	}
	copyString(p, s)
	return p
}

// StrdupCheckOOM is Strdup with allocation failure promoted to a fatal
// process exit.
func (a *Allocator) StrdupCheckOOM(s string, cat tracker.Category) unsafe.Pointer {
	p := a.Strdup(s, cat)
	if p == nil {
		vmerr.ExitOutOfMemory(uint64(len(s))+1, "os::strdup_check_oom")
	}
	return p
}

func maxSize(size uintptr) uintptr {
	if size == 0 {
		return 1
	}
	return size
}

func fill(p unsafe.Pointer, n uintptr, b byte) {
	s := unsafe.Slice((*byte)(p), n)
	for i := range s {
		s[i] = b
	}
}

func copyString(p unsafe.Pointer, s string) {
	dst := unsafe.Slice((*byte)(p), len(s)+1)
	copy(dst, s)
	dst[len(s)] = 0
}

// GoString reads the NUL-terminated string at p back into Go memory.
func GoString(p unsafe.Pointer) string {
	if p == nil {
		return ""
	}
	var n uintptr
	for *(*byte)(unsafe.Add(p, n)) != 0 {
		n++
	}
	return string(unsafe.Slice((*byte)(p), n))
}
