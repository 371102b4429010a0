// Package tracker accounts every byte of native memory the layer hands out.
//
// Two ledgers are kept: malloc accounting (bytes and allocation counts per
// category, with an optional global quota) and a virtual-region registry
// (every reserved range with its committed subranges, category, and
// allocation site). The tracker is internally synchronized; recording a
// successful reserve or commit completes before the caller publishes the
// pointer to other goroutines.
package tracker

import (
	"fmt"
	"io"
	"runtime"
	"sync"
)

// Category tags an allocation with the subsystem it belongs to.
type Category uint8

const (
	CatNone Category = iota
	CatInternal
	CatClass
	CatThread
	CatThreadStack
	CatCode
	CatGC
	CatCompiler
	CatSymbol
	CatArguments
	CatTest
	CatOther

	catCount
)

var catNames = [catCount]string{
	"None", "Internal", "Class", "Thread", "Thread Stack", "Code",
	"GC", "Compiler", "Symbol", "Arguments", "Test", "Other",
}

func (c Category) String() string {
	if c >= catCount {
		return fmt.Sprintf("Category(%d)", uint8(c))
	}
	return catNames[c]
}

// CallSite identifies the code location responsible for an allocation.
type CallSite uintptr

// Here captures the caller's call site. skip counts frames above the caller
// of Here, as in runtime.Caller.
func Here(skip int) CallSite {
	pc, _, _, _ := runtime.Caller(skip + 1)
	return CallSite(pc)
}

func (cs CallSite) String() string {
	if cs == 0 {
		return "unknown"
	}
	if f := runtime.FuncForPC(uintptr(cs)); f != nil {
		return f.Name()
	}
	return fmt.Sprintf("pc=%#x", uintptr(cs))
}

type span struct {
	addr uintptr
	size uintptr
}

func (s span) end() uintptr { return s.addr + s.size }

// Region is one reserved virtual range.
type Region struct {
	Base uintptr
	Size uintptr
	Cat  Category
	Site CallSite

	committed []span // sorted, non-overlapping
}

func (r *Region) end() uintptr { return r.Base + r.Size }

type mallocCounters struct {
	count uint64
	bytes uint64
}

// Tracker is the process-wide accounting instance.
type Tracker struct {
	mu sync.Mutex

	enabled     bool
	mallocLimit uint64 // 0 means unlimited

	mallocTotal uint64
	byCat       [catCount]mallocCounters
	bySite      map[CallSite]mallocCounters

	regions []*Region
}

// New returns a tracker. A disabled tracker records nothing and never
// reports the quota as exceeded.
func New(enabled bool, mallocLimit uint64) *Tracker {
	return &Tracker{
		enabled:     enabled,
		mallocLimit: mallocLimit,
		bySite:      make(map[CallSite]mallocCounters),
	}
}

// Enabled reports whether accounting is active.
func (t *Tracker) Enabled() bool {
	return t != nil && t.enabled
}

// CheckExceedsLimit reports whether admitting size more malloced bytes would
// push the total past the configured quota. No side effects.
func (t *Tracker) CheckExceedsLimit(size uint64, cat Category) bool {
	if !t.Enabled() || t.mallocLimit == 0 {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mallocTotal+size > t.mallocLimit
}

// RecordMalloc accounts a successful heap allocation against its category
// and the code location that requested it.
func (t *Tracker) RecordMalloc(size uint64, cat Category, site CallSite) {
	if !t.Enabled() {
		return
	}
	t.mu.Lock()
	t.mallocTotal += size
	t.byCat[cat].count++
	t.byCat[cat].bytes += size
	if site != 0 {
		c := t.bySite[site]
		c.count++
		c.bytes += size
		t.bySite[site] = c
	}
	t.mu.Unlock()
}

// DeaccountMalloc reverses RecordMalloc for a block being freed or resized.
func (t *Tracker) DeaccountMalloc(size uint64, cat Category, site CallSite) {
	if !t.Enabled() {
		return
	}
	t.mu.Lock()
	t.mallocTotal -= size
	t.byCat[cat].count--
	t.byCat[cat].bytes -= size
	if site != 0 {
		c := t.bySite[site]
		c.count--
		c.bytes -= size
		if c.count == 0 && c.bytes == 0 {
			delete(t.bySite, site)
		} else {
			t.bySite[site] = c
		}
	}
	t.mu.Unlock()
}

// MallocTotal returns the malloced bytes currently accounted.
func (t *Tracker) MallocTotal() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mallocTotal
}

// MallocByCategory returns count and bytes accounted to cat.
func (t *Tracker) MallocByCategory(cat Category) (count, bytes uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.byCat[cat].count, t.byCat[cat].bytes
}

// MallocBySite returns count and bytes of live blocks allocated at site.
func (t *Tracker) MallocBySite(site CallSite) (count, bytes uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c := t.bySite[site]
	return c.count, c.bytes
}

// RecordVirtualMemoryReserve registers a new reserved range.
func (t *Tracker) RecordVirtualMemoryReserve(base, size uintptr, cat Category, site CallSite) {
	if !t.Enabled() || size == 0 {
		return
	}
	t.mu.Lock()
	t.regions = append(t.regions, &Region{Base: base, Size: size, Cat: cat, Site: site})
	t.mu.Unlock()
}

// RecordVirtualMemoryReserveAndCommit registers a range that is reserved and
// fully committed in one step (large-page and file-backed mappings).
func (t *Tracker) RecordVirtualMemoryReserveAndCommit(base, size uintptr, cat Category, site CallSite) {
	if !t.Enabled() || size == 0 {
		return
	}
	t.mu.Lock()
	r := &Region{Base: base, Size: size, Cat: cat, Site: site}
	r.committed = []span{{addr: base, size: size}}
	t.regions = append(t.regions, r)
	t.mu.Unlock()
}

// RecordVirtualMemoryCommit marks [addr, addr+size) committed within its
// reserved region.
func (t *Tracker) RecordVirtualMemoryCommit(addr, size uintptr) {
	if !t.Enabled() || size == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	r := t.findLocked(addr)
	if r == nil {
		return
	}
	r.committed = addSpan(r.committed, span{addr: addr, size: size})
}

// RecordVirtualMemoryUncommit removes [addr, addr+size) from the committed
// set of its region.
func (t *Tracker) RecordVirtualMemoryUncommit(addr, size uintptr) {
	if !t.Enabled() || size == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	r := t.findLocked(addr)
	if r == nil {
		return
	}
	r.committed = removeSpan(r.committed, span{addr: addr, size: size})
}

// RecordVirtualMemoryRelease forgets the region starting at addr. Partial
// releases split the region.
func (t *Tracker) RecordVirtualMemoryRelease(addr, size uintptr) {
	if !t.Enabled() || size == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, r := range t.regions {
		if r.Base == addr && r.Size == size {
			t.regions = append(t.regions[:i], t.regions[i+1:]...)
			return
		}
		if addr >= r.Base && addr+size <= r.end() {
			// Partial release: shrink or split.
			t.regions = append(t.regions[:i], t.regions[i+1:]...)
			if addr > r.Base {
				left := &Region{Base: r.Base, Size: addr - r.Base, Cat: r.Cat, Site: r.Site}
				left.committed = clampSpans(r.committed, left.Base, left.end())
				t.regions = append(t.regions, left)
			}
			if addr+size < r.end() {
				right := &Region{Base: addr + size, Size: r.end() - (addr + size), Cat: r.Cat, Site: r.Site}
				right.committed = clampSpans(r.committed, right.Base, right.end())
				t.regions = append(t.regions, right)
			}
			return
		}
	}
}

// ReservedRegion returns the size and category of the region starting at
// base, if one is registered.
func (t *Tracker) ReservedRegion(base uintptr) (size uintptr, cat Category, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, r := range t.regions {
		if r.Base == base {
			return r.Size, r.Cat, true
		}
	}
	return 0, CatNone, false
}

// CommittedBytes returns the committed byte count inside the region
// containing addr.
func (t *Tracker) CommittedBytes(addr uintptr) uintptr {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := t.findLocked(addr)
	if r == nil {
		return 0
	}
	var n uintptr
	for _, s := range r.committed {
		n += s.size
	}
	return n
}

// IsCommitted reports whether [addr, addr+size) lies entirely in committed
// subranges of a registered region.
func (t *Tracker) IsCommitted(addr, size uintptr) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := t.findLocked(addr)
	if r == nil {
		return false
	}
	p := addr
	for _, s := range r.committed {
		if p >= s.addr && p < s.end() {
			if addr+size <= s.end() {
				return true
			}
			p = s.end()
		}
	}
	return false
}

// PrintContainingRegion writes one line describing the registered region
// containing addr, if any. Used by the crash-time pointer diagnostics.
func (t *Tracker) PrintContainingRegion(w io.Writer, addr uintptr) bool {
	if !t.Enabled() {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	r := t.findLocked(addr)
	if r == nil {
		return false
	}
	fmt.Fprintf(w, "%#016x is in a reserved region [%#016x - %#016x), tag %s, reserved by %s\n",
		addr, r.Base, r.end(), r.Cat, r.Site)
	return true
}

func (t *Tracker) findLocked(addr uintptr) *Region {
	for _, r := range t.regions {
		if addr >= r.Base && addr < r.end() {
			return r
		}
	}
	return nil
}
