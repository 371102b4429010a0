package cheap

import (
	"sync"
	"unsafe"
)

// SystemAllocator is the raw allocator underneath the tracked heap.
// Implementations return nil on failure and never touch the tracker.
type SystemAllocator interface {
	// Alloc returns at least n bytes, or nil.
	Alloc(n uintptr) unsafe.Pointer

	// Realloc resizes the block at p, preserving min(old, n) bytes. The
	// block may move. Returns nil and leaves p intact on failure.
	Realloc(p unsafe.Pointer, n uintptr) unsafe.Pointer

	// Free releases a block obtained from Alloc or Realloc.
	Free(p unsafe.Pointer)
}

// goHeap is the default SystemAllocator. Blocks are Go-allocated byte
// slices pinned in a registry keyed by base address, which keeps them
// reachable and gives them stable addresses for the lifetime of the block.
type goHeap struct {
	mu     sync.Mutex
	blocks map[uintptr][]byte
}

// NewSystemAllocator returns the default allocator backed by the Go heap.
func NewSystemAllocator() SystemAllocator {
	return &goHeap{blocks: make(map[uintptr][]byte)}
}

func (g *goHeap) Alloc(n uintptr) unsafe.Pointer {
	if n == 0 {
		n = 1
	}
	b := make([]byte, n)
	p := unsafe.Pointer(&b[0])
	g.mu.Lock()
	g.blocks[uintptr(p)] = b
	g.mu.Unlock()
	return p
}

func (g *goHeap) Realloc(p unsafe.Pointer, n uintptr) unsafe.Pointer {
	if p == nil {
		return g.Alloc(n)
	}
	if n == 0 {
		n = 1
	}
	g.mu.Lock()
	old, ok := g.blocks[uintptr(p)]
	g.mu.Unlock()
	if !ok {
		return nil
	}
	nb := make([]byte, n)
	copy(nb, old)
	np := unsafe.Pointer(&nb[0])
	g.mu.Lock()
	delete(g.blocks, uintptr(p))
	g.blocks[uintptr(np)] = nb
	g.mu.Unlock()
	return np
}

func (g *goHeap) Free(p unsafe.Pointer) {
	if p == nil {
		return
	}
	g.mu.Lock()
	delete(g.blocks, uintptr(p))
	g.mu.Unlock()
}
