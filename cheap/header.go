package cheap

import (
	"unsafe"

	"github.com/battleblow/osal/internal/vmerr"
	"github.com/battleblow/osal/tracker"
)

// Every tracked block is laid out as
//
//	[ header | payload (requested size) | footer ]
//
// The caller sees the payload pointer; the header is recovered by
// subtracting headerSize. The footer is a two-byte canary directly after the
// payload, checked on free and realloc to catch overwrites of the payload
// end.
type header struct {
	size   uint64 // requested payload size
	site   uint64 // allocation site PC, for per-site accounting
	cat    uint16
	state  uint16
	canary uint32
}

const (
	headerSize = unsafe.Sizeof(header{})
	footerSize = uintptr(2)

	stateLive uint16 = 0x10CA
	stateDead uint16 = 0xDEAD

	canaryValue uint32 = 0x5AFEC0DE

	footerByte0 byte = 0xE7
	footerByte1 byte = 0x7E

	// poisonByte fills fresh payload bytes in debug mode so reads of
	// uninitialized memory are recognizable in dumps.
	poisonByte byte = 0xF1
)

// overhead is the per-allocation expansion applied to tracked blocks.
const overhead = headerSize + footerSize

func headerOf(payload unsafe.Pointer) *header {
	return (*header)(unsafe.Add(payload, -int(headerSize)))
}

func (h *header) payload() unsafe.Pointer {
	return unsafe.Add(unsafe.Pointer(h), headerSize)
}

func (h *header) footer() *[2]byte {
	return (*[2]byte)(unsafe.Add(h.payload(), h.size))
}

func (h *header) markLive() {
	h.state = stateLive
	h.canary = canaryValue
	f := h.footer()
	f[0] = footerByte0
	f[1] = footerByte1
}

func (h *header) markDead() {
	h.state = stateDead
}

// revive undoes markDead after a failed system realloc; the block is still
// live and its original free must succeed.
func (h *header) revive() {
	h.state = stateLive
}

// resolveChecked validates the header in front of payload and terminates the
// process with a diagnostic when the block is corrupt or already freed.
func resolveChecked(payload unsafe.Pointer, op string) *header {
	h := headerOf(payload)
	if h.canary != canaryValue {
		vmerr.Fatal("heap corruption detected by %s: bad header canary for block %p (%#08x)",
			op, payload, h.canary)
	}
	switch h.state {
	case stateLive:
	case stateDead:
		vmerr.Fatal("heap corruption detected by %s: block %p is already dead (double free?)", op, payload)
	default:
		vmerr.Fatal("heap corruption detected by %s: bad liveness marker for block %p (%#04x)",
			op, payload, h.state)
	}
	f := h.footer()
	if f[0] != footerByte0 || f[1] != footerByte1 {
		vmerr.Fatal("heap corruption detected by %s: footer canary overwritten for block %p (size %d)",
			op, payload, h.size)
	}
	return h
}

func (h *header) category() tracker.Category {
	return tracker.Category(h.cat)
}
