package diag

import (
	"github.com/battleblow/osal/internal/bits"
	"github.com/battleblow/osal/probe"
)

// Frame is a native stack frame as seen by the crash-time stack walker.
// The saved caller frame pointer lives at *FP, the caller's stack pointer
// two words above FP.
type Frame struct {
	SP uintptr
	FP uintptr
}

// SenderSP returns the presumed caller stack pointer.
func (f Frame) SenderSP() uintptr {
	return f.FP + 2*uintptr(bits.WordSize)
}

// maxFrameSize bounds a plausible native frame. Anything larger means the
// frame pointer was reused as a scratch register and the walk must stop.
const maxFrameSize = 64 * 1024

// IsFirstCFrame reports whether fr is unlikely to have a walkable
// predecessor. It is a heuristic over alignment, readability, and stack
// growth direction; a true return stops the backtrace before it strays
// into garbage.
func IsFirstCFrame(fr Frame) bool {
	fpAlignMask := uintptr(bits.WordSize - 1)
	const spAlignMask = uintptr(4 - 1)

	usp := fr.SP
	if usp&spAlignMask != 0 {
		return true
	}
	ufp := fr.FP
	if ufp&fpAlignMask != 0 {
		return true
	}

	oldSP := fr.SenderSP()
	if oldSP&spAlignMask != 0 {
		return true
	}
	if oldSP == 0 || oldSP == ^uintptr(0) {
		return true
	}

	oldFP, ok := probe.ReadWord(ufp)
	if !ok {
		return true
	}
	if oldFP == 0 || oldFP == ^uintptr(0) || oldFP == ufp {
		return true
	}

	// The stack grows downwards. A saved frame pointer below the current
	// one, or an implausibly large frame, means the chain is broken.
	if oldFP < ufp {
		return true
	}
	if oldFP-ufp > maxFrameSize {
		return true
	}
	return false
}
