package diag

import (
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/battleblow/osal/internal/bits"
	"github.com/battleblow/osal/probe"
)

// SymbolOptions controls symbol rendering in backtraces.
type SymbolOptions struct {
	// ShortenPaths strips directories from library paths.
	ShortenPaths bool
	// StripArgs removes argument lists from demangled function names.
	StripArgs bool
	// LibraryName maps an address to the object file that maps it. Nil
	// means library names are omitted.
	LibraryName func(addr uintptr) (string, bool)
}

// PrintFunctionAndLibraryName resolves addr to "function+offset in library"
// and writes it to w. When addr does not resolve directly it is treated as
// a function descriptor: the word it points at is probed and resolved
// instead, with an "(FD)" marker in the output. Reports whether anything
// resolved.
func PrintFunctionAndLibraryName(w io.Writer, addr uintptr, opts SymbolOptions) bool {
	name, offset, ok := resolvePC(addr)
	descriptor := false
	if !ok {
		// Some ABIs publish descriptors holding the real entry address.
		target, readable := probe.ReadWord(bits.AlignDown(addr, uintptr(bits.WordSize)))
		if readable {
			name, offset, ok = resolvePC(target)
			descriptor = ok
		}
	}
	if !ok {
		return false
	}
	if opts.StripArgs {
		if i := strings.IndexByte(name, '('); i > 0 {
			name = name[:i]
		}
	}
	fmt.Fprintf(w, "%s+0x%x", name, offset)
	if descriptor {
		io.WriteString(w, " (FD)")
	}
	if opts.LibraryName != nil {
		if lib, found := opts.LibraryName(addr); found {
			if opts.ShortenPaths {
				lib = filepath.Base(lib)
			}
			fmt.Fprintf(w, " in %s", lib)
		}
	}
	return true
}

func resolvePC(addr uintptr) (name string, offset uintptr, ok bool) {
	// CallersFrames expects return addresses and steps back one byte to
	// find the call; the +1 cancels that so addr itself is resolved. This
	// also names inlined frames, which FuncForPC cannot.
	frame, _ := runtime.CallersFrames([]uintptr{addr + 1}).Next()
	if frame.Function == "" {
		return "", 0, false
	}
	return frame.Function, addr - frame.Entry, true
}
