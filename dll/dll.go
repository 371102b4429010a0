// Package dll discovers and loads native libraries for the runtime: library
// filename composition, search-path resolution, dynamic loading, and
// static-agent detection against the process' own symbol table.
package dll

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/battleblow/osal/internal/vmerr"
	"github.com/battleblow/osal/paths"
)

// ErrNotFound indicates a symbol lookup failed.
var ErrNotFound = errors.New("dll: symbol not found")

// ErrUnsupported indicates the platform has no loader support.
var ErrUnsupported = errors.New("dll: dynamic loading not supported")

// SymbolSource resolves symbol names to addresses. Implemented by loaded
// libraries and by the process image itself.
type SymbolSource interface {
	Lookup(symbol string) (uintptr, bool)
}

// Handle is an opened native library.
type Handle struct {
	path string
	src  SymbolSource
}

// Path returns the file the handle was loaded from.
func (h *Handle) Path() string { return h.path }

// Lookup resolves a symbol in the library.
func (h *Handle) Lookup(symbol string) (uintptr, bool) {
	if h == nil || h.src == nil {
		return 0, false
	}
	return h.src.Lookup(symbol)
}

// BuildName composes the platform library filename, e.g. "java" becomes
// "libjava.so".
func BuildName(name string) string {
	return Prefix + name + Suffix
}

// LocateLib searches for the library fname along pname and returns the
// first candidate that exists.
//
// An empty pname means the current working directory; a pname containing
// the path separator is searched element by element; anything else is a
// single directory.
func LocateLib(pname, fname string) (string, bool) {
	full := BuildName(fname)

	if pname == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", false
		}
		return checkCandidate(filepath.Join(cwd, full))
	}

	if strings.IndexByte(pname, paths.PathSeparator) >= 0 {
		for _, dir := range paths.SplitPath(pname, len(full)+1) {
			if dir == "" {
				continue
			}
			if p, ok := checkCandidate(filepath.Join(dir, full)); ok {
				return p, true
			}
		}
		return "", false
	}

	return checkCandidate(filepath.Join(pname, full))
}

func checkCandidate(p string) (string, bool) {
	if _, err := os.Stat(p); err != nil {
		return "", false
	}
	return p, true
}

// NativeLibs owns the process-wide native-library handles. The primordial
// "java" library loads eagerly on first request and failure to load it is
// fatal: nothing useful runs without it.
type NativeLibs struct {
	dllDir string

	javaOnce sync.Once
	java     *Handle
}

// NewNativeLibs returns a registry searching dllDir for bundled libraries.
func NewNativeLibs(dllDir string) *NativeLibs {
	return &NativeLibs{dllDir: dllDir}
}

// JavaLibrary returns the primordial native-image library handle, loading
// it on the first call.
func (n *NativeLibs) JavaLibrary() *Handle {
	n.javaOnce.Do(func() {
		path, ok := LocateLib(n.dllDir, "java")
		if !ok {
			vmerr.ExitDuringInitialization("Unable to load native library: %s not found in %s",
				BuildName("java"), n.dllDir)
		}
		h, err := Load(path)
		if err != nil {
			vmerr.ExitDuringInitialization("Unable to load native library: %v", err)
		}
		n.java = h
	})
	return n.java
}
