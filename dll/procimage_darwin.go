//go:build darwin

package dll

import (
	"debug/macho"
	"os"
	"sync"
)

// processImage resolves symbols statically linked into the executable by
// reading its own Mach-O symbol table. Parsing is deferred until the first
// lookup; a missing or stripped table yields an empty map.
type processImage struct {
	once sync.Once
	syms map[string]uintptr
}

var procImage processImage

// ProcessImage returns the symbol source for the running executable.
func ProcessImage() SymbolSource { return &procImage }

func (p *processImage) Lookup(symbol string) (uintptr, bool) {
	p.once.Do(p.load)
	addr, ok := p.syms[symbol]
	return addr, ok
}

func (p *processImage) load() {
	p.syms = make(map[string]uintptr)
	exe, err := os.Executable()
	if err != nil {
		return
	}
	f, err := macho.Open(exe)
	if err != nil {
		return
	}
	defer f.Close()
	if f.Symtab == nil {
		return
	}
	for _, s := range f.Symtab.Syms {
		if s.Name != "" && s.Value != 0 {
			// Mach-O C symbols carry a leading underscore.
			name := s.Name
			if name[0] == '_' {
				name = name[1:]
			}
			p.syms[name] = uintptr(s.Value)
		}
	}
}
