//go:build linux

package dll

import (
	"debug/elf"
	"os"
	"sync"
)

// processImage resolves symbols statically linked into the executable by
// reading its own ELF symbol tables. Parsing is deferred until the first
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
	f, err := elf.Open(exe)
	if err != nil {
		return
	}
	defer f.Close()
	for _, table := range [](func() ([]elf.Symbol, error)){f.Symbols, f.DynamicSymbols} {
		syms, err := table()
		if err != nil {
			continue
		}
		for _, s := range syms {
			if s.Name != "" && s.Value != 0 {
				p.syms[s.Name] = uintptr(s.Value)
			}
		}
	}
}
