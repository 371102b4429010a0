//go:build linux || darwin

package dll

import (
	"fmt"
	"plugin"
	"reflect"
)

// pluginSource adapts an opened plugin to SymbolSource. Plugin symbols are
// pointers to the exported object; the address reported is the object's.
type pluginSource struct {
	p *plugin.Plugin
}

func (s pluginSource) Lookup(symbol string) (uintptr, bool) {
	sym, err := s.p.Lookup(symbol)
	if err != nil {
		return 0, false
	}
	v := reflect.ValueOf(sym)
	if v.Kind() == reflect.Pointer || v.Kind() == reflect.Func {
		return v.Pointer(), true
	}
	return 0, false
}

// Load opens the shared library at path and returns a handle for symbol
// lookup. Libraries already open are shared, matching dlopen semantics.
func Load(path string) (*Handle, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dll: load %s: %w", path, err)
	}
	return &Handle{path: path, src: pluginSource{p: p}}, nil
}
