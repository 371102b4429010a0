//go:build !linux && !darwin

package dll

import "fmt"

// Load is unsupported on platforms without a dynamic loader we drive.
func Load(path string) (*Handle, error) {
	return nil, fmt.Errorf("dll: load %s: %w", path, ErrUnsupported)
}
