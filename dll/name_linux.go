//go:build linux

package dll

// Platform shared-library naming.
const (
	Prefix = "lib"
	Suffix = ".so"
)
