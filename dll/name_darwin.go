//go:build darwin

package dll

// Platform shared-library naming.
const (
	Prefix = "lib"
	Suffix = ".dylib"
)
