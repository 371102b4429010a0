//go:build !linux && !darwin

package dll

// Platform shared-library naming.
const (
	Prefix = ""
	Suffix = ".dll"
)
