//go:build !linux && !darwin

package paths

import "os"

// Open is a stdio-style open. Descriptors opened through os are not
// inherited across exec on these platforms, so no extra flag is needed.
func Open(path, mode string) (*os.File, error) {
	flags, err := modeFlags(mode)
	if err != nil {
		return nil, err
	}
	return os.OpenFile(path, flags, 0666)
}
