// Package paths implements the small set of path manipulations the runtime
// needs: classpath-style splitting with length validation, boot-path
// template expansion, and close-on-exec file opening. Several callers hold
// the results for the life of the process, so failures here are
// configuration errors, not I/O errors.
package paths

import (
	"errors"
	"os"
	"strings"

	"github.com/battleblow/osal/internal/vmerr"
)

// MaxPath is the longest path the runtime will construct.
const MaxPath = 4096

// FileSeparator is the platform file separator.
const FileSeparator = byte(os.PathSeparator)

// PathSeparator is the platform path-list separator.
const PathSeparator = byte(os.PathListSeparator)

// SplitPath splits path on the platform path separator.
//
// fileNameLength is the length of whatever the caller will append to each
// element; an element that would exceed MaxPath once the suffix is appended
// is a configuration error and ends the process with a user-directed
// diagnostic. A fileNameLength of zero means no suffix will be appended.
//
// Empty elements are preserved; callers skip them. An empty path yields nil.
func SplitPath(path string, fileNameLength int) []string {
	if path == "" {
		return nil
	}
	elements := strings.Split(path, string(PathSeparator))
	for _, e := range elements {
		if len(e)+fileNameLength > MaxPath {
			vmerr.ExitDuringInitialization(
				"The VM tried to use a path that exceeds the maximum path length for " +
					"this system. Review path-containing parameters and properties, such as " +
					"sun.boot.library.path, to identify potential sources for this path.")
		}
	}
	return elements
}

// FormatBootPath expands a boot classpath template: '%' becomes home, '/'
// becomes fileSep and ':' becomes pathSep. Everything else is copied.
func FormatBootPath(format, home string, fileSep, pathSep byte) string {
	var b strings.Builder
	b.Grow(len(format) + len(home))
	for i := 0; i < len(format); i++ {
		switch format[i] {
		case '%':
			b.WriteString(home)
		case '/':
			b.WriteByte(fileSep)
		case ':':
			b.WriteByte(pathSep)
		default:
			b.WriteByte(format[i])
		}
	}
	return b.String()
}

// FileExists reports whether path names an existing file.
func FileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func modeFlags(mode string) (int, error) {
	m := mode
	if n := len(m); n > 0 && m[n-1] == 'b' {
		m = m[:n-1]
	}
	switch m {
	case "r":
		return os.O_RDONLY, nil
	case "r+":
		return os.O_RDWR, nil
	case "w":
		return os.O_WRONLY | os.O_CREATE | os.O_TRUNC, nil
	case "w+":
		return os.O_RDWR | os.O_CREATE | os.O_TRUNC, nil
	case "a":
		return os.O_WRONLY | os.O_CREATE | os.O_APPEND, nil
	case "a+":
		return os.O_RDWR | os.O_CREATE | os.O_APPEND, nil
	}
	return 0, errors.New("paths: unsupported open mode " + mode)
}
