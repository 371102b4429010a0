package paths

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/battleblow/osal/internal/vmerr"
)

func TestSplitPath(t *testing.T) {
	sep := string(PathSeparator)

	got := SplitPath("a"+sep+"b"+sep+"c", 0)
	assert.Equal(t, []string{"a", "b", "c"}, got)

	// Empty elements are preserved for the caller to skip.
	got = SplitPath("a"+sep+sep+"c", 0)
	assert.Equal(t, []string{"a", "", "c"}, got)

	assert.Nil(t, SplitPath("", 0))

	got = SplitPath("single", 10)
	assert.Equal(t, []string{"single"}, got)
}

func TestSplitPathTooLongIsFatal(t *testing.T) {
	old := vmerr.SetExitHook(func(code int, msg string) { panic(msg) })
	defer vmerr.SetExitHook(old)

	long := strings.Repeat("x", MaxPath)
	var msg string
	func() {
		defer func() { msg, _ = recover().(string) }()
		SplitPath(long, MaxPath)
	}()
	require.Contains(t, msg, "exceeds the maximum path length")
	require.Contains(t, msg, "sun.boot.library.path")
}

func TestFormatBootPath(t *testing.T) {
	got := FormatBootPath("%/lib/modules", "/opt/vm", '/', ':')
	assert.Equal(t, "/opt/vm/lib/modules", got)

	// Windows-style separators are substituted throughout.
	got = FormatBootPath("%/lib:%/classes", `C:\vm`, '\\', ';')
	assert.Equal(t, `C:\vm\lib;C:\vm\classes`, got)
}

func TestFileExists(t *testing.T) {
	f := filepath.Join(t.TempDir(), "probe")
	assert.False(t, FileExists(f))
	require.NoError(t, os.WriteFile(f, nil, 0644))
	assert.True(t, FileExists(f))
	assert.False(t, FileExists(""))
}

func TestOpenClosesOnExec(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.txt")

	f, err := Open(path, "w")
	require.NoError(t, err)
	_, err = f.WriteString("hello")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f, err = Open(path, "r")
	require.NoError(t, err)
	buf := make([]byte, 5)
	_, err = f.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf))
	require.NoError(t, f.Close())

	_, err = Open(path, "q")
	assert.Error(t, err)
}
