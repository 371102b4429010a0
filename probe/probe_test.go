package probe

import (
	"syscall"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadWordFromLiveMemory(t *testing.T) {
	word := uintptr(0xCAFEBABE)
	v, ok := ReadWord(uintptr(unsafe.Pointer(&word)))
	require.True(t, ok)
	assert.Equal(t, word, v)
}

func TestRead32FromLiveMemory(t *testing.T) {
	val := uint32(0xDEADBEEF)
	v, ok := Read32(uintptr(unsafe.Pointer(&val)))
	require.True(t, ok)
	assert.Equal(t, val, v)
}

func TestNullIsNotReadable(t *testing.T) {
	assert.False(t, IsReadable(0))
	_, ok := ReadWord(0)
	assert.False(t, ok)
}

// Reserve an address range with no access rights; probing it must report
// failure rather than fault.
func TestUnmappedRegionIsNotReadable(t *testing.T) {
	pg := syscall.Getpagesize()
	mem, err := syscall.Mmap(-1, 0, pg, syscall.PROT_NONE,
		syscall.MAP_PRIVATE|syscall.MAP_ANON)
	require.NoError(t, err)
	defer func() { _ = syscall.Munmap(mem) }()

	addr := uintptr(unsafe.Pointer(&mem[0]))
	assert.False(t, IsReadable(addr))
	assert.False(t, IsReadableRange(addr, addr+uintptr(pg)))
}

func TestIsReadableRange(t *testing.T) {
	buf := make([]byte, 4*syscall.Getpagesize())
	from := uintptr(unsafe.Pointer(&buf[0]))
	to := from + uintptr(len(buf))
	assert.True(t, IsReadableRange(from, to))

	// Empty and inverted ranges are rejected.
	assert.False(t, IsReadableRange(from, from))
	assert.False(t, IsReadableRange(to, from))
}
