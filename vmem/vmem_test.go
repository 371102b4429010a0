//go:build linux || darwin

package vmem

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/battleblow/osal/pagesize"
	"github.com/battleblow/osal/tracker"
)

func newManager(t *testing.T) (*Manager, *tracker.Tracker) {
	t.Helper()
	tr := tracker.New(true, 0)
	return New(Options{Tracker: tr}), tr
}

func TestReserveRecordsUncommittedRegion(t *testing.T) {
	m, tr := newManager(t)

	res, err := m.Reserve(1<<20, false, tracker.CatGC)
	require.NoError(t, err)
	require.Len(t, res, 1<<20)
	defer func() { _ = m.Release(res) }()

	size, cat, ok := tr.ReservedRegion(base(res))
	require.True(t, ok)
	assert.Equal(t, uintptr(1<<20), size)
	assert.Equal(t, tracker.CatGC, cat)
	assert.Equal(t, uintptr(0), tr.CommittedBytes(base(res)))
}

func TestCommitWriteUncommitRelease(t *testing.T) {
	m, tr := newManager(t)

	res, err := m.Reserve(1<<20, false, tracker.CatInternal)
	require.NoError(t, err)

	seg := res[:64<<10]
	require.NoError(t, m.Commit(seg, false))
	assert.True(t, tr.IsCommitted(base(res), 64<<10))

	// Committed memory is writable and zeroed.
	seg[0] = 0xAA
	seg[len(seg)-1] = 0xBB
	assert.Equal(t, byte(0), seg[1])

	require.NoError(t, m.Uncommit(seg))
	assert.False(t, tr.IsCommitted(base(res), 64<<10))

	require.NoError(t, m.Release(res))
	_, _, ok := tr.ReservedRegion(base(res))
	assert.False(t, ok)
}

func TestCommitEmptyRangeIsRejected(t *testing.T) {
	m, _ := newManager(t)
	assert.ErrorIs(t, m.Commit(nil, false), ErrEmptyRange)
	assert.ErrorIs(t, m.Uncommit(nil), ErrEmptyRange)
	assert.ErrorIs(t, m.Release(nil), ErrEmptyRange)
}

func TestReserveAt(t *testing.T) {
	m, tr := newManager(t)

	// Vacate a known-good address first, then ask for it back.
	res, err := m.Reserve(1<<20, false, tracker.CatInternal)
	require.NoError(t, err)
	addr := base(res)
	require.NoError(t, m.Release(res))

	res2, err := m.ReserveAt(addr, 1<<20, false, tracker.CatInternal)
	if err != nil {
		t.Skipf("address %#x re-taken between release and reserve: %v", addr, err)
	}
	defer func() { _ = m.Release(res2) }()
	assert.Equal(t, addr, base(res2))
	_, _, ok := tr.ReservedRegion(addr)
	assert.True(t, ok)
}

func TestPretouchMemory(t *testing.T) {
	m, _ := newManager(t)

	res, err := m.Reserve(1<<20, false, tracker.CatGC)
	require.NoError(t, err)
	defer func() { _ = m.Release(res) }()
	require.NoError(t, m.Commit(res, false))

	pg := m.VMPageSize()
	m.PretouchMemory(base(res), base(res)+uintptr(len(res)), pg)

	// Touched pages read back as zero: the atomic add of zero must not
	// change content.
	for off := 0; off < len(res); off += int(pg) {
		assert.Equal(t, byte(0), res[off])
	}

	// Partial and unaligned ranges are page-aligned internally.
	m.PretouchMemory(base(res)+3, base(res)+uintptr(2*pg)+5, pg)

	// Empty range is a no-op.
	m.PretouchMemory(base(res), base(res), pg)
}

func TestPageSizeForRegion(t *testing.T) {
	sizes := &pagesize.Sizes{}
	sizes.Add(4096)
	sizes.Add(2 << 20)
	sizes.Add(1 << 30)

	m := New(Options{PageSizes: sizes, UseLargePages: true})

	// Largest page that fits region/minPages and divides the region.
	assert.Equal(t, uintptr(2<<20), m.PageSizeForRegionAligned(8<<20, 1))
	assert.Equal(t, uintptr(1<<30), m.PageSizeForRegionAligned(2<<30, 1))
	assert.Equal(t, uintptr(2<<20), m.PageSizeForRegionAligned(2<<30, 4))

	// A region that no large page divides falls back to 4k.
	assert.Equal(t, uintptr(4096), m.PageSizeForRegionAligned((8<<20)+4096, 1))

	// Unaligned selection ignores divisibility.
	assert.Equal(t, uintptr(2<<20), m.PageSizeForRegionUnaligned((8<<20)+4096, 1))

	// min_pages constrains the upper bound.
	assert.Equal(t, uintptr(4096), m.PageSizeForRegionUnaligned(8<<20, 1024))

	// Without large pages everything is the VM page size.
	m2 := New(Options{PageSizes: sizes, UseLargePages: false})
	assert.Equal(t, m2.VMPageSize(), m2.PageSizeForRegionAligned(8<<20, 1))
}

func TestMapMemoryToFile(t *testing.T) {
	m, tr := newManager(t)

	f, err := os.CreateTemp(t.TempDir(), "vmem-*.bin")
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, f.Truncate(64<<10))

	seg, err := m.MapMemoryToFile(64<<10, int(f.Fd()), tracker.CatInternal)
	require.NoError(t, err)
	assert.True(t, tr.IsCommitted(base(seg), 64<<10))

	copy(seg, []byte("persisted"))
	require.NoError(t, m.UnmapMemory(seg))

	buf := make([]byte, 9)
	_, err = f.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "persisted", string(buf))
}

func TestFreeMemoryKeepsRangeCommitted(t *testing.T) {
	m, tr := newManager(t)

	res, err := m.Reserve(256<<10, false, tracker.CatGC)
	require.NoError(t, err)
	defer func() { _ = m.Release(res) }()
	require.NoError(t, m.Commit(res, false))

	res[0] = 0xCC
	m.FreeMemory(res, 0)

	// Still committed and writable; content is disposable.
	assert.True(t, tr.IsCommitted(base(res), uintptr(len(res))))
	res[0] = 0xDD
}
