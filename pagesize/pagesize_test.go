package pagesize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddContains(t *testing.T) {
	var s Sizes
	for _, p := range []uint64{4096, 2 << 20, 1 << 30} {
		s.Add(p)
		assert.True(t, s.Contains(p), "just-added size %d", p)
	}
	assert.False(t, s.Contains(8192))
	assert.False(t, s.Contains(1<<22))
}

func TestNeighborQueries(t *testing.T) {
	var s Sizes
	s.Add(4096)
	s.Add(2 << 20)
	s.Add(1 << 30)

	assert.Equal(t, uint64(4096), s.Smallest())
	assert.Equal(t, uint64(1<<30), s.Largest())
	assert.Equal(t, uint64(1<<21), s.NextSmaller(1<<30))
	assert.Equal(t, uint64(1<<30), s.NextLarger(1<<21))
	assert.Equal(t, uint64(0), s.NextLarger(1<<30))
	assert.Equal(t, uint64(0), s.NextSmaller(4096))
}

func TestNextSmallerOfNextLargerRoundTrips(t *testing.T) {
	var s Sizes
	members := []uint64{1 << 12, 1 << 16, 1 << 21, 1 << 30}
	for _, p := range members {
		s.Add(p)
	}
	for _, p := range members {
		larger := s.NextLarger(p)
		if larger == 0 {
			continue
		}
		assert.Equal(t, p, s.NextSmaller(larger))
	}
}

func TestNextLargerAtTopBitIsZero(t *testing.T) {
	var s Sizes
	s.Add(uint64(1) << 63)
	assert.Equal(t, uint64(1)<<63, s.Largest())
	// No undefined shift: the query past the top bit returns 0.
	assert.Equal(t, uint64(0), s.NextLarger(uint64(1)<<63))
}

func TestEmptySet(t *testing.T) {
	var s Sizes
	assert.Equal(t, uint64(0), s.Smallest())
	assert.Equal(t, uint64(0), s.Largest())
	assert.Equal(t, "empty", s.String())
}

func TestString(t *testing.T) {
	var s Sizes
	s.Add(4096)
	s.Add(2 << 20)
	s.Add(1 << 30)

	var b strings.Builder
	s.PrintOn(&b)
	require.Equal(t, "4k, 2M, 1G", b.String())
}
