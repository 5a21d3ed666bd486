package bufpool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAcquireFreeAllReusesBuffers(t *testing.T) {
	p := NewPool(16)
	b1 := p.Acquire()
	b1.B = append(b1.B, 1, 2, 3)
	b2 := p.Acquire()
	require.Equal(t, 2, p.Outstanding())
	require.Equal(t, []byte{1, 2, 3}, b1.Bytes())

	p.FreeAll()
	require.Equal(t, 0, p.Outstanding())
	require.Equal(t, uint64(1), p.Generation())

	b3 := p.Acquire()
	require.True(t, b3 == b1 || b3 == b2)
	require.Equal(t, 0, len(b3.Bytes()))
	stats := p.Stats()
	require.Equal(t, int64(3), stats.Acquired)
	require.Equal(t, int64(2), stats.Allocated)
	require.Equal(t, int64(2), stats.Freed)
	require.Equal(t, int64(1), stats.FreeAlls)
}

func TestReadAfterFreePanics(t *testing.T) {
	p := NewPool(0)
	b := p.Acquire()
	p.FreeAll()
	require.Panics(t, func() {
		b.Bytes()
	})
}

func TestClose(t *testing.T) {
	p := NewPool(8)
	b := p.Acquire()
	p.Close()
	require.Equal(t, 0, p.Outstanding())
	require.Panics(t, func() {
		b.Bytes()
	})
	require.Panics(t, func() {
		p.Acquire()
	})
	// idempotent
	p.Close()
}

func TestFreeListIsCapped(t *testing.T) {
	p := NewPool(1)
	for i := 0; i < maxRetained+10; i++ {
		p.Acquire()
	}
	p.FreeAll()
	require.Equal(t, maxRetained, len(p.free))
}
