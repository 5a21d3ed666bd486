package kernel

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/squareup/winagg/common"
	"github.com/squareup/winagg/errors"
	"github.com/stretchr/testify/require"
)

type nopKernel struct{}

func (n *nopKernel) NewWindow(frame Frame) (Window, error) { return nil, nil }

func (n *nopKernel) Invoke(string, int64, common.EncodedRow, Window) (common.EncodedRow, error) {
	return nil, nil
}

func (n *nopKernel) ReleaseRow(common.EncodedRow) {}

func TestLoadInitializesOnceUnderConcurrency(t *testing.T) {
	reg := NewRegistry()
	var inits int32
	reg.Register("m1", func() (Kernel, error) {
		atomic.AddInt32(&inits, 1)
		return &nopKernel{}, nil
	})
	var wg sync.WaitGroup
	kernels := make([]Kernel, 50)
	errs := make([]error, len(kernels))
	for i := 0; i < len(kernels); i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			kernels[i], errs[i] = reg.Load("m1")
		}(i)
	}
	wg.Wait()
	require.Equal(t, int32(1), atomic.LoadInt32(&inits))
	for i, k := range kernels {
		require.NoError(t, errs[i])
		require.Same(t, kernels[0], k)
	}
}

func TestLoadUnknownModule(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Load("nope")
	require.True(t, errors.HasCode(err, errors.UnknownModule))
}

func TestFailedInitIsRemembered(t *testing.T) {
	reg := NewRegistry()
	var inits int
	reg.Register("bad", func() (Kernel, error) {
		inits++
		return nil, fmt.Errorf("boom")
	})
	_, err := reg.Load("bad")
	require.Error(t, err)
	_, err = reg.Load("bad")
	require.Error(t, err)
	require.Equal(t, 1, inits)
}

func TestRegisterTwicePanics(t *testing.T) {
	reg := NewRegistry()
	reg.Register("m", func() (Kernel, error) { return &nopKernel{}, nil })
	require.Panics(t, func() {
		reg.Register("m", func() (Kernel, error) { return &nopKernel{}, nil })
	})
}

func TestFrameString(t *testing.T) {
	require.Equal(t, "RANGE BETWEEN UNBOUNDED PRECEDING AND CURRENT ROW", Frame{Type: FrameRange, StartOffset: UnboundedPreceding}.String())
	require.Equal(t, "ROWS BETWEEN 3 PRECEDING AND CURRENT ROW", Frame{Type: FrameRows, StartOffset: -3}.String())
}
