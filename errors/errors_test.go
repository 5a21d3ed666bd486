package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWinErrorMessageHasCodePrefix(t *testing.T) {
	err := NewUnsupportedOrderKeyError([]string{"o1", "o2"})
	require.Equal(t, UnsupportedOrderKey, err.Code)
	require.Equal(t, "WIN0003 - Window must have exactly one order column, got 2 (o1, o2)", err.Error())
}

func TestHasCodeThroughWrapping(t *testing.T) {
	err := Wrapf(NewCodecError("bad value"), "partition %d", 3)
	require.True(t, HasCode(err, CodecError))
	require.False(t, HasCode(err, KernelError))
	require.Equal(t, "partition 3: WIN0009 - Codec error: bad value", err.Error())
}

func TestMaybeAddStack(t *testing.T) {
	we := NewInvalidStatementError("oops")
	require.Equal(t, we, MaybeAddStack(we))
	plain := fmt.Errorf("plain")
	stacked := MaybeAddStack(plain)
	require.NotEqual(t, plain, stacked)
	require.Equal(t, plain, Cause(stacked))
	require.Nil(t, MaybeAddStack(nil))
}

func TestRedundantStackIsDropped(t *testing.T) {
	inner := New("root")
	outer := WithStack(inner)
	se, ok := outer.(*stackErr)
	require.True(t, ok)
	require.Nil(t, se.StackTrace())
	require.NotNil(t, inner.(*stackErr).StackTrace())
}

func TestWithRowContext(t *testing.T) {
	err := WithRowContext(Wrap(NewCodecError("bad value"), "slice 1"), 2, 17)
	require.True(t, HasCode(err, CodecError))
	require.Equal(t, "WIN0009 - Codec error: bad value (slice 1, partition 2, row 17)", err.Error())

	err = WithRowContext(New("boom"), 2, 17)
	require.False(t, HasCode(err, CodecError))
	require.Equal(t, "partition 2, row 17: boom", err.Error())
}
