package atomic

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTypedValue(t *testing.T) {
	var value TypedValue[error]
	require.Nil(t, value.Load())

	first := errors.New("first")
	require.True(t, value.CompareAndSwapEmpty(first))
	require.False(t, value.CompareAndSwapEmpty(errors.New("second")))
	require.Same(t, first, value.Load())

	value.Store(nil)
	require.Nil(t, value.Load())
	require.False(t, value.CompareAndSwapEmpty(first))
}

func TestAliases(t *testing.T) {
	var flag Bool
	require.True(t, flag.CompareAndSwap(false, true))
	var counter Int64
	require.Equal(t, int64(3), counter.Add(3))
}
