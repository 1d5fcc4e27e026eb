package buf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocatorSizeClasses(t *testing.T) {
	for _, testCase := range []struct {
		size     int
		capacity int
	}{
		{1, 64},
		{64, 64},
		{65, 128},
		{256, 256},
		{1000, 1024},
		{1 << 16, 1 << 16},
	} {
		buffer := DefaultAllocator.Get(testCase.size)
		require.Len(t, buffer, testCase.size)
		require.Equal(t, testCase.capacity, cap(buffer), "size %d", testCase.size)
		require.NoError(t, DefaultAllocator.Put(buffer))
	}
}

func TestAllocatorOversized(t *testing.T) {
	buffer := DefaultAllocator.Get(1<<16 + 1)
	require.Len(t, buffer, 1<<16+1)
	require.NoError(t, DefaultAllocator.Put(buffer))
	require.Nil(t, DefaultAllocator.Get(0))
}

func TestAllocatorRejectsForeignSlice(t *testing.T) {
	require.Error(t, DefaultAllocator.Put(make([]byte, 100)))
	require.Error(t, DefaultAllocator.Put(make([]byte, 32)))
}
