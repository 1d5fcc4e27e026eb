package buf

import (
	"errors"
	"math/bits"
	"sync"
)

const (
	minPooledBits = 6
	maxPooledBits = 16
)

var DefaultAllocator = newDefaultAllocator()

type Allocator interface {
	Get(size int) []byte
	Put(buf []byte) error
}

// defaultAllocator pools power-of-two slabs from 64B to 64K; larger sizes are
// allocated directly and left to the garbage collector.
type defaultAllocator struct {
	buffers [maxPooledBits - minPooledBits + 1]sync.Pool
}

func newDefaultAllocator() Allocator {
	alloc := new(defaultAllocator)
	for index := range alloc.buffers {
		size := 1 << (index + minPooledBits)
		alloc.buffers[index].New = func() any {
			buffer := make([]byte, size)
			return &buffer
		}
	}
	return alloc
}

// Get returns a slice of length size. Its capacity is the pooled class size.
func (alloc *defaultAllocator) Get(size int) []byte {
	if size <= 0 {
		return nil
	}
	if size > 1<<maxPooledBits {
		return make([]byte, size)
	}
	index := poolIndex(size)
	buffer := alloc.buffers[index].Get().(*[]byte)
	return (*buffer)[:size]
}

// Put returns a slice obtained from Get. Slices that were not pooled are dropped.
func (alloc *defaultAllocator) Put(buf []byte) error {
	capacity := cap(buf)
	if capacity == 0 {
		return nil
	}
	if capacity > 1<<maxPooledBits {
		return nil
	}
	if capacity < 1<<minPooledBits || capacity&(capacity-1) != 0 {
		return errors.New("allocator Put() incorrect buffer size")
	}
	buf = buf[:capacity]
	alloc.buffers[msb(capacity)-minPooledBits].Put(&buf)
	return nil
}

func poolIndex(size int) int {
	if size <= 1<<minPooledBits {
		return 0
	}
	index := msb(size)
	if size != 1<<index {
		index++
	}
	return index - minPooledBits
}

// msb return the pos of most significant bit
func msb(size int) int {
	return bits.Len32(uint32(size)) - 1
}
