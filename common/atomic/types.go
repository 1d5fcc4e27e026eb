package atomic

import "sync/atomic"

type (
	Bool   = atomic.Bool
	Int32  = atomic.Int32
	Int64  = atomic.Int64
	Uint32 = atomic.Uint32
)

// TypedValue is an atomic.Value restricted to a single type.
type TypedValue[T any] struct {
	value atomic.Pointer[T]
}

func (t *TypedValue[T]) Load() T {
	value := t.value.Load()
	if value == nil {
		var defaultValue T
		return defaultValue
	}
	return *value
}

func (t *TypedValue[T]) Store(value T) {
	t.value.Store(&value)
}

// CompareAndSwapEmpty stores value only if nothing was stored before.
func (t *TypedValue[T]) CompareAndSwapEmpty(value T) bool {
	return t.value.CompareAndSwap(nil, &value)
}
