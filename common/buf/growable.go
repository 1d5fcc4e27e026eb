package buf

import (
	"sync"

	"github.com/sagernet/sing-stream/common/atomic"
	E "github.com/sagernet/sing-stream/common/exceptions"
)

// Growable is a single-slot byte buffer shared by one producer and one
// consumer. The slot is either empty (DataSize() == 0) or full; it is never
// partially consumed. Storage only grows while the slot is empty and never
// beyond the hard maximum.
type Growable struct {
	access     sync.Mutex
	storage    []byte
	dataSize   atomic.Int64
	hardMax    int
	allocator  Allocator
	released   bool
	generation uint64
}

func NewGrowable(initialSize int, hardMax int) (*Growable, error) {
	if initialSize <= 0 {
		return nil, E.New("invalid initial buffer size: ", initialSize)
	}
	if hardMax < initialSize {
		return nil, E.New("hard maximum ", hardMax, " is smaller than initial buffer size ", initialSize)
	}
	return &Growable{
		storage:   DefaultAllocator.Get(initialSize),
		hardMax:   hardMax,
		allocator: DefaultAllocator,
	}, nil
}

// Acquire locks the buffer. The returned Access is only valid until unlock is called.
func (b *Growable) Acquire() (access *Access, unlock func()) {
	b.access.Lock()
	access = &Access{buffer: b, held: true}
	return access, func() {
		access.held = false
		b.access.Unlock()
	}
}

// DataSize is a lock-free snapshot of the slot state.
func (b *Growable) DataSize() int {
	return int(b.dataSize.Load())
}

func (b *Growable) HardMax() int {
	return b.hardMax
}

func (b *Growable) Capacity() int {
	access, unlock := b.Acquire()
	defer unlock()
	return access.Capacity()
}

func (b *Growable) CopyFrom(data []byte) bool {
	access, unlock := b.Acquire()
	defer unlock()
	return access.CopyFrom(data)
}

func (b *Growable) CopyFromOverwrite(data []byte) bool {
	access, unlock := b.Acquire()
	defer unlock()
	return access.CopyFromOverwrite(data)
}

// Take copies out the pending payload and empties the slot. It returns nil if the slot is empty.
func (b *Growable) Take() []byte {
	access, unlock := b.Acquire()
	defer unlock()
	return access.Take()
}

// Release hands the storage back to the allocator. The buffer refuses data afterwards.
func (b *Growable) Release() {
	b.access.Lock()
	defer b.access.Unlock()
	if b.released {
		return
	}
	b.released = true
	b.dataSize.Store(0)
	b.allocator.Put(b.storage)
	b.storage = nil
}

type Access struct {
	buffer *Growable
	held   bool
}

func (a *Access) mustHold() *Growable {
	if !a.held {
		panic("buffer accessed after unlock")
	}
	return a.buffer
}

// Bytes returns the whole storage, Capacity() bytes long.
func (a *Access) Bytes() []byte {
	return a.mustHold().storage
}

// Data returns the pending payload.
func (a *Access) Data() []byte {
	b := a.mustHold()
	return b.storage[:b.dataSize.Load()]
}

func (a *Access) DataSize() int {
	return int(a.mustHold().dataSize.Load())
}

// SetDataSize marks the slot full (n > 0) or consumed (n == 0).
func (a *Access) SetDataSize(n int) {
	b := a.mustHold()
	if n < 0 || n > len(b.storage) {
		panic(E.New("data size ", n, " out of range [0, ", len(b.storage), "]"))
	}
	if n > 0 {
		b.generation++
	}
	b.dataSize.Store(int64(n))
}

// Generation changes every time the slot is filled. A consumer that copied
// the payload out and dropped the lock compares it before clearing the slot.
func (a *Access) Generation() uint64 {
	return a.mustHold().generation
}

func (a *Access) Capacity() int {
	return len(a.mustHold().storage)
}

func (a *Access) HardMax() int {
	return a.mustHold().hardMax
}

// Reserve makes room for n bytes. Growing discards the storage content, so it
// is refused while a payload is pending, as well as beyond the hard maximum.
func (a *Access) Reserve(n int) bool {
	b := a.mustHold()
	if b.released {
		return false
	}
	if n <= len(b.storage) {
		return true
	}
	if n > b.hardMax || b.dataSize.Load() != 0 {
		return false
	}
	b.allocator.Put(b.storage)
	b.storage = b.allocator.Get(n)
	return true
}

func (a *Access) CopyFrom(data []byte) bool {
	if len(data) == 0 || a.DataSize() != 0 || !a.Reserve(len(data)) {
		return false
	}
	copy(a.buffer.storage, data)
	a.SetDataSize(len(data))
	return true
}

// CopyFromOverwrite replaces any pending payload entirely. On failure the
// pending payload is left untouched.
func (a *Access) CopyFromOverwrite(data []byte) bool {
	b := a.mustHold()
	if len(data) == 0 || len(data) > b.hardMax || b.released {
		return false
	}
	b.dataSize.Store(0)
	if !a.Reserve(len(data)) {
		return false
	}
	copy(b.storage, data)
	a.SetDataSize(len(data))
	return true
}

func (a *Access) Take() []byte {
	data := a.Data()
	if len(data) == 0 {
		return nil
	}
	payload := make([]byte, len(data))
	copy(payload, data)
	a.SetDataSize(0)
	return payload
}
