package stream

import (
	"sync"

	kernelobjects "github.com/rtoskit/kernel-objects"
	"github.com/rtoskit/kernel-objects/kernel"
)

// Buffer is a bounded byte stream for one writer and one reader. The
// zero value is uncreated; New and NewStatic return created buffers,
// Create binds external storage.
type Buffer struct {
	_         [0]func() // prevent accidental copying.
	mu        sync.Mutex
	notEmpty  kernel.Cond
	notFull   kernel.Cond
	rxWaiters int
	txWaiters int
	h         kernel.Handle
	storage   kernelobjects.Storage
	ring      byteRing
	trigger   int
}

// New creates a stream buffer with internally allocated storage for
// size bytes and the given trigger level. A non-positive size or a
// trigger level outside [1, size] yields an uncreated buffer.
func New(size, triggerLevel int) *Buffer {
	b := &Buffer{storage: kernelobjects.StorageDynamic}
	if size > 0 {
		b.create(make([]byte, size), triggerLevel, kernelobjects.StorageDynamic)
	}
	return b
}

// NewStatic creates a stream buffer over a caller-owned slice.
func NewStatic(buf []byte, triggerLevel int) *Buffer {
	b := &Buffer{storage: kernelobjects.StorageStatic}
	b.create(buf, triggerLevel, kernelobjects.StorageStatic)
	return b
}

// Create binds a caller-supplied slice to an uncreated buffer. It
// fails on an empty slice or a bad trigger level and is an idempotent
// no-op on a created buffer.
func (b *Buffer) Create(buf []byte, triggerLevel int) bool {
	return b.create(buf, triggerLevel, kernelobjects.StorageExternal)
}

func (b *Buffer) create(buf []byte, triggerLevel int, storage kernelobjects.Storage) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.h != 0 {
		return true
	}
	if len(buf) == 0 || triggerLevel < 1 || triggerLevel > len(buf) {
		return false
	}
	b.storage = storage
	b.ring = byteRing{buf: buf}
	b.trigger = triggerLevel
	b.h = kernel.Register(kernel.KindStreamBuffer, "")
	return true
}

// IsCreated reports whether the buffer owns a live kernel handle.
func (b *Buffer) IsCreated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.h != 0
}

// Storage reports the buffer's storage strategy.
func (b *Buffer) Storage() kernelobjects.Storage { return b.storage }

// Capacity returns the backing buffer length in bytes.
func (b *Buffer) Capacity() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ring.cap()
}

// Send appends p to the stream, waiting up to the given budget for
// space. It returns the number of bytes written; a timed-out send
// reports the partial count it placed before giving up.
func (b *Buffer) Send(p []byte, wait kernel.Ticks) int {
	if !b.IsCreated() || len(p) == 0 {
		return 0
	}
	d := kernel.NewDeadline(wait)
	defer d.Stop()
	written := 0
	for {
		b.mu.Lock()
		n := b.ring.write(p[written:])
		written += n
		woke := n > 0
		if written == len(p) {
			b.mu.Unlock()
			if woke {
				b.notEmpty.Signal()
			}
			return written
		}
		ready := b.notFull.Ready()
		b.txWaiters++
		b.mu.Unlock()
		if woke {
			b.notEmpty.Signal()
		}

		ok := d.Wait(ready)

		b.mu.Lock()
		b.txWaiters--
		b.mu.Unlock()
		if !ok {
			return written
		}
	}
}

// SendFromISR is the non-blocking Send for interrupt context. It
// writes what fits and reports whether a receiver with a satisfied
// trigger level was woken.
func (b *Buffer) SendFromISR(p []byte) (int, bool) {
	if !b.IsCreated() || len(p) == 0 {
		return 0, false
	}
	b.mu.Lock()
	n := b.ring.write(p)
	woken := n > 0 && b.rxWaiters > 0 && b.ring.count >= b.trigger
	b.mu.Unlock()
	if n > 0 {
		b.notEmpty.Signal()
	}
	return n, woken
}

// Receive drains up to len(dst) bytes into dst, blocking until the
// stream holds at least the trigger level. A timed-out receive drains
// and reports whatever is available, possibly zero.
func (b *Buffer) Receive(dst []byte, wait kernel.Ticks) int {
	if !b.IsCreated() || len(dst) == 0 {
		return 0
	}
	d := kernel.NewDeadline(wait)
	defer d.Stop()
	for {
		b.mu.Lock()
		if b.ring.count >= b.trigger {
			n := b.ring.read(dst)
			b.mu.Unlock()
			b.notFull.Signal()
			return n
		}
		ready := b.notEmpty.Ready()
		b.rxWaiters++
		b.mu.Unlock()

		ok := d.Wait(ready)

		b.mu.Lock()
		b.rxWaiters--
		if !ok {
			n := b.ring.read(dst)
			b.mu.Unlock()
			if n > 0 {
				b.notFull.Signal()
			}
			return n
		}
		b.mu.Unlock()
	}
}

// ReceiveFromISR is the non-blocking Receive for interrupt context.
// It ignores the trigger level and reports whether a blocked sender
// was woken.
func (b *Buffer) ReceiveFromISR(dst []byte) (int, bool) {
	if !b.IsCreated() || len(dst) == 0 {
		return 0, false
	}
	b.mu.Lock()
	n := b.ring.read(dst)
	woken := n > 0 && b.txWaiters > 0
	b.mu.Unlock()
	if n > 0 {
		b.notFull.Signal()
	}
	return n, woken
}

// BytesAvailable returns the number of unread bytes.
func (b *Buffer) BytesAvailable() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ring.count
}

// SpacesAvailable returns the number of free bytes.
func (b *Buffer) SpacesAvailable() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ring.free()
}

// IsEmpty reports whether the stream holds no bytes.
func (b *Buffer) IsEmpty() bool { return b.BytesAvailable() == 0 }

// IsFull reports whether the stream has no free space.
func (b *Buffer) IsFull() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ring.cap() > 0 && b.ring.free() == 0
}

// TriggerLevel returns the current receive trigger level.
func (b *Buffer) TriggerLevel() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.trigger
}

// SetTriggerLevel changes the trigger level. It fails when the level
// is outside [1, Capacity] or the buffer is uncreated.
func (b *Buffer) SetTriggerLevel(n int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.h == 0 || n < 1 || n > b.ring.cap() {
		return false
	}
	b.trigger = n
	return true
}

// Reset discards the stream's content. It fails while a sender or
// receiver is blocked on the buffer.
func (b *Buffer) Reset() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.h == 0 || b.rxWaiters > 0 || b.txWaiters > 0 {
		return false
	}
	b.ring.reset()
	return true
}

// Destroy releases the kernel handle and drops the buffer reference.
// It is safe on an uncreated buffer.
func (b *Buffer) Destroy() {
	b.mu.Lock()
	h := b.h
	b.h = 0
	b.ring = byteRing{}
	b.mu.Unlock()
	if h != 0 {
		kernel.Release(h)
	}
}
