package stream

import (
	"encoding/binary"
	"sync"

	kernelobjects "github.com/rtoskit/kernel-objects"
	"github.com/rtoskit/kernel-objects/kernel"
)

// Each message is stored behind a 4-byte little-endian length prefix.
const lenPrefix = 4

// MessageBuffer carries discrete variable-length messages for one
// writer and one reader. The zero value is uncreated.
type MessageBuffer struct {
	_         [0]func() // prevent accidental copying.
	mu        sync.Mutex
	notEmpty  kernel.Cond
	notFull   kernel.Cond
	rxWaiters int
	txWaiters int
	h         kernel.Handle
	storage   kernelobjects.Storage
	ring      byteRing
	msgs      int
}

// NewMessage creates a message buffer with internally allocated
// storage for size bytes. Each stored message spends len+4 bytes of
// it. A size too small for a 1-byte message yields an uncreated
// buffer.
func NewMessage(size int) *MessageBuffer {
	b := &MessageBuffer{storage: kernelobjects.StorageDynamic}
	if size > lenPrefix {
		b.create(make([]byte, size), kernelobjects.StorageDynamic)
	}
	return b
}

// NewStaticMessage creates a message buffer over a caller-owned
// slice.
func NewStaticMessage(buf []byte) *MessageBuffer {
	b := &MessageBuffer{storage: kernelobjects.StorageStatic}
	b.create(buf, kernelobjects.StorageStatic)
	return b
}

// Create binds a caller-supplied slice to an uncreated buffer. It is
// an idempotent no-op on a created buffer.
func (b *MessageBuffer) Create(buf []byte) bool {
	return b.create(buf, kernelobjects.StorageExternal)
}

func (b *MessageBuffer) create(buf []byte, storage kernelobjects.Storage) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.h != 0 {
		return true
	}
	if len(buf) <= lenPrefix {
		return false
	}
	b.storage = storage
	b.ring = byteRing{buf: buf}
	b.msgs = 0
	b.h = kernel.Register(kernel.KindMessageBuffer, "")
	return true
}

// IsCreated reports whether the buffer owns a live kernel handle.
func (b *MessageBuffer) IsCreated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.h != 0
}

// Storage reports the buffer's storage strategy.
func (b *MessageBuffer) Storage() kernelobjects.Storage { return b.storage }

// Capacity returns the backing buffer length in bytes.
func (b *MessageBuffer) Capacity() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ring.cap()
}

// Send stores p as one message, waiting up to the given budget for
// the whole of it to fit. It returns len(p), or 0 when the message
// can never fit or the budget ran out. Messages are all-or-nothing;
// there are no partial writes.
func (b *MessageBuffer) Send(p []byte, wait kernel.Ticks) int {
	if !b.IsCreated() || len(p) == 0 {
		return 0
	}
	need := lenPrefix + len(p)
	if need > b.Capacity() {
		return 0
	}
	d := kernel.NewDeadline(wait)
	defer d.Stop()
	for {
		b.mu.Lock()
		if b.ring.free() >= need {
			b.store(p)
			b.mu.Unlock()
			b.notEmpty.Signal()
			return len(p)
		}
		ready := b.notFull.Ready()
		b.txWaiters++
		b.mu.Unlock()

		ok := d.Wait(ready)

		b.mu.Lock()
		b.txWaiters--
		b.mu.Unlock()
		if !ok {
			return 0
		}
	}
}

// SendFromISR is the non-blocking Send for interrupt context. The
// second result reports whether a blocked receiver was woken.
func (b *MessageBuffer) SendFromISR(p []byte) (int, bool) {
	if !b.IsCreated() || len(p) == 0 {
		return 0, false
	}
	need := lenPrefix + len(p)
	b.mu.Lock()
	if need > b.ring.cap() || b.ring.free() < need {
		b.mu.Unlock()
		return 0, false
	}
	b.store(p)
	woken := b.rxWaiters > 0
	b.mu.Unlock()
	b.notEmpty.Signal()
	return len(p), woken
}

// store frames and writes one message. Caller holds b.mu and has
// checked for space.
func (b *MessageBuffer) store(p []byte) {
	var hdr [lenPrefix]byte
	binary.LittleEndian.PutUint32(hdr[:], uint32(len(p)))
	b.ring.write(hdr[:])
	b.ring.write(p)
	b.msgs++
}

// Receive copies the next whole message into dst, waiting up to the
// given budget for one to arrive. It returns the message length, or 0
// on timeout. When dst is smaller than the next message, it returns 0
// and the message stays in the buffer.
func (b *MessageBuffer) Receive(dst []byte, wait kernel.Ticks) int {
	if !b.IsCreated() {
		return 0
	}
	d := kernel.NewDeadline(wait)
	defer d.Stop()
	for {
		b.mu.Lock()
		if b.msgs > 0 {
			n, ok := b.take(dst)
			b.mu.Unlock()
			if ok {
				b.notFull.Signal()
			}
			return n
		}
		ready := b.notEmpty.Ready()
		b.rxWaiters++
		b.mu.Unlock()

		ok := d.Wait(ready)

		b.mu.Lock()
		b.rxWaiters--
		b.mu.Unlock()
		if !ok {
			return 0
		}
	}
}

// ReceiveFromISR is the non-blocking Receive for interrupt context.
// The second result reports whether a blocked sender was woken.
func (b *MessageBuffer) ReceiveFromISR(dst []byte) (int, bool) {
	if !b.IsCreated() {
		return 0, false
	}
	b.mu.Lock()
	if b.msgs == 0 {
		b.mu.Unlock()
		return 0, false
	}
	n, ok := b.take(dst)
	woken := ok && b.txWaiters > 0
	b.mu.Unlock()
	if ok {
		b.notFull.Signal()
	}
	return n, woken
}

// take consumes the next message into dst, or leaves it when dst is
// too small. Caller holds b.mu and has checked b.msgs > 0.
func (b *MessageBuffer) take(dst []byte) (int, bool) {
	var hdr [lenPrefix]byte
	b.ring.peek(hdr[:], 0)
	length := int(binary.LittleEndian.Uint32(hdr[:]))
	if length > len(dst) {
		return 0, false
	}
	b.ring.skip(lenPrefix)
	b.ring.read(dst[:length])
	b.msgs--
	return length, true
}

// NextMessageLength returns the length of the next message, or 0 when
// the buffer is empty.
func (b *MessageBuffer) NextMessageLength() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.msgs == 0 {
		return 0
	}
	var hdr [lenPrefix]byte
	b.ring.peek(hdr[:], 0)
	return int(binary.LittleEndian.Uint32(hdr[:]))
}

// MessagesWaiting returns the number of stored messages.
func (b *MessageBuffer) MessagesWaiting() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.msgs
}

// IsEmpty reports whether the buffer holds no messages.
func (b *MessageBuffer) IsEmpty() bool { return b.MessagesWaiting() == 0 }

// IsFull reports whether even a 1-byte message cannot fit.
func (b *MessageBuffer) IsFull() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ring.cap() > 0 && b.ring.free() < lenPrefix+1
}

// Reset discards every stored message. It fails while a sender or
// receiver is blocked on the buffer.
func (b *MessageBuffer) Reset() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.h == 0 || b.rxWaiters > 0 || b.txWaiters > 0 {
		return false
	}
	b.ring.reset()
	b.msgs = 0
	return true
}

// Destroy releases the kernel handle and drops the buffer reference.
// It is safe on an uncreated buffer.
func (b *MessageBuffer) Destroy() {
	b.mu.Lock()
	h := b.h
	b.h = 0
	b.ring = byteRing{}
	b.msgs = 0
	b.mu.Unlock()
	if h != 0 {
		kernel.Release(h)
	}
}
