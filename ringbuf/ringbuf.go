package ringbuf

import (
	kernelobjects "github.com/rtoskit/kernel-objects"
	"github.com/rtoskit/kernel-objects/kernel"
)

// NoSplit is a framed ring buffer whose items never wrap; each
// receive yields one contiguous view. The zero value is uncreated.
type NoSplit struct {
	r ring
}

// NewNoSplit creates a no-split buffer with internally allocated
// storage of at least size bytes, rounded up to the framing
// alignment. A size too small for one item yields an uncreated
// buffer.
func NewNoSplit(size int) *NoSplit {
	b := &NoSplit{}
	if size >= 2*headerSize {
		b.r.create(make([]byte, align4(size)), kernelobjects.StorageDynamic)
	}
	return b
}

// NewStaticNoSplit creates a no-split buffer over a caller-owned
// slice. The slice length must be a multiple of 4 and at least 16; an
// unusable slice yields an uncreated buffer.
func NewStaticNoSplit(buf []byte) *NoSplit {
	b := &NoSplit{}
	b.r.create(buf, kernelobjects.StorageStatic)
	return b
}

// Create binds a caller-supplied slice to an uncreated buffer, under
// the same length rules as NewStaticNoSplit. It is an idempotent
// no-op on a created buffer.
func (b *NoSplit) Create(buf []byte) bool {
	return b.r.create(buf, kernelobjects.StorageExternal)
}

// Send copies the payload in, waiting up to the given budget for
// space. It fails immediately when the payload exceeds MaxItemSize.
func (b *NoSplit) Send(p []byte, wait kernel.Ticks) bool { return b.r.send(p, wait) }

// SendFromISR is the non-blocking Send for interrupt context. The
// second result reports whether a blocked receiver was woken.
func (b *NoSplit) SendFromISR(p []byte) (bool, bool) { return b.r.sendFromISR(p) }

// Receive waits up to the given budget for an item and returns a
// zero-copy view of it. The view must go back via Return.
func (b *NoSplit) Receive(wait kernel.Ticks) (Item, bool) {
	head, _, ok := b.r.receive(wait)
	return head, ok
}

// ReceiveFromISR is the non-blocking Receive for interrupt context.
func (b *NoSplit) ReceiveFromISR() (Item, bool) {
	head, _, ok := b.r.receiveFromISR()
	return head, ok
}

// Return hands a received item back so its space can be reused.
func (b *NoSplit) Return(it Item) { b.r.ret(it) }

// ReturnFromISR is Return for interrupt context; the result reports
// whether a blocked sender was woken.
func (b *NoSplit) ReturnFromISR(it Item) bool { return b.r.ret(it) }

// IsCreated reports whether the buffer owns a live kernel handle.
func (b *NoSplit) IsCreated() bool { return b.r.isCreated() }

// Storage reports the buffer's storage strategy.
func (b *NoSplit) Storage() kernelobjects.Storage { return b.r.storage }

// Capacity returns the backing buffer length in bytes.
func (b *NoSplit) Capacity() int { return b.r.capacity() }

// MaxItemSize returns the largest payload guaranteed to fit in an
// empty buffer: Capacity()/2 - 8.
func (b *NoSplit) MaxItemSize() int { return b.r.maxItemSize() }

// BytesFree returns the unoccupied byte count, framing included.
func (b *NoSplit) BytesFree() int { return b.r.bytesFree() }

// ItemsWaiting returns the number of unread items.
func (b *NoSplit) ItemsWaiting() int { return b.r.itemsWaiting() }

// WaitMember exposes the wait-set anchor.
func (b *NoSplit) WaitMember() *kernel.SetMember { return &b.r.member }

// Matches reports whether a select token identifies this buffer and
// an item is readable right now.
func (b *NoSplit) Matches(token kernel.Handle) bool { return b.r.canRead(token) }

// Reset discards every unread item. It fails while a received item
// has not been returned.
func (b *NoSplit) Reset() bool { return b.r.reset() }

// Destroy releases the kernel handle and drops the buffer reference.
// Outstanding items become invalid. It must not be called while the
// buffer is in a wait set.
func (b *NoSplit) Destroy() { b.r.destroy() }

// Split is a framed ring buffer whose items may wrap; a receive
// yields a head and a tail view whose concatenation is the payload.
// The zero value is uncreated.
type Split struct {
	r ring
}

// NewSplit creates a split buffer with internally allocated storage
// of at least size bytes, rounded up to the framing alignment.
func NewSplit(size int) *Split {
	b := &Split{r: ring{typ: allowSplit}}
	if size >= 2*headerSize {
		b.r.create(make([]byte, align4(size)), kernelobjects.StorageDynamic)
	}
	return b
}

// NewStaticSplit creates a split buffer over a caller-owned slice,
// under the same length rules as NewStaticNoSplit.
func NewStaticSplit(buf []byte) *Split {
	b := &Split{r: ring{typ: allowSplit}}
	b.r.create(buf, kernelobjects.StorageStatic)
	return b
}

// Create binds a caller-supplied slice to an uncreated buffer. It is
// an idempotent no-op on a created buffer.
func (b *Split) Create(buf []byte) bool {
	b.r.typ = allowSplit
	return b.r.create(buf, kernelobjects.StorageExternal)
}

// Send copies the payload in, waiting up to the given budget for
// space. The payload may be stored wrapped across the buffer end.
func (b *Split) Send(p []byte, wait kernel.Ticks) bool { return b.r.send(p, wait) }

// SendFromISR is the non-blocking Send for interrupt context.
func (b *Split) SendFromISR(p []byte) (bool, bool) { return b.r.sendFromISR(p) }

// ReceiveSplit waits up to the given budget for an item and returns
// its head and tail views. The tail is invalid when the item did not
// wrap. Both views must go back via Return; returning an invalid tail
// is a no-op.
func (b *Split) ReceiveSplit(wait kernel.Ticks) (Item, Item, bool) { return b.r.receive(wait) }

// ReceiveSplitFromISR is the non-blocking ReceiveSplit.
func (b *Split) ReceiveSplitFromISR() (Item, Item, bool) { return b.r.receiveFromISR() }

// Return hands a received view back so its space can be reused.
func (b *Split) Return(it Item) { b.r.ret(it) }

// ReturnFromISR is Return for interrupt context; the result reports
// whether a blocked sender was woken.
func (b *Split) ReturnFromISR(it Item) bool { return b.r.ret(it) }

// IsCreated reports whether the buffer owns a live kernel handle.
func (b *Split) IsCreated() bool { return b.r.isCreated() }

// Storage reports the buffer's storage strategy.
func (b *Split) Storage() kernelobjects.Storage { return b.r.storage }

// Capacity returns the backing buffer length in bytes.
func (b *Split) Capacity() int { return b.r.capacity() }

// MaxItemSize returns the largest payload guaranteed to fit in an
// empty buffer: Capacity() - 16.
func (b *Split) MaxItemSize() int { return b.r.maxItemSize() }

// BytesFree returns the unoccupied byte count, framing included.
func (b *Split) BytesFree() int { return b.r.bytesFree() }

// ItemsWaiting returns the number of unread items.
func (b *Split) ItemsWaiting() int { return b.r.itemsWaiting() }

// WaitMember exposes the wait-set anchor.
func (b *Split) WaitMember() *kernel.SetMember { return &b.r.member }

// Matches reports whether a select token identifies this buffer and
// an item is readable right now.
func (b *Split) Matches(token kernel.Handle) bool { return b.r.canRead(token) }

// Reset discards every unread item. It fails while a received view
// has not been returned.
func (b *Split) Reset() bool { return b.r.reset() }

// Destroy releases the kernel handle and drops the buffer reference.
func (b *Split) Destroy() { b.r.destroy() }

// ByteBuffer is an unframed ring buffer of raw bytes. Sends append to
// the stream and receives drain any contiguous prefix of it; item
// boundaries are not preserved. The zero value is uncreated.
type ByteBuffer struct {
	r ring
}

// NewByteBuffer creates a byte buffer with internally allocated
// storage of size bytes.
func NewByteBuffer(size int) *ByteBuffer {
	b := &ByteBuffer{r: ring{typ: byteBuf}}
	if size > 0 {
		b.r.create(make([]byte, size), kernelobjects.StorageDynamic)
	}
	return b
}

// NewStaticByteBuffer creates a byte buffer over a caller-owned
// slice. An empty slice yields an uncreated buffer.
func NewStaticByteBuffer(buf []byte) *ByteBuffer {
	b := &ByteBuffer{r: ring{typ: byteBuf}}
	b.r.create(buf, kernelobjects.StorageStatic)
	return b
}

// Create binds a caller-supplied slice to an uncreated buffer. It is
// an idempotent no-op on a created buffer.
func (b *ByteBuffer) Create(buf []byte) bool {
	b.r.typ = byteBuf
	return b.r.create(buf, kernelobjects.StorageExternal)
}

// Send copies the bytes in, waiting up to the given budget for the
// whole payload to fit. Empty payloads fail.
func (b *ByteBuffer) Send(p []byte, wait kernel.Ticks) bool { return b.r.send(p, wait) }

// SendFromISR is the non-blocking Send for interrupt context.
func (b *ByteBuffer) SendFromISR(p []byte) (bool, bool) { return b.r.sendFromISR(p) }

// ReceiveUpTo waits up to the given budget for data and returns a
// view of at most max contiguous unread bytes. A run that wraps the
// buffer end arrives over two calls. Views must be returned oldest
// first.
func (b *ByteBuffer) ReceiveUpTo(max int, wait kernel.Ticks) (Item, bool) {
	return b.r.receiveUpTo(max, wait)
}

// ReceiveUpToFromISR is the non-blocking ReceiveUpTo.
func (b *ByteBuffer) ReceiveUpToFromISR(max int) (Item, bool) {
	return b.r.receiveUpToFromISR(max)
}

// Return hands a received view back. Byte-buffer views must come back
// in the order they were received.
func (b *ByteBuffer) Return(it Item) { b.r.ret(it) }

// ReturnFromISR is Return for interrupt context; the result reports
// whether a blocked sender was woken.
func (b *ByteBuffer) ReturnFromISR(it Item) bool { return b.r.ret(it) }

// IsCreated reports whether the buffer owns a live kernel handle.
func (b *ByteBuffer) IsCreated() bool { return b.r.isCreated() }

// Storage reports the buffer's storage strategy.
func (b *ByteBuffer) Storage() kernelobjects.Storage { return b.r.storage }

// Capacity returns the backing buffer length in bytes.
func (b *ByteBuffer) Capacity() int { return b.r.capacity() }

// MaxItemSize returns the largest sendable payload, the full
// capacity.
func (b *ByteBuffer) MaxItemSize() int { return b.r.maxItemSize() }

// BytesFree returns the unoccupied byte count.
func (b *ByteBuffer) BytesFree() int { return b.r.bytesFree() }

// ItemsWaiting returns the number of unread bytes.
func (b *ByteBuffer) ItemsWaiting() int { return b.r.itemsWaiting() }

// WaitMember exposes the wait-set anchor.
func (b *ByteBuffer) WaitMember() *kernel.SetMember { return &b.r.member }

// Matches reports whether a select token identifies this buffer and
// unread bytes are available right now.
func (b *ByteBuffer) Matches(token kernel.Handle) bool { return b.r.canRead(token) }

// Reset discards every unread byte. It fails while a received view
// has not been returned.
func (b *ByteBuffer) Reset() bool { return b.r.reset() }

// Destroy releases the kernel handle and drops the buffer reference.
func (b *ByteBuffer) Destroy() { b.r.destroy() }
