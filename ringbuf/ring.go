package ringbuf

import (
	"encoding/binary"
	"sync"

	kernelobjects "github.com/rtoskit/kernel-objects"
	"github.com/rtoskit/kernel-objects/kernel"
)

type discipline uint8

const (
	noSplit discipline = iota
	allowSplit
	byteBuf
)

// Framed items carry an 8-byte header: payload length and flags.
// Payloads are padded to a 4-byte boundary, so every entry occupies
// headerSize + align4(len) bytes.
const headerSize = 8

const (
	flagFree uint32 = 1 << iota
	flagDummy
	flagSplitHead
)

func align4(n int) int { return (n + 3) &^ 3 }

// RequiredSize returns the buffer capacity needed to hold count items
// of itemSize bytes in a framed (no-split or split) ring buffer.
func RequiredSize(itemSize, count int) int {
	return count * (headerSize + align4(itemSize))
}

// Item is a zero-copy view into a ring buffer, produced by a receive
// and released by Return. The zero value is not a valid item.
type Item struct {
	Data []byte
	off  int
}

func noItem() Item { return Item{off: -1} }

// Valid reports whether the item references buffer storage and still
// needs to be returned. A split receive with an empty tail yields an
// invalid tail item; returning it is a no-op.
func (it Item) Valid() bool { return it.off >= 0 }

// ring is the engine shared by the three disciplines. The discipline
// tag selects placement and receive behavior; everything else
// (blocking, accounting, set integration) is common.
type ring struct {
	_         [0]func() // prevent accidental copying.
	member    kernel.SetMember
	mu        sync.Mutex
	notEmpty  kernel.Cond
	notFull   kernel.Cond
	rxWaiters int
	txWaiters int
	typ       discipline
	storage   kernelobjects.Storage
	buf       []byte

	// Ring geometry. Occupied bytes live in [free, write); the slice
	// [free, read) holds consumed-but-unreturned entries and markers,
	// [read, write) holds committed unread data.
	write     int
	read      int
	free      int
	used      int // bytes in [free, write), markers included
	readBytes int // bytes in [free, read)
	items     int // unread framed items, or unread bytes for byteBuf
	claims    []claim
}

// claim records one outstanding byte-buffer receive; byte-buffer
// returns must come back oldest first.
type claim struct{ off, n int }

func (r *ring) create(buf []byte, storage kernelobjects.Storage) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.member.WaitHandle() != 0 {
		return true
	}
	if r.typ == byteBuf {
		if len(buf) == 0 {
			return false
		}
	} else if len(buf) < 2*headerSize || len(buf)%4 != 0 {
		return false
	}
	r.storage = storage
	r.buf = buf
	r.write, r.read, r.free = 0, 0, 0
	r.used, r.readBytes, r.items = 0, 0, 0
	r.claims = nil
	r.member.Bind(kernel.Register(kernel.KindRingBuffer, ""))
	return true
}

func (r *ring) isCreated() bool { return r.member.WaitHandle() != 0 }

func (r *ring) capacity() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buf)
}

// maxItemSize is the largest payload guaranteed sendable into an
// empty buffer regardless of pointer alignment.
func (r *ring) maxItemSize() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.typ {
	case noSplit:
		return len(r.buf)/2 - headerSize
	case allowSplit:
		return len(r.buf) - 2*headerSize
	default:
		return len(r.buf)
	}
}

func (r *ring) bytesFree() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buf) - r.used
}

func (r *ring) itemsWaiting() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items
}

// canRead implements the ring buffer's wait-set match: the token must
// be this buffer's handle and a committed item must be readable now.
func (r *ring) canRead(token kernel.Handle) bool {
	if !r.member.Matches(token) {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items > 0
}

func (r *ring) putHeader(off, length int, flags uint32) {
	binary.LittleEndian.PutUint32(r.buf[off:], uint32(length))
	binary.LittleEndian.PutUint32(r.buf[off+4:], flags)
}

func (r *ring) header(off int) (int, uint32) {
	length := int(binary.LittleEndian.Uint32(r.buf[off:]))
	flags := binary.LittleEndian.Uint32(r.buf[off+4:])
	return length, flags
}

func (r *ring) orFlags(off int, flags uint32) {
	old := binary.LittleEndian.Uint32(r.buf[off+4:])
	binary.LittleEndian.PutUint32(r.buf[off+4:], old|flags)
}

// send blocks until the payload is placed or the budget runs out.
func (r *ring) send(p []byte, wait kernel.Ticks) bool {
	if !r.isCreated() {
		return false
	}
	if len(p) > r.maxItemSize() {
		return false
	}
	if r.typ == byteBuf && len(p) == 0 {
		return false
	}
	d := kernel.NewDeadline(wait)
	defer d.Stop()
	for {
		r.mu.Lock()
		if r.place(p) {
			r.mu.Unlock()
			r.notEmpty.Signal()
			r.member.Notify()
			return true
		}
		ready := r.notFull.Ready()
		r.txWaiters++
		r.mu.Unlock()

		ok := d.Wait(ready)

		r.mu.Lock()
		r.txWaiters--
		r.mu.Unlock()
		if !ok {
			return false
		}
	}
}

// sendFromISR is the non-blocking send; the second result reports
// whether a blocked receiver was woken.
func (r *ring) sendFromISR(p []byte) (bool, bool) {
	if !r.isCreated() || len(p) > r.maxItemSize() {
		return false, false
	}
	if r.typ == byteBuf && len(p) == 0 {
		return false, false
	}
	r.mu.Lock()
	if !r.place(p) {
		r.mu.Unlock()
		return false, false
	}
	woken := r.rxWaiters > 0
	r.mu.Unlock()
	r.notEmpty.Signal()
	r.member.Notify()
	return true, woken
}

func (r *ring) place(p []byte) bool {
	if r.typ == byteBuf {
		return r.placeBytes(p)
	}
	return r.placeFramed(p)
}

func (r *ring) placeFramed(p []byte) bool {
	capn := len(r.buf)
	if r.used == capn {
		return false
	}
	need := headerSize + align4(len(p))

	if r.write < r.free {
		// One contiguous free region [write, free).
		if need <= r.free-r.write {
			r.writeEntry(p, 0)
			r.items++
			return true
		}
		return false
	}

	// Free space is the tail [write, cap) plus the head [0, free).
	tail := capn - r.write
	head := r.free
	if need <= tail {
		r.writeEntry(p, 0)
		r.items++
		return true
	}
	if r.typ == allowSplit && tail >= headerSize {
		// Wrap the payload: a head entry fills the tail exactly and
		// the remainder lands at offset 0.
		headPayload := tail - headerSize
		rest := len(p) - headPayload
		if rest > 0 && headerSize+align4(rest) <= head {
			r.writeEntry(p[:headPayload], flagSplitHead)
			r.writeEntry(p[headPayload:], 0)
			r.items++
			return true
		}
		return false
	}
	// No-split wrap: burn the tail with a marker and start over at 0.
	if need <= head {
		r.wrapTail(tail)
		r.writeEntry(p, 0)
		r.items++
		return true
	}
	return false
}

// wrapTail consumes the [write, cap) remainder so the next entry
// starts at offset 0. A remainder big enough for a header gets a
// dummy entry; a smaller one is skipped implicitly, a rule readers
// and the reclaimer share.
func (r *ring) wrapTail(tail int) {
	if tail >= headerSize {
		r.putHeader(r.write, tail-headerSize, flagDummy)
	}
	r.used += tail
	r.write = 0
}

func (r *ring) writeEntry(p []byte, flags uint32) {
	size := headerSize + align4(len(p))
	r.putHeader(r.write, len(p), flags)
	copy(r.buf[r.write+headerSize:], p)
	r.write = (r.write + size) % len(r.buf)
	r.used += size
}

func (r *ring) placeBytes(p []byte) bool {
	n := len(p)
	if n > len(r.buf)-r.used {
		return false
	}
	first := n
	if c := len(r.buf) - r.write; first > c {
		first = c
	}
	copy(r.buf[r.write:], p[:first])
	copy(r.buf, p[first:])
	r.write = (r.write + n) % len(r.buf)
	r.used += n
	r.items += n
	return true
}

// receive blocks for a framed item. For split buffers the second item
// is the wrapped tail; otherwise it is invalid.
func (r *ring) receive(wait kernel.Ticks) (Item, Item, bool) {
	if !r.isCreated() {
		return noItem(), noItem(), false
	}
	d := kernel.NewDeadline(wait)
	defer d.Stop()
	for {
		r.mu.Lock()
		if r.items > 0 {
			head, tail := r.takeItem()
			r.mu.Unlock()
			return head, tail, true
		}
		ready := r.notEmpty.Ready()
		r.rxWaiters++
		r.mu.Unlock()

		ok := d.Wait(ready)

		r.mu.Lock()
		r.rxWaiters--
		r.mu.Unlock()
		if !ok {
			return noItem(), noItem(), false
		}
	}
}

// receiveFromISR is the non-blocking framed receive.
func (r *ring) receiveFromISR() (Item, Item, bool) {
	if !r.isCreated() {
		return noItem(), noItem(), false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.items == 0 {
		return noItem(), noItem(), false
	}
	head, tail := r.takeItem()
	return head, tail, true
}

// takeItem consumes the next logical item. Caller holds r.mu and has
// checked r.items > 0.
func (r *ring) takeItem() (Item, Item) {
	head, flags := r.takeEntry()
	tail := noItem()
	if flags&flagSplitHead != 0 {
		tail, _ = r.takeEntry()
	}
	r.items--
	return head, tail
}

func (r *ring) takeEntry() (Item, uint32) {
	for {
		if rem := len(r.buf) - r.read; rem < headerSize {
			// Implicit skip region, accounted but unframed.
			r.read = 0
			r.readBytes += rem
			continue
		}
		length, flags := r.header(r.read)
		size := headerSize + align4(length)
		if flags&flagDummy != 0 {
			r.read = (r.read + size) % len(r.buf)
			r.readBytes += size
			continue
		}
		it := Item{Data: r.buf[r.read+headerSize : r.read+headerSize+length], off: r.read}
		r.read = (r.read + size) % len(r.buf)
		r.readBytes += size
		return it, flags
	}
}

// receiveUpTo blocks for up to max contiguous bytes from a byte
// buffer. A run that wraps the buffer end comes back over two calls.
func (r *ring) receiveUpTo(max int, wait kernel.Ticks) (Item, bool) {
	if !r.isCreated() || max <= 0 {
		return noItem(), false
	}
	d := kernel.NewDeadline(wait)
	defer d.Stop()
	for {
		r.mu.Lock()
		if r.items > 0 {
			it := r.takeBytes(max)
			r.mu.Unlock()
			return it, true
		}
		ready := r.notEmpty.Ready()
		r.rxWaiters++
		r.mu.Unlock()

		ok := d.Wait(ready)

		r.mu.Lock()
		r.rxWaiters--
		r.mu.Unlock()
		if !ok {
			return noItem(), false
		}
	}
}

// receiveUpToFromISR is the non-blocking receiveUpTo.
func (r *ring) receiveUpToFromISR(max int) (Item, bool) {
	if !r.isCreated() || max <= 0 {
		return noItem(), false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.items == 0 {
		return noItem(), false
	}
	return r.takeBytes(max), true
}

func (r *ring) takeBytes(max int) Item {
	n := r.items
	if n > max {
		n = max
	}
	if c := len(r.buf) - r.read; n > c {
		n = c
	}
	it := Item{Data: r.buf[r.read : r.read+n], off: r.read}
	r.claims = append(r.claims, claim{r.read, n})
	r.read = (r.read + n) % len(r.buf)
	r.items -= n
	return it
}

// ret releases a received item back to the buffer and reports whether
// a blocked sender was woken. Returning an item that was not received
// from this buffer, or returning it twice, is unrecoverable and fails
// a kernel assertion.
func (r *ring) ret(it Item) bool {
	if !it.Valid() || !r.isCreated() {
		return false
	}
	r.mu.Lock()
	if r.typ == byteBuf {
		if len(r.claims) == 0 || r.claims[0].off != it.off || r.claims[0].n != len(it.Data) {
			r.mu.Unlock()
			kernel.Assertf("ring buffer %d: byte region returned out of order", r.member.WaitHandle())
		}
		n := r.claims[0].n
		r.claims = r.claims[1:]
		r.free = (r.free + n) % len(r.buf)
		r.used -= n
	} else {
		if it.off+headerSize > len(r.buf) {
			r.mu.Unlock()
			kernel.Assertf("ring buffer %d: foreign item returned", r.member.WaitHandle())
		}
		_, flags := r.header(it.off)
		if flags&(flagFree|flagDummy) != 0 {
			r.mu.Unlock()
			kernel.Assertf("ring buffer %d: item at %d returned twice", r.member.WaitHandle(), it.off)
		}
		r.orFlags(it.off, flagFree)
		r.reclaim()
	}
	woken := r.txWaiters > 0
	r.mu.Unlock()
	r.notFull.Signal()
	return woken
}

// reclaim advances the free pointer over returned entries and
// markers. Space behind an unreturned entry stays unusable until that
// entry comes back, even when newer entries were returned first.
func (r *ring) reclaim() {
	for r.readBytes > 0 {
		if rem := len(r.buf) - r.free; rem < headerSize {
			r.free = 0
			r.used -= rem
			r.readBytes -= rem
			continue
		}
		length, flags := r.header(r.free)
		if flags&(flagFree|flagDummy) == 0 {
			return
		}
		size := headerSize + align4(length)
		r.free = (r.free + size) % len(r.buf)
		r.used -= size
		r.readBytes -= size
	}
}

// reset discards unread content. It fails while any received item is
// still out: resetting under an outstanding view would let a later
// Return corrupt a reused region.
func (r *ring) reset() bool {
	if !r.isCreated() {
		return false
	}
	r.mu.Lock()
	if r.readBytes > 0 || len(r.claims) > 0 {
		r.mu.Unlock()
		return false
	}
	r.write, r.read, r.free = 0, 0, 0
	r.used, r.items = 0, 0
	r.mu.Unlock()
	r.notFull.Signal()
	return true
}

func (r *ring) destroy() {
	r.member.Release()
	r.mu.Lock()
	r.buf = nil
	r.write, r.read, r.free = 0, 0, 0
	r.used, r.readBytes, r.items = 0, 0, 0
	r.claims = nil
	r.mu.Unlock()
}
