package queue

import (
	"sync"

	kernelobjects "github.com/rtoskit/kernel-objects"
	"github.com/rtoskit/kernel-objects/kernel"
)

// Queue is a bounded FIFO of T. The zero value is uncreated; New and
// NewStatic return created queues, Create binds external storage.
type Queue[T any] struct {
	_         [0]func() // prevent accidental copying.
	member    kernel.SetMember
	mu        sync.Mutex
	notEmpty  kernel.Cond
	notFull   kernel.Cond
	rxWaiters int
	txWaiters int
	storage   kernelobjects.Storage
	buf       []T
	head      int
	count     int
}

// New creates a queue with internally allocated storage for length
// elements. A non-positive length yields an uncreated queue.
func New[T any](length int) *Queue[T] {
	q := &Queue[T]{storage: kernelobjects.StorageDynamic}
	if length > 0 {
		q.create(make([]T, length))
	}
	return q
}

// NewStatic creates a queue over a caller-owned backing slice. The
// queue's length is len(buf) and the library allocates nothing. An
// empty slice yields an uncreated queue.
func NewStatic[T any](buf []T) *Queue[T] {
	q := &Queue[T]{storage: kernelobjects.StorageStatic}
	if len(buf) > 0 {
		q.create(buf)
	}
	return q
}

// Create binds a caller-supplied backing slice to an uncreated queue.
// It fails on a nil or empty buffer and is an idempotent no-op on a
// created queue.
func (q *Queue[T]) Create(buf []T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.member.WaitHandle() != 0 {
		return true
	}
	if len(buf) == 0 {
		return false
	}
	q.storage = kernelobjects.StorageExternal
	q.buf = buf
	q.head = 0
	q.count = 0
	q.member.Bind(kernel.Register(kernel.KindQueue, ""))
	return true
}

func (q *Queue[T]) create(buf []T) {
	q.mu.Lock()
	q.buf = buf
	q.mu.Unlock()
	q.member.Bind(kernel.Register(kernel.KindQueue, ""))
}

// IsCreated reports whether the queue owns a live kernel handle.
func (q *Queue[T]) IsCreated() bool { return q.member.WaitHandle() != 0 }

// Storage reports the queue's storage strategy.
func (q *Queue[T]) Storage() kernelobjects.Storage { return q.storage }

// Length returns the fixed element capacity.
func (q *Queue[T]) Length() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf)
}

// Add appends an element at the back, waiting up to the given budget
// for space.
func (q *Queue[T]) Add(item T, wait kernel.Ticks) bool {
	return q.send(item, wait, false)
}

// Push prepends an element at the front, waiting up to the given
// budget for space. The next Pop returns it.
func (q *Queue[T]) Push(item T, wait kernel.Ticks) bool {
	return q.send(item, wait, true)
}

func (q *Queue[T]) send(item T, wait kernel.Ticks, front bool) bool {
	if !q.IsCreated() {
		return false
	}
	d := kernel.NewDeadline(wait)
	defer d.Stop()
	for {
		q.mu.Lock()
		if q.count < len(q.buf) {
			q.insert(item, front)
			q.mu.Unlock()
			q.notEmpty.Signal()
			q.member.Notify()
			return true
		}
		ready := q.notFull.Ready()
		q.txWaiters++
		q.mu.Unlock()

		ok := d.Wait(ready)

		q.mu.Lock()
		q.txWaiters--
		q.mu.Unlock()
		if !ok {
			return false
		}
	}
}

// insert places item at the back or front. Caller holds q.mu and has
// checked for space.
func (q *Queue[T]) insert(item T, front bool) {
	if front {
		q.head = (q.head - 1 + len(q.buf)) % len(q.buf)
		q.buf[q.head] = item
	} else {
		q.buf[(q.head+q.count)%len(q.buf)] = item
	}
	q.count++
}

// AddFromISR is the non-blocking Add for interrupt context. The
// second result reports whether a reader was woken.
func (q *Queue[T]) AddFromISR(item T) (bool, bool) {
	return q.sendFromISR(item, false)
}

// PushFromISR is the non-blocking Push for interrupt context.
func (q *Queue[T]) PushFromISR(item T) (bool, bool) {
	return q.sendFromISR(item, true)
}

func (q *Queue[T]) sendFromISR(item T, front bool) (bool, bool) {
	if !q.IsCreated() {
		return false, false
	}
	q.mu.Lock()
	if q.count == len(q.buf) {
		q.mu.Unlock()
		return false, false
	}
	q.insert(item, front)
	woken := q.rxWaiters > 0
	q.mu.Unlock()
	q.notEmpty.Signal()
	q.member.Notify()
	return true, woken
}

// Pop removes and returns the front element, waiting up to the given
// budget for one to arrive.
func (q *Queue[T]) Pop(wait kernel.Ticks) (T, bool) {
	var zero T
	if !q.IsCreated() {
		return zero, false
	}
	d := kernel.NewDeadline(wait)
	defer d.Stop()
	for {
		q.mu.Lock()
		if q.count > 0 {
			item := q.buf[q.head]
			q.buf[q.head] = zero
			q.head = (q.head + 1) % len(q.buf)
			q.count--
			q.mu.Unlock()
			q.notFull.Signal()
			return item, true
		}
		ready := q.notEmpty.Ready()
		q.rxWaiters++
		q.mu.Unlock()

		ok := d.Wait(ready)

		q.mu.Lock()
		q.rxWaiters--
		q.mu.Unlock()
		if !ok {
			return zero, false
		}
	}
}

// PopFromISR is the non-blocking Pop for interrupt context. The last
// result reports whether a blocked sender was woken.
func (q *Queue[T]) PopFromISR() (T, bool, bool) {
	var zero T
	if !q.IsCreated() {
		return zero, false, false
	}
	q.mu.Lock()
	if q.count == 0 {
		q.mu.Unlock()
		return zero, false, false
	}
	item := q.buf[q.head]
	q.buf[q.head] = zero
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	woken := q.txWaiters > 0
	q.mu.Unlock()
	q.notFull.Signal()
	return item, true, woken
}

// Peek returns the front element without removing it, waiting up to
// the given budget for one to arrive.
func (q *Queue[T]) Peek(wait kernel.Ticks) (T, bool) {
	var zero T
	if !q.IsCreated() {
		return zero, false
	}
	d := kernel.NewDeadline(wait)
	defer d.Stop()
	for {
		q.mu.Lock()
		if q.count > 0 {
			item := q.buf[q.head]
			q.mu.Unlock()
			return item, true
		}
		ready := q.notEmpty.Ready()
		q.rxWaiters++
		q.mu.Unlock()

		ok := d.Wait(ready)

		q.mu.Lock()
		q.rxWaiters--
		q.mu.Unlock()
		if !ok {
			return zero, false
		}
	}
}

// PeekFromISR is the non-blocking Peek for interrupt context.
func (q *Queue[T]) PeekFromISR() (T, bool) {
	var zero T
	if !q.IsCreated() {
		return zero, false
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == 0 {
		return zero, false
	}
	return q.buf[q.head], true
}

// Overwrite writes an element even when the queue is full, replacing
// the newest one. It is intended for length-1 queues; which element
// is replaced on a longer queue is unspecified.
//
// On a queue attached to a wait set, every call posts a readiness
// event, replacements included, so the set's capacity must cover
// calls rather than elements. The kernel contract therefore forbids
// overwriting a set member.
func (q *Queue[T]) Overwrite(item T) bool {
	if !q.IsCreated() {
		return false
	}
	q.mu.Lock()
	if q.count < len(q.buf) {
		q.insert(item, false)
	} else {
		q.buf[(q.head+q.count-1)%len(q.buf)] = item
	}
	q.mu.Unlock()
	q.notEmpty.Signal()
	q.member.Notify()
	return true
}

// OverwriteFromISR is the interrupt-context Overwrite, with the same
// one-event-per-call wait-set caveat. The second result reports
// whether a reader was woken.
func (q *Queue[T]) OverwriteFromISR(item T) (bool, bool) {
	if !q.IsCreated() {
		return false, false
	}
	q.mu.Lock()
	if q.count < len(q.buf) {
		q.insert(item, false)
	} else {
		q.buf[(q.head+q.count-1)%len(q.buf)] = item
	}
	woken := q.rxWaiters > 0
	q.mu.Unlock()
	q.notEmpty.Signal()
	q.member.Notify()
	return true, woken
}

// Reset discards every queued element.
func (q *Queue[T]) Reset() {
	if !q.IsCreated() {
		return
	}
	q.mu.Lock()
	var zero T
	for i := range q.buf {
		q.buf[i] = zero
	}
	q.head = 0
	q.count = 0
	q.mu.Unlock()
	q.notFull.Signal()
}

// Messages returns the number of queued elements.
func (q *Queue[T]) Messages() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// MessagesFromISR is the interrupt-context Messages.
func (q *Queue[T]) MessagesFromISR() int { return q.Messages() }

// Spaces returns the number of free element slots.
func (q *Queue[T]) Spaces() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf) - q.count
}

// IsEmpty reports whether no elements are queued.
func (q *Queue[T]) IsEmpty() bool { return q.Messages() == 0 }

// IsFull reports whether every slot is occupied.
func (q *Queue[T]) IsFull() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf) > 0 && q.count == len(q.buf)
}

// IsEmptyFromISR is the interrupt-context IsEmpty.
func (q *Queue[T]) IsEmptyFromISR() bool { return q.IsEmpty() }

// IsFullFromISR is the interrupt-context IsFull.
func (q *Queue[T]) IsFullFromISR() bool { return q.IsFull() }

// WaitMember exposes the wait-set anchor.
func (q *Queue[T]) WaitMember() *kernel.SetMember { return &q.member }

// Matches reports whether a select token identifies this queue.
func (q *Queue[T]) Matches(token kernel.Handle) bool { return q.member.Matches(token) }

// Destroy releases the kernel handle and drops the buffer reference.
// It is safe on an uncreated queue and must not be called while the
// queue is in a wait set.
func (q *Queue[T]) Destroy() {
	q.member.Release()
	q.mu.Lock()
	q.buf = nil
	q.head = 0
	q.count = 0
	q.mu.Unlock()
}
