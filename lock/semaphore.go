package lock

import (
	"sync"

	"github.com/rtoskit/kernel-objects/kernel"
)

// BinarySemaphore is a signaling semaphore created empty: the first
// Take blocks until someone gives. The zero value is uncreated.
type BinarySemaphore struct {
	_       [0]func() // prevent accidental copying.
	member  kernel.SetMember
	mu      sync.Mutex
	avail   kernel.Cond
	waiters int
	count   uint32
}

// NewBinarySemaphore creates an empty binary semaphore.
func NewBinarySemaphore() *BinarySemaphore {
	s := &BinarySemaphore{}
	s.Create()
	return s
}

// Create binds the kernel handle. It is an idempotent no-op on a
// created semaphore.
func (s *BinarySemaphore) Create() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.member.WaitHandle() != 0 {
		return true
	}
	s.member.Bind(kernel.Register(kernel.KindBinarySemaphore, ""))
	return true
}

// IsCreated reports whether the semaphore owns a live kernel handle.
func (s *BinarySemaphore) IsCreated() bool { return s.member.WaitHandle() != 0 }

// Take consumes the semaphore, waiting up to the given budget.
func (s *BinarySemaphore) Take(wait kernel.Ticks) bool {
	if !s.IsCreated() {
		return false
	}
	d := kernel.NewDeadline(wait)
	defer d.Stop()
	for {
		s.mu.Lock()
		if s.count > 0 {
			s.count = 0
			s.mu.Unlock()
			return true
		}
		ready := s.avail.Ready()
		s.waiters++
		s.mu.Unlock()

		ok := d.Wait(ready)

		s.mu.Lock()
		s.waiters--
		s.mu.Unlock()
		if !ok {
			return false
		}
	}
}

// TakeFromISR is the non-blocking Take for interrupt context. The
// second result reports whether a higher-priority task was woken; a
// take never wakes anyone, so it is always false.
func (s *BinarySemaphore) TakeFromISR() (bool, bool) {
	if !s.IsCreated() {
		return false, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.count == 0 {
		return false, false
	}
	s.count = 0
	return true, false
}

// Give signals the semaphore. It fails when the semaphore is already
// given.
func (s *BinarySemaphore) Give() bool {
	ok, _ := s.give()
	return ok
}

// GiveFromISR is the non-blocking Give for interrupt context. The
// second result reports whether a waiter was woken; the caller should
// kernel.Yield when it is true.
func (s *BinarySemaphore) GiveFromISR() (bool, bool) {
	return s.give()
}

func (s *BinarySemaphore) give() (bool, bool) {
	if !s.IsCreated() {
		return false, false
	}
	s.mu.Lock()
	if s.count == 1 {
		s.mu.Unlock()
		return false, false
	}
	s.count = 1
	woken := s.waiters > 0
	s.mu.Unlock()
	s.avail.Signal()
	s.member.Notify()
	return true, woken
}

// Count returns 1 when the semaphore is given, 0 otherwise.
func (s *BinarySemaphore) Count() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// WaitMember exposes the wait-set anchor.
func (s *BinarySemaphore) WaitMember() *kernel.SetMember { return &s.member }

// Matches reports whether a select token identifies this semaphore.
func (s *BinarySemaphore) Matches(token kernel.Handle) bool { return s.member.Matches(token) }

// Destroy releases the kernel handle. It is safe on an uncreated
// semaphore and must not be called while the semaphore is in a wait
// set.
func (s *BinarySemaphore) Destroy() {
	s.member.Release()
	s.mu.Lock()
	s.count = 0
	s.mu.Unlock()
}

// CountingSemaphore counts up to a fixed maximum. The zero value is
// uncreated; Create or NewCountingSemaphore set the limits.
type CountingSemaphore struct {
	_       [0]func() // prevent accidental copying.
	member  kernel.SetMember
	mu      sync.Mutex
	avail   kernel.Cond
	waiters int
	count   uint32
	max     uint32
}

// NewCountingSemaphore creates a counting semaphore. A zero max or an
// initial count above max yields an uncreated semaphore.
func NewCountingSemaphore(max, initial uint32) *CountingSemaphore {
	s := &CountingSemaphore{}
	s.Create(max, initial)
	return s
}

// Create binds the kernel handle with the given limits. It fails on a
// zero max or initial > max, and is an idempotent no-op on a created
// semaphore.
func (s *CountingSemaphore) Create(max, initial uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.member.WaitHandle() != 0 {
		return true
	}
	if max == 0 || initial > max {
		return false
	}
	s.max = max
	s.count = initial
	s.member.Bind(kernel.Register(kernel.KindCountingSemaphore, ""))
	return true
}

// IsCreated reports whether the semaphore owns a live kernel handle.
func (s *CountingSemaphore) IsCreated() bool { return s.member.WaitHandle() != 0 }

// Take decrements the count, waiting up to the given budget for it to
// become non-zero.
func (s *CountingSemaphore) Take(wait kernel.Ticks) bool {
	if !s.IsCreated() {
		return false
	}
	d := kernel.NewDeadline(wait)
	defer d.Stop()
	for {
		s.mu.Lock()
		if s.count > 0 {
			s.count--
			s.mu.Unlock()
			return true
		}
		ready := s.avail.Ready()
		s.waiters++
		s.mu.Unlock()

		ok := d.Wait(ready)

		s.mu.Lock()
		s.waiters--
		s.mu.Unlock()
		if !ok {
			return false
		}
	}
}

// TakeFromISR is the non-blocking Take for interrupt context.
func (s *CountingSemaphore) TakeFromISR() (bool, bool) {
	if !s.IsCreated() {
		return false, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.count == 0 {
		return false, false
	}
	s.count--
	return true, false
}

// Give increments the count. It fails at the maximum.
func (s *CountingSemaphore) Give() bool {
	ok, _ := s.give()
	return ok
}

// GiveFromISR is the non-blocking Give for interrupt context; the
// second result reports whether a waiter was woken.
func (s *CountingSemaphore) GiveFromISR() (bool, bool) {
	return s.give()
}

func (s *CountingSemaphore) give() (bool, bool) {
	if !s.IsCreated() {
		return false, false
	}
	s.mu.Lock()
	if s.count == s.max {
		s.mu.Unlock()
		return false, false
	}
	s.count++
	woken := s.waiters > 0
	s.mu.Unlock()
	s.avail.Signal()
	s.member.Notify()
	return true, woken
}

// Count returns the current count.
func (s *CountingSemaphore) Count() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Max returns the maximum count fixed at creation.
func (s *CountingSemaphore) Max() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.max
}

// WaitMember exposes the wait-set anchor.
func (s *CountingSemaphore) WaitMember() *kernel.SetMember { return &s.member }

// Matches reports whether a select token identifies this semaphore.
func (s *CountingSemaphore) Matches(token kernel.Handle) bool { return s.member.Matches(token) }

// Destroy releases the kernel handle. It is safe on an uncreated
// semaphore and must not be called while the semaphore is in a wait
// set.
func (s *CountingSemaphore) Destroy() {
	s.member.Release()
	s.mu.Lock()
	s.count = 0
	s.max = 0
	s.mu.Unlock()
}
