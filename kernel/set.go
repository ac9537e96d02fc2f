package kernel

import (
	"sync"
	"sync/atomic"
	"time"
)

// Set is the kernel-level event set behind a wait-set multiplexer.
//
// Members post their handle each time they become ready; Select
// drains one posted handle per call. Capacity is a hard precondition:
// it must be at least the sum of every member's maximum concurrent
// event contribution (queue length per queue, one per lock, readable
// item count per ring buffer). Posting to a full set has no recovery
// path and fails a kernel assertion.
type Set struct {
	h       Handle
	events  chan Handle
	members atomic.Int32
}

// NewSet creates an event set with the given capacity. A zero
// capacity yields nil.
func NewSet(capacity uint32) *Set {
	if capacity == 0 {
		return nil
	}
	return &Set{
		h:      Register(KindWaitSet, ""),
		events: make(chan Handle, capacity),
	}
}

// Handle returns the set's own registry handle.
func (s *Set) Handle() Handle { return s.h }

// Members returns the number of attached members.
func (s *Set) Members() int { return int(s.members.Load()) }

// Select blocks until a member posts readiness or the budget runs
// out. It returns the ready member's handle, or 0 on timeout.
func (s *Set) Select(wait Ticks) Handle {
	switch wait {
	case NoWait:
		return s.SelectFromISR()
	case Forever:
		return <-s.events
	}
	t := time.NewTimer(wait.Duration())
	defer t.Stop()
	select {
	case h := <-s.events:
		return h
	case <-t.C:
		return 0
	}
}

// SelectFromISR is the non-blocking Select variant for interrupt
// context.
func (s *Set) SelectFromISR() Handle {
	select {
	case h := <-s.events:
		return h
	default:
		return 0
	}
}

// Destroy releases the set. Members must be removed first;
// destroying a set that still has members fails a kernel assertion.
func (s *Set) Destroy() {
	if s == nil || s.h == 0 {
		return
	}
	if n := s.members.Load(); n != 0 {
		Assertf("wait set %d destroyed with %d members attached", s.h, n)
	}
	Release(s.h)
	s.h = 0
}

func (s *Set) post(h Handle) {
	select {
	case s.events <- h:
	default:
		Assertf("wait set %d event capacity %d exceeded", s.h, cap(s.events))
	}
}

// SetMember anchors one kernel object to at most one Set. Object
// wrappers embed it; it carries the object's wait handle and the
// back-reference used to post readiness events.
type SetMember struct {
	mu  sync.Mutex
	h   Handle
	set *Set
}

// Bind records the object's handle after a successful create.
func (m *SetMember) Bind(h Handle) {
	m.mu.Lock()
	m.h = h
	m.mu.Unlock()
}

// WaitHandle returns the object's wait handle, or 0 if the object is
// not created.
func (m *SetMember) WaitHandle() Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.h
}

// Matches reports whether a token returned by Select identifies this
// member. Ring buffers replace this identity test with a readability
// predicate; everything else uses it as-is.
func (m *SetMember) Matches(token Handle) bool {
	if token == 0 {
		return false
	}
	return token == m.WaitHandle()
}

// Attach registers the member with a set. It fails if the member is
// uncreated or already belongs to a set. The kernel does not
// re-validate that the member is currently empty; that remains the
// documented caller precondition.
func (m *SetMember) Attach(s *Set) bool {
	if s == nil || s.h == 0 {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.h == 0 || m.set != nil {
		return false
	}
	m.set = s
	s.members.Add(1)
	return true
}

// Detach removes the member from the given set. It fails if the
// member is not attached to that set.
func (m *SetMember) Detach(s *Set) bool {
	if s == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.set != s {
		return false
	}
	m.set = nil
	s.members.Add(-1)
	return true
}

// Notify posts a readiness event to the attached set, if any. Object
// wrappers call it after every operation that makes the object
// readable or takeable.
func (m *SetMember) Notify() {
	m.mu.Lock()
	s, h := m.set, m.h
	m.mu.Unlock()
	if s != nil && h != 0 {
		s.post(h)
	}
}

// Release destroys the member's handle. Destroying an object that is
// still attached to a set fails a kernel assertion; remove it first.
func (m *SetMember) Release() {
	m.mu.Lock()
	h, set := m.h, m.set
	m.mu.Unlock()
	if h == 0 {
		return
	}
	if set != nil {
		Assertf("object %d destroyed while attached to wait set %d", h, set.h)
	}
	m.mu.Lock()
	m.h = 0
	m.mu.Unlock()
	Release(h)
}
