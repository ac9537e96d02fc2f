package lock

import (
	"sync"

	"github.com/rtoskit/kernel-objects/kernel"
)

// Mutex is a non-recursive mutual-exclusion lock with owner tracking.
// The zero value is uncreated; NewMutex returns a created one.
type Mutex struct {
	_       [0]func() // prevent accidental copying.
	member  kernel.SetMember
	mu      sync.Mutex
	avail   kernel.Cond
	waiters int
	owner   uint64
}

// NewMutex creates a mutex ready to be taken.
func NewMutex() *Mutex {
	m := &Mutex{}
	m.Create()
	return m
}

// Create binds the kernel handle. It is an idempotent no-op on a
// created mutex.
func (m *Mutex) Create() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.member.WaitHandle() != 0 {
		return true
	}
	m.member.Bind(kernel.Register(kernel.KindMutex, ""))
	return true
}

// IsCreated reports whether the mutex owns a live kernel handle.
func (m *Mutex) IsCreated() bool { return m.member.WaitHandle() != 0 }

// Take acquires the mutex, waiting up to the given budget. A take by
// the current owner does not nest; it blocks like any other taker.
func (m *Mutex) Take(wait kernel.Ticks) bool {
	if !m.IsCreated() {
		return false
	}
	gid := kernel.GoroutineID()
	d := kernel.NewDeadline(wait)
	defer d.Stop()
	for {
		m.mu.Lock()
		if m.owner == 0 {
			m.owner = gid
			m.mu.Unlock()
			return true
		}
		ready := m.avail.Ready()
		m.waiters++
		m.mu.Unlock()

		ok := d.Wait(ready)

		m.mu.Lock()
		m.waiters--
		m.mu.Unlock()
		if !ok {
			return false
		}
	}
}

// Give releases the mutex. It fails when the caller is not the owner.
func (m *Mutex) Give() bool {
	if !m.IsCreated() {
		return false
	}
	gid := kernel.GoroutineID()
	m.mu.Lock()
	if m.owner != gid {
		m.mu.Unlock()
		return false
	}
	m.owner = 0
	m.mu.Unlock()
	m.avail.Signal()
	m.member.Notify()
	return true
}

// WaitMember exposes the wait-set anchor.
func (m *Mutex) WaitMember() *kernel.SetMember { return &m.member }

// Matches reports whether a select token identifies this mutex.
func (m *Mutex) Matches(token kernel.Handle) bool { return m.member.Matches(token) }

// Destroy releases the kernel handle. It is safe on an uncreated
// mutex and must not be called while the mutex is in a wait set.
func (m *Mutex) Destroy() {
	m.member.Release()
	m.mu.Lock()
	m.owner = 0
	m.mu.Unlock()
}

// RecursiveMutex is a mutex the owner may take repeatedly. It is
// released when gives balance takes. The zero value is uncreated.
type RecursiveMutex struct {
	_       [0]func() // prevent accidental copying.
	member  kernel.SetMember
	mu      sync.Mutex
	avail   kernel.Cond
	waiters int
	owner   uint64
	depth   uint32
}

// NewRecursiveMutex creates a recursive mutex ready to be taken.
func NewRecursiveMutex() *RecursiveMutex {
	m := &RecursiveMutex{}
	m.Create()
	return m
}

// Create binds the kernel handle. It is an idempotent no-op on a
// created mutex.
func (m *RecursiveMutex) Create() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.member.WaitHandle() != 0 {
		return true
	}
	m.member.Bind(kernel.Register(kernel.KindRecursiveMutex, ""))
	return true
}

// IsCreated reports whether the mutex owns a live kernel handle.
func (m *RecursiveMutex) IsCreated() bool { return m.member.WaitHandle() != 0 }

// Take acquires the mutex or deepens the owner's hold.
func (m *RecursiveMutex) Take(wait kernel.Ticks) bool {
	if !m.IsCreated() {
		return false
	}
	gid := kernel.GoroutineID()
	d := kernel.NewDeadline(wait)
	defer d.Stop()
	for {
		m.mu.Lock()
		if m.owner == 0 || m.owner == gid {
			m.owner = gid
			m.depth++
			m.mu.Unlock()
			return true
		}
		ready := m.avail.Ready()
		m.waiters++
		m.mu.Unlock()

		ok := d.Wait(ready)

		m.mu.Lock()
		m.waiters--
		m.mu.Unlock()
		if !ok {
			return false
		}
	}
}

// Give unwinds one level of the owner's hold and releases the mutex
// when the last level is given back. It fails for non-owners.
func (m *RecursiveMutex) Give() bool {
	if !m.IsCreated() {
		return false
	}
	gid := kernel.GoroutineID()
	m.mu.Lock()
	if m.owner != gid || m.depth == 0 {
		m.mu.Unlock()
		return false
	}
	m.depth--
	released := m.depth == 0
	if released {
		m.owner = 0
	}
	m.mu.Unlock()
	if released {
		m.avail.Signal()
		m.member.Notify()
	}
	return true
}

// Depth returns the owner's current nesting level.
func (m *RecursiveMutex) Depth() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.depth
}

// WaitMember exposes the wait-set anchor.
func (m *RecursiveMutex) WaitMember() *kernel.SetMember { return &m.member }

// Matches reports whether a select token identifies this mutex.
func (m *RecursiveMutex) Matches(token kernel.Handle) bool { return m.member.Matches(token) }

// Destroy releases the kernel handle. It is safe on an uncreated
// mutex and must not be called while the mutex is in a wait set.
func (m *RecursiveMutex) Destroy() {
	m.member.Release()
	m.mu.Lock()
	m.owner = 0
	m.depth = 0
	m.mu.Unlock()
}
