package lock

import (
	"sync"
	"testing"
	"time"

	"github.com/rtoskit/kernel-objects/kernel"
)

func TestMutexTakeGive(t *testing.T) {
	m := NewMutex()
	defer m.Destroy()

	if !m.Take(kernel.NoWait) {
		t.Fatal("Take() on a free mutex failed")
	}
	if !m.Give() {
		t.Fatal("Give() by the owner failed")
	}
}

func TestMutexGiveByNonOwnerFails(t *testing.T) {
	m := NewMutex()
	defer m.Destroy()

	if !m.Take(kernel.NoWait) {
		t.Fatal("Take() failed")
	}
	res := make(chan bool, 1)
	go func() { res <- m.Give() }()
	if <-res {
		t.Fatal("Give() by a non-owner succeeded")
	}
	if !m.Give() {
		t.Fatal("Give() by the owner failed")
	}
}

func TestMutexContention(t *testing.T) {
	m := NewMutex()
	defer m.Destroy()

	const workers = 8
	counter := 0
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if !m.Take(kernel.Forever) {
					t.Error("Take(Forever) failed")
					return
				}
				counter++
				m.Give()
			}
		}()
	}
	wg.Wait()
	if counter != workers*100 {
		t.Fatalf("counter = %d, want %d", counter, workers*100)
	}
}

func TestMutexTakeTimeout(t *testing.T) {
	m := NewMutex()
	defer m.Destroy()

	m.Take(kernel.NoWait)
	defer m.Give()

	res := make(chan bool, 1)
	go func() { res <- m.Take(kernel.TicksFor(10 * time.Millisecond)) }()
	if <-res {
		t.Fatal("Take() on a held mutex succeeded")
	}
}

func TestRecursiveMutexNesting(t *testing.T) {
	m := NewRecursiveMutex()
	defer m.Destroy()

	for i := 0; i < 3; i++ {
		if !m.Take(kernel.NoWait) {
			t.Fatalf("nested Take() %d failed", i)
		}
	}
	if got := m.Depth(); got != 3 {
		t.Fatalf("Depth() = %d, want 3", got)
	}
	for i := 0; i < 3; i++ {
		if !m.Give() {
			t.Fatalf("nested Give() %d failed", i)
		}
	}
	if m.Give() {
		t.Fatal("Give() past the last nesting level succeeded")
	}

	// Released: another goroutine can take it now.
	res := make(chan bool, 1)
	go func() {
		ok := m.Take(kernel.NoWait)
		if ok {
			m.Give()
		}
		res <- ok
	}()
	if !<-res {
		t.Fatal("Take() by another goroutine after full release failed")
	}
}

func TestBinarySemaphoreStartsEmpty(t *testing.T) {
	s := NewBinarySemaphore()
	defer s.Destroy()

	if s.Take(kernel.NoWait) {
		t.Fatal("Take() on a fresh binary semaphore succeeded")
	}
	if !s.Give() {
		t.Fatal("Give() failed")
	}
	if s.Give() {
		t.Fatal("second Give() succeeded, want false on an already-given semaphore")
	}
	if !s.Take(kernel.NoWait) {
		t.Fatal("Take() after Give() failed")
	}
}

func TestBinarySemaphoreWakesWaiter(t *testing.T) {
	s := NewBinarySemaphore()
	defer s.Destroy()

	got := make(chan bool)
	go func() { got <- s.Take(kernel.Forever) }()

	// Let the taker block, then signal from "ISR" context.
	time.Sleep(5 * time.Millisecond)
	ok, woken := s.GiveFromISR()
	if !ok {
		t.Fatal("GiveFromISR() failed")
	}
	if woken {
		kernel.Yield()
	}
	select {
	case ok := <-got:
		if !ok {
			t.Fatal("blocked Take() returned false after give")
		}
	case <-time.After(time.Second):
		t.Fatal("Take() still blocked after give")
	}
}

func TestCountingSemaphoreConservation(t *testing.T) {
	const max = 5
	s := NewCountingSemaphore(max, 0)
	defer s.Destroy()

	for i := 0; i < max; i++ {
		if !s.Give() {
			t.Fatalf("Give() %d failed", i)
		}
	}
	if s.Give() {
		t.Fatal("Give() past max succeeded")
	}
	if !s.Take(kernel.NoWait) {
		t.Fatal("Take() failed")
	}
	if got := s.Count(); got != max-1 {
		t.Fatalf("Count() = %d, want %d", got, max-1)
	}
	if !s.Give() {
		t.Fatal("Give() after take failed")
	}
	if got := s.Count(); got != max {
		t.Fatalf("Count() = %d, want %d", got, max)
	}
}

func TestCountingSemaphoreInvalidCreate(t *testing.T) {
	if s := NewCountingSemaphore(0, 0); s.IsCreated() {
		t.Fatal("zero max produced a created semaphore")
	}
	if s := NewCountingSemaphore(2, 3); s.IsCreated() {
		t.Fatal("initial > max produced a created semaphore")
	}
}

func TestCreateIdempotent(t *testing.T) {
	before := kernel.Objects()
	var s CountingSemaphore
	if !s.Create(3, 1) {
		t.Fatal("Create() failed")
	}
	h := s.WaitMember().WaitHandle()
	if !s.Create(3, 1) {
		t.Fatal("second Create() failed, want idempotent true")
	}
	if got := s.WaitMember().WaitHandle(); got != h {
		t.Fatalf("second Create() changed handle %d -> %d", h, got)
	}
	if got := kernel.Objects(); got != before+1 {
		t.Fatalf("live objects = %d, want %d (no handle leak)", got, before+1)
	}
	s.Destroy()
}

func TestUncreatedSafety(t *testing.T) {
	var m Mutex
	var r RecursiveMutex
	var b BinarySemaphore
	var c CountingSemaphore

	if m.Take(kernel.NoWait) || m.Give() {
		t.Fatal("uncreated mutex operation succeeded")
	}
	if r.Take(kernel.NoWait) || r.Give() {
		t.Fatal("uncreated recursive mutex operation succeeded")
	}
	if b.Take(kernel.NoWait) || b.Give() {
		t.Fatal("uncreated binary semaphore operation succeeded")
	}
	if ok, _ := b.GiveFromISR(); ok {
		t.Fatal("uncreated GiveFromISR() succeeded")
	}
	if c.Take(kernel.NoWait) || c.Give() {
		t.Fatal("uncreated counting semaphore operation succeeded")
	}
	// Destroy on never-created objects is a safe no-op.
	m.Destroy()
	b.Destroy()
}

func TestDestroyedMutexRejectsOps(t *testing.T) {
	m := NewMutex()
	m.Destroy()
	if m.Take(kernel.NoWait) {
		t.Fatal("Take() on a destroyed mutex succeeded")
	}
	m.Destroy() // second destroy is a safe no-op, not a double-delete
}
