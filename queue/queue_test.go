package queue

import (
	"sync"
	"testing"
	"time"

	kernelobjects "github.com/rtoskit/kernel-objects"
	"github.com/rtoskit/kernel-objects/kernel"
)

func TestAddPopFIFO(t *testing.T) {
	q := New[int](3)
	defer q.Destroy()

	for _, v := range []int{1, 2, 3} {
		if !q.Add(v, kernel.NoWait) {
			t.Fatalf("Add(%d) failed", v)
		}
	}
	for _, want := range []int{1, 2, 3} {
		got, ok := q.Pop(kernel.NoWait)
		if !ok || got != want {
			t.Fatalf("Pop() = %d %v, want %d true", got, ok, want)
		}
	}
}

func TestPushPopLIFO(t *testing.T) {
	q := New[int](3)
	defer q.Destroy()

	for _, v := range []int{1, 2, 3} {
		if !q.Push(v, kernel.NoWait) {
			t.Fatalf("Push(%d) failed", v)
		}
	}
	for _, want := range []int{3, 2, 1} {
		got, ok := q.Pop(kernel.NoWait)
		if !ok || got != want {
			t.Fatalf("Pop() = %d %v, want %d true", got, ok, want)
		}
	}
}

func TestCapacityRoundTrip(t *testing.T) {
	const n = 4
	q := New[int](n)
	defer q.Destroy()

	check := func() {
		t.Helper()
		if got := q.Spaces() + q.Messages(); got != n {
			t.Fatalf("Spaces()+Messages() = %d, want %d", got, n)
		}
	}

	check()
	for i := 0; i < n; i++ {
		if !q.Add(i, kernel.NoWait) {
			t.Fatalf("Add(%d) failed", i)
		}
		check()
	}
	if !q.IsFull() || q.IsEmpty() {
		t.Fatal("full queue: IsFull/IsEmpty wrong")
	}
	if q.Add(99, kernel.NoWait) {
		t.Fatal("Add() on a full queue with NoWait succeeded")
	}
	for i := 0; i < n; i++ {
		if _, ok := q.Pop(kernel.NoWait); !ok {
			t.Fatalf("Pop() %d failed", i)
		}
		check()
	}
	if !q.IsEmpty() || q.IsFull() {
		t.Fatal("drained queue: IsEmpty/IsFull wrong")
	}
}

func TestOverwriteLengthOne(t *testing.T) {
	q := New[int](1)
	defer q.Destroy()

	if !q.Overwrite(1) {
		t.Fatal("first Overwrite() failed")
	}
	if !q.Overwrite(2) {
		t.Fatal("second Overwrite() failed")
	}
	if got := q.Messages(); got != 1 {
		t.Fatalf("Messages() = %d, want 1", got)
	}
	got, ok := q.Peek(kernel.NoWait)
	if !ok || got != 2 {
		t.Fatalf("Peek() = %d %v, want 2 true", got, ok)
	}
	if got := q.Messages(); got != 1 {
		t.Fatalf("Messages() after peek = %d, want 1", got)
	}
}

func TestPeekDoesNotConsume(t *testing.T) {
	q := New[string](2)
	defer q.Destroy()

	q.Add("a", kernel.NoWait)
	for i := 0; i < 2; i++ {
		got, ok := q.Peek(kernel.NoWait)
		if !ok || got != "a" {
			t.Fatalf("Peek() = %q %v, want \"a\" true", got, ok)
		}
	}
	if got, _ := q.Pop(kernel.NoWait); got != "a" {
		t.Fatalf("Pop() after peeks = %q, want \"a\"", got)
	}
}

func TestBlockedPopWokenByAdd(t *testing.T) {
	q := New[int](1)
	defer q.Destroy()

	got := make(chan int)
	go func() {
		v, ok := q.Pop(kernel.Forever)
		if !ok {
			v = -1
		}
		got <- v
	}()

	time.Sleep(5 * time.Millisecond)
	ok, woken := q.AddFromISR(42)
	if !ok {
		t.Fatal("AddFromISR() failed")
	}
	if woken {
		kernel.Yield()
	}
	select {
	case v := <-got:
		if v != 42 {
			t.Fatalf("Pop() = %d, want 42", v)
		}
	case <-time.After(time.Second):
		t.Fatal("Pop() still blocked after add")
	}
}

func TestBlockedAddWokenByPop(t *testing.T) {
	q := New[int](1)
	defer q.Destroy()

	q.Add(1, kernel.NoWait)
	done := make(chan bool)
	go func() { done <- q.Add(2, kernel.Forever) }()

	time.Sleep(5 * time.Millisecond)
	_, ok, woken := q.PopFromISR()
	if !ok {
		t.Fatal("PopFromISR() failed")
	}
	if !woken {
		t.Fatal("PopFromISR() woken = false with a blocked sender")
	}
	if !<-done {
		t.Fatal("blocked Add() failed after space freed")
	}
}

func TestAddTimeout(t *testing.T) {
	q := New[int](1)
	defer q.Destroy()

	q.Add(1, kernel.NoWait)
	start := time.Now()
	if q.Add(2, kernel.TicksFor(10*time.Millisecond)) {
		t.Fatal("Add() on a full queue succeeded")
	}
	if time.Since(start) < 5*time.Millisecond {
		t.Fatal("Add() gave up before its budget")
	}
}

func TestReset(t *testing.T) {
	q := New[int](3)
	defer q.Destroy()

	q.Add(1, kernel.NoWait)
	q.Add(2, kernel.NoWait)
	q.Reset()
	if !q.IsEmpty() {
		t.Fatal("queue not empty after Reset")
	}
	if got := q.Spaces(); got != 3 {
		t.Fatalf("Spaces() after Reset = %d, want 3", got)
	}
}

func TestStaticStorage(t *testing.T) {
	var store [4]int
	q := NewStatic(store[:])
	defer q.Destroy()

	if !q.IsCreated() {
		t.Fatal("NewStatic() queue not created")
	}
	if got := q.Storage(); got != kernelobjects.StorageStatic {
		t.Fatalf("Storage() = %v, want static", got)
	}
	if got := q.Length(); got != 4 {
		t.Fatalf("Length() = %d, want 4", got)
	}
	q.Add(7, kernel.NoWait)
	if got, _ := q.Pop(kernel.NoWait); got != 7 {
		t.Fatalf("Pop() = %d, want 7", got)
	}
}

func TestExternalStorageCreate(t *testing.T) {
	var q Queue[byte]
	if q.IsCreated() {
		t.Fatal("zero value reports created")
	}
	if q.Create(nil) {
		t.Fatal("Create(nil) succeeded")
	}
	if q.IsCreated() {
		t.Fatal("failed Create left the queue created")
	}

	buf := make([]byte, 8)
	if !q.Create(buf) {
		t.Fatal("Create() failed")
	}
	if got := q.Storage(); got != kernelobjects.StorageExternal {
		t.Fatalf("Storage() = %v, want external", got)
	}

	before := kernel.Objects()
	if !q.Create(buf) {
		t.Fatal("re-Create() failed, want idempotent true")
	}
	if got := kernel.Objects(); got != before {
		t.Fatalf("re-Create leaked a handle: objects %d -> %d", before, got)
	}
	q.Destroy()
}

func TestUncreatedQueueSafety(t *testing.T) {
	var q Queue[int]
	if q.Add(1, kernel.NoWait) || q.Push(1, kernel.NoWait) {
		t.Fatal("send on uncreated queue succeeded")
	}
	if _, ok := q.Pop(kernel.NoWait); ok {
		t.Fatal("Pop() on uncreated queue succeeded")
	}
	if _, ok := q.Peek(kernel.NoWait); ok {
		t.Fatal("Peek() on uncreated queue succeeded")
	}
	if q.Overwrite(1) {
		t.Fatal("Overwrite() on uncreated queue succeeded")
	}
	if !q.IsEmpty() || q.IsFull() {
		t.Fatal("uncreated queue: IsEmpty/IsFull wrong")
	}
	q.Reset()
	q.Destroy()
}

func TestConcurrentProducersDrain(t *testing.T) {
	const (
		producers = 4
		perProd   = 500
		total     = producers * perProd
	)
	q := New[int](8)
	defer q.Destroy()

	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func(p int) {
			defer wg.Done()
			<-start
			for i := 0; i < perProd; i++ {
				if !q.Add(p*perProd+i, kernel.Forever) {
					t.Error("Add(Forever) failed")
					return
				}
			}
		}(p)
	}
	close(start)

	seen := make([]bool, total)
	for i := 0; i < total; i++ {
		v, ok := q.Pop(kernel.Forever)
		if !ok {
			t.Fatal("Pop(Forever) failed")
		}
		if v < 0 || v >= total || seen[v] {
			t.Fatalf("Pop() = %d, duplicate or out of range", v)
		}
		seen[v] = true
	}
	wg.Wait()
	if !q.IsEmpty() {
		t.Fatal("queue not empty after drain")
	}
}
