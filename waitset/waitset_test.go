package waitset

import (
	"testing"
	"time"

	"github.com/rtoskit/kernel-objects/kernel"
	"github.com/rtoskit/kernel-objects/lock"
	"github.com/rtoskit/kernel-objects/queue"
	"github.com/rtoskit/kernel-objects/ringbuf"
)

func TestSelectSingleQueue(t *testing.T) {
	w := New(4)
	defer w.Destroy()
	q := queue.New[int](4)
	defer q.Destroy()

	if !w.Add(q) {
		t.Fatal("Add() failed")
	}
	defer w.Remove(q)

	if got := w.Select(kernel.NoWait); got != None {
		t.Fatalf("Select() on an idle set = %d, want None", got)
	}
	q.Add(7, kernel.NoWait)
	token := w.Select(kernel.NoWait)
	if !q.Matches(token) {
		t.Fatalf("Select() = %d, does not match the queue", token)
	}
	if v, ok := q.Pop(kernel.NoWait); !ok || v != 7 {
		t.Fatalf("Pop() after select = %d %v, want 7 true", v, ok)
	}
}

func TestSelectBlocksUntilEvent(t *testing.T) {
	w := New(2)
	defer w.Destroy()
	q := queue.New[int](2)
	defer q.Destroy()
	w.Add(q)
	defer w.Remove(q)

	got := make(chan Token)
	go func() { got <- w.Select(kernel.Forever) }()

	time.Sleep(5 * time.Millisecond)
	q.Add(1, kernel.NoWait)
	select {
	case token := <-got:
		if !q.Matches(token) {
			t.Fatalf("Select() = %d, does not match the queue", token)
		}
	case <-time.After(time.Second):
		t.Fatal("Select() still blocked after send")
	}
}

func TestSelectTimeout(t *testing.T) {
	w := New(1)
	defer w.Destroy()

	start := time.Now()
	if got := w.Select(kernel.TicksFor(10 * time.Millisecond)); got != None {
		t.Fatalf("Select() = %d, want None", got)
	}
	if time.Since(start) < 5*time.Millisecond {
		t.Fatal("Select() gave up before its budget")
	}
}

// Queues, a ring buffer, and a semaphore share one set; each event
// dispatches to exactly one member.
func TestHeterogeneousDispatch(t *testing.T) {
	q := queue.New[string](4)
	defer q.Destroy()
	rb := ringbuf.NewNoSplit(64)
	defer rb.Destroy()
	sem := lock.NewBinarySemaphore()
	defer sem.Destroy()

	// Queue length + ring buffer item capacity + one for the
	// semaphore.
	w := New(4 + 3 + 1)
	defer w.Destroy()
	for _, ok := range []bool{w.Add(q), w.Add(rb), w.Add(sem)} {
		if !ok {
			t.Fatal("Add() failed")
		}
	}
	defer func() {
		w.Remove(q)
		w.Remove(rb)
		w.Remove(sem)
	}()
	if got := w.Members(); got != 3 {
		t.Fatalf("Members() = %d, want 3", got)
	}

	q.Add("job", kernel.NoWait)
	rb.Send([]byte("blob"), kernel.NoWait)
	sem.Give()

	var gotQueue, gotRing, gotSem int
	for i := 0; i < 3; i++ {
		token := w.Select(kernel.TicksFor(time.Second))
		switch {
		case q.Matches(token):
			gotQueue++
			if v, ok := q.Pop(kernel.NoWait); !ok || v != "job" {
				t.Fatalf("Pop() = %q %v, want \"job\" true", v, ok)
			}
		case rb.Matches(token):
			gotRing++
			it, ok := rb.Receive(kernel.NoWait)
			if !ok || string(it.Data) != "blob" {
				t.Fatalf("Receive() = %q %v, want \"blob\" true", it.Data, ok)
			}
			rb.Return(it)
		case sem.Matches(token):
			gotSem++
			if ok := sem.Take(kernel.NoWait); !ok {
				t.Fatal("Take() after select failed")
			}
		default:
			t.Fatalf("Select() = %d, matches no member", token)
		}
	}
	if gotQueue != 1 || gotRing != 1 || gotSem != 1 {
		t.Fatalf("dispatch counts queue=%d ring=%d sem=%d, want 1 each",
			gotQueue, gotRing, gotSem)
	}
}

// A drained ring buffer's token must stop matching even though the
// event is already posted.
func TestStaleRingBufferToken(t *testing.T) {
	w := New(4)
	defer w.Destroy()
	rb := ringbuf.NewSplit(64)
	defer rb.Destroy()
	w.Add(rb)
	defer w.Remove(rb)

	rb.Send([]byte("x"), kernel.NoWait)
	head, _, ok := rb.ReceiveSplitFromISR()
	if !ok {
		t.Fatal("ReceiveSplitFromISR() failed")
	}
	rb.Return(head)

	token := w.Select(kernel.NoWait)
	if token == None {
		t.Fatal("posted event lost")
	}
	if rb.Matches(token) {
		t.Fatal("Matches() true for a drained ring buffer")
	}
}

func TestSingleSetMembership(t *testing.T) {
	q := queue.New[int](1)
	defer q.Destroy()
	w1 := New(1)
	defer w1.Destroy()
	w2 := New(1)
	defer w2.Destroy()

	if !w1.Add(q) {
		t.Fatal("first Add() failed")
	}
	if w2.Add(q) {
		t.Fatal("Add() to a second set succeeded")
	}
	if w2.Remove(q) {
		t.Fatal("Remove() from the wrong set succeeded")
	}
	if !w1.Remove(q) {
		t.Fatal("Remove() from the owning set failed")
	}
	if !w2.Add(q) {
		t.Fatal("Add() after removal failed")
	}
	w2.Remove(q)
}

func TestAddUncreatedMemberFails(t *testing.T) {
	w := New(1)
	defer w.Destroy()
	var q queue.Queue[int]
	if w.Add(&q) {
		t.Fatal("Add() of an uncreated queue succeeded")
	}
}

func TestDestroyWithMembersPanics(t *testing.T) {
	w := New(1)
	q := queue.New[int](1)
	w.Add(q)

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("Destroy() with an attached member did not panic")
			}
		}()
		w.Destroy()
	}()

	w.Remove(q)
	w.Destroy()
	q.Destroy()
}

func TestCapacityOverflowPanics(t *testing.T) {
	w := New(1)
	q := queue.New[int](2)
	w.Add(q)
	defer func() {
		if recover() == nil {
			t.Fatal("overflowing the event capacity did not panic")
		}
		w.Remove(q)
		w.Destroy()
		q.Destroy()
	}()

	q.Add(1, kernel.NoWait)
	q.Add(2, kernel.NoWait)
}

// Overwrite posts an event per call, including replacements, so an
// attached length-1 queue can outrun a length-sized capacity.
func TestOverwritePostsEventPerCall(t *testing.T) {
	w := New(2)
	defer w.Destroy()
	q := queue.New[int](1)
	defer q.Destroy()
	w.Add(q)
	defer w.Remove(q)

	q.Overwrite(1)
	q.Overwrite(2)
	if got := q.Messages(); got != 1 {
		t.Fatalf("Messages() = %d, want 1", got)
	}

	token := w.Select(kernel.NoWait)
	if !q.Matches(token) {
		t.Fatalf("first Select() = %d, does not match the queue", token)
	}
	if v, ok := q.Pop(kernel.NoWait); !ok || v != 2 {
		t.Fatalf("Pop() = %d %v, want 2 true", v, ok)
	}

	// The replacement's event is still pending; it comes back stale.
	token = w.Select(kernel.NoWait)
	if token == None {
		t.Fatal("replacement Overwrite posted no event")
	}
	if _, ok := q.Pop(kernel.NoWait); ok {
		t.Fatal("Pop() on a drained queue succeeded")
	}
}

func TestUncreatedSetSafety(t *testing.T) {
	w := New(0)
	if w.IsCreated() {
		t.Fatal("zero-capacity set reports created")
	}
	q := queue.New[int](1)
	defer q.Destroy()
	if w.Add(q) {
		t.Fatal("Add() to an uncreated set succeeded")
	}
	if got := w.Select(kernel.NoWait); got != None {
		t.Fatalf("Select() = %d, want None", got)
	}
	w.Destroy()
}
