package task

import (
	"testing"
	"time"

	"github.com/rtoskit/kernel-objects/kernel"
)

func TestCurrentIdentity(t *testing.T) {
	got := make(chan *Task)
	tk := Create("worker", 3, func(self *Task) {
		got <- Current()
	})
	defer tk.Destroy()

	if c := <-got; c != tk {
		t.Fatalf("Current() inside the task = %p, want %p", c, tk)
	}
	if Current() != nil {
		t.Fatal("Current() on a plain goroutine is not nil")
	}
	if tk.Name() != "worker" || tk.Priority() != 3 {
		t.Fatalf("Name/Priority = %q/%d, want worker/3", tk.Name(), tk.Priority())
	}
}

func TestNotifyGiveTake(t *testing.T) {
	counts := make(chan uint32, 3)
	tk := Create("taker", 1, func(self *Task) {
		for i := 0; i < 3; i++ {
			counts <- self.NotifyTake(false, kernel.Forever)
		}
	})
	defer tk.Destroy()

	tk.NotifyGive()
	if got := <-counts; got != 1 {
		t.Fatalf("NotifyTake() = %d, want 1", got)
	}

	// Two gives accumulate; decrementing takes consume one each.
	tk.NotifyGive()
	tk.NotifyGive()
	if got := <-counts; got != 2 {
		t.Fatalf("NotifyTake() after two gives = %d, want 2", got)
	}
	if got := <-counts; got != 1 {
		t.Fatalf("final NotifyTake() = %d, want 1", got)
	}
}

func TestNotifyTakeClearOnExit(t *testing.T) {
	got := make(chan uint32, 2)
	tk := Create("clearer", 1, func(self *Task) {
		got <- self.NotifyTake(true, kernel.Forever)
		got <- self.NotifyTake(true, kernel.TicksFor(10*time.Millisecond))
	})
	defer tk.Destroy()

	tk.NotifyGive()
	tk.NotifyGive()
	tk.NotifyGive()
	if v := <-got; v != 3 {
		t.Fatalf("NotifyTake(clear) = %d, want 3", v)
	}
	if v := <-got; v != 0 {
		t.Fatalf("NotifyTake(clear) on an empty slot = %d, want 0", v)
	}
}

func TestNotifySetBits(t *testing.T) {
	gate := make(chan struct{})
	got := make(chan uint32, 1)
	tk := Create("bits", 1, func(self *Task) {
		<-gate
		v, ok := self.NotifyWait(0, 0xFFFFFFFF, kernel.Forever)
		if !ok {
			v = 0
		}
		got <- v
	})
	defer tk.Destroy()

	// Both notifications land before the wait, so the bits accumulate.
	tk.Notify(0x01, SetBits)
	tk.Notify(0x04, SetBits)
	close(gate)
	if v := <-got; v != 0x05 {
		t.Fatalf("NotifyWait() = %#x, want 0x05", v)
	}
}

func TestNotifyNoOverwrite(t *testing.T) {
	ready := make(chan struct{})
	release := make(chan struct{})
	tk := Create("slot", 1, func(self *Task) {
		close(ready)
		<-release
	})
	defer tk.Destroy()
	<-ready

	if !tk.Notify(10, SetValueNoOverwrite) {
		t.Fatal("first SetValueNoOverwrite failed")
	}
	if tk.Notify(20, SetValueNoOverwrite) {
		t.Fatal("SetValueNoOverwrite on a pending slot succeeded")
	}
	if !tk.Notify(30, SetValueOverwrite) {
		t.Fatal("SetValueOverwrite failed")
	}
	close(release)
}

func TestNotifyWaitClearBits(t *testing.T) {
	got := make(chan uint32, 2)
	sync := make(chan struct{})
	tk := Create("clearbits", 1, func(self *Task) {
		// First wait leaves the low byte in the slot.
		v, _ := self.NotifyWait(0, 0xFF00, kernel.Forever)
		got <- v
		<-sync
		// Second wait observes what the exit clear left behind.
		v, _ = self.NotifyWait(0, 0, kernel.Forever)
		got <- v
	})
	defer tk.Destroy()

	tk.Notify(0x1234, SetValueOverwrite)
	if v := <-got; v != 0x1234 {
		t.Fatalf("first NotifyWait() = %#x, want 0x1234", v)
	}
	close(sync)
	time.Sleep(5 * time.Millisecond)
	tk.Notify(0, NoAction)
	if v := <-got; v != 0x0034 {
		t.Fatalf("second NotifyWait() = %#x, want 0x34", v)
	}
}

func TestNotifyFromISRWokenFlag(t *testing.T) {
	ready := make(chan struct{})
	done := make(chan struct{})
	tk := Create("woken", 1, func(self *Task) {
		close(ready)
		self.NotifyTake(false, kernel.Forever)
		close(done)
	})
	defer tk.Destroy()
	<-ready
	time.Sleep(5 * time.Millisecond)

	if woken := tk.NotifyGiveFromISR(); !woken {
		t.Fatal("NotifyGiveFromISR() woken = false with a blocked taker")
	}
	kernel.Yield()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("NotifyTake() still blocked after give")
	}
}

func TestNotifyAndQuery(t *testing.T) {
	ready := make(chan struct{})
	release := make(chan struct{})
	tk := Create("query", 1, func(self *Task) {
		close(ready)
		<-release
	})
	defer tk.Destroy()
	<-ready

	prev, ok := tk.NotifyAndQuery(0x10, SetValueOverwrite)
	if !ok || prev != 0 {
		t.Fatalf("NotifyAndQuery() = %#x %v, want 0 true", prev, ok)
	}
	prev, ok = tk.NotifyAndQuery(0x01, SetBits)
	if !ok || prev != 0x10 {
		t.Fatalf("NotifyAndQuery() = %#x %v, want 0x10 true", prev, ok)
	}
	prev, ok = tk.NotifyAndQuery(0x99, SetValueNoOverwrite)
	if ok {
		t.Fatal("SetValueNoOverwrite on a pending slot succeeded")
	}
	if prev != 0x11 {
		t.Fatalf("NotifyAndQuery() prev = %#x, want 0x11", prev)
	}
	close(release)
}

func TestNotifyWaitTimeout(t *testing.T) {
	res := make(chan bool, 1)
	tk := Create("timeout", 1, func(self *Task) {
		_, ok := self.NotifyWait(0, 0, kernel.TicksFor(10*time.Millisecond))
		res <- ok
	})
	defer tk.Destroy()

	if <-res {
		t.Fatal("NotifyWait() succeeded with no notification")
	}
}

func TestTaskLifecycle(t *testing.T) {
	before := kernel.Objects()
	done := make(chan struct{})
	tk := Create("short", 1, func(self *Task) { close(done) })
	<-done
	for i := 0; i < 100 && !tk.IsFinished(); i++ {
		time.Sleep(time.Millisecond)
	}
	if !tk.IsFinished() {
		t.Fatal("task never reported finished")
	}
	if tk.Handle() == 0 {
		t.Fatal("handle released before Destroy")
	}
	tk.Destroy()
	if got := kernel.Objects(); got != before {
		t.Fatalf("objects after Destroy = %d, want %d", got, before)
	}
	if Create("nil", 1, nil) != nil {
		t.Fatal("Create(nil fn) returned a task")
	}
}
