package task

import (
	"sync"

	"github.com/rtoskit/kernel-objects/kernel"
)

// NotifyAction selects how Notify folds its value into the target
// task's notification slot.
type NotifyAction uint8

const (
	// NoAction marks the slot pending without touching the value.
	NoAction NotifyAction = iota
	// SetBits ORs the value into the slot.
	SetBits
	// Increment adds one to the slot; the notify value is ignored.
	Increment
	// SetValueOverwrite stores the value unconditionally.
	SetValueOverwrite
	// SetValueNoOverwrite stores the value only when no notification
	// is pending, and fails otherwise.
	SetValueNoOverwrite
)

// Task is a named goroutine with a notification slot. The zero value
// is not usable; use Create.
type Task struct {
	_        [0]func() // prevent accidental copying.
	mu       sync.Mutex
	notified kernel.Cond
	waiters  int
	h        kernel.Handle
	name     string
	priority uint8
	value    uint32
	pending  bool
	finished bool
}

var tasks struct {
	mu   sync.RWMutex
	byID map[uint64]*Task
}

// Create spawns fn as a new task. It returns nil when fn is nil. The
// task's handle stays live after fn returns; Destroy releases it.
func Create(name string, priority uint8, fn func(*Task)) *Task {
	if fn == nil {
		return nil
	}
	t := &Task{
		name:     name,
		priority: priority,
		h:        kernel.Register(kernel.KindTask, name),
	}
	started := make(chan struct{})
	go func() {
		id := kernel.GoroutineID()
		tasks.mu.Lock()
		if tasks.byID == nil {
			tasks.byID = make(map[uint64]*Task)
		}
		tasks.byID[id] = t
		tasks.mu.Unlock()
		close(started)

		defer func() {
			tasks.mu.Lock()
			delete(tasks.byID, id)
			tasks.mu.Unlock()
			t.mu.Lock()
			t.finished = true
			t.mu.Unlock()
		}()
		fn(t)
	}()
	<-started
	return t
}

// Current returns the task running the calling goroutine, or nil when
// the goroutine was not started by Create.
func Current() *Task {
	tasks.mu.RLock()
	defer tasks.mu.RUnlock()
	return tasks.byID[kernel.GoroutineID()]
}

// Name returns the name given at creation.
func (t *Task) Name() string { return t.name }

// Priority returns the priority recorded at creation.
func (t *Task) Priority() uint8 { return t.priority }

// IsFinished reports whether the task's function has returned.
func (t *Task) IsFinished() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.finished
}

// Handle returns the task's kernel handle.
func (t *Task) Handle() kernel.Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.h
}

// IsCreated reports whether the task owns a live kernel handle.
func (t *Task) IsCreated() bool { return t.Handle() != 0 }

// Notify updates the task's notification slot under the given action
// and marks it pending. It fails only for SetValueNoOverwrite against
// an already pending slot.
func (t *Task) Notify(value uint32, action NotifyAction) bool {
	_, ok, _ := t.notify(value, action)
	return ok
}

// NotifyFromISR is Notify for interrupt context. The second result
// reports whether the task was blocked in NotifyWait or NotifyTake.
func (t *Task) NotifyFromISR(value uint32, action NotifyAction) (bool, bool) {
	_, ok, woken := t.notify(value, action)
	return ok, woken
}

// NotifyAndQuery is Notify returning the slot value as it was before
// the update.
func (t *Task) NotifyAndQuery(value uint32, action NotifyAction) (uint32, bool) {
	prev, ok, _ := t.notify(value, action)
	return prev, ok
}

// NotifyAndQueryFromISR is NotifyAndQuery for interrupt context; the
// last result reports whether the task was woken.
func (t *Task) NotifyAndQueryFromISR(value uint32, action NotifyAction) (uint32, bool, bool) {
	return t.notify(value, action)
}

func (t *Task) notify(value uint32, action NotifyAction) (uint32, bool, bool) {
	t.mu.Lock()
	prev := t.value
	switch action {
	case NoAction:
	case SetBits:
		t.value |= value
	case Increment:
		t.value++
	case SetValueOverwrite:
		t.value = value
	case SetValueNoOverwrite:
		if t.pending {
			t.mu.Unlock()
			return prev, false, false
		}
		t.value = value
	default:
		t.mu.Unlock()
		return prev, false, false
	}
	t.pending = true
	woken := t.waiters > 0
	t.mu.Unlock()
	t.notified.Signal()
	return prev, true, woken
}

// NotifyGive increments the slot, the send half of the lightweight
// semaphore idiom.
func (t *Task) NotifyGive() { t.Notify(0, Increment) }

// NotifyGiveFromISR is NotifyGive for interrupt context; the result
// reports whether the task was woken.
func (t *Task) NotifyGiveFromISR() bool {
	_, _, woken := t.notify(0, Increment)
	return woken
}

// NotifyWait blocks until a notification is pending or the budget
// runs out, then returns the slot value and clears the pending mark.
// Bits in clearOnEntry are cleared before any wait; bits in
// clearOnExit are cleared from the slot after the value is captured.
// Only the task itself may call it.
func (t *Task) NotifyWait(clearOnEntry, clearOnExit uint32, wait kernel.Ticks) (uint32, bool) {
	d := kernel.NewDeadline(wait)
	defer d.Stop()
	entered := false
	for {
		t.mu.Lock()
		if !entered {
			if !t.pending {
				t.value &^= clearOnEntry
			}
			entered = true
		}
		if t.pending {
			v := t.value
			t.value &^= clearOnExit
			t.pending = false
			t.mu.Unlock()
			return v, true
		}
		ready := t.notified.Ready()
		t.waiters++
		t.mu.Unlock()

		ok := d.Wait(ready)

		t.mu.Lock()
		t.waiters--
		t.mu.Unlock()
		if !ok {
			return 0, false
		}
	}
}

// NotifyTake blocks until the slot value is non-zero, then returns it.
// With clearOnExit the slot resets to zero, consuming every give at
// once; without it the slot decrements, consuming one. Only the task
// itself may call it.
func (t *Task) NotifyTake(clearOnExit bool, wait kernel.Ticks) uint32 {
	d := kernel.NewDeadline(wait)
	defer d.Stop()
	for {
		t.mu.Lock()
		if t.value > 0 {
			v := t.value
			if clearOnExit {
				t.value = 0
			} else {
				t.value--
			}
			t.pending = false
			t.mu.Unlock()
			return v
		}
		ready := t.notified.Ready()
		t.waiters++
		t.mu.Unlock()

		ok := d.Wait(ready)

		t.mu.Lock()
		t.waiters--
		t.mu.Unlock()
		if !ok {
			return 0
		}
	}
}

// Destroy releases the task's kernel handle. The goroutine itself is
// not stopped; a task exits by returning from its function.
func (t *Task) Destroy() {
	t.mu.Lock()
	h := t.h
	t.h = 0
	t.mu.Unlock()
	if h != 0 {
		kernel.Release(h)
	}
}
