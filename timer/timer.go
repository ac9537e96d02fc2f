package timer

import (
	"sync"
	"time"

	"github.com/rtoskit/kernel-objects/kernel"
)

// Callback is a timer expiry handler. It receives the timer that
// fired so one handler can serve several timers.
type Callback func(*Timer)

// Timer is a software timer. The zero value is uncreated; New and
// Create set the period and callback.
type Timer struct {
	_          [0]func() // prevent accidental copying.
	mu         sync.Mutex
	h          kernel.Handle
	name       string
	period     kernel.Ticks
	autoReload bool
	fn         Callback
	t          *time.Timer
	active     bool
	expiry     kernel.Ticks
	gen        uint64
}

// New creates a dormant timer. A zero or Forever period, or a nil
// callback, yields an uncreated timer. Start arms it.
func New(name string, period kernel.Ticks, autoReload bool, fn Callback) *Timer {
	t := &Timer{}
	t.Create(name, period, autoReload, fn)
	return t
}

// Create binds the timer's parameters and kernel handle. It fails on
// a zero or Forever period or a nil callback, and is an idempotent
// no-op on a created timer.
func (t *Timer) Create(name string, period kernel.Ticks, autoReload bool, fn Callback) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.h != 0 {
		return true
	}
	if period == 0 || period == kernel.Forever || fn == nil {
		return false
	}
	t.name = name
	t.period = period
	t.autoReload = autoReload
	t.fn = fn
	t.h = kernel.Register(kernel.KindTimer, name)
	return true
}

// IsCreated reports whether the timer owns a live kernel handle.
func (t *Timer) IsCreated() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.h != 0
}

// Name returns the name given at creation.
func (t *Timer) Name() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.name
}

// Period returns the current period.
func (t *Timer) Period() kernel.Ticks {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.period
}

// IsActive reports whether the timer is armed. A one-shot timer stops
// being active once its callback has been scheduled.
func (t *Timer) IsActive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// ExpiryTime returns the kernel tick at which the timer will next
// fire. It is meaningless on a dormant timer.
func (t *Timer) ExpiryTime() kernel.Ticks {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.expiry
}

// Start arms the timer for one period from now. Starting an active
// timer restarts it.
func (t *Timer) Start() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.h == 0 {
		return false
	}
	t.armLocked()
	return true
}

// StartFromISR is Start for interrupt context. The second result
// mirrors the woken convention of the other objects and is always
// false: arming a timer never unblocks a waiter directly.
func (t *Timer) StartFromISR() (bool, bool) {
	return t.Start(), false
}

// Stop disarms the timer. A callback already scheduled may still run.
func (t *Timer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.h == 0 {
		return false
	}
	t.disarmLocked()
	return true
}

// StopFromISR is Stop for interrupt context.
func (t *Timer) StopFromISR() (bool, bool) {
	return t.Stop(), false
}

// Reset re-arms the timer for one full period from now, whether or
// not it was active.
func (t *Timer) Reset() bool {
	return t.Start()
}

// ResetFromISR is Reset for interrupt context.
func (t *Timer) ResetFromISR() (bool, bool) {
	return t.Start(), false
}

// ChangePeriod sets a new period and arms the timer with it. It fails
// on a zero or Forever period.
func (t *Timer) ChangePeriod(period kernel.Ticks) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.h == 0 || period == 0 || period == kernel.Forever {
		return false
	}
	t.period = period
	t.armLocked()
	return true
}

// ChangePeriodFromISR is ChangePeriod for interrupt context.
func (t *Timer) ChangePeriodFromISR(period kernel.Ticks) (bool, bool) {
	return t.ChangePeriod(period), false
}

// armLocked starts a fresh countdown. The generation counter makes a
// previously scheduled fire a no-op.
func (t *Timer) armLocked() {
	t.gen++
	gen := t.gen
	if t.t != nil {
		t.t.Stop()
	}
	t.active = true
	t.expiry = kernel.Now() + t.period
	t.t = time.AfterFunc(t.period.Duration(), func() { t.fire(gen) })
}

func (t *Timer) disarmLocked() {
	t.gen++
	if t.t != nil {
		t.t.Stop()
		t.t = nil
	}
	t.active = false
}

func (t *Timer) fire(gen uint64) {
	t.mu.Lock()
	if gen != t.gen || t.h == 0 {
		t.mu.Unlock()
		return
	}
	fn := t.fn
	if t.autoReload {
		t.armLocked()
	} else {
		t.active = false
	}
	t.mu.Unlock()
	fn(t)
}

// Destroy disarms the timer and releases its kernel handle. It is
// safe on an uncreated timer.
func (t *Timer) Destroy() {
	t.mu.Lock()
	h := t.h
	t.h = 0
	t.disarmLocked()
	t.fn = nil
	t.mu.Unlock()
	if h != 0 {
		kernel.Release(h)
	}
}
