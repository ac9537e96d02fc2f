package kernel

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// TickPeriod is the duration of one kernel tick.
const TickPeriod = time.Millisecond

// Ticks is a wait budget for blocking operations, measured in
// TickPeriod units.
type Ticks uint32

const (
	// NoWait makes a blocking operation poll and return immediately.
	NoWait Ticks = 0

	// Forever makes a blocking operation wait without bound.
	Forever Ticks = 0xFFFFFFFF
)

// Duration converts a tick count to wall time. Forever has no
// duration and converts to a negative value.
func (t Ticks) Duration() time.Duration {
	if t == Forever {
		return -1
	}
	return time.Duration(t) * TickPeriod
}

// TicksFor converts a duration to the smallest tick count covering it.
func TicksFor(d time.Duration) Ticks {
	if d <= 0 {
		return NoWait
	}
	n := (d + TickPeriod - 1) / TickPeriod
	if n >= time.Duration(Forever) {
		return Forever - 1
	}
	return Ticks(n)
}

var clock struct {
	once  sync.Once
	ticks atomic.Uint64
}

// Now returns the current kernel tick count. The tick source starts
// on first use.
func Now() Ticks {
	clock.once.Do(func() {
		go func() {
			t := time.NewTicker(TickPeriod)
			defer t.Stop()
			for range t.C {
				clock.ticks.Add(1)
			}
		}()
	})
	return Ticks(clock.ticks.Load())
}

// Yield lets other tasks run. It is the hook a caller uses after an
// ISR-style operation reports that a higher-priority waiter was
// woken.
func Yield() {
	runtime.Gosched()
}

// Deadline tracks the remaining budget of one blocking call. The
// zero value is not usable; call NewDeadline.
type Deadline struct {
	timer   *time.Timer
	forever bool
	nowait  bool
}

// NewDeadline starts a deadline for the given budget. Callers must
// Stop it when the operation ends.
func NewDeadline(t Ticks) *Deadline {
	switch t {
	case NoWait:
		return &Deadline{nowait: true}
	case Forever:
		return &Deadline{forever: true}
	}
	return &Deadline{timer: time.NewTimer(t.Duration())}
}

// Wait blocks until ready fires or the deadline passes. It returns
// false when the budget is exhausted; the caller then reports a
// timeout. With a NoWait budget it returns false without blocking.
func (d *Deadline) Wait(ready <-chan struct{}) bool {
	if d.nowait {
		return false
	}
	if d.forever {
		<-ready
		return true
	}
	select {
	case <-ready:
		return true
	case <-d.timer.C:
		return false
	}
}

// Stop releases the deadline's timer.
func (d *Deadline) Stop() {
	if d.timer != nil {
		d.timer.Stop()
	}
}
