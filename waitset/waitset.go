package waitset

import (
	"github.com/rtoskit/kernel-objects/kernel"
)

// Token identifies the member behind a Select result. Dispatch on it
// with Member.Matches.
type Token = kernel.Handle

// None is the Token returned by a timed-out Select.
const None Token = 0

// Member is any kernel object that can join a wait set. The lock,
// queue, and ringbuf types all satisfy it.
type Member interface {
	// WaitMember exposes the object's wait-set anchor.
	WaitMember() *kernel.SetMember
	// Matches reports whether a select token identifies this member.
	Matches(token kernel.Handle) bool
}

// WaitSet is a multiplexer over heterogeneous kernel objects. The
// zero value is uncreated; use New.
type WaitSet struct {
	_   [0]func() // prevent accidental copying.
	set *kernel.Set
}

// New creates a wait set able to buffer capacity concurrent readiness
// events. A zero capacity yields an uncreated set. See the package
// documentation for how to size capacity; undersizing it is a fatal
// error at runtime, not a graceful one.
func New(capacity uint32) *WaitSet {
	return &WaitSet{set: kernel.NewSet(capacity)}
}

// IsCreated reports whether the set owns a live kernel handle.
func (w *WaitSet) IsCreated() bool { return w.set != nil && w.set.Handle() != 0 }

// Members returns the number of attached members.
func (w *WaitSet) Members() int {
	if w.set == nil {
		return 0
	}
	return w.set.Members()
}

// Add attaches a member. It fails when the member is uncreated or
// already belongs to a set. The member must hold no pending state
// when added: an empty queue or ring buffer, an available semaphore,
// an unheld mutex. State present before Add never produces an event.
func (w *WaitSet) Add(m Member) bool {
	if m == nil {
		return false
	}
	return m.WaitMember().Attach(w.set)
}

// Remove detaches a member. It fails when the member is not attached
// to this set. Events the member already posted stay in the set and
// may still come back from Select as stale tokens.
func (w *WaitSet) Remove(m Member) bool {
	if m == nil {
		return false
	}
	return m.WaitMember().Detach(w.set)
}

// Select blocks until a member posts readiness or the budget runs
// out, and returns the member's token, or None on timeout.
func (w *WaitSet) Select(wait kernel.Ticks) Token {
	if !w.IsCreated() {
		return None
	}
	return w.set.Select(wait)
}

// SelectFromISR is the non-blocking Select for interrupt context.
func (w *WaitSet) SelectFromISR() Token {
	if !w.IsCreated() {
		return None
	}
	return w.set.SelectFromISR()
}

// Destroy releases the set. Every member must be removed first;
// destroying a set with members attached is a fatal error.
func (w *WaitSet) Destroy() {
	if w.set != nil {
		w.set.Destroy()
	}
}
