package kernel

import (
	"sync"

	"go.uber.org/zap"
)

// Handle is an opaque reference to a live kernel object.
// Handle 0 is reserved and always invalid.
type Handle uint32

// Kind identifies the object family behind a handle.
type Kind uint8

const (
	KindMutex Kind = iota + 1
	KindRecursiveMutex
	KindBinarySemaphore
	KindCountingSemaphore
	KindQueue
	KindRingBuffer
	KindStreamBuffer
	KindMessageBuffer
	KindWaitSet
	KindTimer
	KindTask
)

func (k Kind) String() string {
	switch k {
	case KindMutex:
		return "mutex"
	case KindRecursiveMutex:
		return "recursive-mutex"
	case KindBinarySemaphore:
		return "binary-semaphore"
	case KindCountingSemaphore:
		return "counting-semaphore"
	case KindQueue:
		return "queue"
	case KindRingBuffer:
		return "ring-buffer"
	case KindStreamBuffer:
		return "stream-buffer"
	case KindMessageBuffer:
		return "message-buffer"
	case KindWaitSet:
		return "wait-set"
	case KindTimer:
		return "timer"
	case KindTask:
		return "task"
	}
	return "unknown"
}

// EventType distinguishes object lifecycle notifications.
type EventType uint8

const (
	ObjectCreated EventType = iota
	ObjectDestroyed
)

// Event is an object lifecycle notification.
type Event struct {
	Handle Handle
	Kind   Kind
	Name   string
	Type   EventType
}

// Observer receives object lifecycle events.
type Observer interface {
	OnObjectEvent(Event)
}

type entry struct {
	kind  Kind
	name  string
	valid bool
}

// registry is the process-wide handle table. Entries are indexed by
// handle-1; released slots are recycled through a free list.
var registry struct {
	mu        sync.RWMutex
	entries   []entry
	freeList  []Handle
	observers []Observer
}

// Register allocates a handle for a newly created object and
// publishes the creation event.
func Register(kind Kind, name string) Handle {
	registry.mu.Lock()
	var h Handle
	if n := len(registry.freeList); n > 0 {
		h = registry.freeList[n-1]
		registry.freeList = registry.freeList[:n-1]
		registry.entries[h-1] = entry{kind: kind, name: name, valid: true}
	} else {
		registry.entries = append(registry.entries, entry{kind: kind, name: name, valid: true})
		h = Handle(len(registry.entries))
	}
	registry.mu.Unlock()

	Logger().Debug("kernel object created",
		zap.Uint32("handle", uint32(h)),
		zap.Stringer("kind", kind),
		zap.String("name", name))
	notify(Event{Handle: h, Kind: kind, Name: name, Type: ObjectCreated})
	return h
}

// Release returns a handle to the registry. Releasing a handle that
// is not live is a double-delete and fails a kernel assertion.
func Release(h Handle) {
	registry.mu.Lock()
	if h == 0 || int(h) > len(registry.entries) || !registry.entries[h-1].valid {
		registry.mu.Unlock()
		Assertf("release of dead handle %d", h)
	}
	e := registry.entries[h-1]
	registry.entries[h-1] = entry{}
	registry.freeList = append(registry.freeList, h)
	registry.mu.Unlock()

	Logger().Debug("kernel object destroyed",
		zap.Uint32("handle", uint32(h)),
		zap.Stringer("kind", e.kind),
		zap.String("name", e.name))
	notify(Event{Handle: h, Kind: e.kind, Name: e.name, Type: ObjectDestroyed})
}

// Describe reports the kind and name behind a live handle.
func Describe(h Handle) (Kind, string, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	if h == 0 || int(h) > len(registry.entries) || !registry.entries[h-1].valid {
		return 0, "", false
	}
	e := registry.entries[h-1]
	return e.kind, e.name, true
}

// Objects returns the number of live kernel objects.
func Objects() int {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	return len(registry.entries) - len(registry.freeList)
}

// Each visits every live object until fn returns false.
func Each(fn func(Handle, Kind, string) bool) {
	registry.mu.RLock()
	snapshot := make([]struct {
		h Handle
		e entry
	}, 0, len(registry.entries))
	for i, e := range registry.entries {
		if e.valid {
			snapshot = append(snapshot, struct {
				h Handle
				e entry
			}{Handle(i + 1), e})
		}
	}
	registry.mu.RUnlock()

	for _, s := range snapshot {
		if !fn(s.h, s.e.kind, s.e.name) {
			return
		}
	}
}

// Subscribe adds an observer for lifecycle events.
func Subscribe(o Observer) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.observers = append(registry.observers, o)
}

// Unsubscribe removes an observer.
func Unsubscribe(o Observer) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	for i, obs := range registry.observers {
		if obs == o {
			registry.observers = append(registry.observers[:i], registry.observers[i+1:]...)
			return
		}
	}
}

func notify(e Event) {
	registry.mu.RLock()
	obs := make([]Observer, len(registry.observers))
	copy(obs, registry.observers)
	registry.mu.RUnlock()
	for _, o := range obs {
		o.OnObjectEvent(e)
	}
}
