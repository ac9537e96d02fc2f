// Package kernelobjects provides RTOS-style kernel objects for Go:
// locks, bounded queues, ring buffers, stream buffers, and a wait-set
// multiplexer that blocks on any of them at once.
//
// The library mirrors the object model of a real-time kernel. Every
// object is created exactly once, owns exactly one kernel handle, and
// is destroyed exactly once. Blocking operations take an explicit
// tick budget (including "don't wait" and "wait forever"), and every
// blocking operation has a non-blocking FromISR counterpart that
// reports whether a waiter would be woken instead of suspending.
//
// # Architecture Overview
//
// The library is organized into packages with distinct responsibilities:
//
//	kernelobjects/       Root package with shared storage-strategy types
//	├── kernel/          Timebase, handle registry, event sets, blocking primitives
//	├── lock/            Mutexes and binary/counting semaphores
//	├── queue/           Bounded FIFO queues of fixed-size elements
//	├── ringbuf/         No-split, split, and byte-buffer ring buffers
//	├── stream/          Stream and message buffers (byte pipes)
//	├── waitset/         Select across heterogeneous kernel objects
//	├── timer/           One-shot and auto-reload software timers
//	└── task/            Task identity and direct-to-task notifications
//
// # Quick Start
//
// Wait on a queue, a ring buffer, and a semaphore with one call:
//
//	q := queue.New[int](4)
//	rb := ringbuf.NewNoSplit(256)
//	sem := lock.NewBinarySemaphore()
//
//	// Queue length, plus the ring buffer's readable item bound,
//	// plus one for the semaphore.
//	ws := waitset.New(4 + 256/12 + 1)
//	ws.Add(q)
//	ws.Add(rb)
//	ws.Add(sem)
//
//	for {
//		tok := ws.Select(kernel.Forever)
//		switch {
//		case q.Matches(tok):
//			v, _ := q.Pop(kernel.NoWait)
//			handle(v)
//		case rb.Matches(tok):
//			item, _ := rb.Receive(kernel.NoWait)
//			consume(item.Data)
//			rb.Return(item)
//		case sem.Matches(tok):
//			sem.Take(kernel.NoWait)
//			handleSignal()
//		}
//	}
//
// # Storage Strategies
//
// Each object kind supports three storage strategies with identical
// behavior and differing only in where backing memory comes from:
//
//   - Dynamic: the library allocates internally (New...).
//   - Static: the caller supplies a fixed backing slice at
//     construction and the library allocates nothing (NewStatic...).
//   - External: the object starts as its zero value in the uncreated
//     state and a later Create call binds a caller-supplied buffer.
//
// An object in the uncreated state fails every operation safely. The
// only panics in the library are kernel-fatal preconditions with no
// recovery path: overflowing a wait set's event capacity, destroying
// an object twice or while it is still attached to a set, and
// returning a zero-copy ring buffer item twice or out of claim order.
package kernelobjects
