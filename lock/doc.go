// Package lock provides the mutual-exclusion kernel objects: plain
// and recursive mutexes, and binary and counting semaphores.
//
// Mutexes track the owning goroutine; Give by anyone else fails. The
// recursive variant may be re-taken by its owner and is released when
// the give count matches the take count. Semaphores carry no
// ownership and add FromISR variants of take and give; mutexes,
// as on a real kernel, must not be used from interrupt context.
//
// Every lock is a wait-set member. A lock contributes one event slot
// to its set and becomes ready when given, so a free mutex added to a
// set does not fire until the next give. Tokens are matched by
// identity.
package lock
