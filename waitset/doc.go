// Package waitset multiplexes heterogeneous kernel objects behind a
// single blocking wait.
//
// A WaitSet holds queues, ring buffers, and lockable objects. Select
// blocks until one of them becomes ready and returns a Token; the
// caller dispatches by probing each member with Matches and then
// performs the non-blocking operation the member supports (a NoWait
// pop, take, or receive).
//
// Capacity is a hard precondition, not a tunable. It must be at least
// the sum over members of the events each can post concurrently: the
// length of every queue, one for every semaphore or mutex, and the
// maximum readable item count of every ring buffer. A set sized below
// that sum panics when the burst arrives.
//
// Two caveats carry over from the underlying event model. An object
// must be empty (and a lock available) when added, or events already
// represented by its state are never posted. And a token can be stale
// by the time Select returns it: another consumer may have drained the
// member first. For queues and locks a follow-up NoWait operation
// simply fails and the loop continues; ring buffer tokens fold this
// probe into Matches, which answers true only while an item is
// actually readable.
package waitset
