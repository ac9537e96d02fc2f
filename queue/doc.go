// Package queue provides bounded FIFO queues of fixed-size elements.
//
// Add appends at the back, Push prepends at the front, Pop and Peek
// read from the front. Overwrite replaces the newest element on a
// full queue and is meant for length-1 mailbox queues; on longer
// queues the element it replaces is unspecified, matching the
// underlying kernel contract.
//
// A queue is a wait-set member. Each element sent while the queue is
// registered posts one readiness event, so a queue contributes up to
// its length to the set's event capacity. Overwrite posts an event
// even when it replaces instead of adds, which is why overwriting a
// set member is forbidden: its event count is unbounded by the
// queue's length. Tokens are matched by identity.
package queue
