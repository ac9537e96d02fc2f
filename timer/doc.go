// Package timer provides one-shot and auto-reload software timers.
//
// A timer's callback runs on the Go runtime's timer goroutine, which
// stands in for the kernel's timer service task. Callbacks must not
// block; a long callback delays every other timer behind it. One-shot
// timers go dormant after firing and an explicit Start or Reset
// re-arms them. Auto-reload timers re-arm themselves from the moment
// the callback was scheduled.
//
// Timers are not wait-set members. A callback that needs to wake a
// selector sends to a queue or gives a semaphore that is.
package timer
