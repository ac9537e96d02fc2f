// Package kernel supplies the primitives the object wrappers are
// built on: the tick timebase, the handle registry, the event set
// backing wait-set multiplexing, and the blocking condition used to
// implement timed waits.
//
// The package deliberately adds no scheduling policy. Goroutines are
// the tasks and the Go runtime is the scheduler; "ISR context" is a
// calling convention (never block, report the woken flag) rather than
// a hardware mode.
//
// # Handles
//
// Every created object registers itself and receives an opaque
// Handle. Handle 0 is reserved and always invalid. A handle is either
// exactly the identity of one live object or unset; it is assigned
// once by a successful create and cleared only by destruction.
// Lifecycle transitions are published to subscribed Observers and
// logged at Debug level through the package logger.
//
// # Timeouts
//
// Blocking operations take a Ticks budget. NoWait polls and returns
// immediately; Forever blocks without bound; any other value is a
// timeout measured in TickPeriod units. Timeout is a first-class
// result, not an error.
package kernel
