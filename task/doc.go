// Package task runs named goroutines with a kernel identity and a
// direct-to-task notification slot.
//
// Each task carries one 32-bit notification value. Notify updates it
// under one of five actions and marks it pending; NotifyWait blocks
// until a notification arrives. NotifyGive and NotifyTake specialize
// the slot into a lightweight counting semaphore, cheaper than a
// shared object when exactly one receiver exists.
//
// Priority is recorded metadata only. Scheduling belongs to the Go
// runtime; a higher number does not preempt anything.
package task
