package kernel

import "fmt"

// Assertf reports an unrecoverable precondition violation and halts.
// It mirrors a hardware kernel's configASSERT: the violations routed
// here (double-delete, destroying a wait-set member, overflowing a
// wait set's event capacity) have no safe recovery path, so they are
// logged and turned into a panic instead of an error value.
func Assertf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	Logger().Error("kernel assertion failed: " + msg)
	panic("kernel: " + msg)
}
