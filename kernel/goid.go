package kernel

import (
	"runtime"
	"strconv"
	"strings"
)

// GoroutineID returns the runtime's id for the calling goroutine.
//
// Go exposes no goroutine-local storage, so lock ownership (mutex
// give-by-owner checks, recursive takes) and task identity key off
// the id printed in stack headers. The parse is cheap relative to a
// blocking kernel call and the format has been stable since Go 1.
func GoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	// Header shape: "goroutine 123 [running]:"
	s := strings.TrimPrefix(string(buf[:n]), "goroutine ")
	s, _, _ = strings.Cut(s, " ")
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		Assertf("unparsable goroutine header %q", buf[:n])
	}
	return id
}
