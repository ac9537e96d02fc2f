package kernel

import (
	"sync"

	"go.uber.org/zap"
)

var loggerState struct {
	mu     sync.RWMutex
	logger *zap.Logger
}

// Logger returns the kernel's logger. It is a no-op logger until
// SetLogger installs a real one.
func Logger() *zap.Logger {
	loggerState.mu.RLock()
	l := loggerState.logger
	loggerState.mu.RUnlock()
	if l != nil {
		return l
	}
	return zap.NewNop()
}

// SetLogger installs the logger used for lifecycle tracing and
// assertion reporting. Passing nil reverts to the no-op logger.
func SetLogger(l *zap.Logger) {
	loggerState.mu.Lock()
	loggerState.logger = l
	loggerState.mu.Unlock()
}
