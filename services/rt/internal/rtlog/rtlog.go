// Package rtlog holds the runtime's structured logger.
package rtlog

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var logger atomic.Pointer[zap.Logger]

func init() { logger.Store(zap.NewNop()) }

// Logger returns the runtime logger. It is a no-op logger until SetLogger is called.
func Logger() *zap.Logger { return logger.Load() }

// SetLogger replaces the runtime logger. A nil logger restores the no-op logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger.Store(l)
}

// Named returns a child logger for one component, e.g. "evq" or "executor".
func Named(component string) *zap.Logger { return Logger().Named(component) }
