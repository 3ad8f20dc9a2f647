// Package goroutine provides utilities for running work with panic recovery.
package goroutine

import (
	"fmt"
	"runtime/debug"

	"supportdesk/internal/shared/logger"
)

// SafeGo launches a goroutine with panic recovery. If the goroutine panics,
// the panic is caught and logged with stack trace instead of crashing the process.
func SafeGo(log logger.Interface, name string, fn func()) {
	go func() {
		_ = Run(log, name, func() error {
			fn()
			return nil
		})
	}()
}

// Run calls fn on the current goroutine and converts a panic into an error.
// The panic is logged with its stack trace.
func Run(log logger.Interface, name string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorw("goroutine panicked",
				"goroutine", name,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("%s panicked: %v", name, r)
		}
	}()
	return fn()
}
