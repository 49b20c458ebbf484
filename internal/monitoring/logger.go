// Package monitoring holds the diagnostic logger shared by the motion
// packages and a counter for throttling chatty output.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Throttle lets one call in every N through. The zero value, or N <= 1,
// lets every call through.
type Throttle struct {
	N     int
	count int
}

// NewThrottle creates a Throttle that fires on every nth call.
func NewThrottle(n int) *Throttle {
	return &Throttle{N: n}
}

// Allow advances the counter and reports whether this call should emit.
func (t *Throttle) Allow() bool {
	t.count++
	if t.N <= 1 {
		return true
	}
	return t.count%t.N == 0
}

// Count returns the number of Allow calls so far.
func (t *Throttle) Count() int { return t.count }
