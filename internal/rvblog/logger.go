// Package rvblog is the package-level diagnostic logger shared by every
// engine component. Components never call the standard log package
// directly; they call rvblog.Logf/Debugf so that test harnesses and
// embedding applications can redirect or silence output.
package rvblog

import (
	"log"
	"sync/atomic"
)

// Logf is the package-level logger. It defaults to log.Printf but may be
// replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

var debugEnabled atomic.Bool

// SetDebug toggles Debugf output. Off by default so normal propagation
// runs stay quiet; step-by-step wavefront tracing turns this on.
func SetDebug(enabled bool) {
	debugEnabled.Store(enabled)
}

// Debugf logs only when SetDebug(true) has been called. Used for the
// per-step wavefront tracing that would otherwise flood normal runs.
func Debugf(format string, v ...interface{}) {
	if debugEnabled.Load() {
		Logf(format, v...)
	}
}

// Warnf reports a degraded-but-continuing condition: collision
// refinement exceeded, non-finite integration, etc. (spec §7). These
// never abort the task; they are telemetry only.
func Warnf(format string, v ...interface{}) {
	Logf("WARN: "+format, v...)
}
