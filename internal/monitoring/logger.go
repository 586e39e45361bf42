// Package monitoring holds the diagnostic logger shared by the detection
// packages.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It is muted until main
// installs a real logger with SetLogger, so library code may call it freely.
var Logf func(format string, v ...interface{}) = func(string, ...interface{}) {}

// SetLogger replaces the package logger. Passing nil mutes it.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// EnableStdLogger routes diagnostics to the standard logger.
func EnableStdLogger() {
	SetLogger(log.Printf)
}
