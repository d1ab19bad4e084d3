// Package logging is the thin shim gating verbosity behind the
// PIR_LOG_LEVEL environment variable. It wraps the standard log package
// (log.Printf, log.Fatalf) rather than introducing a structured logging
// dependency.
package logging

import (
	"log"
	"os"
	"strings"
)

// Level is a verbosity tier, ordered least to most verbose.
type Level int

const (
	LevelError Level = iota
	LevelInfo
	LevelDebug
)

func levelFromEnv() Level {
	switch strings.ToLower(os.Getenv("PIR_LOG_LEVEL")) {
	case "debug":
		return LevelDebug
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// current is read once at package init; a benchmark or long-lived server
// process that wants to change it mid-run can call SetLevel directly.
var current = levelFromEnv()

// SetLevel overrides the level PIR_LOG_LEVEL set at startup.
func SetLevel(l Level) { current = l }

// Debugf logs only when PIR_LOG_LEVEL=debug.
func Debugf(format string, args ...interface{}) {
	if current >= LevelDebug {
		log.Printf("[debug] "+format, args...)
	}
}

// Infof logs at LevelInfo and above (the default).
func Infof(format string, args ...interface{}) {
	if current >= LevelInfo {
		log.Printf("[info] "+format, args...)
	}
}

// Errorf logs unconditionally; errors are never suppressed.
func Errorf(format string, args ...interface{}) {
	log.Printf("[error] "+format, args...)
}

// Fatalf logs unconditionally and terminates the process with a non-zero
// exit code.
func Fatalf(format string, args ...interface{}) {
	log.Fatalf("[fatal] "+format, args...)
}
