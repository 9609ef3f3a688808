package logger

import (
	"strings"
	"sync"
)

// Log levels accepted by log_level.
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

var (
	mu     sync.Mutex
	global *Logger
)

// Get returns the process-wide logger. The first call builds it; later calls
// move the existing logger (and every Named child) to level.
func Get(level string) *Logger {
	mu.Lock()
	defer mu.Unlock()
	level = normalizeLevel(level)
	if global == nil {
		global = newZapLogger(level)
		return global
	}
	global.SetLevel(level)
	return global
}

// ValidLevel reports whether s names one of the known levels.
func ValidLevel(s string) bool {
	switch normalizeLevel(s) {
	case DebugLevel, InfoLevel, WarnLevel, ErrorLevel:
		return true
	default:
		return false
	}
}

func normalizeLevel(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
