// Package logger provides coarse startup logging plus the shared hclog root
// that components derive named loggers from.
package logger

import (
	"log"
	"os"

	"github.com/hashicorp/go-hclog"
)

// Info logs informational messages
func Info(format string, args ...interface{}) {
	log.Printf("INFO: "+format, args...)
}

// Warn logs warning messages
func Warn(format string, args ...interface{}) {
	log.Printf("WARN: "+format, args...)
}

// Error logs error messages
func Error(format string, args ...interface{}) {
	log.Printf("ERROR: "+format, args...)
}

// Debug logs debug messages
func Debug(format string, args ...interface{}) {
	log.Printf("DEBUG: "+format, args...)
}

// New creates the root structured logger components hang their named
// sub-loggers off.
func New(level string) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:   "kinetra",
		Level:  hclog.LevelFromString(level),
		Output: os.Stderr,
	})
}
