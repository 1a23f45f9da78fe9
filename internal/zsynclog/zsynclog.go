// Package zsynclog defines the logging interface used across zsyncgo.
package zsynclog

import (
	"log"

	"github.com/dustin/go-humanize"
)

// Logger logs progress and diagnostic messages.
type Logger interface {
	// Printf logs a message to the underlying output. Arguments are
	// handled in the manner of fmt.Printf.
	Printf(msg string, a ...interface{})
}

// instance is the package-level logger. Defaults to the standard log
// package, which prints to stderr.
var instance Logger = log.Default()

// Printf logs a message using the current logger.
func Printf(msg string, a ...interface{}) {
	instance.Printf(msg, a...)
}

// SetLogger overrides the logger used by zsyncgo. Should be called once,
// before a job starts scanning.
func SetLogger(logger Logger) {
	instance = logger
}

// Bytes renders a byte count for progress messages, e.g. "1.5 MiB".
func Bytes(n uint64) string {
	return humanize.IBytes(n)
}
