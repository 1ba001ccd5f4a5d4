// Package logging defines the small logging seam shared by the compiler
// and the control bridge, so neither writes to stdout directly.
package logging

import (
	"log"
	"os"
)

// Logger receives diagnostic and warning output from library code.
// Callers that don't want any output supply a Logger whose methods are
// no-ops rather than passing nil.
type Logger interface {
	Printf(format string, args ...any)
	Warnf(format string, args ...any)
}

// StdLogger backs Logger with the standard library's log.Logger, the
// same dependency-free approach the teacher uses for its own
// diagnostics.
type StdLogger struct {
	*log.Logger
}

// NewStdLogger returns a StdLogger writing to os.Stderr with a
// "filterchain: " prefix.
func NewStdLogger() *StdLogger {
	return &StdLogger{Logger: log.New(os.Stderr, "filterchain: ", log.LstdFlags)}
}

func (l *StdLogger) Printf(format string, args ...any) { l.Logger.Printf(format, args...) }

func (l *StdLogger) Warnf(format string, args ...any) { l.Logger.Printf("warning: "+format, args...) }

// Nop discards everything; useful for tests that don't want log noise.
type Nop struct{}

func (Nop) Printf(string, ...any) {}
func (Nop) Warnf(string, ...any)  {}
