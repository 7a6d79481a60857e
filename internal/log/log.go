// Package log centralizes structured logging for the module, wrapping
// github.com/charmbracelet/log so each component holds its own named
// *log.Logger.
package log

import (
	"os"

	charm "github.com/charmbracelet/log"
)

// New returns a logger prefixed with component, writing to stderr at
// the level configured for the whole process via SetLevel.
func New(component string) *charm.Logger {
	l := charm.NewWithOptions(os.Stderr, charm.Options{
		ReportTimestamp: true,
		Prefix:          component,
	})
	l.SetLevel(level)
	return l
}

var level = charm.InfoLevel

// SetLevel sets the level newly constructed loggers are created with.
// Loggers already handed out via New are unaffected.
func SetLevel(l charm.Level) {
	level = l
}
