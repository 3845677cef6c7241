// Package logger provides the module-wide structured logger, built on
// github.com/sirupsen/logrus so every package attaches the same field
// vocabulary (`selector`, `part`, `state`, `attempt`) instead of
// formatting ad hoc strings.
package logger

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	global *logrus.Logger
	file   *os.File
	mu     sync.Mutex
)

func init() {
	global = logrus.New()
	global.SetOutput(os.Stderr)
	global.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

// Init redirects the global logger's output to logPath, replacing
// whichever file (if any) a previous call opened.
func Init(logPath string) error {
	mu.Lock()
	defer mu.Unlock()

	if file != nil {
		file.Close()
	}
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	file = f
	global.SetOutput(f)
	return nil
}

// Close closes the log file opened by Init, if any, and restores stderr
// output.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if file != nil {
		file.Close()
		file = nil
	}
	global.SetOutput(os.Stderr)
}

// SetLevel adjusts the global logger's verbosity, e.g. from a --verbose
// CLI flag.
func SetLevel(level logrus.Level) {
	global.SetLevel(level)
}

// Log returns the package-level logrus.Logger for callers that want to
// attach their own structured fields via WithFields/WithField.
func Log() *logrus.Logger {
	return global
}

// WithSelector returns an entry carrying the selector field set: which
// selector, which part index, which element state, and which poll
// attempt produced this entry.
func WithSelector(sel string, part int, state string, attempt int) *logrus.Entry {
	return global.WithFields(logrus.Fields{
		"selector": sel,
		"part":     part,
		"state":    state,
		"attempt":  attempt,
	})
}

// Info/Debug/Warn/Error are printf-style convenience wrappers over the
// global logrus.Logger, kept for call sites that log a single formatted
// line without attaching structured fields.
func Info(format string, v ...interface{})  { global.Infof(format, v...) }
func Debug(format string, v ...interface{}) { global.Debugf(format, v...) }
func Warn(format string, v ...interface{})  { global.Warnf(format, v...) }
func Error(format string, v ...interface{}) { global.Errorf(format, v...) }
