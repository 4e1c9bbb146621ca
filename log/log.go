// Package log wraps logrus the way nabbar-golib/logger wraps it for its
// consumers: a small interface the rest of the module programs against,
// plus structured fields, rather than importing logrus directly everywhere.
package log

import (
	"github.com/sirupsen/logrus"
)

// Fields carries structured context attached to one log entry.
type Fields map[string]interface{}

// Logger is the minimal surface the loop needs. A *logrus.Logger satisfies
// it through the adapter returned by New; tests can swap in Noop().
type Logger interface {
	Debug(msg string, fields Fields)
	Info(msg string, fields Fields)
	Warn(msg string, fields Fields)
	Error(msg string, fields Fields)
}

type logrusLogger struct {
	l *logrus.Logger
}

// New wraps an existing *logrus.Logger. Pass nil to get logrus's standard
// logger at its default level.
func New(l *logrus.Logger) Logger {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &logrusLogger{l: l}
}

func (a *logrusLogger) entry(f Fields) *logrus.Entry {
	return a.l.WithFields(logrus.Fields(f))
}

func (a *logrusLogger) Debug(msg string, f Fields) { a.entry(f).Debug(msg) }
func (a *logrusLogger) Info(msg string, f Fields)  { a.entry(f).Info(msg) }
func (a *logrusLogger) Warn(msg string, f Fields)  { a.entry(f).Warn(msg) }
func (a *logrusLogger) Error(msg string, f Fields) { a.entry(f).Error(msg) }

type noopLogger struct{}

// Noop discards everything; used by tests and by Loop when no logger is configured.
func Noop() Logger { return noopLogger{} }

func (noopLogger) Debug(string, Fields) {}
func (noopLogger) Info(string, Fields)  {}
func (noopLogger) Warn(string, Fields)  {}
func (noopLogger) Error(string, Fields) {}
