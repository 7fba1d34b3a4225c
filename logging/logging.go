// Package logging is the structured-logging collaborator that callers in
// this module (currently cmd/busctl) take as an interface rather than a
// concrete type, so they can swap in their own backend.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the minimal surface its callers depend on. It is
// satisfied by *Logrus below, and by anything else with the same shape —
// nothing in this module type-asserts down to a concrete logger.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})

	// WithField returns a derived logger that tags every subsequent
	// entry with key/value, for following one peer or one transaction
	// across a burst of log lines.
	WithField(key string, value interface{}) Logger
}

// Logrus is the default Logger, backed by a *logrus.Entry. Nil-safe
// construction is deliberately not supported: call New to get one.
type Logrus struct {
	entry *logrus.Entry
}

// New returns a Logger that writes structured, leveled entries to
// stderr. debug toggles whether Debugf entries are emitted at all.
func New(debug bool) *Logrus {
	l := logrus.New()
	l.Out = os.Stderr
	l.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	if debug {
		l.SetLevel(logrus.DebugLevel)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
	return &Logrus{entry: logrus.NewEntry(l)}
}

func (l *Logrus) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *Logrus) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *Logrus) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *Logrus) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }
func (l *Logrus) Fatalf(format string, args ...interface{}) { l.entry.Fatalf(format, args...) }

func (l *Logrus) WithField(key string, value interface{}) Logger {
	return &Logrus{entry: l.entry.WithField(key, value)}
}

// Noop discards everything. Useful for tests that want to exercise a
// code path depending on a Logger without any output.
type Noop struct{}

func (Noop) Debugf(string, ...interface{}) {}
func (Noop) Infof(string, ...interface{})  {}
func (Noop) Warnf(string, ...interface{})  {}
func (Noop) Errorf(string, ...interface{}) {}
func (Noop) Fatalf(string, ...interface{}) {}
func (Noop) WithField(string, interface{}) Logger { return Noop{} }
