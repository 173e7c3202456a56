// Package logrus adapts a logrus entry to batchload.Logger.
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/batchload"
)

type Logger struct{ E *logrus.Entry }

var _ batchload.Logger = Logger{}

func New(l *logrus.Logger) Logger {
	return Logger{E: logrus.NewEntry(l).WithField("component", "batchload")}
}

func (l Logger) Debug(msg string, f batchload.Fields) { l.with(f).Debug(msg) }
func (l Logger) Info(msg string, f batchload.Fields)  { l.with(f).Info(msg) }
func (l Logger) Warn(msg string, f batchload.Fields)  { l.with(f).Warn(msg) }
func (l Logger) Error(msg string, f batchload.Fields) { l.with(f).Error(msg) }

func (l Logger) with(f batchload.Fields) *logrus.Entry {
	if len(f) == 0 {
		return l.E
	}
	e := l.E
	if err, ok := f["err"].(error); ok {
		e = e.WithError(err)
	}
	fs := make(logrus.Fields, len(f))
	for k, v := range f {
		if k != "err" {
			fs[k] = v
		}
	}
	return e.WithFields(fs)
}
