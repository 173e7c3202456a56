// Package zap adapts a *zap.Logger to batchload.Logger.
package zap

import (
	"sort"

	"go.uber.org/zap"

	"github.com/unkn0wn-root/batchload"
)

// Logger writes loader events to L. Scope and loader ids arrive as fields,
// so a per-request child logger (L.With(...)) is rarely needed.
type Logger struct{ L *zap.Logger }

var _ batchload.Logger = Logger{}

func New(l *zap.Logger) Logger { return Logger{L: l.Named("batchload")} }

func (z Logger) Debug(msg string, f batchload.Fields) { z.L.Debug(msg, fields(f)...) }
func (z Logger) Info(msg string, f batchload.Fields)  { z.L.Info(msg, fields(f)...) }
func (z Logger) Warn(msg string, f batchload.Fields)  { z.L.Warn(msg, fields(f)...) }
func (z Logger) Error(msg string, f batchload.Fields) { z.L.Error(msg, fields(f)...) }

func fields(f batchload.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(f))
	for _, k := range keys {
		if err, ok := f[k].(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, f[k]))
	}
	return out
}
