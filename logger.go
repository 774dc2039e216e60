package texpaint

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/texpaint/backend"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for texpaint and its backends.
// By default texpaint produces no log output. Pass nil to restore the
// silent default.
//
// Log levels used by texpaint:
//   - [slog.LevelDebug]: per-phase detail (submissions, transfer states)
//   - [slog.LevelInfo]: lifecycle events (device opened, layer changed,
//     pipeline rebuilt)
//   - [slog.LevelWarn]: recoverable oddities (nothing to undo, backend
//     fallback)
//
// Example:
//
//	texpaint.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	backend.SetLogger(l)
}

// Logger returns the current logger.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
