package backend

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/texpaint/gpucore"
)

// Backend names.
const (
	NameWGPU = "wgpu"
	NameSoft = "soft"
)

// ErrBackendNotAvailable is returned when a requested backend is not
// registered or no registered backend could open a device.
var ErrBackendNotAvailable = errors.New("backend: not available")

// Factory opens a new device. A factory that cannot open its device (no
// adapter, missing driver) returns an error and Default moves on.
type Factory func() (gpucore.Device, error)

// nopHandler silently discards all log records.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

// Logger returns the logger shared by all backends.
func Logger() *slog.Logger { return loggerPtr.Load() }

// SetLogger sets the logger shared by all backends. nil restores the
// silent default. texpaint.SetLogger calls this.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}
