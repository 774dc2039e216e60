package texpaint

import (
	"errors"

	"github.com/gogpu/texpaint/internal/image"
)

// Compositor errors.
var (
	// ErrInvalidConfig is returned by NewCompositor for invalid options.
	ErrInvalidConfig = errors.New("texpaint: invalid configuration")

	// ErrSizeMismatch is returned by Attach when the layer store or undo
	// cache was built for another texture size.
	ErrSizeMismatch = errors.New("texpaint: texture size mismatch")

	// ErrNotAttached is returned by Paint before Attach, or when called
	// with stores other than the attached ones.
	ErrNotAttached = errors.New("texpaint: compositor not attached")

	// ErrTransferInFlight is returned when an undo transfer starts while
	// another has not returned to idle.
	ErrTransferInFlight = errors.New("texpaint: transfer in flight")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("texpaint: compositor closed")

	// ErrUnsupportedFormat is returned by SavePaintImage for a file
	// extension other than .png, .jpg or .jpeg.
	ErrUnsupportedFormat = image.ErrUnsupportedFormat
)
