package gpucore

import (
	"errors"
	"fmt"
)

// Device errors.
var (
	// ErrDeviceClosed is returned when operating on a closed device.
	ErrDeviceClosed = errors.New("gpucore: device closed")

	// ErrOwnership is returned when an image is used by a queue family that
	// does not currently own it.
	ErrOwnership = errors.New("gpucore: image not owned by executing queue family")

	// ErrSemaphoreReuse is returned when a binary semaphore is signaled or
	// awaited more than once.
	ErrSemaphoreReuse = errors.New("gpucore: semaphore reused")

	// ErrSizeMismatch is returned when source and destination sizes differ.
	ErrSizeMismatch = errors.New("gpucore: size mismatch")

	// ErrForeignResource is returned when a resource created by another
	// device or backend is passed in.
	ErrForeignResource = errors.New("gpucore: foreign resource")

	// ErrEncoderFinished is returned when recording into a finished encoder.
	ErrEncoderFinished = errors.New("gpucore: encoder already finished")

	// ErrWrongQueue is returned when a command buffer is submitted to a
	// queue of a different class than it was recorded for.
	ErrWrongQueue = errors.New("gpucore: command buffer recorded for another queue")

	// ErrQueueCapability is returned when a command is recorded for a
	// queue class that cannot execute it (e.g. a blend on the transfer
	// queue).
	ErrQueueCapability = errors.New("gpucore: command not supported by queue class")

	// ErrPipelineKind is returned when a pipeline of the wrong kind is
	// bound to a command.
	ErrPipelineKind = errors.New("gpucore: wrong pipeline kind")
)

// BytesPerPixel is the size of one RGBA8 texel.
const BytesPerPixel = 4

// TextureBytes returns the byte size of a square RGBA8 texture.
func TextureBytes(size int) int {
	return size * size * BytesPerPixel
}

// QueueClass selects the kind of queue work is recorded for.
type QueueClass uint8

const (
	// QueueGraphics is the rendering and compute capable queue.
	QueueGraphics QueueClass = iota

	// QueueTransfer is the copy-only queue used for host/device movement.
	QueueTransfer
)

// String returns a human-readable name for the queue class.
func (c QueueClass) String() string {
	switch c {
	case QueueGraphics:
		return "graphics"
	case QueueTransfer:
		return "transfer"
	default:
		return fmt.Sprintf("QueueClass(%d)", c)
	}
}

// PipelineKind identifies a compute pipeline a backend knows how to build.
type PipelineKind uint8

const (
	// PipelineBlendOver composites premultiplied source over destination.
	PipelineBlendOver PipelineKind = iota

	// PipelineBlendErase removes destination coverage by source alpha
	// (Porter-Duff destination-out).
	PipelineBlendErase

	// PipelineSplat rasterizes one brush splat into texture space.
	PipelineSplat
)

// String returns a human-readable name for the pipeline kind.
func (k PipelineKind) String() string {
	switch k {
	case PipelineBlendOver:
		return "blend-over"
	case PipelineBlendErase:
		return "blend-erase"
	case PipelineSplat:
		return "splat"
	default:
		return fmt.Sprintf("PipelineKind(%d)", k)
	}
}

// ImageDesc describes a device-local RGBA8 image.
type ImageDesc struct {
	Label  string
	Width  int
	Height int
}

// ImageBarrier orders access to an image and optionally moves it between
// queue families. The executing queue's family decides whether the record
// acts as the release (family == SrcFamily) or the acquire
// (family == DstFamily) half of an ownership transfer.
type ImageBarrier struct {
	Image     Image
	SrcFamily int
	DstFamily int
}

// IsOwnershipTransfer reports whether the barrier moves the image between
// two different queue families.
func (b ImageBarrier) IsOwnershipTransfer() bool {
	return b.SrcFamily != b.DstFamily
}

// SubmitSync lists the semaphores a submission waits on before executing
// and signals after completing.
type SubmitSync struct {
	Wait   []Semaphore
	Signal []Semaphore
}
