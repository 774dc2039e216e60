package gpucore

import "context"

// Device creates resources and hands out queues and encoders.
//
// A Device is driven from a single goroutine; backends execute submitted
// work asynchronously on their own queues.
type Device interface {
	// Name returns the backend identifier (e.g. "soft", "wgpu").
	Name() string

	// Queue returns the queue for the given class.
	Queue(class QueueClass) Queue

	// CreateImage allocates a device-local RGBA8 image cleared to zero and
	// owned by the graphics queue family.
	CreateImage(desc ImageDesc) (Image, error)

	// DestroyImage releases an image. The image must not be in use.
	DestroyImage(img Image)

	// CreateSurfaceMap uploads per-texel world positions (x, y, z, valid;
	// four float32 per texel, size*size texels) for the splat pipeline.
	CreateSurfaceMap(label string, size int, positions []float32) (SurfaceMap, error)

	// DestroySurfaceMap releases a surface map. It must not be in use.
	DestroySurfaceMap(m SurfaceMap)

	// CreatePipeline builds the compute pipeline of the given kind.
	CreatePipeline(kind PipelineKind) (Pipeline, error)

	// DestroyPipeline releases a pipeline. It must not be in use.
	DestroyPipeline(p Pipeline)

	// NewEncoder starts recording commands for a queue class.
	NewEncoder(class QueueClass, label string) (Encoder, error)

	// NewSemaphore creates a binary semaphore, signaled once and awaited
	// once.
	NewSemaphore(label string) Semaphore

	// WaitIdle blocks until all submitted work has completed.
	WaitIdle(ctx context.Context) error

	// Close waits for outstanding work and releases the device.
	Close() error
}

// Queue executes command buffers in submission order, subject to the
// semaphores each submission waits on.
type Queue interface {
	// Class returns the queue class.
	Class() QueueClass

	// Family returns the queue family index used in ownership barriers.
	Family() int

	// Submit enqueues a command buffer. The returned fence completes when
	// the command buffer has executed and its semaphores are signaled.
	Submit(cb CommandBuffer, sync SubmitSync) (Fence, error)
}

// Encoder records commands. Recording errors are deferred to Finish.
type Encoder interface {
	// Barrier records an execution barrier or one half of an ownership
	// transfer.
	Barrier(b ImageBarrier)

	// Clear sets every texel of img to transparent black.
	Clear(img Image)

	// CopyBufferToImage uploads a host buffer into an image.
	CopyBufferToImage(src *HostBuffer, dst Image)

	// CopyImageToBuffer reads an image back into a host buffer.
	CopyImageToBuffer(src Image, dst *HostBuffer)

	// Blend composites src into dst with a blend pipeline, scaling source
	// coverage by opacity.
	Blend(p Pipeline, dst, src Image, opacity float32)

	// Splat writes one brush splat into dst using the splat pipeline.
	Splat(p Pipeline, dst Image, surface SurfaceMap, params SplatParams)

	// Finish ends recording.
	Finish() (CommandBuffer, error)
}

// Image is a device-local RGBA8 image.
type Image interface {
	Label() string
	Width() int
	Height() int
}

// SurfaceMap is a device-resident texel → world position table.
type SurfaceMap interface {
	Label() string
	Size() int
}

// Pipeline is a compiled compute pipeline.
type Pipeline interface {
	Kind() PipelineKind
}

// CommandBuffer is a finished recording bound to one queue class.
type CommandBuffer interface {
	Label() string
	Class() QueueClass
}

// Semaphore orders one submission after another, possibly across queues.
type Semaphore interface {
	Label() string
}

// Fence is the host-visible completion handle of a submission.
type Fence interface {
	// Wait blocks until the submission completes or ctx is done. It
	// returns the execution error of the submission, if any.
	Wait(ctx context.Context) error

	// Done reports whether the submission has completed, without blocking.
	Done() bool
}

// Wait waits on f, treating a nil fence as already complete.
func Wait(ctx context.Context, f Fence) error {
	if f == nil {
		return nil
	}
	return f.Wait(ctx)
}
