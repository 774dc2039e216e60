package soft

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/texpaint/backend"
	"github.com/gogpu/texpaint/gpucore"
	"github.com/gogpu/texpaint/internal/parallel"
)

func init() {
	backend.Register(backend.NameSoft, func() (gpucore.Device, error) {
		return New(), nil
	})
}

// Queue family indices.
const (
	FamilyGraphics = 0
	FamilyTransfer = 1
)

const defaultQueueDepth = 64

// Option configures a soft Device.
type Option func(*options)

type options struct {
	workers      int
	sharedFamily bool
	queueDepth   int
}

// WithWorkers sets the number of kernel worker goroutines.
// 0 (the default) uses GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithQueueDepth sets how many submissions each queue holds before Submit
// blocks. Values below 1 keep the default of 64.
func WithQueueDepth(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.queueDepth = n
		}
	}
}

// WithSharedTransferFamily makes the transfer queue report the graphics
// family, as on hardware without a dedicated transfer engine. Ownership
// barriers then degrade to plain execution barriers.
func WithSharedTransferFamily() Option {
	return func(o *options) { o.sharedFamily = true }
}

// Device is a CPU implementation of gpucore.Device.
type Device struct {
	pool   *parallel.WorkerPool
	queues [2]*queue

	closed atomic.Bool
	lostMu sync.Mutex
	lost   error

	wg sync.WaitGroup
}

// New creates a soft device and starts its queues.
func New(opts ...Option) *Device {
	o := options{queueDepth: defaultQueueDepth}
	for _, opt := range opts {
		opt(&o)
	}

	d := &Device{pool: parallel.NewWorkerPool(o.workers)}
	transferFamily := FamilyTransfer
	if o.sharedFamily {
		transferFamily = FamilyGraphics
	}
	d.queues[gpucore.QueueGraphics] = newQueue(d, gpucore.QueueGraphics, FamilyGraphics, o.queueDepth)
	d.queues[gpucore.QueueTransfer] = newQueue(d, gpucore.QueueTransfer, transferFamily, o.queueDepth)

	for _, q := range d.queues {
		d.wg.Add(1)
		go q.run()
	}
	backend.Logger().Debug("soft: device created",
		"workers", d.pool.Workers(),
		"transferFamily", transferFamily)
	return d
}

// Name implements gpucore.Device.
func (d *Device) Name() string { return backend.NameSoft }

// Queue implements gpucore.Device.
func (d *Device) Queue(class gpucore.QueueClass) gpucore.Queue {
	return d.queues[class]
}

// CreateImage implements gpucore.Device.
func (d *Device) CreateImage(desc gpucore.ImageDesc) (gpucore.Image, error) {
	if d.closed.Load() {
		return nil, gpucore.ErrDeviceClosed
	}
	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, fmt.Errorf("soft: image %q: invalid size %dx%d", desc.Label, desc.Width, desc.Height)
	}
	img := &image{
		dev:   d,
		label: desc.Label,
		w:     desc.Width,
		h:     desc.Height,
		data:  make([]byte, desc.Width*desc.Height*gpucore.BytesPerPixel),
	}
	img.owner.Store(FamilyGraphics)
	return img, nil
}

// DestroyImage implements gpucore.Device.
func (d *Device) DestroyImage(img gpucore.Image) {
	if i, ok := img.(*image); ok && i.dev == d {
		i.destroyed.Store(true)
	}
}

// CreateSurfaceMap implements gpucore.Device.
func (d *Device) CreateSurfaceMap(label string, size int, positions []float32) (gpucore.SurfaceMap, error) {
	if d.closed.Load() {
		return nil, gpucore.ErrDeviceClosed
	}
	if len(positions) != size*size*4 {
		return nil, fmt.Errorf("soft: surface map %q: %w: %d floats for size %d",
			label, gpucore.ErrSizeMismatch, len(positions), size)
	}
	return &surfaceMap{dev: d, label: label, size: size, pos: append([]float32(nil), positions...)}, nil
}

// DestroySurfaceMap implements gpucore.Device.
func (d *Device) DestroySurfaceMap(gpucore.SurfaceMap) {}

// CreatePipeline implements gpucore.Device.
func (d *Device) CreatePipeline(kind gpucore.PipelineKind) (gpucore.Pipeline, error) {
	if d.closed.Load() {
		return nil, gpucore.ErrDeviceClosed
	}
	switch kind {
	case gpucore.PipelineBlendOver, gpucore.PipelineBlendErase, gpucore.PipelineSplat:
		return &pipeline{dev: d, kind: kind}, nil
	default:
		return nil, fmt.Errorf("soft: %w: %v", gpucore.ErrPipelineKind, kind)
	}
}

// DestroyPipeline implements gpucore.Device.
func (d *Device) DestroyPipeline(gpucore.Pipeline) {}

// NewEncoder implements gpucore.Device.
func (d *Device) NewEncoder(class gpucore.QueueClass, label string) (gpucore.Encoder, error) {
	if d.closed.Load() {
		return nil, gpucore.ErrDeviceClosed
	}
	if class != gpucore.QueueGraphics && class != gpucore.QueueTransfer {
		return nil, fmt.Errorf("soft: unknown queue class %v", class)
	}
	return &encoder{dev: d, class: class, label: label}, nil
}

// NewSemaphore implements gpucore.Device.
func (d *Device) NewSemaphore(label string) gpucore.Semaphore {
	return &semaphore{dev: d, label: label, ch: make(chan struct{})}
}

// WaitIdle implements gpucore.Device.
func (d *Device) WaitIdle(ctx context.Context) error {
	for _, q := range d.queues {
		if err := gpucore.Wait(ctx, q.lastFence()); err != nil && ctx.Err() != nil {
			return err
		}
	}
	return d.lostErr()
}

// Close implements gpucore.Device. Queued work runs to completion first.
func (d *Device) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	for _, q := range d.queues {
		q.close()
	}
	d.wg.Wait()
	d.pool.Close()
	backend.Logger().Debug("soft: device closed")
	return nil
}

func (d *Device) lostErr() error {
	d.lostMu.Lock()
	defer d.lostMu.Unlock()
	return d.lost
}

func (d *Device) markLost(err error) {
	d.lostMu.Lock()
	defer d.lostMu.Unlock()
	if d.lost == nil {
		d.lost = err
		backend.Logger().Error("soft: device lost", "err", err)
	}
}

// fence is the completion handle of one submission.
type fence struct {
	done chan struct{}
	err  error
}

func newFence() *fence { return &fence{done: make(chan struct{})} }

func (f *fence) complete(err error) {
	f.err = err
	close(f.done)
}

// Wait implements gpucore.Fence.
func (f *fence) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done implements gpucore.Fence.
func (f *fence) Done() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

var errResubmit = errors.New("soft: command buffer already submitted")
