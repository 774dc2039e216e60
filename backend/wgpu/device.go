package wgpu

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	_ "github.com/gogpu/wgpu/hal/vulkan" // register the Vulkan HAL backend

	"github.com/gogpu/texpaint/backend"
	"github.com/gogpu/texpaint/gpucore"
)

func init() {
	backend.Register(backend.NameWGPU, func() (gpucore.Device, error) {
		return New()
	})
}

// Family is the queue family index reported by both queues. The device
// drives one hal queue, so ownership barriers between the graphics and
// transfer classes degrade to plain execution barriers.
const Family = 0

const defaultPollInterval = 100 * time.Microsecond

var (
	errNoAdapter   = errors.New("wgpu: no GPU adapters found")
	errResubmit    = errors.New("wgpu: command buffer already submitted")
	errUnsignaled  = errors.New("wgpu: wait on a semaphore with no submitted signal")
	errNilHAL      = errors.New("wgpu: hal device and queue are required")
	errImageDouble = errors.New("wgpu: image destroyed twice")
)

// Option configures a Device.
type Option func(*options)

type options struct {
	variant gputypes.Backend
	poll    time.Duration
}

// WithBackend selects the HAL backend New opens. The default is Vulkan.
// It also decides the shader source handed to the HAL: SPIR-V for Vulkan,
// WGSL otherwise.
func WithBackend(v gputypes.Backend) Option {
	return func(o *options) { o.variant = v }
}

// WithPollInterval sets how often a blocked fence polls the queue.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.poll = d
		}
	}
}

func newOptions(opts []Option) options {
	o := options{variant: gputypes.BackendVulkan, poll: defaultPollInterval}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Device implements gpucore.Device on a wgpu HAL device. Images are
// storage buffers of packed RGBA8 texels; blend and splat run as compute
// kernels.
type Device struct {
	instance hal.Instance // nil for wrapped devices
	hdev     hal.Device
	hq       hal.Queue
	adapter  string
	variant  gputypes.Backend
	poll     time.Duration

	kernels *kernels
	queues  [2]*queue

	// mu serializes use of the hal queue and guards the fields below.
	mu      sync.Mutex
	pending []*submission
	last    *fence
	lost    error

	closed atomic.Bool
}

// New opens the first discrete or integrated GPU of the selected HAL
// backend, falling back to the first adapter found.
func New(opts ...Option) (*Device, error) {
	o := newOptions(opts)
	hb, ok := hal.GetBackend(o.variant)
	if !ok {
		return nil, fmt.Errorf("wgpu: %v backend not available", o.variant)
	}
	instance, err := hb.CreateInstance(&hal.InstanceDescriptor{})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, errNoAdapter
	}
	selected := selectAdapter(adapters)
	open, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("wgpu: open device: %w", err)
	}

	d, err := newDevice(open.Device, open.Queue, o)
	if err != nil {
		open.Device.Destroy()
		instance.Destroy()
		return nil, err
	}
	d.instance = instance
	d.adapter = selected.Info.Name
	backend.Logger().Info("wgpu: device opened",
		"adapter", selected.Info.Name,
		"type", selected.Info.DeviceType.String(),
		"backend", o.variant.String())
	return d, nil
}

// NewFromHAL wraps an already opened HAL device and queue. Close does not
// destroy them.
func NewFromHAL(dev hal.Device, q hal.Queue, opts ...Option) (*Device, error) {
	if dev == nil || q == nil {
		return nil, errNilHAL
	}
	return newDevice(dev, q, newOptions(opts))
}

func selectAdapter(adapters []hal.ExposedAdapter) *hal.ExposedAdapter {
	for i := range adapters {
		switch adapters[i].Info.DeviceType {
		case gputypes.DeviceTypeDiscreteGPU, gputypes.DeviceTypeIntegratedGPU:
			return &adapters[i]
		}
	}
	return &adapters[0]
}

func newDevice(dev hal.Device, q hal.Queue, o options) (*Device, error) {
	k, err := newKernels(dev, o.variant)
	if err != nil {
		return nil, err
	}
	d := &Device{
		hdev:    dev,
		hq:      q,
		variant: o.variant,
		poll:    o.poll,
		kernels: k,
	}
	d.queues[gpucore.QueueGraphics] = &queue{dev: d, class: gpucore.QueueGraphics}
	d.queues[gpucore.QueueTransfer] = &queue{dev: d, class: gpucore.QueueTransfer}
	return d, nil
}

// Name implements gpucore.Device.
func (d *Device) Name() string { return backend.NameWGPU }

// Adapter returns the name of the adapter New opened, or "" for a wrapped
// device.
func (d *Device) Adapter() string { return d.adapter }

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
		return nil, fmt.Errorf("wgpu: image %q: invalid size %dx%d", desc.Label, desc.Width, desc.Height)
	}
	n := uint64(desc.Width * desc.Height * gpucore.BytesPerPixel)
	buf, err := d.hdev.CreateBuffer(&hal.BufferDescriptor{
		Label: desc.Label,
		Size:  n,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: image %q: %w", desc.Label, err)
	}
	if err := d.write(buf, make([]byte, n)); err != nil {
		d.hdev.DestroyBuffer(buf)
		return nil, fmt.Errorf("wgpu: clear image %q: %w", desc.Label, err)
	}
	return &image{dev: d, label: desc.Label, w: desc.Width, h: desc.Height, buf: buf}, nil
}

// DestroyImage implements gpucore.Device.
func (d *Device) DestroyImage(img gpucore.Image) {
	i, ok := img.(*image)
	if !ok || i.dev != d {
		return
	}
	if !i.destroyed.CompareAndSwap(false, true) {
		backend.Logger().Warn("wgpu: destroy image", "label", i.label, "err", errImageDouble)
		return
	}
	d.hdev.DestroyBuffer(i.buf)
}

// CreateSurfaceMap implements gpucore.Device.
func (d *Device) CreateSurfaceMap(label string, size int, positions []float32) (gpucore.SurfaceMap, error) {
	if d.closed.Load() {
		return nil, gpucore.ErrDeviceClosed
	}
	if size <= 0 || len(positions) != size*size*4 {
		return nil, fmt.Errorf("wgpu: surface map %q: %w: %d floats for size %d",
			label, gpucore.ErrSizeMismatch, len(positions), size)
	}
	data := float32Bytes(positions)
	buf, err := d.hdev.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: surface map %q: %w", label, err)
	}
	if err := d.write(buf, data); err != nil {
		d.hdev.DestroyBuffer(buf)
		return nil, fmt.Errorf("wgpu: upload surface map %q: %w", label, err)
	}
	return &surfaceMap{dev: d, label: label, size: size, buf: buf}, nil
}

// DestroySurfaceMap implements gpucore.Device.
func (d *Device) DestroySurfaceMap(m gpucore.SurfaceMap) {
	if sm, ok := m.(*surfaceMap); ok && sm.dev == d {
		d.hdev.DestroyBuffer(sm.buf)
	}
}

// CreatePipeline implements gpucore.Device.
func (d *Device) CreatePipeline(kind gpucore.PipelineKind) (gpucore.Pipeline, error) {
	if d.closed.Load() {
		return nil, gpucore.ErrDeviceClosed
	}
	hp, err := d.kernels.pipeline(d.hdev, kind)
	if err != nil {
		return nil, err
	}
	return &pipeline{dev: d, kind: kind, hp: hp}, nil
}

// DestroyPipeline implements gpucore.Device.
func (d *Device) DestroyPipeline(p gpucore.Pipeline) {
	if pl, ok := p.(*pipeline); ok && pl.dev == d {
		d.hdev.DestroyComputePipeline(pl.hp)
	}
}

// NewEncoder implements gpucore.Device.
func (d *Device) NewEncoder(class gpucore.QueueClass, label string) (gpucore.Encoder, error) {
	if d.closed.Load() {
		return nil, gpucore.ErrDeviceClosed
	}
	if class != gpucore.QueueGraphics && class != gpucore.QueueTransfer {
		return nil, fmt.Errorf("wgpu: unknown queue class %v", class)
	}
	henc, err := d.hdev.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, fmt.Errorf("wgpu: encoder %q: %w", label, err)
	}
	if err := henc.BeginEncoding(label); err != nil {
		henc.Destroy()
		return nil, fmt.Errorf("wgpu: begin %q: %w", label, err)
	}
	return &encoder{dev: d, class: class, label: label, henc: henc}, nil
}

// NewSemaphore implements gpucore.Device.
func (d *Device) NewSemaphore(label string) gpucore.Semaphore {
	return &semaphore{dev: d, label: label}
}

// WaitIdle implements gpucore.Device.
func (d *Device) WaitIdle(ctx context.Context) error {
	d.mu.Lock()
	last := d.last
	d.mu.Unlock()
	if last != nil {
		if err := last.Wait(ctx); err != nil && ctx.Err() != nil {
			return err
		}
	}
	return d.lostErr()
}

// Close implements gpucore.Device. Submitted work completes first.
func (d *Device) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := d.WaitIdle(context.Background())
	if werr := d.hdev.WaitIdle(); werr != nil && err == nil {
		err = fmt.Errorf("wgpu: wait idle: %w", werr)
	}
	d.kernels.destroy(d.hdev)
	if d.instance != nil {
		d.hdev.Destroy()
		d.instance.Destroy()
	}
	backend.Logger().Debug("wgpu: device closed")
	return err
}

// write uploads data to the start of buf through the queue.
func (d *Device) write(buf hal.Buffer, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hq.WriteBuffer(buf, 0, data)
}

func (d *Device) lostErr() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lost
}

// markLost records the first fatal queue error. Callers hold mu.
func (d *Device) markLost(err error) {
	if d.lost == nil {
		d.lost = err
		backend.Logger().Error("wgpu: device lost", "err", err)
	}
}

// reclaim completes every pending submission the queue has finished:
// readbacks are copied to their host buffers, host buffers are released and
// per-submission resources destroyed.
func (d *Device) reclaim() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.pending) == 0 {
		return
	}
	completed := d.hq.PollCompleted()
	n := 0
	for _, s := range d.pending {
		if s.fence.index > completed {
			break
		}
		s.fence.complete(s.cb.retire())
		n++
	}
	d.pending = slices.Delete(d.pending, 0, n)
}
