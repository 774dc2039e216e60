package texpaint

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/gogpu/texpaint/gpucore"
	"github.com/gogpu/texpaint/internal/raycast"
	"github.com/gogpu/texpaint/layer"
	"github.com/gogpu/texpaint/undo"
)

// brushUniform is the brush state the paint phase reads.
type brushUniform struct {
	radius  float32
	color   [4]float32
	opacity float32
	falloff float32
}

// cameraUniform is the camera state the paint phase reads.
type cameraUniform struct {
	viewProj raycast.Mat4
	eye      [3]float32
	viewport [2]float32
}

// Compositor owns the working images and pipelines and turns brush and
// layer activity into device work, one Paint call per frame.
//
// Images:
//   - scratch: splat target and staging for layer replays
//   - accumulator: live pixels of the active layer
//   - background, foreground: layers below and above the active one
//   - output: the composited texture shown to the user
//
// Every submission waits on a semaphore signaled by the one before it, so
// phases are ordered on the device even across queues. Layer changes and
// undo transfers also wait on the host before Paint continues.
//
// Compositor is not safe for concurrent use.
type Compositor struct {
	id   uuid.UUID
	dev  gpucore.Device
	opts options
	size int

	scratch    gpucore.Image
	accum      gpucore.Image
	background gpucore.Image
	foreground gpucore.Image
	output     gpucore.Image

	compositePipe gpucore.Pipeline
	brushPipe     gpucore.Pipeline
	splatPipe     gpucore.Pipeline
	mode          Mode

	camera cameraUniform
	brush  brushUniform

	bvh     *raycast.BVH
	surface gpucore.SurfaceMap

	layers *layer.Store
	cache  *undo.Cache
	loaded layer.ID
	stale  bool

	prev      [2]float32
	prevValid bool

	chain    gpucore.Semaphore
	last     gpucore.Fence
	xfer     transfer
	readback *gpucore.HostBuffer
	closed   bool
}

// NewCompositor creates the compositor's images and pipelines on dev.
// The compositor does not own dev.
func NewCompositor(dev gpucore.Device, opts ...Option) (*Compositor, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	switch {
	case o.size <= 0:
		return nil, fmt.Errorf("%w: texture size %d", ErrInvalidConfig, o.size)
	case o.maxSteps <= 0:
		return nil, fmt.Errorf("%w: max steps %d", ErrInvalidConfig, o.maxSteps)
	case o.spacing < 0:
		return nil, fmt.Errorf("%w: step spacing %v", ErrInvalidConfig, o.spacing)
	case o.bias < 0:
		return nil, fmt.Errorf("%w: visibility bias %v", ErrInvalidConfig, o.bias)
	}

	c := &Compositor{
		id:       uuid.New(),
		dev:      dev,
		opts:     o,
		size:     o.size,
		loaded:   -1,
		readback: gpucore.NewHostBuffer(o.label+"/readback", gpucore.TextureBytes(o.size)),
	}
	if err := c.createResources(); err != nil {
		c.destroyResources()
		return nil, err
	}
	c.logger().Info("texpaint: compositor created",
		"backend", dev.Name(),
		"size", o.size,
		"maxSteps", o.maxSteps)
	return c, nil
}

func (c *Compositor) createResources() error {
	images := []struct {
		dst  *gpucore.Image
		name string
	}{
		{&c.scratch, "scratch"},
		{&c.accum, "accumulator"},
		{&c.background, "background"},
		{&c.foreground, "foreground"},
		{&c.output, "output"},
	}
	for _, im := range images {
		img, err := c.dev.CreateImage(gpucore.ImageDesc{
			Label:  c.opts.label + "/" + im.name,
			Width:  c.size,
			Height: c.size,
		})
		if err != nil {
			return fmt.Errorf("texpaint: create %s image: %w", im.name, err)
		}
		*im.dst = img
	}

	var err error
	if c.compositePipe, err = c.dev.CreatePipeline(gpucore.PipelineBlendOver); err != nil {
		return fmt.Errorf("texpaint: create composite pipeline: %w", err)
	}
	if c.brushPipe, err = c.dev.CreatePipeline(blendKind(c.mode)); err != nil {
		return fmt.Errorf("texpaint: create brush pipeline: %w", err)
	}
	if c.splatPipe, err = c.dev.CreatePipeline(gpucore.PipelineSplat); err != nil {
		return fmt.Errorf("texpaint: create splat pipeline: %w", err)
	}
	return nil
}

func (c *Compositor) destroyResources() {
	for _, img := range []*gpucore.Image{&c.scratch, &c.accum, &c.background, &c.foreground, &c.output} {
		if *img != nil {
			c.dev.DestroyImage(*img)
			*img = nil
		}
	}
	for _, p := range []*gpucore.Pipeline{&c.compositePipe, &c.brushPipe, &c.splatPipe} {
		if *p != nil {
			c.dev.DestroyPipeline(*p)
			*p = nil
		}
	}
	if c.surface != nil {
		c.dev.DestroySurfaceMap(c.surface)
		c.surface = nil
	}
}

func blendKind(m Mode) gpucore.PipelineKind {
	if m == ModeErase {
		return gpucore.PipelineBlendErase
	}
	return gpucore.PipelineBlendOver
}

func (c *Compositor) logger() *slog.Logger {
	return Logger().With("instance", c.id.String())
}

// Attach binds the compositor to a layer store and undo cache and loads
// the active layer into the accumulator. Both must use the compositor's
// texture size.
func (c *Compositor) Attach(ctx context.Context, layers *layer.Store, cache *undo.Cache) error {
	if c.closed {
		return ErrClosed
	}
	if layers.Size() != c.size {
		return fmt.Errorf("%w: layer store is %d, compositor is %d", ErrSizeMismatch, layers.Size(), c.size)
	}
	if cache.TextureBytes() != gpucore.TextureBytes(c.size) {
		return fmt.Errorf("%w: undo snapshots are %d bytes, want %d",
			ErrSizeMismatch, cache.TextureBytes(), gpucore.TextureBytes(c.size))
	}
	if err := gpucore.Wait(ctx, c.last); err != nil {
		return err
	}

	c.layers = layers
	c.cache = cache
	c.loaded = -1
	layers.TakeEvents()

	active := layers.ActiveID()
	cache.OnActiveLayerChanged(active)
	if err := c.loadLayer(ctx, active, false); err != nil {
		return err
	}
	c.logger().Info("texpaint: attached", "layers", layers.Len(), "active", int(active))
	return nil
}

// Paint runs one frame: sync, paint and composite. The returned fence
// completes when the output image holds the new composite.
func (c *Compositor) Paint(ctx context.Context, scene *Scene, brush *Brush, layers *layer.Store, cache *undo.Cache) (gpucore.Fence, error) {
	if c.closed {
		return nil, ErrClosed
	}
	if c.layers == nil || layers != c.layers || cache != c.cache {
		return nil, ErrNotAttached
	}
	if err := c.sync(ctx, scene, brush); err != nil {
		return nil, err
	}
	if err := c.paint(brush); err != nil {
		return nil, err
	}
	return c.composite()
}

// Close waits for outstanding work and destroys the compositor's device
// resources. The device stays open.
func (c *Compositor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	err := c.dev.WaitIdle(context.Background())
	c.destroyResources()
	c.bvh = nil
	return err
}

// ID returns the instance id used in log records.
func (c *Compositor) ID() uuid.UUID { return c.id }

// Size returns the texture edge length.
func (c *Compositor) Size() int { return c.size }

// Mode returns the paint mode of the current brush pipeline.
func (c *Compositor) Mode() Mode { return c.mode }

// LoadedLayer returns the layer held in the accumulator, or -1 before
// Attach.
func (c *Compositor) LoadedLayer() layer.ID { return c.loaded }

// HasMesh reports whether a mesh is bound for painting.
func (c *Compositor) HasMesh() bool { return c.bvh != nil }

// ReadAccumulator waits for outstanding work and returns a copy of the
// active layer's live pixels.
func (c *Compositor) ReadAccumulator(ctx context.Context) ([]byte, error) {
	return c.read(ctx, c.accum)
}

// ReadOutput waits for outstanding work and returns a copy of the
// composited texture.
func (c *Compositor) ReadOutput(ctx context.Context) ([]byte, error) {
	return c.read(ctx, c.output)
}

func (c *Compositor) read(ctx context.Context, img gpucore.Image) ([]byte, error) {
	if c.closed {
		return nil, ErrClosed
	}
	if err := gpucore.Wait(ctx, c.last); err != nil {
		return nil, err
	}
	enc, err := c.encoder(gpucore.QueueGraphics, "readback")
	if err != nil {
		return nil, err
	}
	enc.CopyImageToBuffer(img, c.readback)
	f, err := c.submit(enc, gpucore.QueueGraphics)
	if err != nil {
		return nil, err
	}
	if err := f.Wait(ctx); err != nil {
		return nil, fmt.Errorf("texpaint: readback: %w", err)
	}
	out := make([]byte, c.readback.Len())
	copy(out, c.readback.Bytes())
	return out, nil
}

func (c *Compositor) encoder(class gpucore.QueueClass, name string) (gpucore.Encoder, error) {
	enc, err := c.dev.NewEncoder(class, c.opts.label+"/"+name)
	if err != nil {
		return nil, fmt.Errorf("texpaint: encoder %s: %w", name, err)
	}
	return enc, nil
}

// submit finishes enc and submits it to the queue of the given class,
// waiting on the previous submission's semaphore and signaling a new one.
func (c *Compositor) submit(enc gpucore.Encoder, class gpucore.QueueClass) (gpucore.Fence, error) {
	cb, err := enc.Finish()
	if err != nil {
		return nil, fmt.Errorf("texpaint: record: %w", err)
	}
	sig := c.dev.NewSemaphore(cb.Label())
	ss := gpucore.SubmitSync{Signal: []gpucore.Semaphore{sig}}
	if c.chain != nil {
		ss.Wait = []gpucore.Semaphore{c.chain}
	}
	f, err := c.dev.Queue(class).Submit(cb, ss)
	if err != nil {
		return nil, fmt.Errorf("texpaint: submit %s: %w", cb.Label(), err)
	}
	c.chain = sig
	c.last = f
	c.logger().Debug("texpaint: submitted", "label", cb.Label(), "queue", class.String())
	return f, nil
}
