package soft

import (
	"fmt"
	"sync/atomic"

	"github.com/gogpu/texpaint/gpucore"
	"github.com/gogpu/texpaint/internal/blend"
)

// command is one recorded operation, run on the executing queue's family.
type command struct {
	name string
	run  func(family int) error
}

type encoder struct {
	dev      *Device
	class    gpucore.QueueClass
	label    string
	cmds     []command
	buffers  []*gpucore.HostBuffer
	err      error
	finished bool
}

func (e *encoder) fail(format string, args ...any) {
	if e.err == nil {
		e.err = fmt.Errorf("soft: %s: %w", e.label, fmt.Errorf(format, args...))
	}
}

func (e *encoder) record(name string, run func(family int) error) {
	if e.finished {
		e.fail("%s: %w", name, gpucore.ErrEncoderFinished)
		return
	}
	e.cmds = append(e.cmds, command{name: name, run: run})
}

func (e *encoder) image(img gpucore.Image) *image {
	i, ok := img.(*image)
	if !ok || i.dev != e.dev {
		e.fail("%w: image %v", gpucore.ErrForeignResource, img)
		return nil
	}
	return i
}

func (e *encoder) pipeline(p gpucore.Pipeline) *pipeline {
	pl, ok := p.(*pipeline)
	if !ok || pl.dev != e.dev {
		e.fail("%w: pipeline %v", gpucore.ErrForeignResource, p)
		return nil
	}
	return pl
}

func (e *encoder) graphicsOnly(name string) bool {
	if e.class != gpucore.QueueGraphics {
		e.fail("%s on %v queue: %w", name, e.class, gpucore.ErrQueueCapability)
		return false
	}
	return true
}

// Barrier implements gpucore.Encoder.
func (e *encoder) Barrier(b gpucore.ImageBarrier) {
	img := e.image(b.Image)
	if img == nil {
		return
	}
	e.record("barrier", func(family int) error { return img.barrier(b, family) })
}

// Clear implements gpucore.Encoder.
func (e *encoder) Clear(dst gpucore.Image) {
	img := e.image(dst)
	if img == nil || !e.graphicsOnly("clear") {
		return
	}
	e.record("clear", func(family int) error {
		if err := img.access(family); err != nil {
			return err
		}
		stride := img.w * gpucore.BytesPerPixel
		e.dev.pool.Bands(img.h, func(y0, y1 int) {
			clear(img.data[y0*stride : y1*stride])
		})
		return nil
	})
}

// CopyBufferToImage implements gpucore.Encoder.
func (e *encoder) CopyBufferToImage(src *gpucore.HostBuffer, dst gpucore.Image) {
	img := e.image(dst)
	if img == nil {
		return
	}
	if src.Len() != len(img.data) {
		e.fail("copy %s -> %q: %w", src, img.label, gpucore.ErrSizeMismatch)
		return
	}
	e.buffers = append(e.buffers, src)
	e.record("copy-buffer-to-image", func(family int) error {
		if err := img.access(family); err != nil {
			return err
		}
		copy(img.data, src.Bytes())
		return nil
	})
}

// CopyImageToBuffer implements gpucore.Encoder.
func (e *encoder) CopyImageToBuffer(src gpucore.Image, dst *gpucore.HostBuffer) {
	img := e.image(src)
	if img == nil {
		return
	}
	if dst.Len() != len(img.data) {
		e.fail("copy %q -> %s: %w", img.label, dst, gpucore.ErrSizeMismatch)
		return
	}
	e.buffers = append(e.buffers, dst)
	e.record("copy-image-to-buffer", func(family int) error {
		if err := img.access(family); err != nil {
			return err
		}
		copy(dst.Bytes(), img.data)
		return nil
	})
}

// Blend implements gpucore.Encoder.
func (e *encoder) Blend(p gpucore.Pipeline, dst, src gpucore.Image, opacity float32) {
	d, s, pl := e.image(dst), e.image(src), e.pipeline(p)
	if d == nil || s == nil || pl == nil || !e.graphicsOnly("blend") {
		return
	}
	var op blend.Op
	switch pl.kind {
	case gpucore.PipelineBlendOver:
		op = blend.SourceOver
	case gpucore.PipelineBlendErase:
		op = blend.DestinationOut
	default:
		e.fail("blend with %v: %w", pl.kind, gpucore.ErrPipelineKind)
		return
	}
	if d.w != s.w || d.h != s.h {
		e.fail("blend %q <- %q: %w", d.label, s.label, gpucore.ErrSizeMismatch)
		return
	}

	alpha := blend.Opacity(opacity)
	e.record("blend", func(family int) error {
		if err := d.access(family); err != nil {
			return err
		}
		if err := s.access(family); err != nil {
			return err
		}
		stride := d.w * gpucore.BytesPerPixel
		e.dev.pool.Bands(d.h, func(y0, y1 int) {
			blend.Row(op, d.data[y0*stride:y1*stride], s.data[y0*stride:y1*stride], alpha)
		})
		return nil
	})
}

// Splat implements gpucore.Encoder.
func (e *encoder) Splat(p gpucore.Pipeline, dst gpucore.Image, surface gpucore.SurfaceMap, params gpucore.SplatParams) {
	d, pl := e.image(dst), e.pipeline(p)
	if d == nil || pl == nil || !e.graphicsOnly("splat") {
		return
	}
	if pl.kind != gpucore.PipelineSplat {
		e.fail("splat with %v: %w", pl.kind, gpucore.ErrPipelineKind)
		return
	}
	m, ok := surface.(*surfaceMap)
	if !ok || m.dev != e.dev {
		e.fail("%w: surface map", gpucore.ErrForeignResource)
		return
	}
	if m.size != d.w || m.size != d.h {
		e.fail("splat %q with %d surface map: %w", d.label, m.size, gpucore.ErrSizeMismatch)
		return
	}

	e.record("splat", func(family int) error {
		if err := d.access(family); err != nil {
			return err
		}
		e.dev.pool.Bands(d.h, func(y0, y1 int) {
			splatRows(d, m, &params, y0, y1)
		})
		return nil
	})
}

func splatRows(d *image, m *surfaceMap, params *gpucore.SplatParams, y0, y1 int) {
	for y := y0; y < y1; y++ {
		for x := 0; x < d.w; x++ {
			t := y*d.w + x
			pos := m.pos[t*4 : t*4+4]
			if pos[3] == 0 {
				continue
			}
			w := params.Weight([3]float32{pos[0], pos[1], pos[2]})
			if w <= 0 {
				continue
			}
			texel := params.Texel(w)
			o := t * gpucore.BytesPerPixel
			px := blend.Pixel(blend.SourceOver, [4]byte(d.data[o:o+4]), texel)
			copy(d.data[o:o+4], px[:])
		}
	}
}

// Finish implements gpucore.Encoder.
func (e *encoder) Finish() (gpucore.CommandBuffer, error) {
	if e.finished {
		return nil, fmt.Errorf("soft: %s: %w", e.label, gpucore.ErrEncoderFinished)
	}
	e.finished = true
	if e.err != nil {
		return nil, e.err
	}
	return &commandBuffer{
		dev:     e.dev,
		class:   e.class,
		label:   e.label,
		cmds:    e.cmds,
		buffers: e.buffers,
	}, nil
}

type commandBuffer struct {
	dev       *Device
	class     gpucore.QueueClass
	label     string
	cmds      []command
	buffers   []*gpucore.HostBuffer
	submitted atomic.Bool
}

func (c *commandBuffer) Label() string             { return c.label }
func (c *commandBuffer) Class() gpucore.QueueClass { return c.class }

func (c *commandBuffer) execute(family int) error {
	for i, cmd := range c.cmds {
		if err := cmd.run(family); err != nil {
			return fmt.Errorf("%s: command %d (%s): %w", c.label, i, cmd.name, err)
		}
	}
	return nil
}
