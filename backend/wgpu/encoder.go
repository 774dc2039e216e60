package wgpu

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/texpaint/gpucore"
	"github.com/gogpu/texpaint/internal/blend"
)

type upload struct {
	src     *gpucore.HostBuffer
	staging hal.Buffer
}

type readback struct {
	dst     *gpucore.HostBuffer
	staging hal.Buffer
}

// transient holds the per-submission resources of one command buffer.
type transient struct {
	uploads   []upload
	readbacks []readback
	hosts     []*gpucore.HostBuffer
	buffers   []hal.Buffer
	groups    []hal.BindGroup
}

// readBack copies every finished readback into its host buffer.
func (t *transient) readBack(dev hal.Device) error {
	for _, r := range t.readbacks {
		n := uint64(r.dst.Len())
		m, err := dev.MapBuffer(r.staging, 0, n)
		if err != nil {
			return fmt.Errorf("wgpu: map readback %s: %w", r.dst, err)
		}
		copy(r.dst.Bytes(), unsafe.Slice((*byte)(m.Ptr), n))
		if err := dev.UnmapBuffer(r.staging); err != nil {
			return fmt.Errorf("wgpu: unmap readback %s: %w", r.dst, err)
		}
	}
	return nil
}

func (t *transient) destroy(dev hal.Device) {
	for _, g := range t.groups {
		dev.DestroyBindGroup(g)
	}
	for _, b := range t.buffers {
		dev.DestroyBuffer(b)
	}
	t.groups, t.buffers = nil, nil
}

type encoder struct {
	dev      *Device
	class    gpucore.QueueClass
	label    string
	henc     hal.CommandEncoder
	res      transient
	usage    map[*image]gputypes.BufferUsage
	err      error
	finished bool
}

func (e *encoder) fail(format string, args ...any) {
	if e.err == nil {
		e.err = fmt.Errorf("wgpu: %s: %w", e.label, fmt.Errorf(format, args...))
	}
}

// recording reports whether name may still be recorded.
func (e *encoder) recording(name string) bool {
	if e.finished {
		e.fail("%s: %w", name, gpucore.ErrEncoderFinished)
		return false
	}
	return e.err == nil
}

func (e *encoder) image(img gpucore.Image) *image {
	i, ok := img.(*image)
	if !ok || i.dev != e.dev {
		e.fail("%w: image %v", gpucore.ErrForeignResource, img)
		return nil
	}
	if i.destroyed.Load() {
		e.fail("image %q used after destroy", i.label)
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

// transition records a buffer barrier moving img to usage. Images rest in
// storage usage between command buffers.
func (e *encoder) transition(img *image, usage gputypes.BufferUsage) {
	if e.usage == nil {
		e.usage = make(map[*image]gputypes.BufferUsage)
	}
	old, ok := e.usage[img]
	if !ok {
		old = gputypes.BufferUsageStorage
	}
	e.henc.TransitionBuffers([]hal.BufferBarrier{{
		Buffer: img.buf,
		Usage:  hal.BufferUsageTransition{OldUsage: old, NewUsage: usage},
	}})
	e.usage[img] = usage
}

func (e *encoder) buffer(label string, size uint64, usage gputypes.BufferUsage) hal.Buffer {
	buf, err := e.dev.hdev.CreateBuffer(&hal.BufferDescriptor{Label: label, Size: size, Usage: usage})
	if err != nil {
		e.fail("buffer %s: %w", label, err)
		return nil
	}
	e.res.buffers = append(e.res.buffers, buf)
	return buf
}

// uniform creates a buffer holding data for one dispatch.
func (e *encoder) uniform(label string, data []byte, usage gputypes.BufferUsage) hal.Buffer {
	buf := e.buffer(label, uint64(len(data)), usage|gputypes.BufferUsageCopyDst)
	if buf == nil {
		return nil
	}
	if err := e.dev.write(buf, data); err != nil {
		e.fail("write %s: %w", label, err)
		return nil
	}
	return buf
}

func (e *encoder) bindGroup(layout hal.BindGroupLayout, bufs ...hal.Buffer) hal.BindGroup {
	entries := make([]gputypes.BindGroupEntry, len(bufs))
	for i, b := range bufs {
		entries[i] = gputypes.BindGroupEntry{
			Binding:  uint32(i),
			Resource: gputypes.BufferBinding{Buffer: b.NativeHandle()},
		}
	}
	g, err := e.dev.hdev.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   e.label,
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		e.fail("bind group: %w", err)
		return nil
	}
	e.res.groups = append(e.res.groups, g)
	return g
}

func (e *encoder) dispatch(hp hal.ComputePipeline, group hal.BindGroup, w, h int) {
	pass := e.henc.BeginComputePass(&hal.ComputePassDescriptor{Label: e.label})
	pass.SetPipeline(hp)
	pass.SetBindGroup(0, group, nil)
	pass.Dispatch(workgroups(w), workgroups(h), 1)
	pass.End()
}

func workgroups(n int) uint32 {
	return uint32((n + workgroupSize - 1) / workgroupSize)
}

// Barrier implements gpucore.Encoder. Both queues report Family, so only
// plain barriers are valid here.
func (e *encoder) Barrier(b gpucore.ImageBarrier) {
	img := e.image(b.Image)
	if img == nil || !e.recording("barrier") {
		return
	}
	if b.SrcFamily != Family || b.DstFamily != Family {
		e.fail("barrier %d->%d for %q: %w", b.SrcFamily, b.DstFamily, img.label, gpucore.ErrOwnership)
		return
	}
	e.transition(img, gputypes.BufferUsageStorage)
}

// Clear implements gpucore.Encoder.
func (e *encoder) Clear(dst gpucore.Image) {
	img := e.image(dst)
	if img == nil || !e.graphicsOnly("clear") || !e.recording("clear") {
		return
	}
	e.transition(img, gputypes.BufferUsageCopyDst)
	e.henc.ClearBuffer(img.buf, 0, img.bytes())
}

// CopyBufferToImage implements gpucore.Encoder. The host bytes are staged
// when the command buffer is submitted.
func (e *encoder) CopyBufferToImage(src *gpucore.HostBuffer, dst gpucore.Image) {
	img := e.image(dst)
	if img == nil || !e.recording("copy-buffer-to-image") {
		return
	}
	if uint64(src.Len()) != img.bytes() {
		e.fail("copy %s -> %q: %w", src, img.label, gpucore.ErrSizeMismatch)
		return
	}
	staging := e.buffer(src.Label()+"-upload", img.bytes(), gputypes.BufferUsageCopySrc|gputypes.BufferUsageCopyDst)
	if staging == nil {
		return
	}
	e.res.uploads = append(e.res.uploads, upload{src: src, staging: staging})
	e.res.hosts = append(e.res.hosts, src)
	e.transition(img, gputypes.BufferUsageCopyDst)
	e.henc.CopyBufferToBuffer(staging, img.buf, []hal.BufferCopy{{Size: img.bytes()}})
}

// CopyImageToBuffer implements gpucore.Encoder. The host buffer is filled
// when the submission's fence completes.
func (e *encoder) CopyImageToBuffer(src gpucore.Image, dst *gpucore.HostBuffer) {
	img := e.image(src)
	if img == nil || !e.recording("copy-image-to-buffer") {
		return
	}
	if uint64(dst.Len()) != img.bytes() {
		e.fail("copy %q -> %s: %w", img.label, dst, gpucore.ErrSizeMismatch)
		return
	}
	staging := e.buffer(dst.Label()+"-readback", img.bytes(), gputypes.BufferUsageMapRead|gputypes.BufferUsageCopyDst)
	if staging == nil {
		return
	}
	e.res.readbacks = append(e.res.readbacks, readback{dst: dst, staging: staging})
	e.res.hosts = append(e.res.hosts, dst)
	e.transition(img, gputypes.BufferUsageCopySrc)
	e.henc.CopyBufferToBuffer(img.buf, staging, []hal.BufferCopy{{Size: img.bytes()}})
}

// Blend implements gpucore.Encoder.
func (e *encoder) Blend(p gpucore.Pipeline, dst, src gpucore.Image, opacity float32) {
	d, s, pl := e.image(dst), e.image(src), e.pipeline(p)
	if d == nil || s == nil || pl == nil || !e.graphicsOnly("blend") || !e.recording("blend") {
		return
	}
	if pl.kind != gpucore.PipelineBlendOver && pl.kind != gpucore.PipelineBlendErase {
		e.fail("blend with %v: %w", pl.kind, gpucore.ErrPipelineKind)
		return
	}
	if d.w != s.w || d.h != s.h {
		e.fail("blend %q <- %q: %w", d.label, s.label, gpucore.ErrSizeMismatch)
		return
	}
	if d == s {
		e.fail("blend %q into itself", d.label)
		return
	}

	u := e.uniform("blend-params", blendUniform(d.w, d.h, blend.Opacity(opacity)), gputypes.BufferUsageUniform)
	if u == nil {
		return
	}
	group := e.bindGroup(e.dev.kernels.blendGroupLayout, u, d.buf, s.buf)
	if group == nil {
		return
	}
	e.transition(d, gputypes.BufferUsageStorage)
	e.transition(s, gputypes.BufferUsageStorage)
	e.dispatch(pl.hp, group, d.w, d.h)
}

// Splat implements gpucore.Encoder.
func (e *encoder) Splat(p gpucore.Pipeline, dst gpucore.Image, surface gpucore.SurfaceMap, params gpucore.SplatParams) {
	d, pl := e.image(dst), e.pipeline(p)
	if d == nil || pl == nil || !e.graphicsOnly("splat") || !e.recording("splat") {
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

	u := e.uniform("splat-params", splatUniform(&params, m.size), gputypes.BufferUsageUniform)
	depth := e.uniform("splat-tile", tileDepth(&params.Tile), gputypes.BufferUsageStorage)
	if u == nil || depth == nil {
		return
	}
	group := e.bindGroup(e.dev.kernels.splatGroupLayout, u, d.buf, m.buf, depth)
	if group == nil {
		return
	}
	e.transition(d, gputypes.BufferUsageStorage)
	e.dispatch(pl.hp, group, d.w, d.h)
}

// Finish implements gpucore.Encoder.
func (e *encoder) Finish() (gpucore.CommandBuffer, error) {
	if e.finished {
		return nil, fmt.Errorf("wgpu: %s: %w", e.label, gpucore.ErrEncoderFinished)
	}
	e.finished = true
	if e.err != nil {
		e.discard()
		return nil, e.err
	}
	for img, usage := range e.usage {
		if usage != gputypes.BufferUsageStorage {
			e.transition(img, gputypes.BufferUsageStorage)
		}
	}
	hcb, err := e.henc.EndEncoding()
	if err != nil {
		e.discard()
		return nil, fmt.Errorf("wgpu: %s: end encoding: %w", e.label, err)
	}
	return &commandBuffer{
		dev:   e.dev,
		class: e.class,
		label: e.label,
		henc:  e.henc,
		hcb:   hcb,
		res:   e.res,
	}, nil
}

func (e *encoder) discard() {
	e.henc.DiscardEncoding()
	e.henc.Destroy()
	e.res.destroy(e.dev.hdev)
}

type commandBuffer struct {
	dev       *Device
	class     gpucore.QueueClass
	label     string
	henc      hal.CommandEncoder
	hcb       hal.CommandBuffer
	res       transient
	submitted atomic.Bool
}

func (c *commandBuffer) Label() string             { return c.label }
func (c *commandBuffer) Class() gpucore.QueueClass { return c.class }

// retire runs once the queue has finished the command buffer.
func (c *commandBuffer) retire() error {
	err := c.res.readBack(c.dev.hdev)
	for _, b := range c.res.hosts {
		b.Release()
	}
	c.res.destroy(c.dev.hdev)
	c.henc.ResetAll([]hal.CommandBuffer{c.hcb})
	c.henc.Destroy()
	return err
}
