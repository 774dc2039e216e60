package wgpu

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/texpaint/gpucore"
)

// image is a storage buffer of width*height packed RGBA8 texels.
type image struct {
	dev       *Device
	label     string
	w, h      int
	buf       hal.Buffer
	destroyed atomic.Bool
}

func (i *image) Label() string { return i.label }
func (i *image) Width() int    { return i.w }
func (i *image) Height() int   { return i.h }

func (i *image) bytes() uint64 {
	return uint64(i.w * i.h * gpucore.BytesPerPixel)
}

type surfaceMap struct {
	dev   *Device
	label string
	size  int
	buf   hal.Buffer
}

func (m *surfaceMap) Label() string { return m.label }
func (m *surfaceMap) Size() int     { return m.size }

type pipeline struct {
	dev  *Device
	kind gpucore.PipelineKind
	hp   hal.ComputePipeline
}

func (p *pipeline) Kind() gpucore.PipelineKind { return p.kind }

// semaphore is a binary semaphore. All submissions share one in-order hal
// queue, so a wait is satisfied once its signal has been submitted.
type semaphore struct {
	dev           *Device
	label         string
	signaled      atomic.Bool
	signalClaimed atomic.Bool
	waitClaimed   atomic.Bool
}

func (s *semaphore) Label() string { return s.label }

// fence tracks one hal submission index.
type fence struct {
	dev   *Device
	index uint64
	err   error
	done  atomic.Bool
}

func (f *fence) complete(err error) {
	f.err = err
	f.done.Store(true)
}

// Done implements gpucore.Fence. It polls the queue and retires finished
// submissions.
func (f *fence) Done() bool {
	if f.done.Load() {
		return true
	}
	f.dev.reclaim()
	return f.done.Load()
}

// Wait implements gpucore.Fence.
func (f *fence) Wait(ctx context.Context) error {
	if f.Done() {
		return f.err
	}
	ticker := time.NewTicker(f.dev.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if f.Done() {
				return f.err
			}
		}
	}
}
