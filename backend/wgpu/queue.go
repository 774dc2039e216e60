package wgpu

import (
	"fmt"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/texpaint/backend"
	"github.com/gogpu/texpaint/gpucore"
)

type submission struct {
	cb    *commandBuffer
	fence *fence
}

// queue is one gpucore queue class. Both classes submit to the device's
// single hal queue in call order.
type queue struct {
	dev   *Device
	class gpucore.QueueClass
}

// Class implements gpucore.Queue.
func (q *queue) Class() gpucore.QueueClass { return q.class }

// Family implements gpucore.Queue.
func (q *queue) Family() int { return Family }

// Submit implements gpucore.Queue.
func (q *queue) Submit(cb gpucore.CommandBuffer, ss gpucore.SubmitSync) (gpucore.Fence, error) {
	d := q.dev
	if d.closed.Load() {
		return nil, gpucore.ErrDeviceClosed
	}
	if err := d.lostErr(); err != nil {
		return nil, fmt.Errorf("wgpu: device lost: %w", err)
	}

	c, ok := cb.(*commandBuffer)
	if !ok || c.dev != d {
		return nil, fmt.Errorf("wgpu: submit: %w: command buffer", gpucore.ErrForeignResource)
	}
	if c.class != q.class {
		return nil, fmt.Errorf("wgpu: submit %q to %v queue: %w", c.label, q.class, gpucore.ErrWrongQueue)
	}

	wait, err := q.semaphores(ss.Wait)
	if err != nil {
		return nil, err
	}
	signal, err := q.semaphores(ss.Signal)
	if err != nil {
		return nil, err
	}
	for _, s := range wait {
		if !s.signaled.Load() {
			return nil, fmt.Errorf("%w: %q", errUnsignaled, s.label)
		}
	}
	if !c.submitted.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("%w: %q", errResubmit, c.label)
	}
	for _, s := range wait {
		if !s.waitClaimed.CompareAndSwap(false, true) {
			return nil, fmt.Errorf("wgpu: wait on %q: %w", s.label, gpucore.ErrSemaphoreReuse)
		}
	}
	for _, s := range signal {
		if !s.signalClaimed.CompareAndSwap(false, true) {
			return nil, fmt.Errorf("wgpu: signal %q: %w", s.label, gpucore.ErrSemaphoreReuse)
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range c.res.uploads {
		if err := d.hq.WriteBuffer(u.staging, 0, u.src.Bytes()); err != nil {
			return nil, fmt.Errorf("wgpu: stage %s: %w", u.src, err)
		}
	}
	for _, b := range c.res.hosts {
		b.Retain()
	}
	index, err := d.hq.Submit([]hal.CommandBuffer{c.hcb})
	if err != nil {
		for _, b := range c.res.hosts {
			b.Release()
		}
		err = fmt.Errorf("wgpu: submit %q: %w", c.label, err)
		d.markLost(err)
		return nil, err
	}
	for _, s := range signal {
		s.signaled.Store(true)
	}

	f := &fence{dev: d, index: index}
	d.pending = append(d.pending, &submission{cb: c, fence: f})
	d.last = f

	backend.Logger().Debug("wgpu: submit",
		"queue", q.class.String(),
		"label", c.label,
		"index", index,
		"wait", len(wait),
		"signal", len(signal))
	return f, nil
}

func (q *queue) semaphores(list []gpucore.Semaphore) ([]*semaphore, error) {
	out := make([]*semaphore, 0, len(list))
	for _, s := range list {
		sem, ok := s.(*semaphore)
		if !ok || sem.dev != q.dev {
			return nil, fmt.Errorf("wgpu: %w: semaphore", gpucore.ErrForeignResource)
		}
		out = append(out, sem)
	}
	return out, nil
}
