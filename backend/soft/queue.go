package soft

import (
	"fmt"
	"sync"

	"github.com/gogpu/texpaint/backend"
	"github.com/gogpu/texpaint/gpucore"
)

type submission struct {
	cb     *commandBuffer
	wait   []*semaphore
	signal []*semaphore
	fence  *fence
}

type queue struct {
	dev    *Device
	class  gpucore.QueueClass
	family int
	work   chan *submission

	mu   sync.Mutex
	last *fence
	shut bool
}

func newQueue(d *Device, class gpucore.QueueClass, family, depth int) *queue {
	return &queue{
		dev:    d,
		class:  class,
		family: family,
		work:   make(chan *submission, depth),
	}
}

// Class implements gpucore.Queue.
func (q *queue) Class() gpucore.QueueClass { return q.class }

// Family implements gpucore.Queue.
func (q *queue) Family() int { return q.family }

// Submit implements gpucore.Queue.
func (q *queue) Submit(cb gpucore.CommandBuffer, ss gpucore.SubmitSync) (gpucore.Fence, error) {
	if q.dev.closed.Load() {
		return nil, gpucore.ErrDeviceClosed
	}
	if err := q.dev.lostErr(); err != nil {
		return nil, fmt.Errorf("soft: device lost: %w", err)
	}

	c, ok := cb.(*commandBuffer)
	if !ok || c.dev != q.dev {
		return nil, fmt.Errorf("soft: submit: %w: command buffer", gpucore.ErrForeignResource)
	}
	if c.class != q.class {
		return nil, fmt.Errorf("soft: submit %q to %v queue: %w", c.label, q.class, gpucore.ErrWrongQueue)
	}

	wait, err := q.semaphores(ss.Wait)
	if err != nil {
		return nil, err
	}
	signal, err := q.semaphores(ss.Signal)
	if err != nil {
		return nil, err
	}
	if !c.submitted.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("%w: %q", errResubmit, c.label)
	}
	for _, s := range wait {
		if !s.waitClaimed.CompareAndSwap(false, true) {
			return nil, fmt.Errorf("soft: wait on %q: %w", s.label, gpucore.ErrSemaphoreReuse)
		}
	}
	for _, s := range signal {
		if !s.signalClaimed.CompareAndSwap(false, true) {
			return nil, fmt.Errorf("soft: signal %q: %w", s.label, gpucore.ErrSemaphoreReuse)
		}
	}

	for _, b := range c.buffers {
		b.Retain()
	}
	f := newFence()

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.shut {
		for _, b := range c.buffers {
			b.Release()
		}
		return nil, gpucore.ErrDeviceClosed
	}
	q.last = f
	q.work <- &submission{cb: c, wait: wait, signal: signal, fence: f}

	backend.Logger().Debug("soft: submit",
		"queue", q.class.String(),
		"label", c.label,
		"commands", len(c.cmds),
		"wait", len(wait),
		"signal", len(signal))
	return f, nil
}

func (q *queue) semaphores(list []gpucore.Semaphore) ([]*semaphore, error) {
	out := make([]*semaphore, 0, len(list))
	for _, s := range list {
		sem, ok := s.(*semaphore)
		if !ok || sem.dev != q.dev {
			return nil, fmt.Errorf("soft: %w: semaphore", gpucore.ErrForeignResource)
		}
		out = append(out, sem)
	}
	return out, nil
}

func (q *queue) lastFence() gpucore.Fence {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.last == nil {
		return nil
	}
	return q.last
}

func (q *queue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.shut {
		q.shut = true
		close(q.work)
	}
}

// run executes submissions in order. Device work has no timeout: a wait on
// a semaphore that is never signaled stalls the queue.
func (q *queue) run() {
	defer q.dev.wg.Done()

	for sub := range q.work {
		for _, s := range sub.wait {
			<-s.ch
		}

		err := q.dev.lostErr()
		if err == nil {
			err = sub.cb.execute(q.family)
			if err != nil {
				q.dev.markLost(err)
			}
		}

		for _, b := range sub.cb.buffers {
			b.Release()
		}
		// Signal even on failure so no other queue blocks forever.
		for _, s := range sub.signal {
			close(s.ch)
		}
		sub.fence.complete(err)
	}
}
