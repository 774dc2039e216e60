package soft

import (
	"fmt"
	"sync/atomic"

	"github.com/gogpu/texpaint/gpucore"
)

// released marks an image between the release and acquire halves of an
// ownership transfer.
const released = -1

type image struct {
	dev   *Device
	label string
	w, h  int
	data  []byte

	owner     atomic.Int32
	target    atomic.Int32
	destroyed atomic.Bool
}

func (i *image) Label() string { return i.label }
func (i *image) Width() int    { return i.w }
func (i *image) Height() int   { return i.h }

// Owner returns the queue family currently owning the image, or -1 while a
// transfer is between its release and acquire halves.
func (i *image) Owner() int { return int(i.owner.Load()) }

// access checks that the executing family may touch the image.
func (i *image) access(family int) error {
	if i.destroyed.Load() {
		return fmt.Errorf("soft: image %q used after destroy", i.label)
	}
	if owner := i.owner.Load(); owner != int32(family) {
		return fmt.Errorf("soft: image %q owned by family %d, accessed from family %d: %w",
			i.label, owner, family, gpucore.ErrOwnership)
	}
	return nil
}

// barrier executes one image barrier on a queue of the given family.
func (i *image) barrier(b gpucore.ImageBarrier, family int) error {
	if !b.IsOwnershipTransfer() {
		return i.access(family)
	}

	switch family {
	case b.SrcFamily:
		i.target.Store(int32(b.DstFamily))
		if !i.owner.CompareAndSwap(int32(family), released) {
			return fmt.Errorf("soft: release %q from family %d: owner is %d: %w",
				i.label, family, i.owner.Load(), gpucore.ErrOwnership)
		}
	case b.DstFamily:
		if i.owner.Load() != released || i.target.Load() != int32(family) {
			return fmt.Errorf("soft: acquire %q on family %d without matching release: %w",
				i.label, family, gpucore.ErrOwnership)
		}
		i.owner.Store(int32(family))
	default:
		return fmt.Errorf("soft: barrier %d->%d for %q executed on family %d: %w",
			b.SrcFamily, b.DstFamily, i.label, family, gpucore.ErrOwnership)
	}
	return nil
}

type surfaceMap struct {
	dev   *Device
	label string
	size  int
	pos   []float32
}

func (m *surfaceMap) Label() string { return m.label }
func (m *surfaceMap) Size() int     { return m.size }

type pipeline struct {
	dev  *Device
	kind gpucore.PipelineKind
}

func (p *pipeline) Kind() gpucore.PipelineKind { return p.kind }

// semaphore is a binary semaphore: signaled by closing ch exactly once,
// awaited by exactly one submission.
type semaphore struct {
	dev           *Device
	label         string
	ch            chan struct{}
	signalClaimed atomic.Bool
	waitClaimed   atomic.Bool
}

func (s *semaphore) Label() string { return s.label }
