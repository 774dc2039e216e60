package texpaint

import (
	"context"
	"fmt"

	"github.com/gogpu/texpaint/gpucore"
)

// transferState is the phase of an undo transfer.
type transferState uint8

const (
	transferIdle transferState = iota
	transferReleasing
	transferTransferring
	transferAcquiring
)

func (s transferState) String() string {
	switch s {
	case transferIdle:
		return "idle"
	case transferReleasing:
		return "releasing"
	case transferTransferring:
		return "transferring"
	case transferAcquiring:
		return "acquiring"
	default:
		return fmt.Sprintf("transferState(%d)", s)
	}
}

// direction says which way an undo transfer moves pixels.
type direction uint8

const (
	// backup copies the accumulator into a snapshot buffer.
	backup direction = iota
	// restore copies a snapshot buffer into the accumulator.
	restore
)

func (d direction) String() string {
	if d == restore {
		return "restore"
	}
	return "backup"
}

// transfer tracks the single in-flight undo transfer.
type transfer struct {
	state transferState
	dir   direction
	fence gpucore.Fence
}

func (c *Compositor) setTransferState(s transferState) {
	c.logger().Debug("texpaint: transfer",
		"dir", c.xfer.dir.String(),
		"from", c.xfer.state.String(),
		"to", s.String())
	c.xfer.state = s
}

// backup saves the accumulator into the next snapshot of the active undo
// stack.
func (c *Compositor) backup(ctx context.Context) error {
	return c.runTransfer(ctx, backup, c.cache.NextSnapshot())
}

// undo pops up to n snapshots and restores the oldest one popped.
func (c *Compositor) undo(ctx context.Context, n int) error {
	var snap *gpucore.HostBuffer
	for range n {
		s, ok := c.cache.LastSnapshot()
		if !ok {
			break
		}
		snap = s
	}
	if snap == nil {
		c.logger().Warn("texpaint: nothing to undo", "layer", int(c.loaded))
		return nil
	}
	return c.runTransfer(ctx, restore, snap)
}

// runTransfer moves pixels between the accumulator and buf on the transfer
// queue. Ownership of the accumulator is released by the graphics queue,
// acquired by the transfer queue for the copy, released back and
// reacquired by the graphics queue. Each step is its own submission,
// chained by semaphores. It returns once the device has finished.
// A transfer that fails before its last submission leaves the machine
// idle.
func (c *Compositor) runTransfer(ctx context.Context, dir direction, buf *gpucore.HostBuffer) (err error) {
	if err := c.waitTransfer(ctx); err != nil {
		return err
	}
	if c.xfer.state != transferIdle {
		return fmt.Errorf("%w: %v in state %v", ErrTransferInFlight, c.xfer.dir, c.xfer.state)
	}
	defer func() {
		if err != nil && c.xfer.fence == nil {
			c.setTransferState(transferIdle)
		}
	}()

	gfx := c.dev.Queue(gpucore.QueueGraphics).Family()
	xfr := c.dev.Queue(gpucore.QueueTransfer).Family()
	toTransfer := gpucore.ImageBarrier{Image: c.accum, SrcFamily: gfx, DstFamily: xfr}
	toGraphics := gpucore.ImageBarrier{Image: c.accum, SrcFamily: xfr, DstFamily: gfx}
	c.xfer.dir = dir

	c.setTransferState(transferReleasing)
	enc, err := c.encoder(gpucore.QueueGraphics, dir.String()+"-release")
	if err != nil {
		return err
	}
	enc.Barrier(toTransfer)
	if _, err := c.submit(enc, gpucore.QueueGraphics); err != nil {
		return err
	}

	c.setTransferState(transferTransferring)
	enc, err = c.encoder(gpucore.QueueTransfer, dir.String()+"-copy")
	if err != nil {
		return err
	}
	enc.Barrier(toTransfer)
	if dir == backup {
		enc.CopyImageToBuffer(c.accum, buf)
	} else {
		enc.CopyBufferToImage(buf, c.accum)
	}
	enc.Barrier(toGraphics)
	if _, err := c.submit(enc, gpucore.QueueTransfer); err != nil {
		return err
	}

	c.setTransferState(transferAcquiring)
	enc, err = c.encoder(gpucore.QueueGraphics, dir.String()+"-acquire")
	if err != nil {
		return err
	}
	enc.Barrier(toGraphics)
	f, err := c.submit(enc, gpucore.QueueGraphics)
	if err != nil {
		return err
	}
	c.xfer.fence = f
	return c.waitTransfer(ctx)
}

// waitTransfer waits for the pending transfer, if any, and returns the
// state machine to idle.
func (c *Compositor) waitTransfer(ctx context.Context) error {
	if c.xfer.fence == nil {
		return nil
	}
	if err := c.xfer.fence.Wait(ctx); err != nil {
		return fmt.Errorf("texpaint: %v transfer: %w", c.xfer.dir, err)
	}
	c.xfer.fence = nil
	c.setTransferState(transferIdle)
	return nil
}
