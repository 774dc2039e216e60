package texpaint

import (
	"context"
	"fmt"
	"slices"

	"github.com/gogpu/texpaint/gpucore"
	"github.com/gogpu/texpaint/layer"
)

// changeLayer selects the undo stack for the new active layer and swaps
// the accumulator over to it.
func (c *Compositor) changeLayer(ctx context.Context, events layer.Summary) error {
	rebound := c.cache.OnActiveLayerChanged(events.To)
	// Pixels uploaded into the outgoing layer this frame win over the
	// accumulator.
	readback := !slices.Contains(events.Uploaded, c.loaded)
	if err := c.loadLayer(ctx, events.To, readback); err != nil {
		return err
	}
	c.logger().Info("texpaint: layer changed",
		"from", int(events.From),
		"to", int(events.To),
		"undoStack", c.cache.ActiveStack(),
		"rebound", rebound)
	return nil
}

// loadLayer writes the accumulator back to the loaded layer, rebuilds the
// background and foreground around active and loads active into the
// accumulator. It returns once the device has finished.
func (c *Compositor) loadLayer(ctx context.Context, active layer.ID, readback bool) error {
	cur, ok := c.layers.Layer(active)
	if !ok {
		return fmt.Errorf("texpaint: load layer %d: %w", active, layer.ErrUnknownLayer)
	}
	enc, err := c.encoder(gpucore.QueueGraphics, "layer-change")
	if err != nil {
		return err
	}
	if prev, ok := c.layers.Layer(c.loaded); ok && readback {
		enc.CopyImageToBuffer(c.accum, prev.Buffer)
	}
	c.recordComposites(enc, active)
	enc.CopyBufferToImage(cur.Buffer, c.accum)

	f, err := c.submit(enc, gpucore.QueueGraphics)
	if err != nil {
		return err
	}
	if err := f.Wait(ctx); err != nil {
		return fmt.Errorf("texpaint: layer change: %w", err)
	}
	c.loaded = active
	c.stale = false
	return nil
}

// recordComposites clears the background and foreground images and blends
// every layer below active into the background and every layer above it
// into the foreground, in index order, staging each through scratch.
func (c *Compositor) recordComposites(enc gpucore.Encoder, active layer.ID) {
	enc.Clear(c.background)
	enc.Clear(c.foreground)
	for i := range c.layers.Len() {
		id := layer.ID(i)
		if id == active {
			continue
		}
		dst := c.background
		if id > active {
			dst = c.foreground
		}
		l, _ := c.layers.Layer(id)
		enc.CopyBufferToImage(l.Buffer, c.scratch)
		enc.Blend(c.compositePipe, dst, c.scratch, 1)
	}
	enc.Clear(c.scratch)
}
