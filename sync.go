package texpaint

import (
	"context"
	"fmt"
	"slices"

	"github.com/gogpu/texpaint/gpucore"
	"github.com/gogpu/texpaint/internal/raycast"
	"github.com/gogpu/texpaint/layer"
)

// sync applies every change recorded since the last frame, once each.
func (c *Compositor) sync(ctx context.Context, scene *Scene, brush *Brush) error {
	sd := scene.TakeDiff()
	bd := brush.TakeDiff()
	events := layer.Summarize(c.layers.TakeEvents())
	undos := c.cache.TakeUndoRequests()

	if sd.Camera {
		c.setCamera(scene.Camera())
	}
	if bd.Params || bd.Mode {
		c.setBrush(brush)
	}
	if sd.Mesh != MeshUnchanged {
		if err := c.setMesh(ctx, scene.Mesh(), sd.Mesh); err != nil {
			return err
		}
	}
	if undos > 0 {
		if err := c.undo(ctx, undos); err != nil {
			return err
		}
	}

	if events.Changed {
		if err := c.changeLayer(ctx, events); err != nil {
			return err
		}
		// A stroke carried onto the new layer needs its own undo point.
		if brush.Active() && !bd.Pressed && c.bvh != nil {
			if err := c.backup(ctx); err != nil {
				return err
			}
		}
	} else if err := c.applyUploads(events); err != nil {
		return err
	}

	if bd.Pressed {
		c.prevValid = false
		// Without a mesh the stroke paints nothing worth undoing.
		if c.bvh != nil {
			if err := c.backup(ctx); err != nil {
				return err
			}
		}
	}
	if bd.Mode {
		if err := c.rebuildBrushPipeline(ctx, brush.Mode()); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compositor) setCamera(cam Camera) {
	c.camera.viewProj = raycast.Mul(cam.Projection, cam.View)
	if inv, ok := raycast.Invert(cam.View); ok {
		c.camera.eye = [3]float32{inv[12], inv[13], inv[14]}
	}
	c.camera.viewport = [2]float32{float32(cam.Width), float32(cam.Height)}
}

func (c *Compositor) setBrush(b *Brush) {
	c.brush = brushUniform{
		radius:  b.Radius(),
		color:   b.Color(),
		opacity: b.Opacity(),
		falloff: b.Falloff(),
	}
	// Erase only reads coverage; a white source keeps the blend math exact.
	if b.Mode() == ModeErase {
		c.brush.color = [4]float32{1, 1, 1, 1}
	}
}

// setMesh rebuilds the acceleration structure and surface map, or unbinds
// the mesh.
func (c *Compositor) setMesh(ctx context.Context, m *Mesh, change MeshChange) error {
	if err := gpucore.Wait(ctx, c.last); err != nil {
		return err
	}
	if c.surface != nil {
		c.dev.DestroySurfaceMap(c.surface)
		c.surface = nil
	}
	c.bvh = nil
	c.prevValid = false
	if m == nil {
		c.logger().Info("texpaint: mesh unbound")
		return nil
	}

	bvh, err := raycast.Build(m.Positions, m.Indices)
	if err != nil {
		return fmt.Errorf("texpaint: mesh %v: %w", change, err)
	}
	positions, err := raycast.SurfaceMap(m.Positions, m.UVs, m.Indices, c.size)
	if err != nil {
		return fmt.Errorf("texpaint: mesh %v: %w", change, err)
	}
	surface, err := c.dev.CreateSurfaceMap(c.opts.label+"/surface", c.size, positions)
	if err != nil {
		return fmt.Errorf("texpaint: upload surface map: %w", err)
	}
	c.bvh = bvh
	c.surface = surface
	c.logger().Info("texpaint: mesh bound", "change", change.String(), "triangles", bvh.Len())
	return nil
}

// applyUploads handles new pixels and new layers when the active layer
// did not change.
func (c *Compositor) applyUploads(events layer.Summary) error {
	var others bool
	for _, id := range events.Uploaded {
		if id != c.loaded {
			others = true
		}
	}
	if others || events.Created > 0 {
		c.stale = true
	}
	if !slices.Contains(events.Uploaded, c.loaded) {
		return nil
	}

	l, _ := c.layers.Layer(c.loaded)
	enc, err := c.encoder(gpucore.QueueGraphics, "reload")
	if err != nil {
		return err
	}
	enc.CopyBufferToImage(l.Buffer, c.accum)
	_, err = c.submit(enc, gpucore.QueueGraphics)
	return err
}

// rebuildBrushPipeline swaps the brush blend pipeline for the new mode.
func (c *Compositor) rebuildBrushPipeline(ctx context.Context, m Mode) error {
	if m == c.mode {
		return nil
	}
	if err := gpucore.Wait(ctx, c.last); err != nil {
		return err
	}
	c.dev.DestroyPipeline(c.brushPipe)
	c.brushPipe = nil
	p, err := c.dev.CreatePipeline(blendKind(m))
	if err != nil {
		return fmt.Errorf("texpaint: rebuild brush pipeline: %w", err)
	}
	c.brushPipe = p
	c.mode = m
	c.logger().Info("texpaint: brush pipeline rebuilt", "mode", m.String())
	return nil
}
