package texpaint

import (
	"math"

	"github.com/gogpu/texpaint/gpucore"
)

// paint records the brush splats for this frame. Without a mesh it does
// nothing.
func (c *Compositor) paint(brush *Brush) error {
	if c.bvh == nil || c.surface == nil {
		c.prevValid = false
		return nil
	}
	enc, err := c.encoder(gpucore.QueueGraphics, "paint")
	if err != nil {
		return err
	}

	if !brush.Active() {
		// Blending the cleared scratch image leaves the accumulator as is.
		enc.Blend(c.brushPipe, c.accum, c.scratch, 1)
		c.prevValid = false
	} else {
		x, y := brush.Position()
		cur := [2]float32{x, y}
		from := cur
		if c.prevValid {
			from = c.prev
		}
		dist := float32(math.Hypot(float64(cur[0]-from[0]), float64(cur[1]-from[1])))
		steps := strokeSteps(dist, c.spacing(), c.opts.maxSteps)
		for i := 1; i <= steps; i++ {
			t := float32(i) / float32(steps)
			p := [2]float32{from[0] + (cur[0]-from[0])*t, from[1] + (cur[1]-from[1])*t}
			enc.Splat(c.splatPipe, c.scratch, c.surface, c.splatParams(p))
			enc.Blend(c.brushPipe, c.accum, c.scratch, 1)
			enc.Clear(c.scratch)
		}
		c.prev = cur
		c.prevValid = true
	}

	_, err = c.submit(enc, gpucore.QueueGraphics)
	return err
}

func (c *Compositor) spacing() float32 {
	if c.opts.spacing > 0 {
		return c.opts.spacing
	}
	return max(c.brush.radius/4, 1)
}

// strokeSteps returns how many splats cover a stroke segment of dist
// pixels: one per spacing, at least one and at most maxSteps.
func strokeSteps(dist, spacing float32, maxSteps int) int {
	n := int(math.Ceil(float64(dist / spacing)))
	return min(max(n, 1), maxSteps)
}

// splatParams builds the splat uniform for a brush centre p, with the
// visibility tile ray-cast around it.
func (c *Compositor) splatParams(p [2]float32) gpucore.SplatParams {
	return gpucore.SplatParams{
		ViewProj: c.camera.viewProj,
		Eye:      c.camera.eye,
		Viewport: c.camera.viewport,
		Center:   p,
		Radius:   c.brush.radius,
		Color:    c.brush.color,
		Opacity:  c.brush.opacity,
		Falloff:  c.brush.falloff,
		Bias:     c.opts.bias,
		Tile:     c.bvh.VisibilityTile(c.camera.viewProj, c.camera.eye, c.camera.viewport, p, c.brush.radius),
	}
}

// composite rebuilds stale composites and blends background, accumulator
// and foreground into the output image.
func (c *Compositor) composite() (gpucore.Fence, error) {
	enc, err := c.encoder(gpucore.QueueGraphics, "composite")
	if err != nil {
		return nil, err
	}
	if c.stale {
		c.recordComposites(enc, c.loaded)
		c.stale = false
	}
	enc.Clear(c.output)
	enc.Blend(c.compositePipe, c.output, c.background, 1)
	enc.Blend(c.compositePipe, c.output, c.accum, 1)
	enc.Blend(c.compositePipe, c.output, c.foreground, 1)
	return c.submit(enc, gpucore.QueueGraphics)
}
