// Package texpaint paints on the texture of a 3D mesh through its screen
// projection, with layers and per-layer undo.
//
// # Overview
//
// A paint session is made of four parts:
//   - a [layer.Store] holding the layer pixels in host memory
//   - an [undo.Cache] of accumulator snapshots, one stack per recently used layer
//   - a [Scene] (camera and mesh) and a [Brush], both recording what changed
//   - a [Compositor] that turns those changes into device work
//
// The device is any [gpucore.Device]; see package backend for the soft
// (CPU) and wgpu implementations.
//
// # Quick Start
//
//	dev, _ := backend.Default()
//	layers, _ := layer.New(1024, 8)
//	cache, _ := undo.New(1024, 4, 16)
//	c, _ := texpaint.NewCompositor(dev, texpaint.WithTextureSize(1024))
//	_ = c.Attach(ctx, layers, cache)
//
//	scene := texpaint.NewScene(cam)
//	scene.SetMesh(texpaint.CubeMesh(1))
//	brush := texpaint.NewBrush()
//	texpaint.NewBrushInput(brush, cache, control.NewHost(layers)).Attach(events)
//
//	// once per frame
//	fence, err := c.Paint(ctx, scene, brush, layers, cache)
//
// # Frames
//
// Paint runs three phases. Sync applies camera, brush, mesh, undo and
// layer changes. Paint splats the brush along the stroke into the
// accumulator, which holds the active layer. Composite blends the layers
// below the active one, the accumulator and the layers above it into the
// output image.
//
// Undo snapshots move between the accumulator and host memory on the
// transfer queue. The accumulator is released by the graphics queue family
// and acquired by the transfer family for the copy, then handed back.
//
// # Logging
//
// The package is silent by default. Call [SetLogger] to route its records,
// and those of the backends, to a slog handler.
package texpaint
