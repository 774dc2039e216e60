package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/texpaint"
	"github.com/gogpu/texpaint/control"
	"github.com/gogpu/texpaint/gpucore"
	"github.com/gogpu/texpaint/layer"
	"github.com/gogpu/texpaint/undo"
)

// session is one headless paint session driven by scripted input.
type session struct {
	c       *texpaint.Compositor
	scene   *texpaint.Scene
	brush   *texpaint.Brush
	layers  *layer.Store
	cache   *undo.Cache
	input   *texpaint.BrushInput
	modules []control.Module
}

func newSession(ctx context.Context, dev gpucore.Device, cfg *config) (*session, error) {
	layers, err := layer.New(cfg.Texture.Size, cfg.Texture.Layers)
	if err != nil {
		return nil, err
	}
	cache, err := undo.New(cfg.Texture.Size, cfg.Texture.UndoStacks, cfg.Texture.UndoDepth,
		undo.WithLogger(texpaint.Logger()))
	if err != nil {
		return nil, err
	}
	s := &session{layers: layers, cache: cache}
	host := control.NewHost(layers)

	// Modules run before Attach so seeded layers are loaded with the
	// first frame.
	names := make([]string, 0, len(cfg.Modules))
	for name := range cfg.Modules {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		mod, err := control.Load(name, cfg.Modules[name])
		if err != nil {
			s.close()
			return nil, err
		}
		s.modules = append(s.modules, mod)
		if err := mod.Init(host); err != nil {
			s.close()
			return nil, fmt.Errorf("module %s: %w", name, err)
		}
	}

	c, err := texpaint.NewCompositor(dev, cfg.options()...)
	if err != nil {
		s.close()
		return nil, err
	}
	s.c = c
	if err := c.Attach(ctx, layers, cache); err != nil {
		s.close()
		return nil, err
	}

	mesh, err := cfg.mesh()
	if err != nil {
		s.close()
		return nil, err
	}
	s.scene = texpaint.NewScene(cfg.camera())
	s.scene.SetMesh(mesh)
	s.brush = cfg.brush()
	s.input = texpaint.NewBrushInput(s.brush, cache, host)

	if err := s.frame(ctx); err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}

// frame paints one frame and waits for it.
func (s *session) frame(ctx context.Context) error {
	f, err := s.c.Paint(ctx, s.scene, s.brush, s.layers, s.cache)
	if err != nil {
		return err
	}
	return gpucore.Wait(ctx, f)
}

// do feeds one scripted action through the input adapter, one frame per
// event.
func (s *session) do(ctx context.Context, a action) error {
	switch a.Kind {
	case "stroke":
		first := a.Points[0]
		s.input.MouseMove(float64(first[0]), float64(first[1]))
		s.input.MousePress(gpucontext.MouseButtonLeft, float64(first[0]), float64(first[1]))
		if err := s.frame(ctx); err != nil {
			return err
		}
		for _, p := range a.Points[1:] {
			s.input.MouseMove(float64(p[0]), float64(p[1]))
			if err := s.frame(ctx); err != nil {
				return err
			}
		}
		last := a.Points[len(a.Points)-1]
		s.input.MouseRelease(gpucontext.MouseButtonLeft, float64(last[0]), float64(last[1]))
		return s.frame(ctx)
	case "undo":
		for range max(a.Count, 1) {
			s.input.KeyPress(gpucontext.KeyZ, gpucontext.ModControl)
		}
		return s.frame(ctx)
	case "layer-up":
		s.input.KeyPress(gpucontext.KeyPageUp, 0)
		return s.frame(ctx)
	case "layer-down":
		s.input.KeyPress(gpucontext.KeyPageDown, 0)
		return s.frame(ctx)
	case "toggle-mode":
		s.input.KeyPress(gpucontext.KeyE, 0)
		return s.frame(ctx)
	default:
		return fmt.Errorf("%w: unknown action %q", errConfig, a.Kind)
	}
}

func (s *session) close() {
	if s.c != nil {
		if err := s.c.Close(); err != nil {
			texpaint.Logger().Warn("texpaint: close compositor", "err", err)
		}
	}
	for _, m := range s.modules {
		if err := m.Close(); err != nil {
			texpaint.Logger().Warn("texpaint: close module", "module", m.Name(), "err", err)
		}
	}
}
