package main

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/gogpu/texpaint"
)

var errConfig = errors.New("texpaint: invalid config")

// config is the TOML document read by -config. Zero values take the
// defaults from defaultConfig.
type config struct {
	Backend string `toml:"backend"`
	Output  string `toml:"output"`

	Texture    textureConfig             `toml:"texture"`
	Compositor compositorConfig          `toml:"compositor"`
	Camera     cameraConfig              `toml:"camera"`
	Mesh       meshConfig                `toml:"mesh"`
	Brush      brushConfig               `toml:"brush"`
	Modules    map[string]map[string]any `toml:"modules"`
	Actions    []action                  `toml:"actions"`
}

type textureConfig struct {
	Size       int `toml:"size"`
	Layers     int `toml:"layers"`
	UndoStacks int `toml:"undo_stacks"`
	UndoDepth  int `toml:"undo_depth"`
}

type compositorConfig struct {
	MaxSteps int     `toml:"max_steps"`
	Spacing  float32 `toml:"spacing"`
	Bias     float32 `toml:"bias"`
}

type cameraConfig struct {
	Eye    [3]float32 `toml:"eye"`
	Target [3]float32 `toml:"target"`
	Fov    float32    `toml:"fov"` // vertical, degrees
	Width  int        `toml:"width"`
	Height int        `toml:"height"`
}

type meshConfig struct {
	Kind string  `toml:"kind"` // "cube" or "plane"
	Size float32 `toml:"size"`
}

type brushConfig struct {
	Radius  float32    `toml:"radius"`
	Color   [4]float32 `toml:"color"`
	Opacity float32    `toml:"opacity"`
	Falloff float32    `toml:"falloff"`
}

// action is one scripted input step.
//
//	kind = "stroke"       # drag the left button through points
//	kind = "undo"         # Ctrl+Z, repeated count times
//	kind = "layer-up"     # PageUp
//	kind = "layer-down"   # PageDown
//	kind = "toggle-mode"  # E
type action struct {
	Kind   string       `toml:"kind"`
	Points [][2]float32 `toml:"points"`
	Count  int          `toml:"count"`
}

func defaultConfig() config {
	return config{
		Output: "texpaint.png",
		Texture: textureConfig{
			Size:       512,
			Layers:     8,
			UndoStacks: 4,
			UndoDepth:  16,
		},
		Camera: cameraConfig{
			Eye:    [3]float32{1.6, 1.2, 2.4},
			Fov:    45,
			Width:  640,
			Height: 480,
		},
		Mesh: meshConfig{Kind: "cube", Size: 1},
		Brush: brushConfig{
			Radius:  12,
			Color:   [4]float32{0.9, 0.1, 0.1, 1},
			Opacity: 1,
			Falloff: 0.5,
		},
	}
}

// parseConfig decodes a TOML document over the defaults.
func parseConfig(data string) (config, error) {
	cfg := defaultConfig()
	md, err := toml.Decode(data, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("%w: %w", errConfig, err)
	}
	return cfg, checkUndecoded(md, cfg.validate())
}

// loadConfig reads a TOML file over the defaults.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("%w: %s: %w", errConfig, path, err)
	}
	return cfg, checkUndecoded(md, cfg.validate())
}

func checkUndecoded(md toml.MetaData, err error) error {
	if err != nil {
		return err
	}
	if keys := md.Undecoded(); len(keys) > 0 {
		var names []string
		for _, k := range keys {
			// Module tables are free-form.
			if len(k) > 0 && k[0] == "modules" {
				continue
			}
			names = append(names, k.String())
		}
		if len(names) > 0 {
			return fmt.Errorf("%w: unknown keys %s", errConfig, strings.Join(names, ", "))
		}
	}
	return nil
}

func (c *config) validate() error {
	switch {
	case c.Texture.Size <= 0:
		return fmt.Errorf("%w: texture.size = %d", errConfig, c.Texture.Size)
	case c.Camera.Width <= 0 || c.Camera.Height <= 0:
		return fmt.Errorf("%w: camera %dx%d", errConfig, c.Camera.Width, c.Camera.Height)
	case c.Camera.Fov <= 0 || c.Camera.Fov >= 180:
		return fmt.Errorf("%w: camera.fov = %v", errConfig, c.Camera.Fov)
	}
	if _, err := c.mesh(); err != nil {
		return err
	}
	for i, a := range c.Actions {
		switch a.Kind {
		case "stroke":
			if len(a.Points) == 0 {
				return fmt.Errorf("%w: actions[%d]: stroke without points", errConfig, i)
			}
		case "undo", "layer-up", "layer-down", "toggle-mode":
		default:
			return fmt.Errorf("%w: actions[%d]: unknown kind %q", errConfig, i, a.Kind)
		}
	}
	return nil
}

// options maps the compositor table onto compositor options. Zero fields
// keep the compositor defaults.
func (c *config) options() []texpaint.Option {
	opts := []texpaint.Option{texpaint.WithTextureSize(c.Texture.Size)}
	if c.Compositor.MaxSteps > 0 {
		opts = append(opts, texpaint.WithMaxSteps(c.Compositor.MaxSteps))
	}
	if c.Compositor.Spacing > 0 {
		opts = append(opts, texpaint.WithStepSpacing(c.Compositor.Spacing))
	}
	if c.Compositor.Bias > 0 {
		opts = append(opts, texpaint.WithVisibilityBias(c.Compositor.Bias))
	}
	return opts
}

func (c *config) camera() texpaint.Camera {
	up := [3]float32{0, 1, 0}
	fov := c.Camera.Fov * math.Pi / 180
	aspect := float32(c.Camera.Width) / float32(c.Camera.Height)
	return texpaint.Camera{
		View:       texpaint.LookAt(c.Camera.Eye, c.Camera.Target, up),
		Projection: texpaint.Perspective(fov, aspect, 0.05, 100),
		Width:      c.Camera.Width,
		Height:     c.Camera.Height,
	}
}

func (c *config) mesh() (*texpaint.Mesh, error) {
	size := c.Mesh.Size
	if size <= 0 {
		size = 1
	}
	switch c.Mesh.Kind {
	case "cube":
		return texpaint.CubeMesh(size), nil
	case "plane":
		return texpaint.PlaneMesh(size), nil
	default:
		return nil, fmt.Errorf("%w: mesh.kind %q", errConfig, c.Mesh.Kind)
	}
}

func (c *config) brush() *texpaint.Brush {
	b := texpaint.NewBrush()
	b.SetRadius(c.Brush.Radius)
	col := c.Brush.Color
	b.SetColor(col[0], col[1], col[2], col[3])
	b.SetOpacity(c.Brush.Opacity)
	b.SetFalloff(c.Brush.Falloff)
	return b
}
