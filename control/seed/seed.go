// Package seed is a control module that prepares layers at startup.
//
// Configuration keys:
//
//	layers = 3                          # ensure at least this many layers
//	images = ["base.png", "", "decal.webp"]  # image i fills layer i; "" skips
//	fills  = ["#ffffffff"]              # colour i fills layer i when it has no image
//	active = 1                          # active layer after seeding
//
// Images are decoded (PNG, JPEG, BMP, TIFF, WebP) and resampled to the
// texture size.
package seed

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/texpaint/control"
	"github.com/gogpu/texpaint/internal/image"
	"github.com/gogpu/texpaint/layer"
)

// Name is the registered module name.
const Name = "seed"

// ErrConfig is returned for a malformed configuration table.
var ErrConfig = errors.New("seed: invalid configuration")

func init() {
	control.Register(Name, New)
}

// Module seeds layers from images and solid colours.
type Module struct {
	layers int
	images []string
	fills  []string
	active int
}

// New builds the module from its configuration table.
func New(cfg map[string]any) (control.Module, error) {
	m := &Module{active: -1}
	var err error
	if v, ok := cfg["layers"]; ok {
		if m.layers, err = intValue("layers", v); err != nil {
			return nil, err
		}
	}
	if v, ok := cfg["images"]; ok {
		if m.images, err = stringList("images", v); err != nil {
			return nil, err
		}
	}
	if v, ok := cfg["fills"]; ok {
		if m.fills, err = stringList("fills", v); err != nil {
			return nil, err
		}
		for _, f := range m.fills {
			if _, err := parseColor(f); err != nil {
				return nil, err
			}
		}
	}
	if v, ok := cfg["active"]; ok {
		if m.active, err = intValue("active", v); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Name implements control.Module.
func (m *Module) Name() string { return Name }

// Close implements control.Module.
func (m *Module) Close() error { return nil }

// Init implements control.Module.
func (m *Module) Init(h control.Host) error {
	want := max(m.layers, len(m.images), len(m.fills), m.active+1)
	for h.Layers() < want {
		if _, err := h.CreateLayer(); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	size := h.TextureSize()
	for i := range want {
		pix, err := m.pixels(i, size)
		if err != nil {
			return err
		}
		if pix == nil {
			continue
		}
		if err := h.CopyTextureToLayer(layer.ID(i), pix, size, size); err != nil {
			return fmt.Errorf("seed: layer %d: %w", i, err)
		}
	}

	if m.active >= 0 {
		return activate(h, layer.ID(m.active))
	}
	return nil
}

func (m *Module) pixels(i, size int) ([]byte, error) {
	if i < len(m.images) && m.images[i] != "" {
		pix, err := image.LoadTexture(m.images[i], size)
		if err != nil {
			return nil, fmt.Errorf("seed: layer %d: %w", i, err)
		}
		return pix, nil
	}
	if i < len(m.fills) && m.fills[i] != "" {
		c, _ := parseColor(m.fills[i])
		return bytes.Repeat(c[:], size*size), nil
	}
	return nil, nil
}

// activate walks the active layer to id. The host only moves one step at
// a time, so the walk starts from the bottom.
func activate(h control.Host, id layer.ID) error {
	for {
		if _, ok := h.DecrementLayer(); !ok {
			break
		}
	}
	for cur := layer.ID(0); cur < id; cur++ {
		if _, ok := h.IncrementLayer(); !ok {
			return fmt.Errorf("%w: active layer %d out of range", ErrConfig, id)
		}
	}
	return nil
}

// parseColor parses "#rrggbb" or "#rrggbbaa" into premultiplied RGBA8.
func parseColor(s string) ([4]byte, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "#"))
	if err != nil || (len(raw) != 3 && len(raw) != 4) {
		return [4]byte{}, fmt.Errorf("%w: colour %q", ErrConfig, s)
	}
	a := byte(255)
	if len(raw) == 4 {
		a = raw[3]
	}
	pm := func(v byte) byte { return byte((uint16(v)*uint16(a) + 127) / 255) }
	return [4]byte{pm(raw[0]), pm(raw[1]), pm(raw[2]), a}, nil
}

func intValue(key string, v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n == float64(int(n)) {
			return int(n), nil
		}
	}
	return 0, fmt.Errorf("%w: %s = %v is not an integer", ErrConfig, key, v)
}

func stringList(key string, v any) ([]string, error) {
	switch list := v.(type) {
	case []string:
		return list, nil
	case []any:
		out := make([]string, len(list))
		for i, e := range list {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s[%d] = %v is not a string", ErrConfig, key, i, e)
			}
			out[i] = s
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %s is not a list of strings", ErrConfig, key)
}
