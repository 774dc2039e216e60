// Package control is the surface exposed to swappable control modules.
//
// A module drives the layer store through a [Host]: it can create layers,
// move the active layer and upload pixels. Modules register a [Factory]
// from an init() function and the driver loads one by name at startup:
//
//	import _ "github.com/gogpu/texpaint/control/seed"
//
//	mod, err := control.Load("seed", cfg)
//	if err != nil {
//		return err
//	}
//	defer mod.Close()
//	if err := mod.Init(control.NewHost(layers)); err != nil {
//		return err
//	}
package control

import (
	"github.com/gogpu/texpaint/layer"
)

// Host is what a control module may do to the paint session.
type Host interface {
	// CreateLayer appends a transparent layer.
	CreateLayer() (layer.ID, error)

	// IncrementLayer activates the layer above the active one. It returns
	// false at the top of the stack.
	IncrementLayer() (layer.ID, bool)

	// DecrementLayer activates the layer below the active one. It returns
	// false at the bottom of the stack.
	DecrementLayer() (layer.ID, bool)

	// CopyTextureToLayer replaces a layer's pixels. pixels is RGBA8
	// premultiplied, w x h texels, and w and h must equal TextureSize.
	CopyTextureToLayer(id layer.ID, pixels []byte, w, h int) error

	// TextureSize returns the layer texture edge length.
	TextureSize() int

	// Layers returns the number of layers.
	Layers() int
}

type storeHost struct {
	store *layer.Store
}

// NewHost returns a Host backed by a layer store.
func NewHost(s *layer.Store) Host {
	return &storeHost{store: s}
}

func (s *storeHost) CreateLayer() (layer.ID, error)   { return s.store.CreateLayer() }
func (s *storeHost) IncrementLayer() (layer.ID, bool) { return s.store.IncrementActive() }
func (s *storeHost) DecrementLayer() (layer.ID, bool) { return s.store.DecrementActive() }
func (s *storeHost) TextureSize() int                 { return s.store.Size() }
func (s *storeHost) Layers() int                      { return s.store.Len() }

func (s *storeHost) CopyTextureToLayer(id layer.ID, pixels []byte, w, h int) error {
	_, err := s.store.CopyTextureToLayer(id, pixels, w, h)
	return err
}
