// Package layer implements the layer store: a fixed-capacity, ordered set
// of paint layers backed by host-visible texture buffers, with one active
// layer.
//
// The store never touches the device. It reports what changed through
// [Store.TakeEvents], which the compositor drains once per frame.
package layer

import (
	"errors"
	"fmt"

	"github.com/gogpu/texpaint/gpucore"
)

// Store errors.
var (
	// ErrInvalidConfig is returned for a non-positive size or capacity.
	ErrInvalidConfig = errors.New("layer: invalid configuration")

	// ErrCapacity is returned by CreateLayer when the store is full.
	// Callers treat it as a configuration error.
	ErrCapacity = errors.New("layer: capacity exceeded")

	// ErrUnknownLayer is returned for an id the store never created.
	ErrUnknownLayer = errors.New("layer: unknown layer")

	// ErrSizeMismatch is returned when uploaded pixels do not match the
	// store's texture size.
	ErrSizeMismatch = errors.New("layer: size mismatch")

	// ErrBufferInFlight is returned when uploading into a buffer that
	// submitted device work still references.
	ErrBufferInFlight = errors.New("layer: buffer in flight")
)

// ID identifies a layer. IDs are assigned in creation order starting at 0
// and equal the layer's index in the stack.
type ID int

// Layer is one paintable texture surface.
type Layer struct {
	ID     ID
	Buffer *gpucore.HostBuffer
}

// Option configures a Store.
type Option func(*options)

type options struct {
	label string
}

// WithLabel sets the debug label of the layer arena.
func WithLabel(label string) Option {
	return func(o *options) { o.label = label }
}

// Store holds the ordered layers and the active index.
//
// Store is not safe for concurrent use; it is driven by the frame loop.
type Store struct {
	size   int
	arena  *gpucore.HostArena
	layers []Layer
	active int
	events []Event
}

// New creates a store for size x size textures holding at most maxLayers
// layers. The whole arena is allocated up front. Layer 0 is created and
// made active, so the store is never empty.
func New(size, maxLayers int, opts ...Option) (*Store, error) {
	o := options{label: "layers"}
	for _, opt := range opts {
		opt(&o)
	}
	if size <= 0 || maxLayers <= 0 {
		return nil, fmt.Errorf("%w: size %d, max layers %d", ErrInvalidConfig, size, maxLayers)
	}

	arena, err := gpucore.NewHostArena(o.label, gpucore.TextureBytes(size), maxLayers)
	if err != nil {
		return nil, fmt.Errorf("layer: %w", err)
	}
	s := &Store{
		size:   size,
		arena:  arena,
		layers: make([]Layer, 0, maxLayers),
	}
	s.append()
	s.events = nil
	return s, nil
}

func (s *Store) append() ID {
	id := ID(len(s.layers))
	s.layers = append(s.layers, Layer{ID: id, Buffer: s.arena.Slot(int(id))})
	s.events = append(s.events, Event{Kind: EventCreated, Layer: id})
	return id
}

// CreateLayer appends a transparent layer on top of the stack.
// The active layer does not change.
func (s *Store) CreateLayer() (ID, error) {
	if len(s.layers) == s.arena.Len() {
		return 0, fmt.Errorf("%w: %d layers", ErrCapacity, s.arena.Len())
	}
	return s.append(), nil
}

// IncrementActive makes the layer above the active one active.
// At the top of the stack it returns false and changes nothing.
func (s *Store) IncrementActive() (ID, bool) {
	return s.move(+1)
}

// DecrementActive makes the layer below the active one active.
// At the bottom of the stack it returns false and changes nothing.
func (s *Store) DecrementActive() (ID, bool) {
	return s.move(-1)
}

func (s *Store) move(delta int) (ID, bool) {
	next := s.active + delta
	if next < 0 || next >= len(s.layers) {
		return 0, false
	}
	prev := s.active
	s.active = next
	s.events = append(s.events, Event{Kind: EventChanged, Layer: ID(next), Prev: ID(prev)})
	return ID(next), true
}

// CopyTextureToLayer overwrites a layer's buffer with RGBA8 premultiplied
// pixels of exactly size x size texels and returns the buffer.
func (s *Store) CopyTextureToLayer(id ID, pixels []byte, w, h int) (*gpucore.HostBuffer, error) {
	l, ok := s.Layer(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownLayer, id)
	}
	if w != s.size || h != s.size {
		return nil, fmt.Errorf("%w: %dx%d, store is %dx%d", ErrSizeMismatch, w, h, s.size, s.size)
	}
	if len(pixels) != l.Buffer.Len() {
		return nil, fmt.Errorf("%w: %d bytes, want %d", ErrSizeMismatch, len(pixels), l.Buffer.Len())
	}
	if l.Buffer.InFlight() {
		return nil, fmt.Errorf("%w: layer %d", ErrBufferInFlight, id)
	}
	copy(l.Buffer.Bytes(), pixels)
	s.events = append(s.events, Event{Kind: EventUploaded, Layer: id})
	return l.Buffer, nil
}

// Layer returns the layer with the given id.
func (s *Store) Layer(id ID) (Layer, bool) {
	if id < 0 || int(id) >= len(s.layers) {
		return Layer{}, false
	}
	return s.layers[id], true
}

// Len returns the number of layers.
func (s *Store) Len() int { return len(s.layers) }

// Cap returns the maximum number of layers.
func (s *Store) Cap() int { return s.arena.Len() }

// ActiveID returns the id of the active layer.
func (s *Store) ActiveID() ID { return ID(s.active) }

// Active returns the active layer.
func (s *Store) Active() Layer { return s.layers[s.active] }

// Size returns the texture edge length in texels.
func (s *Store) Size() int { return s.size }

// TakeEvents returns the events recorded since the last call and clears
// them.
func (s *Store) TakeEvents() []Event {
	ev := s.events
	s.events = nil
	return ev
}
