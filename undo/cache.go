// Package undo implements the undo cache: a fixed pool of ring-buffer
// snapshot stacks bound on demand to recently active layers.
//
// Each stack holds up to Depth snapshots of one layer. When a layer becomes
// active and no stack is bound to it, the least recently used stack is
// rebound and its history discarded. Snapshot storage is allocated once by
// New; rebinding never allocates.
//
// A stack keeps a write cursor and a trail. NextSnapshot hands out the slot
// at the cursor and advances it, dragging the trail along when the cursor
// catches up with it, so a stack of depth D retains at most D-1 snapshots.
// LastSnapshot steps the cursor back and stops at the trail.
package undo

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/texpaint/gpucore"
	"github.com/gogpu/texpaint/layer"
)

// Limits on the cache geometry.
const (
	MaxStacks = 16
	MaxUndos  = 64
)

// ErrInvalidConfig is returned by New for an unsupported geometry.
var ErrInvalidConfig = errors.New("undo: invalid configuration")

// Option configures a Cache.
type Option func(*options)

type options struct {
	label  string
	logger *slog.Logger
}

// WithLabel sets the debug label of the snapshot arena.
func WithLabel(label string) Option {
	return func(o *options) { o.label = label }
}

// WithLogger sets the logger used for rebinding events.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

type stack struct {
	bound   layer.ID
	isBound bool
	cur     int
	trl     int
	notUsed int
}

// StackInfo is a read-only view of one stack.
type StackInfo struct {
	Bound   layer.ID
	IsBound bool
	Cur     int
	Trail   int
	NotUsed int
}

// Cache owns the snapshot stacks.
//
// Cache is not safe for concurrent use.
type Cache struct {
	arena    *gpucore.HostArena
	stacks   []stack
	depth    int
	active   int
	requests int
	log      *slog.Logger
}

// New creates a cache of maxStacks stacks, each maxUndos snapshots deep, for
// size x size textures. maxUndos must be even.
func New(size, maxStacks, maxUndos int, opts ...Option) (*Cache, error) {
	o := options{label: "undo"}
	for _, opt := range opts {
		opt(&o)
	}
	switch {
	case size <= 0:
		return nil, fmt.Errorf("%w: texture size %d", ErrInvalidConfig, size)
	case maxStacks <= 0 || maxStacks > MaxStacks:
		return nil, fmt.Errorf("%w: %d stacks, want 1..%d", ErrInvalidConfig, maxStacks, MaxStacks)
	case maxUndos <= 0 || maxUndos > MaxUndos:
		return nil, fmt.Errorf("%w: depth %d, want 1..%d", ErrInvalidConfig, maxUndos, MaxUndos)
	case maxUndos%2 != 0:
		return nil, fmt.Errorf("%w: depth %d is odd", ErrInvalidConfig, maxUndos)
	}

	arena, err := gpucore.NewHostArena(o.label, gpucore.TextureBytes(size), maxStacks*maxUndos)
	if err != nil {
		return nil, fmt.Errorf("undo: %w", err)
	}
	log := o.logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Cache{
		arena:  arena,
		stacks: make([]stack, maxStacks),
		depth:  maxUndos,
		log:    log,
	}, nil
}

// OnActiveLayerChanged selects the stack for id, binding the least recently
// used stack when none is bound to it. It reports whether a stack was
// (re)bound. Calling it again for the same layer only refreshes counters.
func (c *Cache) OnActiveLayerChanged(id layer.ID) (rebound bool) {
	idx := -1
	for i := range c.stacks {
		if c.stacks[i].isBound && c.stacks[i].bound == id {
			idx = i
			break
		}
	}

	if idx < 0 {
		idx = 0
		for i := 1; i < len(c.stacks); i++ {
			if c.stacks[i].notUsed > c.stacks[idx].notUsed {
				idx = i
			}
		}
		s := &c.stacks[idx]
		if s.isBound {
			c.log.Debug("undo: evicting stack", "stack", idx, "from", int(s.bound), "to", int(id))
		}
		s.bound = id
		s.isBound = true
		s.cur = s.trl
		rebound = true
	}

	for i := range c.stacks {
		if i == idx {
			c.stacks[i].notUsed = 0
		} else {
			c.stacks[i].notUsed++
		}
	}
	c.active = idx
	return rebound
}

func (c *Cache) slot(stack, i int) *gpucore.HostBuffer {
	return c.arena.Slot(stack*c.depth + i)
}

// NextSnapshot returns the active stack's buffer at the cursor and advances
// the cursor. The caller fills the buffer with the layer's current pixels.
func (c *Cache) NextSnapshot() *gpucore.HostBuffer {
	s := &c.stacks[c.active]
	buf := c.slot(c.active, s.cur)
	s.cur = (s.cur + 1) % c.depth
	if s.cur == s.trl {
		s.trl = (s.trl + 1) % c.depth
	}
	return buf
}

// LastSnapshot steps the active stack's cursor back and returns the buffer
// there. It returns false, leaving the stack untouched, when the cursor is
// at the trail. The popped snapshot cannot be redone.
func (c *Cache) LastSnapshot() (*gpucore.HostBuffer, bool) {
	s := &c.stacks[c.active]
	if s.cur == s.trl {
		return nil, false
	}
	s.cur = (s.cur - 1 + c.depth) % c.depth
	return c.slot(c.active, s.cur), true
}

// Empty reports whether the active stack has nothing to undo.
func (c *Cache) Empty() bool {
	s := &c.stacks[c.active]
	return s.cur == s.trl
}

// RequestUndo queues an undo for the next frame.
func (c *Cache) RequestUndo() { c.requests++ }

// TakeUndoRequests returns the number of queued undos and clears them.
func (c *Cache) TakeUndoRequests() int {
	n := c.requests
	c.requests = 0
	return n
}

// ActiveStack returns the index of the selected stack.
func (c *Cache) ActiveStack() int { return c.active }

// Stack returns the state of stack i.
func (c *Cache) Stack(i int) StackInfo {
	s := c.stacks[i]
	return StackInfo{
		Bound:   s.bound,
		IsBound: s.isBound,
		Cur:     s.cur,
		Trail:   s.trl,
		NotUsed: s.notUsed,
	}
}

// Len returns the number of stacks.
func (c *Cache) Len() int { return len(c.stacks) }

// Depth returns the number of slots per stack.
func (c *Cache) Depth() int { return c.depth }

// TextureBytes returns the size of one snapshot.
func (c *Cache) TextureBytes() int { return c.arena.SlotSize() }

// Bytes returns the size of the snapshot storage.
func (c *Cache) Bytes() int { return c.arena.Bytes() }
