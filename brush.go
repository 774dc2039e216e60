package texpaint

import "fmt"

// Mode selects how the brush combines with the active layer.
type Mode uint8

const (
	// ModeOver paints the brush colour over the layer.
	ModeOver Mode = iota

	// ModeErase removes coverage from the layer.
	ModeErase
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeOver:
		return "over"
	case ModeErase:
		return "erase"
	default:
		return fmt.Sprintf("Mode(%d)", m)
	}
}

// BrushDiff lists what changed in a Brush since the last TakeDiff.
type BrushDiff struct {
	Position bool
	Params   bool
	Mode     bool
	Pressed  bool
	Released bool
}

// Brush is the paint brush state, driven by the input layer and read by
// the compositor once per frame.
//
// Brush is not safe for concurrent use.
type Brush struct {
	x, y    float32
	radius  float32
	color   [4]float32
	opacity float32
	falloff float32
	active  bool
	mode    Mode
	diff    BrushDiff
}

// NewBrush returns an opaque black brush of radius 16 pixels.
func NewBrush() *Brush {
	return &Brush{
		radius:  16,
		color:   [4]float32{0, 0, 0, 1},
		opacity: 1,
		falloff: 0.5,
		diff:    BrushDiff{Params: true},
	}
}

// MoveTo moves the brush to viewport pixel (x, y).
func (b *Brush) MoveTo(x, y float32) {
	if b.x == x && b.y == y {
		return
	}
	b.x, b.y = x, y
	b.diff.Position = true
}

// Press moves the brush to (x, y) and starts a stroke.
func (b *Brush) Press(x, y float32) {
	b.MoveTo(x, y)
	if !b.active {
		b.active = true
		b.diff.Pressed = true
	}
}

// Release ends the stroke.
func (b *Brush) Release() {
	if b.active {
		b.active = false
		b.diff.Released = true
	}
}

// SetRadius sets the brush radius in pixels.
func (b *Brush) SetRadius(r float32) {
	b.radius = max(r, 0)
	b.diff.Params = true
}

// SetColor sets the straight-alpha brush colour, components in [0, 1].
func (b *Brush) SetColor(r, g, bl, a float32) {
	b.color = [4]float32{r, g, bl, a}
	b.diff.Params = true
}

// SetOpacity sets the stroke opacity in [0, 1].
func (b *Brush) SetOpacity(o float32) {
	b.opacity = min(max(o, 0), 1)
	b.diff.Params = true
}

// SetFalloff sets the soft rim as a fraction of the radius in [0, 1].
func (b *Brush) SetFalloff(f float32) {
	b.falloff = min(max(f, 0), 1)
	b.diff.Params = true
}

// SetMode selects Over or Erase.
func (b *Brush) SetMode(m Mode) {
	if b.mode == m {
		return
	}
	b.mode = m
	b.diff.Mode = true
}

// ToggleMode switches between Over and Erase.
func (b *Brush) ToggleMode() {
	if b.mode == ModeOver {
		b.SetMode(ModeErase)
	} else {
		b.SetMode(ModeOver)
	}
}

// Position returns the brush position in viewport pixels.
func (b *Brush) Position() (x, y float32) { return b.x, b.y }

// Radius returns the brush radius in pixels.
func (b *Brush) Radius() float32 { return b.radius }

// Color returns the straight-alpha brush colour.
func (b *Brush) Color() [4]float32 { return b.color }

// Opacity returns the stroke opacity.
func (b *Brush) Opacity() float32 { return b.opacity }

// Falloff returns the soft rim fraction.
func (b *Brush) Falloff() float32 { return b.falloff }

// Active reports whether a stroke is in progress.
func (b *Brush) Active() bool { return b.active }

// Mode returns the paint mode.
func (b *Brush) Mode() Mode { return b.mode }

// TakeDiff returns the changes since the last call and clears them.
func (b *Brush) TakeDiff() BrushDiff {
	d := b.diff
	b.diff = BrushDiff{}
	return d
}
