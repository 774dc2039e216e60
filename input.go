package texpaint

import (
	"github.com/gogpu/gpucontext"

	"github.com/gogpu/texpaint/control"
	"github.com/gogpu/texpaint/undo"
)

// BrushInput turns window events into brush, undo and layer actions.
//
//   - left mouse button: press, drag and release the brush
//   - Ctrl+Z: request one undo
//   - PageUp / PageDown: activate the layer above / below
//   - E: toggle between over and erase
//
// Event callbacks run on the thread that delivers them. Paint must be
// called from that same thread.
type BrushInput struct {
	brush *Brush
	cache *undo.Cache
	host  control.Host
}

// NewBrushInput returns an input adapter for brush. cache and host may be
// nil to disable undo or layer navigation.
func NewBrushInput(brush *Brush, cache *undo.Cache, host control.Host) *BrushInput {
	return &BrushInput{brush: brush, cache: cache, host: host}
}

// Attach registers the adapter's callbacks on src.
func (in *BrushInput) Attach(src gpucontext.EventSource) {
	src.OnMousePress(in.MousePress)
	src.OnMouseMove(in.MouseMove)
	src.OnMouseRelease(in.MouseRelease)
	src.OnKeyPress(in.KeyPress)
}

// MousePress starts a stroke on the left button.
func (in *BrushInput) MousePress(button gpucontext.MouseButton, x, y float64) {
	if button != gpucontext.MouseButtonLeft {
		return
	}
	in.brush.Press(float32(x), float32(y))
}

// MouseMove follows the cursor, painting while the stroke is active.
func (in *BrushInput) MouseMove(x, y float64) {
	in.brush.MoveTo(float32(x), float32(y))
}

// MouseRelease ends the stroke on the left button.
func (in *BrushInput) MouseRelease(button gpucontext.MouseButton, _, _ float64) {
	if button != gpucontext.MouseButtonLeft {
		return
	}
	in.brush.Release()
}

// KeyPress handles the undo, layer and mode shortcuts.
func (in *BrushInput) KeyPress(key gpucontext.Key, mods gpucontext.Modifiers) {
	switch key {
	case gpucontext.KeyZ:
		if mods.HasControl() && in.cache != nil {
			in.cache.RequestUndo()
		}
	case gpucontext.KeyPageUp:
		if in.host != nil {
			if _, ok := in.host.IncrementLayer(); !ok {
				Logger().Debug("texpaint: already at top layer")
			}
		}
	case gpucontext.KeyPageDown:
		if in.host != nil {
			if _, ok := in.host.DecrementLayer(); !ok {
				Logger().Debug("texpaint: already at bottom layer")
			}
		}
	case gpucontext.KeyE:
		in.brush.ToggleMode()
	}
}
