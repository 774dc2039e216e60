package texpaint

import (
	"testing"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/texpaint/control"
	"github.com/gogpu/texpaint/layer"
	"github.com/gogpu/texpaint/undo"
)

// eventRecorder keeps the callbacks registered on it.
type eventRecorder struct {
	gpucontext.NullEventSource
	press   func(gpucontext.MouseButton, float64, float64)
	move    func(float64, float64)
	release func(gpucontext.MouseButton, float64, float64)
	key     func(gpucontext.Key, gpucontext.Modifiers)
}

func (r *eventRecorder) OnMousePress(fn func(gpucontext.MouseButton, float64, float64)) {
	r.press = fn
}

func (r *eventRecorder) OnMouseMove(fn func(float64, float64)) {
	r.move = fn
}

func (r *eventRecorder) OnMouseRelease(fn func(gpucontext.MouseButton, float64, float64)) {
	r.release = fn
}

func (r *eventRecorder) OnKeyPress(fn func(gpucontext.Key, gpucontext.Modifiers)) {
	r.key = fn
}

func TestBrushInput(t *testing.T) {
	layers, err := layer.New(4, 3)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := layers.CreateLayer(); err != nil {
		t.Fatal(err)
	}
	cache, err := undo.New(4, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	brush := NewBrush()
	brush.TakeDiff()

	src := &eventRecorder{}
	NewBrushInput(brush, cache, control.NewHost(layers)).Attach(src)
	if src.press == nil || src.move == nil || src.release == nil || src.key == nil {
		t.Fatal("Attach did not register every callback")
	}

	src.press(gpucontext.MouseButtonRight, 1, 1)
	if brush.Active() {
		t.Error("right button started a stroke")
	}
	src.press(gpucontext.MouseButtonLeft, 5, 6)
	src.move(7, 8)
	if x, y := brush.Position(); !brush.Active() || x != 7 || y != 8 {
		t.Errorf("brush active %v at (%v, %v), want active at (7, 8)", brush.Active(), x, y)
	}
	src.release(gpucontext.MouseButtonLeft, 7, 8)
	if d := brush.TakeDiff(); !d.Pressed || !d.Released || brush.Active() {
		t.Errorf("stroke diff = %+v, active %v", d, brush.Active())
	}

	src.key(gpucontext.KeyZ, 0)
	src.key(gpucontext.KeyZ, gpucontext.ModControl)
	if got := cache.TakeUndoRequests(); got != 1 {
		t.Errorf("undo requests = %d, want 1", got)
	}

	src.key(gpucontext.KeyPageUp, 0)
	src.key(gpucontext.KeyPageUp, 0)
	if got := layers.ActiveID(); got != 1 {
		t.Errorf("active after PageUp at top = %d, want 1", got)
	}
	src.key(gpucontext.KeyPageDown, 0)
	if got := layers.ActiveID(); got != 0 {
		t.Errorf("active after PageDown = %d, want 0", got)
	}

	src.key(gpucontext.KeyE, 0)
	if brush.Mode() != ModeErase {
		t.Errorf("Mode() = %v after E, want erase", brush.Mode())
	}
}

func TestBrushInputWithoutHost(t *testing.T) {
	brush := NewBrush()
	in := NewBrushInput(brush, nil, nil)
	in.KeyPress(gpucontext.KeyZ, gpucontext.ModControl)
	in.KeyPress(gpucontext.KeyPageUp, 0)
	in.KeyPress(gpucontext.KeyPageDown, 0)
	if brush.Active() {
		t.Error("key presses started a stroke")
	}
}
