package texpaint

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewBrush(t *testing.T) {
	b := NewBrush()
	if b.Radius() != 16 || b.Opacity() != 1 || b.Falloff() != 0.5 {
		t.Errorf("defaults = radius %v opacity %v falloff %v", b.Radius(), b.Opacity(), b.Falloff())
	}
	if b.Color() != [4]float32{0, 0, 0, 1} {
		t.Errorf("Color() = %v, want opaque black", b.Color())
	}
	if b.Active() || b.Mode() != ModeOver {
		t.Errorf("Active() = %v, Mode() = %v", b.Active(), b.Mode())
	}
	if d := b.TakeDiff(); !d.Params {
		t.Error("new brush does not report its parameters")
	}
}

func TestBrushDiff(t *testing.T) {
	tests := []struct {
		name  string
		steps func(b *Brush)
		want  BrushDiff
	}{
		{"move", func(b *Brush) { b.MoveTo(1, 2) }, BrushDiff{Position: true}},
		{"move in place", func(b *Brush) { b.MoveTo(0, 0) }, BrushDiff{}},
		{"press", func(b *Brush) { b.Press(3, 4) }, BrushDiff{Position: true, Pressed: true}},
		{"release idle", func(b *Brush) { b.Release() }, BrushDiff{}},
		{"stroke", func(b *Brush) { b.Press(0, 0); b.Release() }, BrushDiff{Pressed: true, Released: true}},
		{"radius", func(b *Brush) { b.SetRadius(4) }, BrushDiff{Params: true}},
		{"mode", func(b *Brush) { b.SetMode(ModeErase) }, BrushDiff{Mode: true}},
		{"same mode", func(b *Brush) { b.SetMode(ModeOver) }, BrushDiff{}},
		{"toggle twice", func(b *Brush) { b.ToggleMode(); b.ToggleMode() }, BrushDiff{Mode: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBrush()
			b.TakeDiff()
			tt.steps(b)
			if diff := cmp.Diff(tt.want, b.TakeDiff()); diff != "" {
				t.Errorf("TakeDiff() (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBrushClamps(t *testing.T) {
	b := NewBrush()
	b.SetRadius(-3)
	b.SetOpacity(2)
	b.SetFalloff(-1)
	if b.Radius() != 0 || b.Opacity() != 1 || b.Falloff() != 0 {
		t.Errorf("clamped = radius %v opacity %v falloff %v", b.Radius(), b.Opacity(), b.Falloff())
	}
}

func TestModeString(t *testing.T) {
	if ModeOver.String() != "over" || ModeErase.String() != "erase" || Mode(7).String() != "Mode(7)" {
		t.Errorf("Mode strings = %q %q %q", ModeOver, ModeErase, Mode(7))
	}
}
