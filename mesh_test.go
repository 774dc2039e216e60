package texpaint

import (
	"testing"
)

func TestPlaneMesh(t *testing.T) {
	m := PlaneMesh(2)
	if len(m.Positions) != 12 || len(m.UVs) != 8 || len(m.Indices) != 6 {
		t.Fatalf("PlaneMesh sizes = %d %d %d", len(m.Positions), len(m.UVs), len(m.Indices))
	}
	// Vertex 3 is the top-left corner and maps to the top-left texel.
	if x, y := m.Positions[9], m.Positions[10]; x != -1 || y != 1 {
		t.Errorf("vertex 3 = (%v, %v), want (-1, 1)", x, y)
	}
	if u, v := m.UVs[6], m.UVs[7]; u != 0 || v != 0 {
		t.Errorf("uv 3 = (%v, %v), want (0, 0)", u, v)
	}
}

func TestCubeMesh(t *testing.T) {
	m := CubeMesh(2)
	if got := len(m.Positions) / 3; got != 24 {
		t.Errorf("vertices = %d, want 24", got)
	}
	if got := len(m.Indices) / 3; got != 12 {
		t.Errorf("triangles = %d, want 12", got)
	}
	for i, v := range m.Positions {
		if v != 1 && v != -1 {
			t.Fatalf("position %d = %v, want ±1", i, v)
		}
	}
	for i, v := range m.UVs {
		if v < 0 || v > 1 {
			t.Fatalf("uv %d = %v out of [0, 1]", i, v)
		}
	}
	// Each face owns one cell of the 3 x 2 grid.
	for f := range 6 {
		var cu, cv float32
		for k := range 4 {
			cu += m.UVs[(f*4+k)*2]
			cv += m.UVs[(f*4+k)*2+1]
		}
		cu, cv = cu/4, cv/4
		wantU := (float32(f%3) + 0.5) / 3
		wantV := (float32(f/3) + 0.5) / 2
		if abs32(cu-wantU) > 1e-6 || abs32(cv-wantV) > 1e-6 {
			t.Errorf("face %d uv centre = (%v, %v), want (%v, %v)", f, cu, cv, wantU, wantV)
		}
	}
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
