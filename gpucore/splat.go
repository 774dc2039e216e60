package gpucore

import "math"

// VisibilityTile holds the first-hit depth of one view ray per screen pixel
// around the brush centre. Pixels whose ray misses the mesh hold +Inf.
type VisibilityTile struct {
	OriginX int
	OriginY int
	Size    int
	Depth   []float32
}

// At returns the depth stored for screen pixel (x, y) and whether the pixel
// lies inside the tile.
func (t *VisibilityTile) At(x, y int) (float32, bool) {
	tx, ty := x-t.OriginX, y-t.OriginY
	if tx < 0 || ty < 0 || tx >= t.Size || ty >= t.Size {
		return 0, false
	}
	return t.Depth[ty*t.Size+tx], true
}

// SplatParams is the brush uniform block for one splat.
//
// Screen space is in pixels with the origin at the top-left corner of the
// viewport. Color is straight (non-premultiplied) RGBA in [0, 1].
type SplatParams struct {
	ViewProj [16]float32
	Eye      [3]float32
	Viewport [2]float32
	Center   [2]float32
	Radius   float32
	Color    [4]float32
	Opacity  float32
	Falloff  float32
	Bias     float32
	Tile     VisibilityTile
}

// Project maps a world position to viewport pixels. ok is false when the
// point lies behind the eye.
func (p *SplatParams) Project(pos [3]float32) (x, y float32, ok bool) {
	m := &p.ViewProj
	cx := m[0]*pos[0] + m[4]*pos[1] + m[8]*pos[2] + m[12]
	cy := m[1]*pos[0] + m[5]*pos[1] + m[9]*pos[2] + m[13]
	cw := m[3]*pos[0] + m[7]*pos[1] + m[11]*pos[2] + m[15]
	if cw <= 0 {
		return 0, 0, false
	}
	nx, ny := cx/cw, cy/cw
	x = (nx*0.5 + 0.5) * p.Viewport[0]
	y = (0.5 - ny*0.5) * p.Viewport[1]
	return x, y, true
}

// Weight returns the brush coverage in [0, 1] at a world position.
func (p *SplatParams) Weight(pos [3]float32) float32 {
	if p.Radius <= 0 {
		return 0
	}
	x, y, ok := p.Project(pos)
	if !ok {
		return 0
	}
	dx, dy := x-p.Center[0], y-p.Center[1]
	d := float32(math.Sqrt(float64(dx*dx + dy*dy)))
	if d >= p.Radius {
		return 0
	}
	if !p.visible(pos, x, y) {
		return 0
	}
	return Falloff(d/p.Radius, p.Falloff)
}

// visible reports whether pos is the surface point the view ray through
// its pixel hits first. A nil tile treats every point as visible.
func (p *SplatParams) visible(pos [3]float32, x, y float32) bool {
	if p.Tile.Depth == nil {
		return true
	}
	depth, ok := p.Tile.At(int(math.Floor(float64(x))), int(math.Floor(float64(y))))
	if !ok || math.IsInf(float64(depth), 1) {
		return false
	}
	ex, ey, ez := pos[0]-p.Eye[0], pos[1]-p.Eye[1], pos[2]-p.Eye[2]
	dist := float32(math.Sqrt(float64(ex*ex + ey*ey + ez*ez)))
	return dist <= depth+p.Bias
}

// Texel returns the premultiplied RGBA8 value the splat writes at weight w.
func (p *SplatParams) Texel(w float32) [4]byte {
	a := clamp01(p.Color[3] * p.Opacity * w)
	return [4]byte{
		unorm8(p.Color[0] * a),
		unorm8(p.Color[1] * a),
		unorm8(p.Color[2] * a),
		unorm8(a),
	}
}

// Falloff maps a normalized distance t in [0, 1) from the brush centre to
// a weight. The inner 1-f of the radius is solid; the rim fades out with a
// smoothstep.
func Falloff(t, f float32) float32 {
	if f <= 0 {
		return 1
	}
	if f > 1 {
		f = 1
	}
	inner := 1 - f
	if t <= inner {
		return 1
	}
	s := (t - inner) / f
	if s >= 1 {
		return 0
	}
	return 1 - s*s*(3-2*s)
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func unorm8(v float32) byte {
	return byte(clamp01(v)*255 + 0.5)
}
