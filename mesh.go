package texpaint

import "github.com/gogpu/texpaint/internal/raycast"

// PlaneMesh returns a square of edge size in the z = 0 plane, centred on
// the origin and facing +z. The texture covers it once with its top row
// at +y.
func PlaneMesh(size float32) *Mesh {
	h := size / 2
	return &Mesh{
		Positions: []float32{
			-h, -h, 0,
			h, -h, 0,
			h, h, 0,
			-h, h, 0,
		},
		UVs:     []float32{0, 1, 1, 1, 1, 0, 0, 0},
		Indices: []uint32{0, 1, 2, 0, 2, 3},
	}
}

// cubeFaces lists each face as its outward normal axis and sign, and the
// two in-plane axes (right, up) as seen from outside.
var cubeFaces = [6]struct {
	n     [3]float32
	right [3]float32
	up    [3]float32
}{
	{[3]float32{0, 0, 1}, [3]float32{1, 0, 0}, [3]float32{0, 1, 0}},   // front
	{[3]float32{1, 0, 0}, [3]float32{0, 0, -1}, [3]float32{0, 1, 0}},  // right
	{[3]float32{0, 0, -1}, [3]float32{-1, 0, 0}, [3]float32{0, 1, 0}}, // back
	{[3]float32{-1, 0, 0}, [3]float32{0, 0, 1}, [3]float32{0, 1, 0}},  // left
	{[3]float32{0, 1, 0}, [3]float32{1, 0, 0}, [3]float32{0, 0, -1}},  // top
	{[3]float32{0, -1, 0}, [3]float32{1, 0, 0}, [3]float32{0, 0, 1}},  // bottom
}

// CubeMesh returns a cube of edge size centred on the origin. Faces do not
// share vertices; the texture is split into a 3 x 2 grid with one cell per
// face, in the order front, right, back on the top row and left, top,
// bottom on the bottom row.
func CubeMesh(size float32) *Mesh {
	h := size / 2
	m := &Mesh{
		Positions: make([]float32, 0, 6*4*3),
		UVs:       make([]float32, 0, 6*4*2),
		Indices:   make([]uint32, 0, 6*6),
	}
	corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	for i, f := range cubeFaces {
		u0, v0 := float32(i%3)/3, float32(i/3)/2
		base := uint32(len(m.Positions) / 3)
		for _, c := range corners {
			for k := range 3 {
				m.Positions = append(m.Positions, h*(f.n[k]+c[0]*f.right[k]+c[1]*f.up[k]))
			}
			m.UVs = append(m.UVs, u0+(c[0]+1)/2/3, v0+(1-c[1])/2/2)
		}
		m.Indices = append(m.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	return m
}

// LookAt returns a column-major view matrix for a camera at eye looking at
// center.
func LookAt(eye, center, up [3]float32) [16]float32 {
	return raycast.LookAt(eye, center, up)
}

// Perspective returns a column-major projection matrix for WebGPU clip
// space. fovY is in radians.
func Perspective(fovY, aspect, near, far float32) [16]float32 {
	return raycast.Perspective(fovY, aspect, near, far)
}
