package raycast

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/gogpu/texpaint/gpucore"
)

// PixelRay returns the world-space view ray through the centre of screen
// pixel (px, py) for the inverse view-projection matrix.
func PixelRay(invViewProj Mat4, viewport [2]float32, px, py int) Ray {
	nx := (float32(px)+0.5)/viewport[0]*2 - 1
	ny := 1 - (float32(py)+0.5)/viewport[1]*2

	near := unproject(&invViewProj, nx, ny, 0)
	far := unproject(&invViewProj, nx, ny, 1)
	return Ray{Origin: near, Dir: r3.Unit(r3.Sub(far, near))}
}

func unproject(m *Mat4, x, y, z float32) r3.Vec {
	p := m.Transform(x, y, z, 1)
	w := float64(p[3])
	return r3.Vec{X: float64(p[0]) / w, Y: float64(p[1]) / w, Z: float64(p[2]) / w}
}

// VisibilityTile casts one ray per screen pixel around the brush disc and
// records the distance from eye to the first hit. Pixels outside the disc,
// and pixels whose ray misses the mesh, hold +Inf.
func (b *BVH) VisibilityTile(viewProj Mat4, eye [3]float32, viewport, center [2]float32, radius float32) gpucore.VisibilityTile {
	x0 := int(math.Floor(float64(center[0] - radius)))
	x1 := int(math.Floor(float64(center[0] + radius)))
	y0 := int(math.Floor(float64(center[1] - radius)))
	y1 := int(math.Floor(float64(center[1] + radius)))
	size := max(x1-x0, y1-y0) + 1

	tile := gpucore.VisibilityTile{
		OriginX: x0,
		OriginY: y0,
		Size:    size,
		Depth:   make([]float32, size*size),
	}
	inf := float32(math.Inf(1))
	for i := range tile.Depth {
		tile.Depth[i] = inf
	}

	inv, ok := Invert(viewProj)
	if !ok || b.Len() == 0 {
		return tile
	}

	e := r3.Vec{X: float64(eye[0]), Y: float64(eye[1]), Z: float64(eye[2])}
	reach := float64(radius) + 1
	for ty := range size {
		for tx := range size {
			px, py := x0+tx, y0+ty
			dx := float64(px) + 0.5 - float64(center[0])
			dy := float64(py) + 0.5 - float64(center[1])
			if dx*dx+dy*dy > reach*reach {
				continue
			}
			r := PixelRay(inv, viewport, px, py)
			hit, ok := b.Intersect(r)
			if !ok {
				continue
			}
			tile.Depth[ty*size+tx] = float32(r3.Norm(r3.Sub(hit.Point(r), e)))
		}
	}
	return tile
}
