package raycast

import (
	"fmt"
	"math"
)

// SurfaceStride is the number of float32 values per surface map texel:
// world x, y, z and a validity flag (1 covered, 0 empty).
const SurfaceStride = 4

// SurfaceMap rasterizes every triangle of the mesh in UV space and stores
// the interpolated world position at each covered texel centre of a
// size x size texture. Texel (x, y) covers UV [x/size, (x+1)/size) x
// [y/size, (y+1)/size). Where triangles overlap in UV space the later one
// wins.
func SurfaceMap(positions, uvs []float32, indices []uint32, size int) ([]float32, error) {
	if err := validate(positions, indices); err != nil {
		return nil, err
	}
	if len(uvs)/2 != len(positions)/3 || len(uvs)%2 != 0 {
		return nil, fmt.Errorf("%w: %d uv floats for %d vertices", ErrInvalidMesh, len(uvs), len(positions)/3)
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: surface map size %d", ErrInvalidMesh, size)
	}

	out := make([]float32, size*size*SurfaceStride)
	fs := float64(size)
	for i := 0; i+2 < len(indices); i += 3 {
		var uv [3][2]float64
		var pos [3][3]float64
		for k := range 3 {
			v := indices[i+k]
			uv[k] = [2]float64{float64(uvs[2*v]) * fs, float64(uvs[2*v+1]) * fs}
			pos[k] = [3]float64{float64(positions[3*v]), float64(positions[3*v+1]), float64(positions[3*v+2])}
		}
		rasterizeTriangle(out, size, uv, pos)
	}
	return out, nil
}

func rasterizeTriangle(out []float32, size int, uv [3][2]float64, pos [3][3]float64) {
	area := edge(uv[0], uv[1], uv[2])
	if math.Abs(area) < 1e-12 {
		return
	}

	minX := math.Min(uv[0][0], math.Min(uv[1][0], uv[2][0]))
	maxX := math.Max(uv[0][0], math.Max(uv[1][0], uv[2][0]))
	minY := math.Min(uv[0][1], math.Min(uv[1][1], uv[2][1]))
	maxY := math.Max(uv[0][1], math.Max(uv[1][1], uv[2][1]))

	x0 := max(int(math.Floor(minX-0.5)), 0)
	x1 := min(int(math.Ceil(maxX-0.5)), size-1)
	y0 := max(int(math.Floor(minY-0.5)), 0)
	y1 := min(int(math.Ceil(maxY-0.5)), size-1)

	const eps = 1e-9
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			p := [2]float64{float64(x) + 0.5, float64(y) + 0.5}
			w0 := edge(uv[1], uv[2], p) / area
			w1 := edge(uv[2], uv[0], p) / area
			w2 := edge(uv[0], uv[1], p) / area
			if w0 < -eps || w1 < -eps || w2 < -eps {
				continue
			}
			o := (y*size + x) * SurfaceStride
			for c := range 3 {
				out[o+c] = float32(w0*pos[0][c] + w1*pos[1][c] + w2*pos[2][c])
			}
			out[o+3] = 1
		}
	}
}

// edge returns twice the signed area of triangle (a, b, p).
func edge(a, b, p [2]float64) float64 {
	return (b[0]-a[0])*(p[1]-a[1]) - (b[1]-a[1])*(p[0]-a[0])
}
