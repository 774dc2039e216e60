// Package raycast provides the CPU acceleration structure used to place
// brush splats on a mesh: a bounding volume hierarchy over the mesh
// triangles, the UV-space surface map, and the column-major matrix helpers
// shared with the camera.
package raycast

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrInvalidMesh is returned for malformed vertex or index data.
var ErrInvalidMesh = errors.New("raycast: invalid mesh")

// leafSize is the maximum number of triangles stored in a leaf node.
const leafSize = 4

// Ray is the half-line Origin + t*Dir, t > 0.
type Ray struct {
	Origin r3.Vec
	Dir    r3.Vec
}

// Hit describes the nearest intersection of a ray with the mesh.
type Hit struct {
	T        float64
	Triangle int
	U, V     float64
}

// Point returns the world position of the hit along r.
func (h Hit) Point(r Ray) r3.Vec {
	return r3.Add(r.Origin, r3.Scale(h.T, r.Dir))
}

type node struct {
	bounds      r3.Box
	left, right int
	start, end  int
}

func (n *node) leaf() bool { return n.left < 0 }

// BVH is a bounding volume hierarchy over a triangle mesh.
type BVH struct {
	tris  []r3.Triangle
	ids   []int
	order []int
	nodes []node
}

// Build constructs a BVH from packed xyz positions and triangle indices.
// Degenerate triangles are skipped.
func Build(positions []float32, indices []uint32) (*BVH, error) {
	if err := validate(positions, indices); err != nil {
		return nil, err
	}

	b := &BVH{}
	for i := 0; i+2 < len(indices); i += 3 {
		t := r3.Triangle{
			vertex(positions, indices[i]),
			vertex(positions, indices[i+1]),
			vertex(positions, indices[i+2]),
		}
		if t.IsDegenerate(1e-12) {
			continue
		}
		b.tris = append(b.tris, t)
		b.ids = append(b.ids, i/3)
	}
	if len(b.tris) == 0 {
		return b, nil
	}

	b.order = make([]int, len(b.tris))
	for i := range b.order {
		b.order[i] = i
	}
	b.nodes = make([]node, 0, 2*len(b.tris)/leafSize+1)
	b.build(0, len(b.order))
	return b, nil
}

func validate(positions []float32, indices []uint32) error {
	if len(positions)%3 != 0 {
		return fmt.Errorf("%w: %d position floats is not a multiple of 3", ErrInvalidMesh, len(positions))
	}
	if len(indices)%3 != 0 {
		return fmt.Errorf("%w: %d indices is not a multiple of 3", ErrInvalidMesh, len(indices))
	}
	n := uint32(len(positions) / 3)
	for i, idx := range indices {
		if idx >= n {
			return fmt.Errorf("%w: index %d at %d out of range (%d vertices)", ErrInvalidMesh, idx, i, n)
		}
	}
	return nil
}

func vertex(positions []float32, i uint32) r3.Vec {
	return r3.Vec{
		X: float64(positions[3*i]),
		Y: float64(positions[3*i+1]),
		Z: float64(positions[3*i+2]),
	}
}

// build creates the node for order[start:end] and returns its index.
func (b *BVH) build(start, end int) int {
	idx := len(b.nodes)
	b.nodes = append(b.nodes, node{left: -1, right: -1, start: start, end: end})

	bounds := emptyBox()
	cbounds := emptyBox()
	for _, ti := range b.order[start:end] {
		t := b.tris[ti]
		for _, v := range t {
			bounds = grow(bounds, v)
		}
		cbounds = grow(cbounds, t.Centroid())
	}
	b.nodes[idx].bounds = bounds

	if end-start <= leafSize {
		return idx
	}

	ext := cbounds.Size()
	axis := 0
	if ext.Y > ext.X && ext.Y >= ext.Z {
		axis = 1
	} else if ext.Z > ext.X && ext.Z > ext.Y {
		axis = 2
	}
	slices.SortFunc(b.order[start:end], func(i, j int) int {
		ci, cj := component(b.tris[i].Centroid(), axis), component(b.tris[j].Centroid(), axis)
		switch {
		case ci < cj:
			return -1
		case ci > cj:
			return 1
		default:
			return i - j
		}
	})

	mid := (start + end) / 2
	left := b.build(start, mid)
	right := b.build(mid, end)
	b.nodes[idx].left = left
	b.nodes[idx].right = right
	return idx
}

// Len returns the number of non-degenerate triangles.
func (b *BVH) Len() int { return len(b.tris) }

// Bounds returns the bounding box of the whole mesh.
func (b *BVH) Bounds() r3.Box {
	if len(b.nodes) == 0 {
		return r3.Box{}
	}
	return b.nodes[0].bounds
}

// Intersect returns the nearest hit of r, if any. Triangles are double
// sided. Hit.Triangle is the index of the triangle in the input index list.
func (b *BVH) Intersect(r Ray) (Hit, bool) {
	if len(b.nodes) == 0 {
		return Hit{}, false
	}

	inv := r3.Vec{X: 1 / r.Dir.X, Y: 1 / r.Dir.Y, Z: 1 / r.Dir.Z}
	best := Hit{T: math.Inf(1)}
	found := false

	var stack [64]int
	sp := 0
	stack[sp] = 0
	sp++
	for sp > 0 {
		sp--
		n := &b.nodes[stack[sp]]
		if !slab(n.bounds, r.Origin, inv, best.T) {
			continue
		}
		if n.leaf() {
			for _, ti := range b.order[n.start:n.end] {
				if t, u, v, ok := intersectTriangle(b.tris[ti], r); ok && t < best.T {
					best = Hit{T: t, Triangle: b.ids[ti], U: u, V: v}
					found = true
				}
			}
			continue
		}
		stack[sp] = n.left
		stack[sp+1] = n.right
		sp += 2
	}
	return best, found
}

// slab tests a ray against a box, limited to t in (0, tmax).
func slab(box r3.Box, o, inv r3.Vec, tmax float64) bool {
	tmin := 0.0
	for axis := range 3 {
		lo := (component(box.Min, axis) - component(o, axis)) * component(inv, axis)
		hi := (component(box.Max, axis) - component(o, axis)) * component(inv, axis)
		if lo > hi {
			lo, hi = hi, lo
		}
		// NaN from 0*Inf on an axis-parallel ray grazing a face: treat as a hit on that axis.
		if !math.IsNaN(lo) {
			tmin = math.Max(tmin, lo)
		}
		if !math.IsNaN(hi) {
			tmax = math.Min(tmax, hi)
		}
		if tmin > tmax {
			return false
		}
	}
	return true
}

// intersectTriangle is the Möller-Trumbore ray/triangle test.
func intersectTriangle(t r3.Triangle, r Ray) (dist, u, v float64, ok bool) {
	const eps = 1e-12

	e1 := r3.Sub(t[1], t[0])
	e2 := r3.Sub(t[2], t[0])
	p := r3.Cross(r.Dir, e2)
	det := r3.Dot(e1, p)
	if math.Abs(det) < eps {
		return 0, 0, 0, false
	}
	invDet := 1 / det

	s := r3.Sub(r.Origin, t[0])
	u = r3.Dot(s, p) * invDet
	if u < 0 || u > 1 {
		return 0, 0, 0, false
	}
	q := r3.Cross(s, e1)
	v = r3.Dot(r.Dir, q) * invDet
	if v < 0 || u+v > 1 {
		return 0, 0, 0, false
	}
	dist = r3.Dot(e2, q) * invDet
	if dist <= eps {
		return 0, 0, 0, false
	}
	return dist, u, v, true
}

// emptyBox returns an inverted box that any point grows into.
// r3.Box.Union drops zero-volume boxes, which flat meshes produce.
func emptyBox() r3.Box {
	inf := math.Inf(1)
	return r3.Box{
		Min: r3.Vec{X: inf, Y: inf, Z: inf},
		Max: r3.Vec{X: -inf, Y: -inf, Z: -inf},
	}
}

func grow(b r3.Box, v r3.Vec) r3.Box {
	b.Min = r3.Vec{X: math.Min(b.Min.X, v.X), Y: math.Min(b.Min.Y, v.Y), Z: math.Min(b.Min.Z, v.Z)}
	b.Max = r3.Vec{X: math.Max(b.Max.X, v.X), Y: math.Max(b.Max.Y, v.Y), Z: math.Max(b.Max.Z, v.Z)}
	return b
}

func component(v r3.Vec, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}
