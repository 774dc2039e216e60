package texpaint

import "fmt"

// Camera is the view the brush is painted through. Matrices are
// column-major; Projection maps to WebGPU clip space. Width and Height are
// the viewport in pixels, the space brush positions are given in.
type Camera struct {
	View       [16]float32
	Projection [16]float32
	Width      int
	Height     int
}

// Mesh is the paintable surface: xyz positions, uv coordinates in [0, 1]
// with v pointing down the texture, and triangle indices.
type Mesh struct {
	Positions []float32
	UVs       []float32
	Indices   []uint32
}

// MeshChange is the kind of mesh update recorded by a Scene.
type MeshChange uint8

const (
	// MeshUnchanged means the mesh did not change.
	MeshUnchanged MeshChange = iota

	// MeshAdded means a mesh was bound where there was none.
	MeshAdded

	// MeshRemoved means the mesh was unbound.
	MeshRemoved

	// MeshTopologyChanged means the bound mesh was replaced.
	MeshTopologyChanged
)

// String returns the change name.
func (c MeshChange) String() string {
	switch c {
	case MeshUnchanged:
		return "unchanged"
	case MeshAdded:
		return "added"
	case MeshRemoved:
		return "removed"
	case MeshTopologyChanged:
		return "topology-changed"
	default:
		return fmt.Sprintf("MeshChange(%d)", c)
	}
}

// SceneDiff lists what changed in a Scene since the last TakeDiff.
type SceneDiff struct {
	Camera bool
	Mesh   MeshChange
}

// Scene holds the camera and the active mesh.
//
// Scene is not safe for concurrent use.
type Scene struct {
	camera Camera
	mesh   *Mesh
	diff   SceneDiff
}

// NewScene creates a scene with the given camera and no mesh.
func NewScene(cam Camera) *Scene {
	return &Scene{camera: cam, diff: SceneDiff{Camera: true}}
}

// Camera returns the current camera.
func (s *Scene) Camera() Camera { return s.camera }

// SetCamera replaces the camera.
func (s *Scene) SetCamera(cam Camera) {
	s.camera = cam
	s.diff.Camera = true
}

// Mesh returns the active mesh, or nil.
func (s *Scene) Mesh() *Mesh { return s.mesh }

// SetMesh binds m as the active mesh. The scene keeps the pointer; call
// SetMesh again after editing the mesh.
func (s *Scene) SetMesh(m *Mesh) {
	if m == nil {
		s.RemoveMesh()
		return
	}
	switch {
	case s.mesh == nil && s.diff.Mesh != MeshRemoved:
		s.diff.Mesh = MeshAdded
	case s.diff.Mesh != MeshAdded:
		s.diff.Mesh = MeshTopologyChanged
	}
	s.mesh = m
}

// RemoveMesh unbinds the active mesh.
func (s *Scene) RemoveMesh() {
	if s.mesh == nil {
		return
	}
	s.mesh = nil
	if s.diff.Mesh == MeshAdded {
		s.diff.Mesh = MeshUnchanged
	} else {
		s.diff.Mesh = MeshRemoved
	}
}

// TakeDiff returns the changes since the last call and clears them.
func (s *Scene) TakeDiff() SceneDiff {
	d := s.diff
	s.diff = SceneDiff{}
	return d
}
