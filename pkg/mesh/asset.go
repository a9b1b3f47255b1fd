// Package mesh holds the in-memory representation of a loaded 3D object.
package mesh

import (
	"fmt"

	"github.com/makistry/meshview/pkg/geometry"
)

// ColorStride is the number of components stored per vertex color (RGBA)
const ColorStride = 4

// SourceMaterial describes the material a scene-graph asset declared for its
// geometry. Raw-triangle assets carry none.
type SourceMaterial struct {
	Name         string
	BaseColor    [4]float64
	VertexColors bool
	DoubleSided  bool
}

// Asset is one loaded 3D object. Positions and Normals are flat stride-3
// buffers, Colors is a flat RGBA buffer in the 0..1 range. A nil Indices slice
// means the positions form sequential triangles.
type Asset struct {
	Name      string
	Positions []float32
	Normals   []float32
	Colors    []float32
	Indices   []uint32
	Material  *SourceMaterial

	Box    geometry.BoundingBox
	Sphere geometry.Sphere

	centered bool
}

// New creates an asset from positions and derives its bounds
func New(name string, positions []float32) *Asset {
	a := &Asset{Name: name, Positions: positions}
	a.ComputeBounds()
	return a
}

// VertexCount returns the number of vertices in the asset
func (a *Asset) VertexCount() int {
	return len(a.Positions) / 3
}

// TriangleCount returns the number of triangles in the asset
func (a *Asset) TriangleCount() int {
	if a.Indices != nil {
		return len(a.Indices) / 3
	}
	return a.VertexCount() / 3
}

// TriangleIndices returns the vertex indices of triangle i
func (a *Asset) TriangleIndices(i int) (uint32, uint32, uint32) {
	if a.Indices != nil {
		return a.Indices[i*3], a.Indices[i*3+1], a.Indices[i*3+2]
	}
	base := uint32(i * 3)
	return base, base + 1, base + 2
}

// Vertex returns the position of vertex i
func (a *Asset) Vertex(i int) geometry.Vector3 {
	return geometry.Vector3At(a.Positions, i)
}

// Triangle returns triangle i with its computed face normal
func (a *Asset) Triangle(i int) geometry.Triangle {
	i1, i2, i3 := a.TriangleIndices(i)
	return geometry.TriangleOf(a.Vertex(int(i1)), a.Vertex(int(i2)), a.Vertex(int(i3)))
}

// HasNormals reports whether per-vertex normals are present
func (a *Asset) HasNormals() bool {
	return len(a.Normals) > 0 && len(a.Normals) == len(a.Positions)
}

// HasColors reports whether per-vertex colors are present
func (a *Asset) HasColors() bool {
	return len(a.Colors) > 0 && len(a.Colors)/ColorStride == a.VertexCount()
}

// Centered reports whether Recenter has already been applied
func (a *Asset) Centered() bool {
	return a.centered
}

// ComputeBounds recomputes the bounding box and bounding sphere
func (a *Asset) ComputeBounds() {
	a.Box = geometry.BoundingBoxOf(a.Positions)
	a.Sphere = geometry.BoundingSphereOf(a.Positions, a.Box)
}

// Recenter translates every position by the negated bounding box center so
// that the asset's local origin is its own centroid, then recomputes bounds.
// It is applied at most once; later calls return a zero offset.
func (a *Asset) Recenter() geometry.Vector3 {
	if a.centered {
		return geometry.Vector3{}
	}
	a.centered = true

	// the stored box may predate edits to Positions
	a.ComputeBounds()
	center := a.Box.Center()
	if center.IsZero() {
		return geometry.Vector3{}
	}

	cx, cy, cz := float32(center.X), float32(center.Y), float32(center.Z)
	for i := 0; i+2 < len(a.Positions); i += 3 {
		a.Positions[i] -= cx
		a.Positions[i+1] -= cy
		a.Positions[i+2] -= cz
	}
	a.ComputeBounds()
	return center.Mul(-1)
}

// Validate checks buffer strides and index ranges
func (a *Asset) Validate() error {
	if len(a.Positions)%3 != 0 {
		return fmt.Errorf("position buffer length %d is not a multiple of 3", len(a.Positions))
	}
	if len(a.Normals) > 0 && len(a.Normals) != len(a.Positions) {
		return fmt.Errorf("normal buffer length %d does not match positions %d", len(a.Normals), len(a.Positions))
	}
	if len(a.Colors) > 0 && len(a.Colors)/ColorStride != a.VertexCount() {
		return fmt.Errorf("color buffer holds %d colors for %d vertices", len(a.Colors)/ColorStride, a.VertexCount())
	}
	if a.Indices != nil {
		if len(a.Indices)%3 != 0 {
			return fmt.Errorf("index buffer length %d is not a multiple of 3", len(a.Indices))
		}
		count := uint32(a.VertexCount())
		for i, idx := range a.Indices {
			if idx >= count {
				return fmt.Errorf("index %d at position %d out of range (%d vertices)", idx, i, count)
			}
		}
	} else if a.VertexCount()%3 != 0 {
		return fmt.Errorf("non-indexed asset has %d vertices, not a whole number of triangles", a.VertexCount())
	}
	return nil
}

// Clone returns a deep copy that shares no buffers with the original
func (a *Asset) Clone() *Asset {
	c := &Asset{
		Name:      a.Name,
		Positions: append([]float32(nil), a.Positions...),
		Box:       a.Box,
		Sphere:    a.Sphere,
		centered:  a.centered,
	}
	if a.Normals != nil {
		c.Normals = append([]float32(nil), a.Normals...)
	}
	if a.Colors != nil {
		c.Colors = append([]float32(nil), a.Colors...)
	}
	if a.Indices != nil {
		c.Indices = append([]uint32(nil), a.Indices...)
	}
	if a.Material != nil {
		m := *a.Material
		c.Material = &m
	}
	return c
}
