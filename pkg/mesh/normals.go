package mesh

import "github.com/makistry/meshview/pkg/geometry"

// ComputeNormals derives per-vertex normals from the triangle topology.
// Shared vertices of indexed geometry get the area-weighted average of their
// face normals; non-indexed triangles get their own face normal.
func (a *Asset) ComputeNormals() {
	normals := make([]float32, len(a.Positions))

	if a.Indices == nil {
		for i := 0; i < a.TriangleCount(); i++ {
			n := a.Triangle(i).Normal
			for k := 0; k < 3; k++ {
				n.Put(normals, i*3+k)
			}
		}
		a.Normals = normals
		return
	}

	sums := make([]geometry.Vector3, a.VertexCount())
	for i := 0; i < a.TriangleCount(); i++ {
		i1, i2, i3 := a.TriangleIndices(i)
		face := geometry.Triangle{V1: a.Vertex(int(i1)), V2: a.Vertex(int(i2)), V3: a.Vertex(int(i3))}.FaceNormal()
		sums[i1] = sums[i1].Add(face)
		sums[i2] = sums[i2].Add(face)
		sums[i3] = sums[i3].Add(face)
	}
	for i, sum := range sums {
		sum.Normalize().Put(normals, i)
	}
	a.Normals = normals
}

// EnsureNormals computes normals only when they are missing
func (a *Asset) EnsureNormals() bool {
	if a.HasNormals() {
		return false
	}
	a.ComputeNormals()
	return true
}
