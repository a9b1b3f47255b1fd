package mesh

import (
	"math"
	"testing"

	"github.com/makistry/meshview/pkg/geometry"
)

func TestCubeCounts(t *testing.T) {
	cube := Cube(0, 0, 0)

	if cube.VertexCount() != 8 {
		t.Errorf("expected 8 vertices, got %d", cube.VertexCount())
	}
	if cube.TriangleCount() != 12 {
		t.Errorf("expected 12 triangles, got %d", cube.TriangleCount())
	}
	if err := cube.Validate(); err != nil {
		t.Errorf("cube should validate: %v", err)
	}
	if math.Abs(cube.Sphere.Radius-math.Sqrt(3)) > 1e-6 {
		t.Errorf("expected radius sqrt(3), got %v", cube.Sphere.Radius)
	}
}

func TestRecenterMovesCentroidToOrigin(t *testing.T) {
	cube := Cube(10, -4, 2)

	offset := cube.Recenter()
	expected := geometry.NewVector3(-10, 4, -2)
	if offset.Distance(expected) > 1e-6 {
		t.Errorf("expected offset %v, got %v", expected, offset)
	}
	if cube.Box.Center().Length() > 1e-6 {
		t.Errorf("expected centered box, got center %v", cube.Box.Center())
	}
	if cube.Sphere.Center.Length() > 1e-6 {
		t.Errorf("expected sphere at origin, got %v", cube.Sphere.Center)
	}
}

func TestRecenterIgnoresStaleBox(t *testing.T) {
	cube := Cube(10, 10, 10)
	literal := &Asset{Name: "literal", Positions: cube.Positions, Indices: cube.Indices}

	offset := literal.Recenter()
	if offset.Distance(geometry.NewVector3(-10, -10, -10)) > 1e-6 {
		t.Errorf("expected offset (-10,-10,-10), got %v", offset)
	}
	if literal.Sphere.Center.Length() > 1e-6 {
		t.Errorf("expected sphere at origin, got %v", literal.Sphere.Center)
	}
}

func TestRecenterIsIdempotent(t *testing.T) {
	cube := Cube(3.25, 7.5, -1.125)

	cube.Recenter()
	once := append([]float32(nil), cube.Positions...)

	if offset := cube.Recenter(); !offset.IsZero() {
		t.Errorf("second recenter should be a no-op, got offset %v", offset)
	}
	for i := range once {
		if once[i] != cube.Positions[i] {
			t.Fatalf("position %d changed on second recenter: %v -> %v", i, once[i], cube.Positions[i])
		}
	}
}

func TestComputeNormalsIndexed(t *testing.T) {
	cube := Cube(0, 0, 0)
	cube.ComputeNormals()

	if !cube.HasNormals() {
		t.Fatal("expected normals")
	}
	// Corner normals point away from the center along the diagonal
	for i := 0; i < cube.VertexCount(); i++ {
		v := cube.Vertex(i)
		n := geometry.Vector3At(cube.Normals, i)
		if math.Abs(n.Length()-1) > 1e-5 {
			t.Errorf("normal %d not unit length: %v", i, n)
		}
		if n.Dot(v) <= 0 {
			t.Errorf("normal %d points inward: vertex %v normal %v", i, v, n)
		}
	}
}

func TestComputeNormalsNonIndexed(t *testing.T) {
	tri := New("tri", []float32{0, 0, 0, 1, 0, 0, 0, 1, 0})
	if tri.HasNormals() {
		t.Fatal("fresh asset should have no normals")
	}
	if !tri.EnsureNormals() {
		t.Fatal("EnsureNormals should compute missing normals")
	}
	for i := 0; i < 3; i++ {
		n := geometry.Vector3At(tri.Normals, i)
		if n != geometry.NewVector3(0, 0, 1) {
			t.Errorf("vertex %d: expected +Z normal, got %v", i, n)
		}
	}
	if tri.EnsureNormals() {
		t.Error("EnsureNormals should not recompute existing normals")
	}
}

func TestValidateRejectsBadIndices(t *testing.T) {
	tri := New("tri", []float32{0, 0, 0, 1, 0, 0, 0, 1, 0})
	tri.Indices = []uint32{0, 1, 5}

	if err := tri.Validate(); err == nil {
		t.Error("expected out-of-range index error")
	}
}

func TestCloneIsDeep(t *testing.T) {
	cube := Cube(0, 0, 0)
	cube.Material = &SourceMaterial{Name: "steel"}
	c := cube.Clone()

	c.Positions[0] = 42
	c.Indices[0] = 7
	c.Material.Name = "changed"

	if cube.Positions[0] == 42 || cube.Indices[0] == 7 || cube.Material.Name != "steel" {
		t.Error("clone shares buffers with the original")
	}
}

func TestMerge(t *testing.T) {
	a := New("a", []float32{0, 0, 0, 1, 0, 0, 0, 1, 0})
	b := Cube(5, 0, 0)
	b.PaintByHeight()

	merged := Merge("", a, b)

	if merged.VertexCount() != 3+8 {
		t.Errorf("expected 11 vertices, got %d", merged.VertexCount())
	}
	if merged.TriangleCount() != 1+12 {
		t.Errorf("expected 13 triangles, got %d", merged.TriangleCount())
	}
	if !merged.HasColors() {
		t.Error("expected merged colors")
	}
	if merged.HasNormals() {
		t.Error("normals should be dropped when a part lacks them")
	}
	if err := merged.Validate(); err != nil {
		t.Errorf("merged asset should validate: %v", err)
	}
	if merged.Name != "a+cube" {
		t.Errorf("expected joined name, got %q", merged.Name)
	}
}

func TestBoxDivisions(t *testing.T) {
	box := Box("box", 60, 80, 90, 0, 40, 0, 2)

	if box.TriangleCount() != 6*2*2*2 {
		t.Errorf("expected 48 triangles, got %d", box.TriangleCount())
	}
	size := box.Box.Size()
	if size != geometry.NewVector3(60, 80, 90) {
		t.Errorf("unexpected size %v", size)
	}
	if err := box.Validate(); err != nil {
		t.Errorf("box should validate: %v", err)
	}
}

func TestHeatmapEnds(t *testing.T) {
	r, g, b := Heatmap(0)
	if r != 0 || g != 0 || b != 1 {
		t.Errorf("cold end should be blue, got %v %v %v", r, g, b)
	}
	r, g, b = Heatmap(1)
	if r != 1 || g != 0 || b != 0 {
		t.Errorf("hot end should be red, got %v %v %v", r, g, b)
	}
}
