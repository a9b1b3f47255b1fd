package stl

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/makistry/meshview/pkg/geometry"
	"github.com/makistry/meshview/pkg/mesh"
)

const asciiTriangle = `solid demo part
  facet normal 0 0 1
    outer loop
      vertex 0 0 0
      vertex 1 0 0
      vertex 0 1 0
    endloop
  endfacet
endsolid demo part
`

func TestDecodeASCII(t *testing.T) {
	asset, err := Decode(strings.NewReader(asciiTriangle))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if asset.Name != "demo part" {
		t.Errorf("expected name 'demo part', got %q", asset.Name)
	}
	if asset.TriangleCount() != 1 {
		t.Errorf("expected 1 triangle, got %d", asset.TriangleCount())
	}
	if asset.Indices != nil {
		t.Error("STL assets are non-indexed")
	}
	if geometry.Vector3At(asset.Normals, 0) != geometry.NewVector3(0, 0, 1) {
		t.Errorf("facet normal not preserved: %v", geometry.Vector3At(asset.Normals, 0))
	}
}

func TestDecodeASCIIMissingNormals(t *testing.T) {
	data := strings.ReplaceAll(asciiTriangle, "facet normal 0 0 1", "facet normal 0 0 0")
	asset, err := Decode(strings.NewReader(data))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if !asset.HasNormals() {
		t.Fatal("expected computed normals")
	}
	if geometry.Vector3At(asset.Normals, 0) != geometry.NewVector3(0, 0, 1) {
		t.Errorf("expected computed +Z normal, got %v", geometry.Vector3At(asset.Normals, 0))
	}
}

func TestDecodeASCIIMixedNormals(t *testing.T) {
	data := `solid mixed
  facet normal 1 0 0
    outer loop
      vertex 0 0 0
      vertex 1 0 0
      vertex 0 1 0
    endloop
  endfacet
  facet normal 0 0 0
    outer loop
      vertex 0 0 5
      vertex 0 1 5
      vertex 1 0 5
    endloop
  endfacet
endsolid mixed
`
	asset, err := Decode(strings.NewReader(data))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	// The stored normal is kept even though it disagrees with the winding
	for v := 0; v < 3; v++ {
		if n := geometry.Vector3At(asset.Normals, v); n != geometry.NewVector3(1, 0, 0) {
			t.Errorf("vertex %d: stored normal replaced with %v", v, n)
		}
	}
	for v := 3; v < 6; v++ {
		if n := geometry.Vector3At(asset.Normals, v); n != geometry.NewVector3(0, 0, -1) {
			t.Errorf("vertex %d: expected computed -Z normal, got %v", v, n)
		}
	}
}

func TestDecodeBinaryNaNNormal(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, mesh.Cube(0, 0, 0)); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	data := buf.Bytes()
	// first facet normal starts right after the header and count
	nan := math.Float32bits(float32(math.NaN()))
	data[headerSize+4] = byte(nan)
	data[headerSize+5] = byte(nan >> 8)
	data[headerSize+6] = byte(nan >> 16)
	data[headerSize+7] = byte(nan >> 24)

	asset, err := DecodeBytes(data)
	if err != nil {
		t.Fatalf("DecodeBytes failed: %v", err)
	}
	for i, n := range asset.Normals {
		if math.IsNaN(float64(n)) {
			t.Fatalf("normal component %d is NaN", i)
		}
	}
	if geometry.Vector3At(asset.Normals, 0).Length() < 0.99 {
		t.Errorf("expected a unit normal for the first facet, got %v", geometry.Vector3At(asset.Normals, 0))
	}
}

func TestDecodeASCIIBadVertex(t *testing.T) {
	data := strings.Replace(asciiTriangle, "vertex 1 0 0", "vertex 1 zero 0", 1)
	if _, err := Decode(strings.NewReader(data)); err == nil {
		t.Error("expected parse error for malformed vertex")
	}
}

func TestBinaryRoundTripCube(t *testing.T) {
	cube := mesh.Cube(0, 0, 0)

	var buf bytes.Buffer
	if err := Encode(&buf, cube); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if buf.Len() != headerSize+4+12*facetSize {
		t.Fatalf("unexpected binary size %d", buf.Len())
	}

	asset, err := DecodeBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("DecodeBytes failed: %v", err)
	}
	if asset.TriangleCount() != 12 {
		t.Errorf("expected 12 triangles, got %d", asset.TriangleCount())
	}
	if asset.Box.Min != geometry.NewVector3(-1, -1, -1) || asset.Box.Max != geometry.NewVector3(1, 1, 1) {
		t.Errorf("unexpected bounds %v", asset.Box)
	}
	if math.Abs(asset.Sphere.Radius-math.Sqrt(3)) > 1e-6 {
		t.Errorf("expected radius sqrt(3), got %v", asset.Sphere.Radius)
	}
}

func TestBinaryHeaderStartingWithSolid(t *testing.T) {
	cube := mesh.Cube(0, 0, 0)
	cube.Name = "solid exported by a CAD tool"

	var buf bytes.Buffer
	if err := Encode(&buf, cube); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	asset, err := DecodeBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("binary file with solid header should decode: %v", err)
	}
	if asset.TriangleCount() != 12 {
		t.Errorf("expected 12 triangles, got %d", asset.TriangleCount())
	}
}

func TestParseFileASCII(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cube.stl")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := EncodeASCII(f, mesh.Cube(2, 0, 0)); err != nil {
		t.Fatalf("EncodeASCII failed: %v", err)
	}
	f.Close()

	asset, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if asset.TriangleCount() != 12 {
		t.Errorf("expected 12 triangles, got %d", asset.TriangleCount())
	}
	if asset.Box.Center() != geometry.NewVector3(2, 0, 0) {
		t.Errorf("expected center (2,0,0), got %v", asset.Box.Center())
	}
}

func TestDecodeGarbage(t *testing.T) {
	if _, err := DecodeBytes([]byte("definitely not a mesh")); err == nil {
		t.Error("expected error for unrecognised data")
	}
}
