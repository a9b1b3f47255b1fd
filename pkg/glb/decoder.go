// Package glb flattens binary glTF scene graphs into mesh assets.
package glb

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/makistry/meshview/pkg/mesh"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// glTF 2.0 attribute names
const (
	attrPosition = "POSITION"
	attrNormal   = "NORMAL"
	attrColor    = "COLOR_0"
)

// maxDepth bounds node traversal so malformed files with cycles terminate
const maxDepth = 64

// Magic is the first four bytes of every GLB file
var Magic = []byte("glTF")

// IsGLB reports whether data starts with the GLB magic
func IsGLB(data []byte) bool {
	return bytes.HasPrefix(data, Magic)
}

// Decode reads a GLB (or embedded glTF JSON) stream and returns one asset per
// triangle primitive reachable from the default scene, with node transforms
// applied to positions and normals
func Decode(r io.Reader) ([]*mesh.Asset, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(r).Decode(doc); err != nil {
		return nil, fmt.Errorf("failed to decode glTF: %w", err)
	}
	return Flatten(doc)
}

// Flatten walks the document's default scene and extracts its meshes
func Flatten(doc *gltf.Document) ([]*mesh.Asset, error) {
	f := &flattener{doc: doc}

	roots := sceneRoots(doc)
	if len(roots) == 0 {
		// No node hierarchy: take meshes as they are
		for i := range doc.Meshes {
			if err := f.addMesh(uint32(i), mgl64.Ident4()); err != nil {
				return nil, err
			}
		}
	}
	for _, idx := range roots {
		if err := f.visit(idx, mgl64.Ident4(), 0); err != nil {
			return nil, err
		}
	}

	if len(f.assets) == 0 {
		return nil, fmt.Errorf("glTF contains no triangle geometry")
	}
	return f.assets, nil
}

type flattener struct {
	doc    *gltf.Document
	assets []*mesh.Asset
}

// sceneRoots returns the root nodes of the default scene, or every node that
// is nobody's child when the file declares no scene
func sceneRoots(doc *gltf.Document) []uint32 {
	if len(doc.Scenes) > 0 {
		scene := 0
		if doc.Scene != nil && int(*doc.Scene) < len(doc.Scenes) {
			scene = int(*doc.Scene)
		}
		return doc.Scenes[scene].Nodes
	}

	isChild := make(map[uint32]bool)
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			isChild[c] = true
		}
	}
	var roots []uint32
	for i := range doc.Nodes {
		if !isChild[uint32(i)] {
			roots = append(roots, uint32(i))
		}
	}
	return roots
}

func (f *flattener) visit(idx uint32, parent mgl64.Mat4, depth int) error {
	if depth > maxDepth {
		return fmt.Errorf("node hierarchy deeper than %d levels", maxDepth)
	}
	if int(idx) >= len(f.doc.Nodes) {
		return fmt.Errorf("node index %d out of range", idx)
	}

	node := f.doc.Nodes[idx]
	world := parent.Mul4(localMatrix(node))

	if node.Mesh != nil {
		if err := f.addMesh(*node.Mesh, world); err != nil {
			return err
		}
	}
	for _, child := range node.Children {
		if err := f.visit(child, world, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// localMatrix returns the node's matrix, or its TRS composition when no
// explicit matrix is set
func localMatrix(node *gltf.Node) mgl64.Mat4 {
	m := mgl64.Mat4(node.MatrixOrDefault())
	if m != mgl64.Ident4() {
		return m
	}

	t := node.TranslationOrDefault()
	r := node.RotationOrDefault()
	s := node.ScaleOrDefault()

	rotation := mgl64.Quat{W: r[3], V: mgl64.Vec3{r[0], r[1], r[2]}}
	return mgl64.Translate3D(t[0], t[1], t[2]).
		Mul4(rotation.Normalize().Mat4()).
		Mul4(mgl64.Scale3D(s[0], s[1], s[2]))
}

func (f *flattener) addMesh(meshIdx uint32, world mgl64.Mat4) error {
	if int(meshIdx) >= len(f.doc.Meshes) {
		return fmt.Errorf("mesh index %d out of range", meshIdx)
	}
	m := f.doc.Meshes[meshIdx]

	for p, prim := range m.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles {
			continue
		}
		name := m.Name
		if name == "" {
			name = fmt.Sprintf("mesh_%d", meshIdx)
		}
		if len(m.Primitives) > 1 {
			name = fmt.Sprintf("%s_%d", name, p)
		}

		asset, err := f.readPrimitive(name, prim, world)
		if err != nil {
			return fmt.Errorf("mesh %q primitive %d: %w", name, p, err)
		}
		f.assets = append(f.assets, asset)
	}
	return nil
}

func (f *flattener) readPrimitive(name string, prim *gltf.Primitive, world mgl64.Mat4) (*mesh.Asset, error) {
	doc := f.doc

	posIdx, ok := prim.Attributes[attrPosition]
	if !ok {
		return nil, fmt.Errorf("primitive has no %s attribute", attrPosition)
	}
	acr, err := f.accessor(posIdx)
	if err != nil {
		return nil, err
	}
	positions, err := modeler.ReadPosition(doc, acr, nil)
	if err != nil {
		return nil, fmt.Errorf("reading positions: %w", err)
	}

	asset := &mesh.Asset{Name: name, Positions: make([]float32, 0, len(positions)*3)}
	for _, p := range positions {
		v := world.Mul4x1(mgl64.Vec4{float64(p[0]), float64(p[1]), float64(p[2]), 1})
		asset.Positions = append(asset.Positions, float32(v[0]), float32(v[1]), float32(v[2]))
	}

	if idx, ok := prim.Attributes[attrNormal]; ok {
		acr, err := f.accessor(idx)
		if err != nil {
			return nil, err
		}
		normals, err := modeler.ReadNormal(doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("reading normals: %w", err)
		}
		normalMatrix := world.Mat3().Inv().Transpose()
		asset.Normals = make([]float32, 0, len(normals)*3)
		for _, n := range normals {
			v := normalMatrix.Mul3x1(mgl64.Vec3{float64(n[0]), float64(n[1]), float64(n[2])})
			if v.Len() > 0 {
				v = v.Normalize()
			}
			asset.Normals = append(asset.Normals, float32(v[0]), float32(v[1]), float32(v[2]))
		}
	}

	if idx, ok := prim.Attributes[attrColor]; ok {
		acr, err := f.accessor(idx)
		if err != nil {
			return nil, err
		}
		colors, err := modeler.ReadColor(doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("reading colors: %w", err)
		}
		asset.Colors = make([]float32, 0, len(colors)*mesh.ColorStride)
		for _, c := range colors {
			asset.Colors = append(asset.Colors,
				float32(c[0])/255, float32(c[1])/255, float32(c[2])/255, float32(c[3])/255)
		}
	}

	if prim.Indices != nil {
		acr, err := f.accessor(*prim.Indices)
		if err != nil {
			return nil, err
		}
		indices, err := modeler.ReadIndices(doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("reading indices: %w", err)
		}
		asset.Indices = indices
	}

	asset.Material = f.material(prim, asset.HasColors())

	if err := asset.Validate(); err != nil {
		return nil, err
	}
	if !asset.HasNormals() {
		asset.ComputeNormals()
	}
	asset.ComputeBounds()
	return asset, nil
}

// accessor returns the accessor at idx, rejecting out of range references
func (f *flattener) accessor(idx uint32) (*gltf.Accessor, error) {
	if int(idx) >= len(f.doc.Accessors) || f.doc.Accessors[idx] == nil {
		return nil, fmt.Errorf("accessor index %d out of range", idx)
	}
	return f.doc.Accessors[idx], nil
}

// material converts the primitive's declared material. Geometry carrying
// COLOR_0 declares vertex-color usage, as glTF viewers apply it implicitly.
func (f *flattener) material(prim *gltf.Primitive, hasColors bool) *mesh.SourceMaterial {
	out := &mesh.SourceMaterial{
		BaseColor:    [4]float64{1, 1, 1, 1},
		VertexColors: hasColors,
	}
	if prim.Material == nil || int(*prim.Material) >= len(f.doc.Materials) {
		if !hasColors {
			return nil
		}
		return out
	}

	m := f.doc.Materials[*prim.Material]
	out.Name = m.Name
	out.DoubleSided = m.DoubleSided
	if m.PBRMetallicRoughness != nil && m.PBRMetallicRoughness.BaseColorFactor != nil {
		out.BaseColor = *m.PBRMetallicRoughness.BaseColorFactor
	}
	return out
}
