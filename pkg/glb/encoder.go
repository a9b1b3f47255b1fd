package glb

import (
	"fmt"
	"io"

	"github.com/makistry/meshview/pkg/mesh"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// Encode writes the assets as a single-scene GLB, one node per asset
func Encode(w io.Writer, assets ...*mesh.Asset) error {
	doc := gltf.NewDocument()

	for i, a := range assets {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("asset %d: %w", i, err)
		}

		positions := make([][3]float32, a.VertexCount())
		for v := range positions {
			positions[v] = [3]float32{a.Positions[v*3], a.Positions[v*3+1], a.Positions[v*3+2]}
		}
		prim := &gltf.Primitive{
			Attributes: gltf.Attribute{
				attrPosition: modeler.WritePosition(doc, positions),
			},
		}

		if a.HasNormals() {
			normals := make([][3]float32, a.VertexCount())
			for v := range normals {
				normals[v] = [3]float32{a.Normals[v*3], a.Normals[v*3+1], a.Normals[v*3+2]}
			}
			prim.Attributes[attrNormal] = modeler.WriteNormal(doc, normals)
		}

		if a.HasColors() {
			colors := make([][4]uint8, a.VertexCount())
			for v := range colors {
				for c := 0; c < 4; c++ {
					colors[v][c] = toByte(a.Colors[v*mesh.ColorStride+c])
				}
			}
			prim.Attributes[attrColor] = modeler.WriteColor(doc, colors)
		}

		if a.Indices != nil {
			prim.Indices = gltf.Index(modeler.WriteIndices(doc, a.Indices))
		}

		if a.Material != nil {
			base := a.Material.BaseColor
			doc.Materials = append(doc.Materials, &gltf.Material{
				Name:        a.Material.Name,
				DoubleSided: a.Material.DoubleSided,
				PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
					BaseColorFactor: &base,
				},
			})
			prim.Material = gltf.Index(uint32(len(doc.Materials) - 1))
		}

		doc.Meshes = append(doc.Meshes, &gltf.Mesh{Name: a.Name, Primitives: []*gltf.Primitive{prim}})
		doc.Nodes = append(doc.Nodes, &gltf.Node{Name: a.Name, Mesh: gltf.Index(uint32(len(doc.Meshes) - 1))})
		doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, uint32(len(doc.Nodes)-1))
	}

	enc := gltf.NewEncoder(w)
	enc.AsBinary = true
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode GLB: %w", err)
	}
	return nil
}

func toByte(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v*255 + 0.5)
}
