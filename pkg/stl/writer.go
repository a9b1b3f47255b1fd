package stl

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/makistry/meshview/pkg/mesh"
)

// Encode writes the asset as a binary STL, expanding indexed geometry into
// independent facets with computed face normals
func Encode(w io.Writer, asset *mesh.Asset) error {
	header := make([]byte, headerSize)
	copy(header, asset.Name)

	bw := bufio.NewWriter(w)
	if _, err := bw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(asset.TriangleCount())); err != nil {
		return fmt.Errorf("failed to write triangle count: %w", err)
	}

	for i := 0; i < asset.TriangleCount(); i++ {
		tri := asset.Triangle(i)
		facet := struct {
			Normal    [3]float32
			Vertices  [3][3]float32
			Attribute uint16
		}{
			Normal: [3]float32{float32(tri.Normal.X), float32(tri.Normal.Y), float32(tri.Normal.Z)},
			Vertices: [3][3]float32{
				{float32(tri.V1.X), float32(tri.V1.Y), float32(tri.V1.Z)},
				{float32(tri.V2.X), float32(tri.V2.Y), float32(tri.V2.Z)},
				{float32(tri.V3.X), float32(tri.V3.Y), float32(tri.V3.Z)},
			},
		}
		if err := binary.Write(bw, binary.LittleEndian, &facet); err != nil {
			return fmt.Errorf("failed to write triangle %d: %w", i, err)
		}
	}

	return bw.Flush()
}

// EncodeASCII writes the asset as an ASCII STL
func EncodeASCII(w io.Writer, asset *mesh.Asset) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "solid %s\n", asset.Name)
	for i := 0; i < asset.TriangleCount(); i++ {
		tri := asset.Triangle(i)
		fmt.Fprintf(bw, "  facet normal %g %g %g\n", tri.Normal.X, tri.Normal.Y, tri.Normal.Z)
		fmt.Fprintln(bw, "    outer loop")
		for _, v := range [3][3]float64{
			{tri.V1.X, tri.V1.Y, tri.V1.Z},
			{tri.V2.X, tri.V2.Y, tri.V2.Z},
			{tri.V3.X, tri.V3.Y, tri.V3.Z},
		} {
			fmt.Fprintf(bw, "      vertex %g %g %g\n", v[0], v[1], v[2])
		}
		fmt.Fprintln(bw, "    endloop")
		fmt.Fprintln(bw, "  endfacet")
	}
	fmt.Fprintf(bw, "endsolid %s\n", asset.Name)
	return bw.Flush()
}
