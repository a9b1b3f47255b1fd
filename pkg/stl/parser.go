// Package stl decodes and encodes raw-triangle STL surfaces.
package stl

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/makistry/meshview/pkg/geometry"
	"github.com/makistry/meshview/pkg/mesh"
)

const (
	headerSize = 80
	facetSize  = 50
)

// Parse reads an STL file and returns its asset
func Parse(filename string) (*mesh.Asset, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return Decode(file)
}

// Decode reads an STL stream and returns its asset.
// Binary files are recognised by their size (84 + 50 bytes per facet) so that
// binary headers starting with "solid" are not mistaken for ASCII.
func Decode(r io.Reader) (*mesh.Asset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read STL data: %w", err)
	}
	return DecodeBytes(data)
}

// DecodeBytes parses an in-memory STL file
func DecodeBytes(data []byte) (*mesh.Asset, error) {
	var asset *mesh.Asset
	var err error
	if isBinary(data) {
		asset, err = parseBinary(data)
	} else if bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), []byte("solid")) {
		asset, err = parseASCII(bytes.NewReader(data))
	} else {
		return nil, fmt.Errorf("unrecognised STL data (%d bytes)", len(data))
	}
	if err != nil {
		return nil, err
	}

	fillFacetNormals(asset)
	asset.ComputeBounds()
	return asset, nil
}

// isBinary applies the binary size rule
func isBinary(data []byte) bool {
	if len(data) < headerSize+4 {
		return false
	}
	count := binary.LittleEndian.Uint32(data[headerSize : headerSize+4])
	return uint64(len(data)) == uint64(headerSize+4)+uint64(count)*facetSize
}

// parseASCII parses an ASCII STL file
func parseASCII(reader io.Reader) (*mesh.Asset, error) {
	scanner := bufio.NewScanner(reader)
	asset := &mesh.Asset{}

	var currentNormal [3]float32
	var vertices [][3]float32

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())

		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "solid":
			if len(fields) > 1 {
				asset.Name = strings.Join(fields[1:], " ")
			}

		case "facet":
			if len(fields) >= 5 && fields[1] == "normal" {
				n, err := parseTriple(fields[2:5])
				if err != nil {
					return nil, fmt.Errorf("line %d: bad facet normal: %w", lineNo, err)
				}
				currentNormal = n
			}

		case "vertex":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: vertex needs 3 coordinates", lineNo)
			}
			v, err := parseTriple(fields[1:4])
			if err != nil {
				return nil, fmt.Errorf("line %d: bad vertex: %w", lineNo, err)
			}
			vertices = append(vertices, v)

		case "endfacet":
			if len(vertices) == 3 {
				for _, v := range vertices {
					asset.Positions = append(asset.Positions, v[0], v[1], v[2])
					asset.Normals = append(asset.Normals, currentNormal[0], currentNormal[1], currentNormal[2])
				}
			}
			vertices = vertices[:0]
			currentNormal = [3]float32{}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading ASCII STL: %w", err)
	}

	return asset, nil
}

func parseTriple(fields []string) ([3]float32, error) {
	var out [3]float32
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return out, err
		}
		out[i] = float32(v)
	}
	return out, nil
}

// parseBinary parses a binary STL file
func parseBinary(data []byte) (*mesh.Asset, error) {
	asset := &mesh.Asset{}

	// Extract name from header (if present)
	headerStr := strings.TrimSpace(string(bytes.TrimRight(data[:headerSize], "\x00")))
	if len(headerStr) > 0 {
		asset.Name = headerStr
	}

	triangleCount := binary.LittleEndian.Uint32(data[headerSize : headerSize+4])
	asset.Positions = make([]float32, 0, triangleCount*9)
	asset.Normals = make([]float32, 0, triangleCount*9)

	reader := bytes.NewReader(data[headerSize+4:])
	for i := uint32(0); i < triangleCount; i++ {
		var facet struct {
			Normal    [3]float32
			Vertices  [3][3]float32
			Attribute uint16
		}
		if err := binary.Read(reader, binary.LittleEndian, &facet); err != nil {
			return nil, fmt.Errorf("failed to read triangle %d: %w", i, err)
		}

		for _, v := range facet.Vertices {
			asset.Positions = append(asset.Positions, v[0], v[1], v[2])
			asset.Normals = append(asset.Normals, facet.Normal[0], facet.Normal[1], facet.Normal[2])
		}
	}

	return asset, nil
}

// fillFacetNormals replaces every zero or non-finite facet normal with the
// normal computed from the facet's winding. Writers often skip normals for
// some facets only, so each facet is checked on its own.
func fillFacetNormals(asset *mesh.Asset) {
	if len(asset.Normals) != len(asset.Positions) {
		asset.Normals = make([]float32, len(asset.Positions))
	}
	for f := 0; f*3+2 < asset.VertexCount(); f++ {
		first := f * 3
		if usableNormal(geometry.Vector3At(asset.Normals, first)) {
			continue
		}
		tri := geometry.TriangleOf(asset.Vertex(first), asset.Vertex(first+1), asset.Vertex(first+2))
		for v := first; v < first+3; v++ {
			tri.Normal.Put(asset.Normals, v)
		}
	}
}

func usableNormal(n geometry.Vector3) bool {
	for _, c := range [3]float64{n.X, n.Y, n.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return !n.IsZero()
}
