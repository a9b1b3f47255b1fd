package stub

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/makistry/meshview/pkg/glb"
	"github.com/makistry/meshview/pkg/mesh"
	"github.com/makistry/meshview/pkg/stl"
)

// Generated artifact names under /static/
const (
	AssetPlaceholder = "placeholder.stl"
	AssetMesh        = "mesh.glb"
	AssetMeshInput   = "mesh.inp"
	AssetResults     = "results.glb"
	AssetResultsFRD  = "results.frd"
	AssetResultsDAT  = "results.dat"
)

// meshDivisions is how finely the analysis mesh subdivides each box face
const meshDivisions = 6

type asset struct {
	contentType string
	data        []byte
}

// assetSet builds the placeholder artifacts once, on first request
type assetSet struct {
	geometry Geometry

	once   sync.Once
	err    error
	assets map[string]asset
}

func (s *assetSet) get(name string) (asset, bool, error) {
	s.once.Do(func() {
		s.assets, s.err = buildAssets(s.geometry)
	})
	if s.err != nil {
		return asset{}, false, s.err
	}
	a, ok := s.assets[name]
	return a, ok, nil
}

func buildAssets(g Geometry) (map[string]asset, error) {
	w, h, d := float32(g.WidthMM), float32(g.HeightMM), float32(g.DepthMM)
	out := make(map[string]asset, 6)

	shell := mesh.Box("placeholder", w, h, d, 0, 0, 0, 1)
	var buf bytes.Buffer
	if err := stl.Encode(&buf, shell); err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", AssetPlaceholder, err)
	}
	out[AssetPlaceholder] = asset{contentType: "model/stl", data: buf.Bytes()}

	fine := mesh.Box("mesh", w, h, d, 0, 0, 0, meshDivisions)
	fine.ComputeNormals()
	buf = bytes.Buffer{}
	if err := glb.Encode(&buf, fine); err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", AssetMesh, err)
	}
	out[AssetMesh] = asset{contentType: "model/gltf-binary", data: buf.Bytes()}

	result := fine.Clone()
	result.Name = "results"
	result.PaintByHeight()
	buf = bytes.Buffer{}
	if err := glb.Encode(&buf, result); err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", AssetResults, err)
	}
	out[AssetResults] = asset{contentType: "model/gltf-binary", data: buf.Bytes()}

	out[AssetMeshInput] = asset{contentType: "text/plain; charset=utf-8", data: []byte(
		fmt.Sprintf("** Placeholder analysis mesh\n** %d nodes, %d elements\n*NODE\n*ELEMENT, TYPE=S3\n",
			fine.VertexCount(), fine.TriangleCount()))}
	out[AssetResultsFRD] = asset{contentType: "text/plain; charset=utf-8", data: []byte("    1C placeholder results\n 9999\n")}
	out[AssetResultsDAT] = asset{contentType: "text/plain; charset=utf-8", data: []byte("placeholder displacement output\n")}

	return out, nil
}
