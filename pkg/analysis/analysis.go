// Package analysis computes summary statistics of a mesh asset.
package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/makistry/meshview/pkg/geometry"
	"github.com/makistry/meshview/pkg/mesh"
)

// EdgeInfo contains information about an edge in the model
type EdgeInfo struct {
	Start      geometry.Vector3
	End        geometry.Vector3
	Length     float64
	TriangleID int
}

// Result contains various measurements of a mesh asset
type Result struct {
	Name            string
	BoundingBox     geometry.BoundingBox
	Sphere          geometry.Sphere
	Dimensions      geometry.Vector3
	Volume          float64
	SurfaceArea     float64
	VertexCount     int
	TriangleCount   int
	DegenerateCount int
	HasNormals      bool
	HasColors       bool
	Indexed         bool
	EdgeCount       int
	UniqueEdgeCount int
	MinEdgeLength   float64
	MaxEdgeLength   float64
	AvgEdgeLength   float64
	AllEdges        []EdgeInfo
}

type edgeKey struct {
	a, b uint32
}

// Analyze performs comprehensive analysis on an asset
func Analyze(asset *mesh.Asset) *Result {
	result := &Result{
		Name:          asset.Name,
		BoundingBox:   asset.Box,
		Sphere:        asset.Sphere,
		VertexCount:   asset.VertexCount(),
		TriangleCount: asset.TriangleCount(),
		HasNormals:    asset.HasNormals(),
		HasColors:     asset.HasColors(),
		Indexed:       asset.Indices != nil,
		AllEdges:      make([]EdgeInfo, 0, asset.TriangleCount()*3),
	}

	result.Dimensions = result.BoundingBox.Size()
	result.Volume = result.BoundingBox.Volume()

	minLength := math.MaxFloat64
	maxLength := 0.0
	totalLength := 0.0
	unique := make(map[edgeKey]struct{})

	for i := 0; i < asset.TriangleCount(); i++ {
		triangle := asset.Triangle(i)
		result.SurfaceArea += triangle.Area()
		if triangle.IsDegenerate() {
			result.DegenerateCount++
		}

		i1, i2, i3 := asset.TriangleIndices(i)
		edges := []struct {
			start, end geometry.Vector3
			key        edgeKey
		}{
			{triangle.V1, triangle.V2, orderedKey(i1, i2)},
			{triangle.V2, triangle.V3, orderedKey(i2, i3)},
			{triangle.V3, triangle.V1, orderedKey(i3, i1)},
		}

		for _, edge := range edges {
			length := edge.start.Distance(edge.end)
			result.AllEdges = append(result.AllEdges, EdgeInfo{
				Start:      edge.start,
				End:        edge.end,
				Length:     length,
				TriangleID: i,
			})
			unique[edge.key] = struct{}{}

			totalLength += length
			minLength = math.Min(minLength, length)
			maxLength = math.Max(maxLength, length)
		}
	}

	result.EdgeCount = len(result.AllEdges)
	// Shared edges are only known for indexed meshes
	if result.Indexed {
		result.UniqueEdgeCount = len(unique)
	} else {
		result.UniqueEdgeCount = result.EdgeCount
	}
	if result.EdgeCount > 0 {
		result.MinEdgeLength = minLength
		result.MaxEdgeLength = maxLength
		result.AvgEdgeLength = totalLength / float64(result.EdgeCount)
	}

	return result
}

func orderedKey(a, b uint32) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{a, b}
}

// FindEdgesByLength finds all edges within a length range
func FindEdgesByLength(result *Result, minLength, maxLength float64) []EdgeInfo {
	var edges []EdgeInfo
	for _, edge := range result.AllEdges {
		if edge.Length >= minLength && edge.Length <= maxLength {
			edges = append(edges, edge)
		}
	}
	return edges
}

// FindLongestEdges returns the N longest edges in the model
func FindLongestEdges(result *Result, count int) []EdgeInfo {
	return sortedEdges(result, count, func(a, b float64) bool { return a > b })
}

// FindShortestEdges returns the N shortest edges in the model
func FindShortestEdges(result *Result, count int) []EdgeInfo {
	return sortedEdges(result, count, func(a, b float64) bool { return a < b })
}

func sortedEdges(result *Result, count int, less func(a, b float64) bool) []EdgeInfo {
	edges := make([]EdgeInfo, len(result.AllEdges))
	copy(edges, result.AllEdges)

	sort.SliceStable(edges, func(i, j int) bool {
		return less(edges[i].Length, edges[j].Length)
	})

	count = max(0, min(count, len(edges)))
	return edges[:count]
}

// FormatVector formats a 3D vector
func FormatVector(v geometry.Vector3) string {
	return fmt.Sprintf("(%.6f, %.6f, %.6f)", v.X, v.Y, v.Z)
}
