package main

import (
	"fmt"

	"github.com/makistry/meshview/pkg/analysis"
	"github.com/makistry/meshview/pkg/loader"
	"github.com/spf13/cobra"
)

var infoFormat string

var infoCmd = &cobra.Command{
	Use:   "info [file or url]",
	Short: "Display general information about a mesh",
	Long:  "Show dimensions, bounding sphere, triangle count, surface area and edge statistics of an STL or GLB mesh.",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
	infoCmd.Flags().StringVarP(&infoFormat, "format", "f", "auto", "Source format (auto, stl, glb)")
}

func runInfo(cmd *cobra.Command, args []string) error {
	source := args[0]
	format, err := loader.ParseFormat(infoFormat)
	if err != nil {
		return err
	}

	l := newLoader(cfg.Backend.BaseURL)
	defer l.Close()
	asset, err := loadAsset(cmd.Context(), l, source, format)
	if err != nil {
		return err
	}

	result := analysis.Analyze(asset)
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Mesh Information")
	fmt.Fprintln(out, "================")
	if result.Name != "" {
		fmt.Fprintf(out, "Name: %s\n", result.Name)
	}
	fmt.Fprintf(out, "Source: %s\n\n", source)

	fmt.Fprintln(out, "Model Statistics:")
	fmt.Fprintf(out, "  Vertices: %d\n", result.VertexCount)
	fmt.Fprintf(out, "  Triangles: %d\n", result.TriangleCount)
	fmt.Fprintf(out, "  Degenerate: %d\n", result.DegenerateCount)
	fmt.Fprintf(out, "  Edges: %d (%d unique)\n", result.EdgeCount, result.UniqueEdgeCount)
	fmt.Fprintf(out, "  Indexed: %t, normals: %t, colors: %t\n", result.Indexed, result.HasNormals, result.HasColors)
	fmt.Fprintf(out, "  Surface Area: %.6f square units\n\n", result.SurfaceArea)

	fmt.Fprintln(out, "Bounding Box:")
	fmt.Fprintf(out, "  Min: %s\n", analysis.FormatVector(result.BoundingBox.Min))
	fmt.Fprintf(out, "  Max: %s\n", analysis.FormatVector(result.BoundingBox.Max))
	fmt.Fprintf(out, "  Center: %s\n\n", analysis.FormatVector(result.BoundingBox.Center()))

	fmt.Fprintln(out, "Bounding Sphere:")
	fmt.Fprintf(out, "  Center: %s\n", analysis.FormatVector(result.Sphere.Center))
	fmt.Fprintf(out, "  Radius: %.6f units\n\n", result.Sphere.Radius)

	fmt.Fprintln(out, "Dimensions:")
	fmt.Fprintf(out, "  Width (X): %.6f units\n", result.Dimensions.X)
	fmt.Fprintf(out, "  Height (Y): %.6f units\n", result.Dimensions.Y)
	fmt.Fprintf(out, "  Depth (Z): %.6f units\n", result.Dimensions.Z)
	fmt.Fprintf(out, "  Diagonal: %.6f units\n", result.BoundingBox.Diagonal())
	fmt.Fprintf(out, "  Volume: %.6f cubic units\n\n", result.Volume)

	fmt.Fprintln(out, "Edge Lengths:")
	fmt.Fprintf(out, "  Minimum: %.6f units\n", result.MinEdgeLength)
	fmt.Fprintf(out, "  Maximum: %.6f units\n", result.MaxEdgeLength)
	fmt.Fprintf(out, "  Average: %.6f units\n", result.AvgEdgeLength)
	return nil
}
