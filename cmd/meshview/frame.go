package main

import (
	"fmt"
	"math"

	"github.com/makistry/meshview/pkg/analysis"
	"github.com/makistry/meshview/pkg/loader"
	"github.com/makistry/meshview/pkg/viewer"
	"github.com/spf13/cobra"
)

var (
	frameWidth  int
	frameHeight int
	frameFormat string
)

var frameCmd = &cobra.Command{
	Use:   "frame [file or url]",
	Short: "Print the camera placement that frames a mesh",
	Long: `Recenter the mesh about its bounding box center and compute the camera
distance at which its bounding sphere fits both fields of view of a viewport.`,
	Args: cobra.ExactArgs(1),
	RunE: runFrame,
}

func init() {
	rootCmd.AddCommand(frameCmd)
	frameCmd.Flags().IntVar(&frameWidth, "width", 0, "Viewport width (config default)")
	frameCmd.Flags().IntVar(&frameHeight, "height", 0, "Viewport height (config default)")
	frameCmd.Flags().StringVarP(&frameFormat, "format", "f", "auto", "Source format (auto, stl, glb)")
}

func runFrame(cmd *cobra.Command, args []string) error {
	format, err := loader.ParseFormat(frameFormat)
	if err != nil {
		return err
	}
	width, height := cfg.Viewer.Width, cfg.Viewer.Height
	if frameWidth > 0 {
		width = frameWidth
	}
	if frameHeight > 0 {
		height = frameHeight
	}

	l := newLoader(cfg.Backend.BaseURL)
	defer l.Close()
	asset, err := loadAsset(cmd.Context(), l, args[0], format)
	if err != nil {
		return err
	}

	camera := viewer.NewCamera(cfg.Viewer.FOV)
	camera.SetAspect(width, height)
	offset := asset.Recenter()
	framed := viewer.Frame(camera, nil, asset, cfg.Viewer.Padding)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Viewport: %dx%d, vertical FOV %.1f°, horizontal FOV %.1f°\n",
		width, height, degrees(camera.VerticalFOV()), degrees(camera.HorizontalFOV()))
	fmt.Fprintf(out, "Recentered by: %s\n", analysis.FormatVector(offset))
	fmt.Fprintf(out, "Sphere radius: %.6f\n", asset.Sphere.Radius)
	if !framed {
		fmt.Fprintln(out, "Mesh has no extent, camera unchanged")
		return nil
	}
	fmt.Fprintf(out, "Camera position: %s\n", analysis.FormatVector(camera.Position))
	fmt.Fprintf(out, "Distance: %.6f\n", camera.Distance())
	fmt.Fprintf(out, "Near/Far: %.6f / %.6f\n", camera.Near, camera.Far)
	fmt.Fprintf(out, "Sphere visible: %t\n", camera.ContainsSphere(asset.Sphere))
	return nil
}

func degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
