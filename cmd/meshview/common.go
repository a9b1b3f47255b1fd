package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/makistry/meshview/internal/logger"
	"github.com/makistry/meshview/pkg/loader"
	"github.com/makistry/meshview/pkg/mesh"
	"github.com/makistry/meshview/pkg/viewer"
	"github.com/spf13/cobra"
)

// layerFlags selects the sources of the three viewport layers
type layerFlags struct {
	shell     string
	wireframe string
	result    string
	format    string
}

func (f *layerFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.wireframe, "wireframe", "", "Mesh shown as a wireframe overlay")
	cmd.Flags().StringVar(&f.result, "result", "", "Mesh with per-vertex result colors")
	cmd.Flags().StringVarP(&f.format, "format", "f", "auto", "Format of the shell source (auto, stl, glb)")
}

// layers returns the layer sources in role order; the positional argument is
// the shell
func (f *layerFlags) layers(args []string) ([]layerSource, error) {
	if len(args) > 0 {
		f.shell = args[0]
	}
	format, err := loader.ParseFormat(f.format)
	if err != nil {
		return nil, err
	}

	var out []layerSource
	if f.shell != "" {
		out = append(out, layerSource{source: f.shell, format: format, role: viewer.RoleSolidShell})
	}
	if f.wireframe != "" {
		out = append(out, layerSource{source: f.wireframe, format: loader.FormatAuto, role: viewer.RoleWireframe})
	}
	if f.result != "" {
		out = append(out, layerSource{source: f.result, format: loader.FormatAuto, role: viewer.RoleResult})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no layers given")
	}
	return out, nil
}

type layerSource struct {
	source string
	format loader.Format
	role   viewer.Role
}

func newLoader(baseURL string) *loader.Loader {
	return loader.New(loader.Options{
		BaseURL: baseURL,
		Logger:  logger.Log,
	})
}

// loadAsset loads a source into a private copy that callers may mutate
func loadAsset(ctx context.Context, l *loader.Loader, source string, format loader.Format) (*mesh.Asset, error) {
	asset, err := l.LoadMerged(ctx, source, format)
	if err != nil {
		return nil, err
	}
	asset = asset.Clone()
	asset.ComputeBounds()
	return asset, nil
}

// viewerOptions builds session options from the config
func viewerOptions() (viewer.Options, error) {
	policy, err := viewer.ParsePriorityPolicy(cfg.Viewer.Priority)
	if err != nil {
		return viewer.Options{}, err
	}
	background, err := cfg.Viewer.BackgroundColor()
	if err != nil {
		return viewer.Options{}, err
	}
	return viewer.Options{
		FOV:        cfg.Viewer.FOV,
		Padding:    cfg.Viewer.Padding,
		Background: background,
		AutoRotate: cfg.Viewer.AutoRotate,
		Policy:     policy,
		Logger:     logger.Log,
	}, nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
