package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/makistry/meshview/internal/app"
	"github.com/makistry/meshview/internal/config"
	"github.com/makistry/meshview/internal/logger"
	"github.com/makistry/meshview/internal/metrics"
	"github.com/makistry/meshview/pkg/loader"
	"github.com/makistry/meshview/pkg/viewer"
	"github.com/makistry/meshview/version"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var (
	configPath string
	wireframe  string
	result     string
	format     string
	watch      bool
	autoRotate bool
)

func init() {
	// The window and every GL call must stay on the main thread
	runtime.LockOSThread()
}

var rootCmd = &cobra.Command{
	Use:   "meshview-view [shell file or url]",
	Short: "Interactive 3D viewer for design meshes",
	Long: `meshview-view opens a window showing the shell, wireframe and result
layers of a design. Local files are reloaded when they change.`,
	Version:      version.GetFullVersion(),
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "Path to meshview.yaml")
	rootCmd.Flags().StringVar(&wireframe, "wireframe", "", "Mesh shown as a wireframe overlay")
	rootCmd.Flags().StringVar(&result, "result", "", "Mesh with per-vertex result colors")
	rootCmd.Flags().StringVarP(&format, "format", "f", "auto", "Format of the shell source (auto, stl, glb)")
	rootCmd.Flags().BoolVarP(&watch, "watch", "w", true, "Reload local files when they change")
	rootCmd.Flags().BoolVar(&autoRotate, "rotate", false, "Start with auto-rotation")
}

func run(cmd *cobra.Command, args []string) error {
	cfg, _, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		return err
	}
	defer logger.Sync()

	shellFormat, err := loader.ParseFormat(format)
	if err != nil {
		return err
	}
	var layers []app.LayerSpec
	if len(args) == 1 {
		layers = append(layers, app.LayerSpec{Source: args[0], Format: shellFormat, Role: viewer.RoleSolidShell})
	}
	if wireframe != "" {
		layers = append(layers, app.LayerSpec{Source: wireframe, Role: viewer.RoleWireframe})
	}
	if result != "" {
		layers = append(layers, app.LayerSpec{Source: result, Role: viewer.RoleResult})
	}
	if len(layers) == 0 {
		return fmt.Errorf("nothing to show: pass a shell file or --wireframe/--result")
	}

	policy, err := viewer.ParsePriorityPolicy(cfg.Viewer.Priority)
	if err != nil {
		return err
	}
	background, err := cfg.Viewer.BackgroundColor()
	if err != nil {
		return err
	}

	collector := metrics.NewCollector("meshview", prometheus.NewRegistry(), logger.Log)
	l := loader.New(loader.Options{BaseURL: cfg.Backend.BaseURL, Logger: logger.Log, Observer: collector})
	defer l.Close()

	return app.Run(cmd.Context(), app.Options{
		Title:  "meshview " + version.GetVersion(),
		Width:  cfg.Viewer.Width,
		Height: cfg.Viewer.Height,
		FPS:    cfg.Viewer.FPS,
		Layers: layers,
		Viewer: viewer.Options{
			FOV:        cfg.Viewer.FOV,
			Padding:    cfg.Viewer.Padding,
			Background: background,
			AutoRotate: autoRotate || cfg.Viewer.AutoRotate,
			Policy:     policy,
			Logger:     logger.Log,
			Observer:   collector,
		},
		Loader: l,
		Logger: logger.Log,
		Watch:  watch,
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
