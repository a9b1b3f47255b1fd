package main

import (
	"context"
	"fmt"
	"os"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"github.com/makistry/meshview/internal/api"
	"github.com/makistry/meshview/internal/assistant"
	"github.com/makistry/meshview/internal/config"
	"github.com/makistry/meshview/internal/credential"
	"github.com/makistry/meshview/internal/gui"
	"github.com/makistry/meshview/internal/logger"
	"github.com/makistry/meshview/internal/metrics"
	"github.com/makistry/meshview/internal/workspace"
	"github.com/makistry/meshview/pkg/loader"
	"github.com/makistry/meshview/pkg/viewer"
	"github.com/makistry/meshview/version"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	backend    string
	format     string
)

var rootCmd = &cobra.Command{
	Use:   "meshview-gui [shell file or url]",
	Short: "Design workbench with an embedded 3D viewport",
	Long: `meshview-gui opens the design workbench: a brainstorm prompt, the
pipeline actions, the design assistant and a live 3D viewport. A file given
on the command line is shown as the shell right away.`,
	Version:      version.GetFullVersion(),
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "Path to meshview.yaml")
	rootCmd.Flags().StringVar(&backend, "backend", "", "Backend base URL (config default)")
	rootCmd.Flags().StringVarP(&format, "format", "f", "auto", "Format of the shell source (auto, stl, glb)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	shellFormat, err := loader.ParseFormat(format)
	if err != nil {
		return err
	}

	cfg, _, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if backend != "" {
		cfg.Backend.BaseURL = backend
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		return err
	}
	defer logger.Sync()
	log := logger.Component("gui")

	collector := metrics.NewCollector("meshview", prometheus.NewRegistry(), logger.Log)

	client, err := api.New(api.Options{BaseURL: cfg.Backend.BaseURL, Timeout: cfg.Backend.Timeout, Logger: logger.Log})
	if err != nil {
		return err
	}
	creds, err := credential.FromConfig(cfg.Assistant, logger.Log)
	if err != nil {
		return err
	}
	assistantOpts := assistant.OptionsFromConfig(cfg.Assistant, creds)
	assistantOpts.Logger = logger.Log
	assistantOpts.Recorder = collector

	policy, err := viewer.ParsePriorityPolicy(cfg.Viewer.Priority)
	if err != nil {
		return err
	}
	background, err := cfg.Viewer.BackgroundColor()
	if err != nil {
		return err
	}

	l := loader.New(loader.Options{BaseURL: cfg.Backend.BaseURL, Logger: logger.Log, Observer: collector})
	defer l.Close()

	device := viewer.NewRasterDevice()
	collector.TrackResources("raster", device.Live)
	scheduler := viewer.NewScheduler(cfg.Viewer.FPS, logger.Log)
	host := viewer.NewHost(device, l, scheduler, viewer.Options{
		FOV:        cfg.Viewer.FOV,
		Padding:    cfg.Viewer.Padding,
		Background: background,
		AutoRotate: cfg.Viewer.AutoRotate,
		Policy:     policy,
		Logger:     logger.Log,
		Observer:   collector,
	})

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a := fyneapp.NewWithID("io.makistry.meshview")
	w := a.NewWindow("meshview " + version.GetVersion())

	viewport, err := gui.NewViewport(host, device, fyne.NewSize(float32(cfg.Viewer.Width), float32(cfg.Viewer.Height)))
	if err != nil {
		return err
	}
	defer viewport.Destroy()

	gui.NewWorkbench(ctx, w, workspace.New(client, logger.Log), assistant.New(assistantOpts), viewport, logger.Log)

	// A file given on the command line is shown as the shell right away
	if len(args) > 0 {
		viewport.Session().LoadLayer(ctx, args[0], shellFormat, viewer.RoleSolidShell)
	}

	go gui.RunLoop(ctx, scheduler, cfg.Viewer.FPS, viewport)
	w.SetOnClosed(cancel)
	w.Resize(fyne.NewSize(1200, 800))

	log.Info("starting", zap.String("backend", cfg.Backend.BaseURL))
	w.ShowAndRun()
	return nil
}
