package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/makistry/meshview/internal/logger"
	"github.com/makistry/meshview/internal/metrics"
	"github.com/makistry/meshview/pkg/loader"
	"github.com/makistry/meshview/pkg/viewer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	snapshotLayers    layerFlags
	snapshotOutput    string
	snapshotWidth     int
	snapshotHeight    int
	snapshotElevation float64
	snapshotAzimuth   float64
	snapshotWatch     bool
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot [shell file or url]",
	Short: "Render the composited layers to a PNG",
	Long: `Load the shell, wireframe and result layers into an offscreen viewport,
frame them and write one frame as PNG. With --watch the image is rewritten
whenever a local source changes.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSnapshot,
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
	snapshotLayers.register(snapshotCmd)
	snapshotCmd.Flags().StringVarP(&snapshotOutput, "output", "o", "snapshot.png", "Output PNG file")
	snapshotCmd.Flags().IntVar(&snapshotWidth, "width", 0, "Image width (config default)")
	snapshotCmd.Flags().IntVar(&snapshotHeight, "height", 0, "Image height (config default)")
	snapshotCmd.Flags().Float64Var(&snapshotElevation, "elevation", 0, "Orbit elevation in degrees")
	snapshotCmd.Flags().Float64Var(&snapshotAzimuth, "azimuth", 0, "Orbit azimuth in degrees")
	snapshotCmd.Flags().BoolVarP(&snapshotWatch, "watch", "w", false, "Re-render when local sources change")
}

// renderer draws layers into an offscreen session
type renderer struct {
	device  *viewer.RasterDevice
	session *viewer.Session
	layers  []layerSource
	log     *zap.Logger
}

func newRenderer(l *loader.Loader, layers []layerSource, width, height int, collector *metrics.Collector) (*renderer, error) {
	opts, err := viewerOptions()
	if err != nil {
		return nil, err
	}
	opts.AutoRotate = false
	device := viewer.NewRasterDevice()
	if collector != nil {
		opts.Observer = collector
		collector.TrackResources("raster", device.Live)
	}
	host := viewer.NewHost(device, l, nil, opts)
	session, err := host.Create(&viewer.Size{Width: width, Height: height, PixelRatio: 1})
	if err != nil {
		return nil, err
	}
	return &renderer{device: device, session: session, layers: layers, log: logger.Component("snapshot")}, nil
}

// render loads every layer, draws a frame and writes it to path
func (r *renderer) render(ctx context.Context, path string) error {
	pending := make([]<-chan error, len(r.layers))
	for i, layer := range r.layers {
		pending[i] = r.session.LoadLayer(ctx, layer.source, layer.format, layer.role)
	}
	var errs []error
	for i, ch := range pending {
		if err := <-ch; err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.layers[i].role, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	// Loads are installed on the first tick and drawn on the same tick
	if snapshotElevation != 0 || snapshotAzimuth != 0 {
		if err := r.session.Tick(0); err != nil {
			return err
		}
		r.session.SetView(snapshotElevation*degToRad, snapshotAzimuth*degToRad)
	}
	if err := r.session.Tick(time.Millisecond); err != nil {
		return err
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := r.device.WritePNG(r.session.Surface(), f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

const degToRad = math.Pi / 180

func runSnapshot(cmd *cobra.Command, args []string) error {
	layers, err := snapshotLayers.layers(args)
	if err != nil {
		return err
	}
	width, height := cfg.Viewer.Width, cfg.Viewer.Height
	if snapshotWidth > 0 {
		width = snapshotWidth
	}
	if snapshotHeight > 0 {
		height = snapshotHeight
	}

	// Local sources are watched by absolute path
	var paths []string
	for i, layer := range layers {
		if _, err := os.Stat(layer.source); err != nil {
			continue
		}
		if abs, err := filepath.Abs(layer.source); err == nil {
			layers[i].source = abs
			paths = append(paths, abs)
		}
	}

	collector := metrics.NewCollector("meshview", prometheus.NewRegistry(), logger.Log)
	l := loader.New(loader.Options{BaseURL: cfg.Backend.BaseURL, Logger: logger.Log, Observer: collector})
	defer l.Close()

	r, err := newRenderer(l, layers, width, height, collector)
	if err != nil {
		return err
	}
	defer r.session.Destroy()

	ctx := cmd.Context()
	if err := r.render(ctx, snapshotOutput); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%dx%d)\n", snapshotOutput, width, height)
	if !snapshotWatch {
		return nil
	}

	if len(paths) == 0 {
		return fmt.Errorf("--watch needs at least one local source")
	}

	changed := make(chan string, 1)
	err = l.Watch(ctx, paths, func(path string) {
		select {
		case changed <- path:
		default:
		}
	})
	if err != nil {
		return fmt.Errorf("failed to watch sources: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Watching for changes, press Ctrl+C to stop")

	for {
		select {
		case <-ctx.Done():
			return nil
		case path := <-changed:
			r.log.Info("re-rendering", zap.String("changed", path))
			if err := r.render(ctx, snapshotOutput); err != nil {
				r.log.Error("render failed", zap.Error(err))
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", snapshotOutput)
		}
	}
}
