// Package app is the interactive raylib viewer window.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/makistry/meshview/pkg/loader"
	"github.com/makistry/meshview/pkg/viewer"
	"go.uber.org/zap"
)

// LayerSpec is one asset to show and the role it plays
type LayerSpec struct {
	Source string
	Format loader.Format
	Role   viewer.Role
}

// Options configures the window
type Options struct {
	Title      string
	Width      int
	Height     int
	FPS        int
	Layers     []LayerSpec
	Viewer     viewer.Options
	Loader     *loader.Loader
	Logger     *zap.Logger
	// Watch reloads local layer files when they change on disk
	Watch bool
}

// App holds the window state
type App struct {
	opts      Options
	logger    *zap.Logger
	device    *Device
	scheduler *viewer.Scheduler
	session   *viewer.Session

	input       InputState
	view        ViewSettings
	needsReload atomic.Bool
	lastLoad    *viewer.LoadInfo
	loadErrors  map[viewer.Role]error
	results     chan layerResult
}

type layerResult struct {
	role viewer.Role
	err  error
}

// resourceTracker is implemented by metrics.Collector
type resourceTracker interface {
	TrackResources(device string, live func() int)
}

// ViewSettings holds display toggles
type ViewSettings struct {
	showHelp bool
	hidden   map[viewer.Role]bool
}

// Run opens the window and blocks until it is closed or ctx is cancelled.
// It must be called from the main goroutine.
func Run(ctx context.Context, opts Options) error {
	if len(opts.Layers) == 0 {
		return fmt.Errorf("no layers to show")
	}
	if opts.Loader == nil {
		return fmt.Errorf("no loader configured")
	}
	if opts.Title == "" {
		opts.Title = "meshview"
	}
	if opts.Width <= 0 {
		opts.Width = 1400
	}
	if opts.Height <= 0 {
		opts.Height = 900
	}
	if opts.FPS <= 0 {
		opts.FPS = viewer.DefaultFPS
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	rl.SetConfigFlags(rl.FlagWindowResizable | rl.FlagWindowHighdpi | rl.FlagMsaa4xHint) // Must be before InitWindow
	rl.InitWindow(int32(opts.Width), int32(opts.Height), opts.Title)
	defer rl.CloseWindow()
	rl.SetTargetFPS(int32(opts.FPS))

	a := &App{
		opts:       opts,
		logger:     opts.Logger.With(zap.String("component", "window")),
		device:     NewDevice(),
		scheduler:  viewer.NewScheduler(opts.FPS, opts.Logger),
		view:       ViewSettings{showHelp: true, hidden: map[viewer.Role]bool{}},
		loadErrors: map[viewer.Role]error{},
		results:    make(chan layerResult, len(opts.Layers)*4),
	}
	defer a.device.Close()
	if t, ok := opts.Viewer.Observer.(resourceTracker); ok {
		t.TrackResources("raylib", a.device.Live)
	}

	host := viewer.NewHost(a.device, opts.Loader, a.scheduler, opts.Viewer)
	session, err := host.Create(a.windowSize())
	if err != nil {
		return fmt.Errorf("failed to create viewport: %w", err)
	}
	a.session = session
	defer session.Destroy()
	session.SetPanEnabled(true)
	session.OnLoad(func(info viewer.LoadInfo) {
		a.lastLoad = &info
		a.logger.Info("layer loaded",
			zap.String("role", string(info.Role)),
			zap.String("source", info.Source),
			zap.Int("vertices", info.VertexCount))
	})

	if opts.Watch {
		if err := a.watch(ctx); err != nil {
			a.logger.Warn("failed to set up file watching, auto-reload disabled", zap.Error(err))
		}
	}

	a.loadAll(ctx)

	last := time.Now()
	for !rl.WindowShouldClose() {
		if ctx.Err() != nil {
			break
		}

		// Check for Ctrl+C to exit
		ctrlPressed := rl.IsKeyDown(rl.KeyLeftControl) || rl.IsKeyDown(rl.KeyRightControl)
		if ctrlPressed && rl.IsKeyPressed(rl.KeyC) {
			break
		}

		if a.needsReload.CompareAndSwap(true, false) {
			a.loadAll(ctx)
		}
		a.collectResults()

		if rl.IsWindowResized() {
			if err := session.Resize(*a.windowSize()); err != nil {
				a.logger.Warn("resize failed", zap.Error(err))
			}
		}

		a.handleInput()

		now := time.Now()
		dt := now.Sub(last)
		last = now

		rl.BeginDrawing()
		a.scheduler.Tick(dt)
		a.drawUI()
		rl.EndDrawing()
	}

	return nil
}

func (a *App) windowSize() *viewer.Size {
	return &viewer.Size{
		Width:      rl.GetScreenWidth(),
		Height:     rl.GetScreenHeight(),
		PixelRatio: float64(rl.GetWindowScaleDPI().X),
	}
}

// loadAll starts loading every visible layer; results arrive on a.results
func (a *App) loadAll(ctx context.Context) {
	for _, spec := range a.opts.Layers {
		if a.view.hidden[spec.Role] {
			continue
		}
		a.loadLayer(ctx, spec)
	}
}

func (a *App) loadLayer(ctx context.Context, spec LayerSpec) {
	done := a.session.LoadLayer(ctx, spec.Source, spec.Format, spec.Role)
	go func() {
		err := <-done
		a.results <- layerResult{role: spec.Role, err: err}
	}()
}

// collectResults records finished loads without blocking the frame
func (a *App) collectResults() {
	for {
		select {
		case r := <-a.results:
			if r.err != nil && !isSuperseded(r.err) {
				a.loadErrors[r.role] = r.err
				a.logger.Warn("layer failed to load", zap.String("role", string(r.role)), zap.Error(r.err))
			} else if r.err == nil {
				delete(a.loadErrors, r.role)
			}
		default:
			return
		}
	}
}

func isSuperseded(err error) bool {
	return errors.Is(err, viewer.ErrSuperseded) || errors.Is(err, viewer.ErrDestroyed)
}

// watch invalidates and reloads local layer files when they change
func (a *App) watch(ctx context.Context) error {
	var paths []string
	for _, spec := range a.opts.Layers {
		if p, ok := localPath(spec.Source); ok {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return nil
	}
	return a.opts.Loader.Watch(ctx, paths, func(path string) {
		a.logger.Info("file changed, reloading", zap.String("path", path))
		a.needsReload.Store(true)
	})
}

// localPath reports whether source names a file on disk
func localPath(source string) (string, bool) {
	if strings.HasPrefix(source, "file://") {
		u, err := url.Parse(source)
		if err != nil {
			return "", false
		}
		return u.Path, true
	}
	if strings.Contains(source, "://") {
		return "", false
	}
	return source, true
}

// toggleLayer hides a role or shows it again by reloading it
func (a *App) toggleLayer(ctx context.Context, role viewer.Role) {
	if a.view.hidden[role] {
		a.view.hidden[role] = false
		for _, spec := range a.opts.Layers {
			if spec.Role == role {
				a.loadLayer(ctx, spec)
			}
		}
		return
	}
	if a.session.RemoveLayer(role) {
		a.view.hidden[role] = true
	}
}
