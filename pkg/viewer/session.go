package viewer

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"sync"
	"sync/atomic"
	"time"

	"github.com/makistry/meshview/pkg/geometry"
	"github.com/makistry/meshview/pkg/loader"
	"github.com/makistry/meshview/pkg/mesh"
	"go.uber.org/zap"
)

var (
	// ErrDestroyed is returned by operations on a destroyed session
	ErrDestroyed = errors.New("viewport session destroyed")
	// ErrSuperseded reports a load whose result was dropped because a newer
	// load for the same role was started
	ErrSuperseded = errors.New("load superseded by a newer request")
)

// AssetSource loads a source into a single asset
type AssetSource interface {
	LoadMerged(ctx context.Context, source string, format loader.Format) (*mesh.Asset, error)
}

// Observer receives session statistics
type Observer interface {
	SessionOpened()
	SessionClosed()
	LayerInstalled(role string)
	LayerReleased(role string)
	FrameDrawn(elapsed time.Duration)
}

// Options configures the sessions of a Host
type Options struct {
	FOV             float64
	Padding         float64
	Background      color.RGBA
	AutoRotate      bool
	AutoRotateSpeed float64
	DampingFactor   float64
	Policy          PriorityPolicy
	Logger          *zap.Logger
	Observer        Observer
}

// Host creates viewport sessions that share a device, an asset source and a
// scheduler
type Host struct {
	device     Device
	assets     AssetSource
	scheduler  *Scheduler
	compositor Compositor
	opts       Options
	logger     *zap.Logger
	nextID     atomic.Uint64
}

// NewHost creates a host. assets and scheduler may be nil.
func NewHost(device Device, assets AssetSource, scheduler *Scheduler, opts Options) *Host {
	if opts.FOV <= 0 {
		opts.FOV = DefaultFOV
	}
	if opts.Padding <= 0 {
		opts.Padding = DefaultPadding
	}
	if opts.DampingFactor <= 0 {
		opts.DampingFactor = DefaultDampingFactor
	}
	if opts.AutoRotateSpeed == 0 {
		opts.AutoRotateSpeed = DefaultAutoRotateSpeed
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Host{
		device:     device,
		assets:     assets,
		scheduler:  scheduler,
		compositor: Compositor{Policy: opts.Policy},
		opts:       opts,
		logger:     opts.Logger.With(zap.String("component", "viewport")),
	}
}

// State is the loading state shown over a viewport
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateError
)

// Status is the inline message of a viewport
type Status struct {
	State   State
	Message string
}

func (s Status) String() string {
	switch s.State {
	case StateLoading:
		return "Loading model…"
	case StateError:
		return "Failed to load model: " + s.Message
	}
	return ""
}

// LoadInfo describes a layer that was just installed
type LoadInfo struct {
	Role        Role
	Source      string
	Box         geometry.BoundingBox
	VertexCount int
}

// LayerInfo is a read-only view of a session layer
type LayerInfo struct {
	Role          Role
	Priority      int
	Material      Material
	Source        string
	VertexCount   int
	TriangleCount int
	Sphere        geometry.Sphere
}

type loadResult struct {
	role   Role
	source string
	asset  *mesh.Asset
	err    error
}

// Session is one live viewport. All methods are safe for concurrent use.
type Session struct {
	host   *Host
	id     uint64
	logger *zap.Logger

	mu         sync.Mutex
	size       Size
	surface    Handle
	camera     *Camera
	controls   *Controls
	lights     []Light
	layers     map[Role]*Layer
	pending    []loadResult
	generation map[Role]uint64
	status     Status
	onLoad     func(LoadInfo)
	destroyed  bool

	ctx    context.Context
	cancel context.CancelFunc
}

// Create starts a session in the given container. A nil container is a no-op
// and returns a nil session.
func (h *Host) Create(container *Size) (*Session, error) {
	if container == nil {
		return nil, nil
	}

	surface, err := h.device.CreateSurface(*container)
	if err != nil {
		return nil, fmt.Errorf("failed to create surface: %w", err)
	}

	camera := NewCamera(h.opts.FOV)
	camera.SetAspect(container.Width, container.Height)

	controls := NewControls(camera)
	controls.DampingFactor = h.opts.DampingFactor
	controls.AutoRotate = h.opts.AutoRotate
	controls.AutoRotateSpeed = h.opts.AutoRotateSpeed
	controls.EnablePan = false

	ctx, cancel := context.WithCancel(context.Background())
	id := h.nextID.Add(1)
	s := &Session{
		host:       h,
		id:         id,
		logger:     h.logger.With(zap.Uint64("session", id)),
		size:       *container,
		surface:    surface,
		camera:     camera,
		controls:   controls,
		lights:     DefaultLights(),
		layers:     make(map[Role]*Layer),
		generation: make(map[Role]uint64),
		ctx:        ctx,
		cancel:     cancel,
	}

	if h.scheduler != nil {
		h.scheduler.Add(s)
	}
	if h.opts.Observer != nil {
		h.opts.Observer.SessionOpened()
	}
	s.logger.Debug("session created", zap.Int("width", container.Width), zap.Int("height", container.Height))
	return s, nil
}

// ID returns the session's host-unique id
func (s *Session) ID() uint64 {
	return s.id
}

// Surface returns the device surface the session draws into
func (s *Session) Surface() Handle {
	return s.surface
}

// OnLoad sets a callback invoked after a layer is installed
func (s *Session) OnLoad(fn func(LoadInfo)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLoad = fn
}

// AddLayer installs a layer for the asset, replacing any layer with the same
// role, and reframes the camera. The asset is not modified.
func (s *Session) AddLayer(asset *mesh.Asset, role Role) error {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return ErrDestroyed
	}
	source := ""
	if asset != nil {
		source = asset.Name
	}
	// A direct install supersedes loads still in flight for the role
	s.generation[role]++
	info, err := s.installLocked(asset, role, source)
	callback := s.onLoad
	s.mu.Unlock()

	if err != nil {
		return err
	}
	if callback != nil {
		callback(info)
	}
	return nil
}

// RemoveLayer releases the layer of the role. It reports whether one existed.
func (s *Session) RemoveLayer(role Role) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	layer, ok := s.layers[role]
	if !ok || s.destroyed {
		return false
	}
	delete(s.layers, role)
	s.releaseLayerLocked(layer)
	return true
}

// LoadLayer loads a source in the background. The layer is installed at the
// start of the next tick. The returned channel yields the load error (nil on
// success), ErrSuperseded when a newer load for the role replaced this one,
// or ErrDestroyed when the session ended first.
func (s *Session) LoadLayer(ctx context.Context, source string, format loader.Format, role Role) <-chan error {
	done := make(chan error, 1)

	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		done <- ErrDestroyed
		close(done)
		return done
	}
	if s.host.assets == nil {
		s.mu.Unlock()
		done <- fmt.Errorf("no asset source configured")
		close(done)
		return done
	}
	s.generation[role]++
	gen := s.generation[role]
	s.status = Status{State: StateLoading}
	sessionCtx := s.ctx
	s.mu.Unlock()

	s.logger.Debug("loading layer", zap.String("role", string(role)), zap.String("source", source))

	go func() {
		defer close(done)

		loadCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		stop := context.AfterFunc(sessionCtx, cancel)
		defer stop()

		asset, err := s.host.assets.LoadMerged(loadCtx, source, format)

		s.mu.Lock()
		defer s.mu.Unlock()
		switch {
		case s.destroyed:
			s.logger.Debug("discarding load for destroyed session", zap.String("source", source))
			done <- ErrDestroyed
			return
		case s.generation[role] != gen:
			s.logger.Debug("discarding superseded load", zap.String("source", source))
			done <- ErrSuperseded
			return
		}
		s.pending = append(s.pending, loadResult{role: role, source: source, asset: asset, err: err})
		done <- err
	}()

	return done
}

// Tick installs completed loads, advances the controls and draws one frame.
// It does nothing after Destroy.
func (s *Session) Tick(dt time.Duration) error {
	start := time.Now()

	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return nil
	}

	pending := s.pending
	s.pending = nil

	var installed []LoadInfo
	for _, r := range pending {
		if r.err != nil {
			s.status = Status{State: StateError, Message: r.err.Error()}
			s.logger.Warn("layer load failed", zap.String("role", string(r.role)), zap.Error(r.err))
			continue
		}
		info, err := s.installLocked(r.asset, r.role, r.source)
		if err != nil {
			s.status = Status{State: StateError, Message: err.Error()}
			s.logger.Warn("layer install failed", zap.String("role", string(r.role)), zap.Error(err))
			continue
		}
		installed = append(installed, info)
	}

	s.controls.Update(dt.Seconds())
	err := s.host.device.Draw(s.surface, s.drawListLocked())
	callback := s.onLoad
	s.mu.Unlock()

	if callback != nil {
		for _, info := range installed {
			callback(info)
		}
	}
	if s.host.opts.Observer != nil {
		s.host.opts.Observer.FrameDrawn(time.Since(start))
	}
	if err != nil {
		return fmt.Errorf("draw failed: %w", err)
	}
	return nil
}

// Resize adapts the camera and surface to a new container size and reframes
// when layers are present. An unchanged size is a no-op.
func (s *Session) Resize(size Size) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return ErrDestroyed
	}
	if size == s.size {
		return nil
	}

	s.size = size
	s.camera.SetAspect(size.Width, size.Height)
	if err := s.host.device.ResizeSurface(s.surface, size); err != nil {
		return fmt.Errorf("failed to resize surface: %w", err)
	}
	if len(s.layers) > 0 {
		s.frameLocked()
	}
	return nil
}

// Destroy stops the session: it leaves the scheduler and cancels pending
// loads, disposes the controls, releases every layer and finally the
// surface. Calling it again does nothing.
func (s *Session) Destroy() {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	s.destroyed = true

	if s.host.scheduler != nil {
		s.host.scheduler.Remove(s)
	}
	s.cancel()

	s.controls.Dispose()

	for _, layer := range s.sortedLayersLocked() {
		s.releaseLayerLocked(layer)
	}
	s.layers = make(map[Role]*Layer)
	s.pending = nil

	if err := s.host.device.Release(s.surface); err != nil {
		s.logger.Error("failed to release surface", zap.Error(err))
	}
	s.mu.Unlock()

	if s.host.opts.Observer != nil {
		s.host.opts.Observer.SessionClosed()
	}
	s.logger.Debug("session destroyed")
}

// Destroyed reports whether Destroy was called
func (s *Session) Destroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyed
}

// Camera returns a copy of the session camera
func (s *Session) Camera() Camera {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.camera
}

// ControlsInfo is a read-only view of the orbit controls
type ControlsInfo struct {
	EnableDamping bool
	DampingFactor float64
	EnablePan     bool
	AutoRotate    bool
	Disposed      bool
}

// Controls returns the orbit controls settings
func (s *Session) Controls() ControlsInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ControlsInfo{
		EnableDamping: s.controls.EnableDamping,
		DampingFactor: s.controls.DampingFactor,
		EnablePan:     s.controls.EnablePan,
		AutoRotate:    s.controls.AutoRotate,
		Disposed:      s.controls.Disposed(),
	}
}

// Size returns the current container size
func (s *Session) Size() Size {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// Status returns the loading state of the viewport
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Layers returns the installed layers in draw order
func (s *Session) Layers() []LayerInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []LayerInfo
	for _, l := range s.sortedLayersLocked() {
		out = append(out, LayerInfo{
			Role:          l.Role,
			Priority:      l.Priority,
			Material:      l.Material,
			Source:        l.Source,
			VertexCount:   l.Asset.VertexCount(),
			TriangleCount: l.Asset.TriangleCount(),
			Sphere:        l.Asset.Sphere,
		})
	}
	return out
}

// Orbit rotates the view by the given angles in radians
func (s *Session) Orbit(deltaX, deltaY float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controls.Rotate(deltaX, deltaY)
}

// Zoom changes the camera distance relative to its current value
func (s *Session) Zoom(delta float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controls.Zoom(delta)
}

// Pan shifts the view target by world units along the screen axes. It
// reports false when panning is disabled.
func (s *Session) Pan(dx, dy float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controls.Pan(dx, dy)
}

// SetPanEnabled toggles panning
func (s *Session) SetPanEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controls.EnablePan = enabled
}

// SetView jumps to fixed orbit angles in radians
func (s *Session) SetView(elevation, azimuth float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controls.SetAngles(elevation, azimuth)
}

// SetAutoRotate toggles auto-rotation
func (s *Session) SetAutoRotate(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controls.AutoRotate = enabled
}

// ResetView returns to the view saved by the last framing
func (s *Session) ResetView() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controls.Reset()
}

func (s *Session) installLocked(asset *mesh.Asset, role Role, source string) (LoadInfo, error) {
	layer, err := s.host.compositor.Build(asset, role)
	if err != nil {
		return LoadInfo{}, err
	}
	layer.Source = source
	layer.Asset.Recenter()
	layer.Asset.ComputeBounds()

	device := s.host.device
	layer.geometry, err = device.CreateGeometry(layer.Asset)
	if err != nil {
		return LoadInfo{}, fmt.Errorf("failed to upload geometry: %w", err)
	}
	layer.material, err = device.CreateMaterial(layer.Material)
	if err != nil {
		if relErr := device.Release(layer.geometry); relErr != nil {
			s.logger.Error("failed to release geometry", zap.Error(relErr))
		}
		return LoadInfo{}, fmt.Errorf("failed to create material: %w", err)
	}

	if old, ok := s.layers[role]; ok {
		s.releaseLayerLocked(old)
	}
	s.layers[role] = layer

	if s.host.opts.Observer != nil {
		s.host.opts.Observer.LayerInstalled(string(role))
	}

	s.frameLocked()
	s.status = Status{State: StateReady}

	s.logger.Debug("layer installed",
		zap.String("role", string(role)),
		zap.Int("priority", layer.Priority),
		zap.Int("vertices", layer.Asset.VertexCount()),
		zap.Float64("radius", layer.Asset.Sphere.Radius))

	return LoadInfo{
		Role:        role,
		Source:      source,
		Box:         layer.Asset.Box,
		VertexCount: layer.Asset.VertexCount(),
	}, nil
}

func (s *Session) releaseLayerLocked(layer *Layer) {
	if layer.released {
		return
	}
	layer.released = true

	if err := s.host.device.Release(layer.geometry); err != nil {
		s.logger.Error("failed to release geometry", zap.String("role", string(layer.Role)), zap.Error(err))
	}
	if err := s.host.device.Release(layer.material); err != nil {
		s.logger.Error("failed to release material", zap.String("role", string(layer.Role)), zap.Error(err))
	}
	if s.host.opts.Observer != nil {
		s.host.opts.Observer.LayerReleased(string(layer.Role))
	}
}

// frameLocked frames the layer with the largest bounding sphere. Every layer
// is centered on the origin, so that sphere encloses all of them.
func (s *Session) frameLocked() bool {
	var largest geometry.Sphere
	for _, l := range s.layers {
		if l.Asset.Sphere.Radius > largest.Radius {
			largest = l.Asset.Sphere
		}
	}
	return FrameSphere(s.camera, s.controls, largest, s.host.opts.Padding)
}

func (s *Session) sortedLayersLocked() []*Layer {
	layers := make([]*Layer, 0, len(s.layers))
	for _, l := range s.layers {
		layers = append(layers, l)
	}
	SortLayers(layers)
	return layers
}

func (s *Session) drawListLocked() DrawList {
	list := DrawList{
		Camera:     *s.camera,
		Background: s.host.opts.Background,
		Lights:     s.lights,
	}
	for _, l := range s.sortedLayersLocked() {
		list.Calls = append(list.Calls, DrawCall{Geometry: l.geometry, Material: l.material, Priority: l.Priority})
	}
	return list
}
