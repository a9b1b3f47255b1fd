package viewer

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/makistry/meshview/pkg/loader"
	"github.com/makistry/meshview/pkg/mesh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingDevice records draw lists and release failures
type recordingDevice struct {
	*RasterDevice
	mu          sync.Mutex
	lists       []DrawList
	releaseErrs []error
	resizes     int
}

func newRecordingDevice() *recordingDevice {
	return &recordingDevice{RasterDevice: NewRasterDevice()}
}

func (d *recordingDevice) Draw(surface Handle, list DrawList) error {
	d.mu.Lock()
	d.lists = append(d.lists, list)
	d.mu.Unlock()
	return d.RasterDevice.Draw(surface, list)
}

func (d *recordingDevice) ResizeSurface(surface Handle, size Size) error {
	d.mu.Lock()
	d.resizes++
	d.mu.Unlock()
	return d.RasterDevice.ResizeSurface(surface, size)
}

func (d *recordingDevice) Release(h Handle) error {
	err := d.RasterDevice.Release(h)
	if err != nil {
		d.mu.Lock()
		d.releaseErrs = append(d.releaseErrs, err)
		d.mu.Unlock()
	}
	return err
}

// lastOrder returns the material names of the last drawn frame
func (d *recordingDevice) lastOrder(t *testing.T) []string {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	require.NotEmpty(t, d.lists)

	var names []string
	for _, call := range d.lists[len(d.lists)-1].Calls {
		r, err := d.resources.Get(call.Material)
		require.NoError(t, err)
		names = append(names, r.material.Name)
	}
	return names
}

// fakeSource serves assets from memory, optionally blocking until released
type fakeSource struct {
	mu     sync.Mutex
	assets map[string]*mesh.Asset
	errs   map[string]error
	gates  map[string]chan struct{}
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		assets: make(map[string]*mesh.Asset),
		errs:   make(map[string]error),
		gates:  make(map[string]chan struct{}),
	}
}

func (f *fakeSource) LoadMerged(ctx context.Context, source string, _ loader.Format) (*mesh.Asset, error) {
	f.mu.Lock()
	gate := f.gates[source]
	asset, err := f.assets[source], f.errs[source]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return asset, nil
}

type countingObserver struct {
	mu                  sync.Mutex
	opened, closed      int
	installed, released int
	frames              int
}

func (o *countingObserver) SessionOpened()           { o.mu.Lock(); o.opened++; o.mu.Unlock() }
func (o *countingObserver) SessionClosed()           { o.mu.Lock(); o.closed++; o.mu.Unlock() }
func (o *countingObserver) LayerInstalled(string)    { o.mu.Lock(); o.installed++; o.mu.Unlock() }
func (o *countingObserver) LayerReleased(string)     { o.mu.Lock(); o.released++; o.mu.Unlock() }
func (o *countingObserver) FrameDrawn(time.Duration) { o.mu.Lock(); o.frames++; o.mu.Unlock() }

func newTestSession(t *testing.T, opts Options) (*Session, *recordingDevice, *fakeSource) {
	t.Helper()
	device := newRecordingDevice()
	source := newFakeSource()
	host := NewHost(device, source, NewScheduler(0, nil), opts)

	s, err := host.Create(&Size{Width: 400, Height: 300})
	require.NoError(t, err)
	require.NotNil(t, s)
	return s, device, source
}

func TestCreateWithoutContainer(t *testing.T) {
	device := NewRasterDevice()
	host := NewHost(device, nil, nil, Options{})

	s, err := host.Create(nil)
	assert.NoError(t, err)
	assert.Nil(t, s)
	assert.Equal(t, 0, device.Live())
}

func TestCreateInitialState(t *testing.T) {
	s, device, _ := newTestSession(t, Options{})
	defer s.Destroy()

	cam := s.Camera()
	assert.Equal(t, DefaultFOV, cam.FOV)
	assert.Equal(t, DefaultNear, cam.Near)
	assert.Equal(t, DefaultFar, cam.Far)
	assert.InDelta(t, 400.0/300.0, cam.Aspect, 1e-12)
	assert.Equal(t, 1, device.Live(), "only the surface is allocated")
	assert.Equal(t, StateIdle, s.Status().State)
	assert.Equal(t, ControlsInfo{EnableDamping: true, DampingFactor: DefaultDampingFactor}, s.Controls())

	s.SetPanEnabled(true)
	s.SetAutoRotate(true)
	assert.True(t, s.Controls().EnablePan)
	assert.True(t, s.Controls().AutoRotate)
}

func TestDrawOrderIndependentOfAddOrder(t *testing.T) {
	orders := [][]Role{
		{RoleSolidShell, RoleWireframe, RoleResult},
		{RoleWireframe, RoleResult, RoleSolidShell},
		{RoleResult, RoleSolidShell, RoleWireframe},
	}

	for _, order := range orders {
		s, device, _ := newTestSession(t, Options{})
		for _, role := range order {
			require.NoError(t, s.AddLayer(mesh.Cube(0, 0, 0), role))
		}
		require.NoError(t, s.Tick(time.Millisecond))
		assert.Equal(t, []string{"shell", "vertex-colors", "wireframe"}, device.lastOrder(t), "add order %v", order)
		s.Destroy()
	}
}

func TestDrawOrderResultTopmost(t *testing.T) {
	s, device, _ := newTestSession(t, Options{Policy: ResultTopmost})
	defer s.Destroy()

	for _, role := range []Role{RoleResult, RoleWireframe, RoleSolidShell} {
		require.NoError(t, s.AddLayer(mesh.Cube(0, 0, 0), role))
	}
	require.NoError(t, s.Tick(0))
	assert.Equal(t, []string{"shell", "wireframe", "vertex-colors"}, device.lastOrder(t))
}

func TestAddLayerFramesCamera(t *testing.T) {
	s, _, _ := newTestSession(t, Options{})
	defer s.Destroy()

	require.NoError(t, s.AddLayer(mesh.Cube(5, 5, 5), RoleSolidShell))

	cam := s.Camera()
	want := FitDistance(math.Sqrt(3), 45, 400.0/300.0, DefaultPadding)
	assert.InDelta(t, want, cam.Position.Z, 1e-6)
	layers := s.Layers()
	require.Len(t, layers, 1)
	assert.True(t, cam.ContainsSphere(layers[0].Sphere))
}

func TestAddLayerKeepsSourceAssetIntact(t *testing.T) {
	s, _, _ := newTestSession(t, Options{})
	defer s.Destroy()

	src := mesh.Cube(5, 0, 0)
	before := append([]float32(nil), src.Positions...)
	require.NoError(t, s.AddLayer(src, RoleSolidShell))
	require.NoError(t, s.AddLayer(src, RoleWireframe))

	assert.Equal(t, before, src.Positions)
	assert.False(t, src.Centered())
}

func TestReplacingLayerReleasesOldOnce(t *testing.T) {
	obs := &countingObserver{}
	s, device, _ := newTestSession(t, Options{Observer: obs})

	require.NoError(t, s.AddLayer(mesh.Cube(0, 0, 0), RoleSolidShell))
	require.NoError(t, s.AddLayer(mesh.Cube(0, 0, 0), RoleSolidShell))
	assert.Len(t, s.Layers(), 1)
	assert.Equal(t, 3, device.Live(), "surface plus one geometry and one material")

	s.Destroy()
	assert.Equal(t, 0, device.Live())
	assert.Empty(t, device.releaseErrs)
	assert.Equal(t, 2, obs.installed)
	assert.Equal(t, 2, obs.released)
}

func TestDestroyReleasesEverythingOnce(t *testing.T) {
	obs := &countingObserver{}
	s, device, _ := newTestSession(t, Options{Observer: obs})
	for _, role := range Roles() {
		require.NoError(t, s.AddLayer(mesh.Box("b", 1, 2, 3, 0, 0, 0, 3), role))
	}
	require.NoError(t, s.Tick(0))

	s.Destroy()
	s.Destroy()

	assert.Equal(t, 0, device.Live())
	assert.Empty(t, device.releaseErrs)
	assert.True(t, s.Destroyed())
	assert.True(t, s.controls.Disposed())
	assert.Equal(t, 1, obs.opened)
	assert.Equal(t, 1, obs.closed)
	assert.Equal(t, 0, s.host.scheduler.Len())

	// Operations after destroy are inert
	assert.NoError(t, s.Tick(time.Millisecond))
	assert.ErrorIs(t, s.AddLayer(mesh.Cube(0, 0, 0), RoleSolidShell), ErrDestroyed)
	assert.ErrorIs(t, s.Resize(Size{Width: 1, Height: 1}), ErrDestroyed)
	assert.Equal(t, 0, device.Live())
}

func TestResizeIdempotent(t *testing.T) {
	s, device, _ := newTestSession(t, Options{})
	defer s.Destroy()
	require.NoError(t, s.AddLayer(mesh.Cube(0, 0, 0), RoleSolidShell))

	require.NoError(t, s.Resize(Size{Width: 800, Height: 200}))
	first := s.Camera()
	require.NoError(t, s.Resize(Size{Width: 800, Height: 200}))

	assert.Equal(t, first, s.Camera())
	assert.Equal(t, 1, device.resizes)
	assert.InDelta(t, 4.0, first.Aspect, 1e-12)
}

func TestResizeReframesForNewAspect(t *testing.T) {
	s, _, _ := newTestSession(t, Options{})
	defer s.Destroy()
	require.NoError(t, s.AddLayer(mesh.Cube(0, 0, 0), RoleSolidShell))

	require.NoError(t, s.Resize(Size{Width: 90, Height: 300}))
	cam := s.Camera()
	assert.InDelta(t, 0.3, cam.Aspect, 1e-12)
	assert.True(t, cam.ContainsSphere(s.Layers()[0].Sphere))
}

func TestResizeZeroHeight(t *testing.T) {
	s, _, _ := newTestSession(t, Options{})
	defer s.Destroy()

	require.NoError(t, s.Resize(Size{Width: 640, Height: 0}))
	cam := s.Camera()
	assert.Equal(t, 640.0, cam.Aspect)
	assert.False(t, math.IsInf(cam.Aspect, 0))
}

func TestResizeZeroWidthKeepsCamera(t *testing.T) {
	s, _, _ := newTestSession(t, Options{})
	defer s.Destroy()
	require.NoError(t, s.AddLayer(mesh.Cube(0, 0, 0), RoleSolidShell))
	before := s.Camera()

	require.NoError(t, s.Resize(Size{Width: 0, Height: 300}))
	cam := s.Camera()
	assert.Equal(t, before.Position, cam.Position)
	assert.Equal(t, before.Near, cam.Near)
	assert.Equal(t, before.Far, cam.Far)
	assert.False(t, math.IsInf(cam.Position.Z, 0))

	// Growing the viewport again reframes normally
	require.NoError(t, s.Resize(Size{Width: 400, Height: 300}))
	assert.InDelta(t, before.Position.Z, s.Camera().Position.Z, 1e-9)
}

func TestAddLayerFramesLiteralAsset(t *testing.T) {
	s, _, _ := newTestSession(t, Options{})
	defer s.Destroy()

	cube := mesh.Cube(10, 10, 10)
	literal := &mesh.Asset{Name: "literal", Positions: cube.Positions, Indices: cube.Indices}
	require.NoError(t, s.AddLayer(literal, RoleSolidShell))

	layers := s.Layers()
	require.Len(t, layers, 1)
	assert.InDelta(t, 0, layers[0].Sphere.Center.Length(), 1e-6)
	assert.InDelta(t, math.Sqrt(3), layers[0].Sphere.Radius, 1e-6)
	cam := s.Camera()
	assert.True(t, cam.ContainsSphere(layers[0].Sphere))
}

func TestZeroRadiusLayerKeepsCamera(t *testing.T) {
	s, _, _ := newTestSession(t, Options{})
	defer s.Destroy()
	before := s.Camera()

	flat := mesh.New("dot", []float32{2, 2, 2, 2, 2, 2, 2, 2, 2})
	require.NoError(t, s.AddLayer(flat, RoleSolidShell))

	assert.Equal(t, before, s.Camera())
	assert.Len(t, s.Layers(), 1)
}

func TestLoadLayerInstallsOnTick(t *testing.T) {
	s, _, source := newTestSession(t, Options{})
	defer s.Destroy()
	source.assets["part.stl"] = mesh.Cube(1, 1, 1)

	var infos []LoadInfo
	s.OnLoad(func(info LoadInfo) { infos = append(infos, info) })

	err := <-s.LoadLayer(context.Background(), "part.stl", loader.FormatAuto, RoleSolidShell)
	require.NoError(t, err)
	assert.Empty(t, s.Layers(), "installed only on the next tick")
	assert.Equal(t, StateLoading, s.Status().State)
	assert.Equal(t, "Loading model…", s.Status().String())

	require.NoError(t, s.Tick(0))
	require.Len(t, s.Layers(), 1)
	assert.Equal(t, StateReady, s.Status().State)
	require.Len(t, infos, 1)
	assert.Equal(t, 8, infos[0].VertexCount)
	assert.Equal(t, "part.stl", infos[0].Source)
}

func TestLoadLayerErrorSetsStatus(t *testing.T) {
	s, device, source := newTestSession(t, Options{})
	defer s.Destroy()
	source.errs["missing.glb"] = &loader.LoadError{URL: "missing.glb", Status: 404, Message: "Not Found"}

	err := <-s.LoadLayer(context.Background(), "missing.glb", loader.FormatAuto, RoleResult)
	var le *loader.LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, 404, le.Status)

	require.NoError(t, s.Tick(0))
	assert.Equal(t, StateError, s.Status().State)
	assert.Contains(t, s.Status().String(), "Failed to load model")
	assert.Empty(t, s.Layers())
	assert.Equal(t, 1, device.Live())
}

func TestLoadAfterDestroyIsDiscarded(t *testing.T) {
	s, device, source := newTestSession(t, Options{})
	source.assets["slow.stl"] = mesh.Cube(0, 0, 0)
	gate := make(chan struct{})
	source.gates["slow.stl"] = gate

	done := s.LoadLayer(context.Background(), "slow.stl", loader.FormatAuto, RoleSolidShell)
	s.Destroy()
	close(gate)

	assert.ErrorIs(t, <-done, ErrDestroyed)
	assert.NoError(t, s.Tick(0))
	assert.Equal(t, 0, device.Live())
	assert.Empty(t, device.releaseErrs)
}

func TestNewerLoadSupersedesOlder(t *testing.T) {
	s, _, source := newTestSession(t, Options{})
	defer s.Destroy()

	source.assets["old.stl"] = mesh.Cube(0, 0, 0)
	source.assets["new.stl"] = mesh.Box("new", 10, 10, 10, 0, 0, 0, 1)
	gate := make(chan struct{})
	source.gates["old.stl"] = gate

	oldDone := s.LoadLayer(context.Background(), "old.stl", loader.FormatAuto, RoleSolidShell)
	require.NoError(t, <-s.LoadLayer(context.Background(), "new.stl", loader.FormatAuto, RoleSolidShell))
	close(gate)
	assert.True(t, errors.Is(<-oldDone, ErrSuperseded))

	require.NoError(t, s.Tick(0))
	layers := s.Layers()
	require.Len(t, layers, 1)
	assert.Equal(t, "new.stl", layers[0].Source)
}

func TestSchedulerTicksSessions(t *testing.T) {
	obs := &countingObserver{}
	device := NewRasterDevice()
	sched := NewScheduler(120, nil)
	host := NewHost(device, nil, sched, Options{Observer: obs})

	a, err := host.Create(&Size{Width: 10, Height: 10})
	require.NoError(t, err)
	b, err := host.Create(&Size{Width: 20, Height: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, sched.Len())

	sched.Tick(time.Millisecond)
	assert.Equal(t, int64(2), device.Frames())

	a.Destroy()
	sched.Tick(time.Millisecond)
	assert.Equal(t, int64(3), device.Frames())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, sched.Run(ctx), context.DeadlineExceeded)
	assert.Greater(t, device.Frames(), int64(3))

	b.Destroy()
	assert.Equal(t, 0, device.Live())
}

func TestResetViewRestoresFraming(t *testing.T) {
	s, _, _ := newTestSession(t, Options{})
	defer s.Destroy()
	require.NoError(t, s.AddLayer(mesh.Cube(0, 0, 0), RoleSolidShell))
	framed := s.Camera().Position

	s.Orbit(0.3, 0.7)
	for i := 0; i < 10; i++ {
		require.NoError(t, s.Tick(16*time.Millisecond))
	}
	assert.NotEqual(t, framed, s.Camera().Position)

	s.ResetView()
	assert.InDelta(t, 0, s.Camera().Position.Distance(framed), 1e-9)
}
