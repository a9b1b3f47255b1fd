package app

import (
	"context"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/makistry/meshview/pkg/viewer"
)

// Mouse sensitivities
const (
	rotateSpeed = 0.005 // radians per pixel
	zoomSpeed   = 0.1   // relative distance per wheel step
	panSpeed    = 0.001 // fraction of camera distance per pixel
)

// InputState holds mouse interaction state
type InputState struct {
	isPanning bool
}

// handleInput processes keyboard and mouse input
func (a *App) handleInput() {
	ctx := context.Background()

	// Camera view preset shortcuts
	if rl.IsKeyPressed(rl.KeyHome) {
		a.session.ResetView()
	}
	presets := map[int32]ViewPreset{
		rl.KeyOne:   ViewFront,
		rl.KeyTwo:   ViewBack,
		rl.KeyThree: ViewLeft,
		rl.KeyFour:  ViewRight,
		rl.KeyT:     ViewTop,
		rl.KeyB:     ViewBottom,
	}
	for key, preset := range presets {
		if rl.IsKeyPressed(key) {
			a.setView(preset)
		}
	}

	if rl.IsKeyPressed(rl.KeySpace) {
		a.opts.Viewer.AutoRotate = !a.opts.Viewer.AutoRotate
		a.session.SetAutoRotate(a.opts.Viewer.AutoRotate)
	}
	if rl.IsKeyPressed(rl.KeyH) {
		a.view.showHelp = !a.view.showHelp
	}
	if rl.IsKeyPressed(rl.KeyR) {
		a.reload()
	}

	// Layer visibility
	if rl.IsKeyPressed(rl.KeyF) {
		a.toggleLayer(ctx, viewer.RoleSolidShell)
	}
	if rl.IsKeyPressed(rl.KeyW) {
		a.toggleLayer(ctx, viewer.RoleWireframe)
	}
	if rl.IsKeyPressed(rl.KeyC) && !rl.IsKeyDown(rl.KeyLeftControl) && !rl.IsKeyDown(rl.KeyRightControl) {
		a.toggleLayer(ctx, viewer.RoleResult)
	}

	// Pan with Shift + left drag or middle drag, rotate with left drag
	if rl.IsMouseButtonPressed(rl.MouseLeftButton) {
		a.input.isPanning = rl.IsKeyDown(rl.KeyLeftShift) || rl.IsKeyDown(rl.KeyRightShift)
	}
	delta := rl.GetMouseDelta()
	if delta.X != 0 || delta.Y != 0 {
		switch {
		case rl.IsMouseButtonDown(rl.MouseMiddleButton) || (rl.IsMouseButtonDown(rl.MouseLeftButton) && a.input.isPanning):
			dist := a.session.Camera().Distance() * panSpeed
			a.session.Pan(-float64(delta.X)*dist, float64(delta.Y)*dist)
		case rl.IsMouseButtonDown(rl.MouseLeftButton):
			a.session.Orbit(float64(delta.Y)*rotateSpeed, -float64(delta.X)*rotateSpeed)
		}
	}

	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		a.session.Zoom(-float64(wheel) * zoomSpeed)
	}
}

// reload drops cached copies of every layer and loads them again
func (a *App) reload() {
	for _, spec := range a.opts.Layers {
		a.opts.Loader.Invalidate(spec.Source)
	}
	a.needsReload.Store(true)
}
