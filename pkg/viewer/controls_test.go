package viewer

import (
	"math"
	"testing"

	"github.com/makistry/meshview/pkg/geometry"
)

func framedControls() (*Camera, *Controls) {
	cam := NewCamera(45)
	cam.Position = geometry.NewVector3(0, 0, 10)
	return cam, NewControls(cam)
}

func TestControlsDampingEasesRotation(t *testing.T) {
	cam, c := framedControls()
	c.Rotate(0, 1)

	c.Update(1.0 / 60)
	first := math.Atan2(cam.Position.X, cam.Position.Z)
	if math.Abs(first-DefaultDampingFactor) > 1e-9 {
		t.Errorf("first damped step = %v, want %v", first, DefaultDampingFactor)
	}

	for i := 0; i < 2000; i++ {
		c.Update(1.0 / 60)
	}
	final := math.Atan2(cam.Position.X, cam.Position.Z)
	if math.Abs(final-1) > 1e-6 {
		t.Errorf("rotation converged to %v, want 1", final)
	}
	if math.Abs(cam.Distance()-10) > 1e-9 {
		t.Errorf("distance changed to %v", cam.Distance())
	}
}

func TestControlsClampElevation(t *testing.T) {
	cam, c := framedControls()
	c.EnableDamping = false
	c.Rotate(10, 0)
	c.Update(0)

	elevation := math.Asin(cam.Position.Y / cam.Distance())
	if elevation > maxElevation+1e-9 {
		t.Errorf("elevation %v exceeds %v", elevation, maxElevation)
	}
}

func TestControlsPanDisabled(t *testing.T) {
	cam, c := framedControls()
	before := *cam

	if c.Pan(1, 1) {
		t.Error("Pan() = true while panning is disabled")
	}
	if *cam != before {
		t.Error("disabled pan moved the camera")
	}

	c.EnablePan = true
	if !c.Pan(1, 0) {
		t.Error("Pan() = false while panning is enabled")
	}
	if cam.Target == before.Target {
		t.Error("enabled pan did not move the target")
	}
}

func TestControlsAutoRotate(t *testing.T) {
	cam, c := framedControls()
	c.AutoRotate = true
	c.EnableDamping = false

	// One full orbit takes 60 seconds at speed 1
	for i := 0; i < 60; i++ {
		c.Update(0.25)
	}
	angle := math.Atan2(cam.Position.X, cam.Position.Z)
	if math.Abs(angle+math.Pi/2) > 1e-9 {
		t.Errorf("angle after 15s = %v, want %v", angle, -math.Pi/2)
	}
}

func TestControlsZoom(t *testing.T) {
	cam, c := framedControls()
	c.Zoom(-0.5)
	c.Update(0)
	if math.Abs(cam.Distance()-5) > 1e-9 {
		t.Errorf("distance = %v, want 5", cam.Distance())
	}
}

func TestControlsDisposed(t *testing.T) {
	cam, c := framedControls()
	c.Dispose()
	c.Rotate(1, 1)
	if c.Update(1) {
		t.Error("disposed controls moved the camera")
	}
	if cam.Position != geometry.NewVector3(0, 0, 10) {
		t.Errorf("camera moved to %v", cam.Position)
	}
	if !c.Disposed() {
		t.Error("Disposed() = false")
	}
}

func TestControlsSetAngles(t *testing.T) {
	cam, c := framedControls()

	c.SetAngles(math.Pi/2, 0)
	elevation := math.Asin(cam.Position.Y / cam.Distance())
	if math.Abs(elevation-maxElevation) > 1e-9 {
		t.Errorf("top view elevation = %v, want clamped %v", elevation, maxElevation)
	}

	c.SetAngles(0, math.Pi/2)
	if math.Abs(cam.Position.X-10) > 1e-9 || math.Abs(cam.Position.Z) > 1e-9 {
		t.Errorf("right view position = %v, want (10, 0, 0)", cam.Position)
	}
	if math.Abs(cam.Distance()-10) > 1e-9 {
		t.Errorf("distance changed to %v", cam.Distance())
	}
}
