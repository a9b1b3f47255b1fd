package viewer

import (
	"math"

	"github.com/makistry/meshview/pkg/geometry"
)

// Orbit control defaults
const (
	DefaultDampingFactor   = 0.05
	DefaultAutoRotateSpeed = 1.0
)

// maxElevation keeps the camera off the poles
const maxElevation = math.Pi/2 - 0.1

// Controls orbits a camera around its target. Rotation and zoom requests
// are accumulated and applied by Update, eased by the damping factor when
// damping is enabled.
type Controls struct {
	camera *Camera

	EnableDamping bool
	DampingFactor float64
	EnablePan     bool
	AutoRotate    bool
	// AutoRotateSpeed of 1 completes an orbit in 60 seconds
	AutoRotateSpeed float64
	MinDistance     float64
	MaxDistance     float64

	elevation float64 // rotation around X (vertical)
	azimuth   float64 // rotation around Y (horizontal)
	distance  float64

	deltaElevation float64
	deltaAzimuth   float64
	scale          float64

	saved    *controlsState
	disposed bool
}

type controlsState struct {
	position geometry.Vector3
	target   geometry.Vector3
}

// NewControls attaches orbit controls to the camera. Panning is disabled.
func NewControls(camera *Camera) *Controls {
	c := &Controls{
		camera:          camera,
		EnableDamping:   true,
		DampingFactor:   DefaultDampingFactor,
		AutoRotateSpeed: DefaultAutoRotateSpeed,
		MaxDistance:     math.Inf(1),
		scale:           1,
	}
	c.Sync()
	return c
}

// Sync re-reads the orbit from the camera after it was moved externally and
// drops any pending motion
func (c *Controls) Sync() {
	offset := c.camera.Position.Sub(c.camera.Target)
	c.distance = offset.Length()
	if c.distance > 0 {
		c.elevation = math.Asin(math.Max(-1, math.Min(1, offset.Y/c.distance)))
		c.azimuth = math.Atan2(offset.X, offset.Z)
	}
	c.deltaElevation, c.deltaAzimuth, c.scale = 0, 0, 1
}

// Rotate requests a rotation by the given angles in radians
func (c *Controls) Rotate(deltaX, deltaY float64) {
	if c.disposed {
		return
	}
	c.deltaElevation += deltaX
	c.deltaAzimuth += deltaY
}

// Zoom requests a relative change of the camera distance
func (c *Controls) Zoom(delta float64) {
	if c.disposed {
		return
	}
	c.scale *= 1.0 + delta
}

// Pan moves the target. It reports false and does nothing while panning is
// disabled.
func (c *Controls) Pan(dx, dy float64) bool {
	if c.disposed || !c.EnablePan {
		return false
	}
	_, right, up := c.camera.basis()
	shift := right.Mul(dx).Add(up.Mul(dy))
	c.camera.Target = c.camera.Target.Add(shift)
	c.camera.Position = c.camera.Position.Add(shift)
	return true
}

// Update advances auto-rotation and damping by dt seconds and moves the
// camera. It reports whether the camera moved.
func (c *Controls) Update(dt float64) bool {
	if c.disposed || c.distance == 0 {
		return false
	}

	if c.AutoRotate {
		c.deltaAzimuth -= 2 * math.Pi / 60 * c.AutoRotateSpeed * dt
	}

	before := c.camera.Position

	if c.EnableDamping {
		c.azimuth += c.deltaAzimuth * c.DampingFactor
		c.elevation += c.deltaElevation * c.DampingFactor
		c.deltaAzimuth *= 1 - c.DampingFactor
		c.deltaElevation *= 1 - c.DampingFactor
	} else {
		c.azimuth += c.deltaAzimuth
		c.elevation += c.deltaElevation
		c.deltaAzimuth, c.deltaElevation = 0, 0
	}

	// Clamp X rotation to prevent gimbal lock
	c.elevation = math.Max(-maxElevation, math.Min(maxElevation, c.elevation))

	c.distance = math.Max(c.MinDistance, math.Min(c.MaxDistance, c.distance*c.scale))
	c.scale = 1

	c.updatePosition()
	return c.camera.Position != before
}

// updatePosition places the camera from the spherical orbit coordinates
func (c *Controls) updatePosition() {
	x := c.distance * math.Cos(c.elevation) * math.Sin(c.azimuth)
	y := c.distance * math.Sin(c.elevation)
	z := c.distance * math.Cos(c.elevation) * math.Cos(c.azimuth)

	c.camera.Position = c.camera.Target.Add(geometry.NewVector3(x, y, z))
}

// SetAngles jumps to the given orbit angles in radians, keeping the
// distance. Elevation is clamped off the poles.
func (c *Controls) SetAngles(elevation, azimuth float64) {
	if c.disposed || c.distance == 0 {
		return
	}
	c.elevation = math.Max(-maxElevation, math.Min(maxElevation, elevation))
	c.azimuth = azimuth
	c.deltaElevation, c.deltaAzimuth = 0, 0
	c.updatePosition()
}

// SaveState records the current view so Reset can return to it
func (c *Controls) SaveState() {
	c.saved = &controlsState{position: c.camera.Position, target: c.camera.Target}
}

// Reset restores the last saved view
func (c *Controls) Reset() {
	if c.saved == nil || c.disposed {
		return
	}
	c.camera.Position = c.saved.position
	c.camera.Target = c.saved.target
	c.Sync()
}

// Dispose detaches the controls. Later calls have no effect.
func (c *Controls) Dispose() {
	c.disposed = true
}

// Disposed reports whether Dispose was called
func (c *Controls) Disposed() bool {
	return c.disposed
}
