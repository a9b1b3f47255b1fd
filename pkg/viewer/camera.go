package viewer

import (
	"math"

	"github.com/makistry/meshview/pkg/geometry"
)

// Default perspective parameters of a new session camera
const (
	DefaultFOV  = 45.0
	DefaultNear = 0.01
	DefaultFar  = 1000.0
)

// Camera is a perspective camera. FOV is the vertical field of view in
// degrees and Aspect is width over height.
type Camera struct {
	Position geometry.Vector3
	Target   geometry.Vector3
	Up       geometry.Vector3
	FOV      float64
	Aspect   float64
	Near     float64
	Far      float64
}

// NewCamera creates a camera at the placeholder position (0, 0, 1) looking at
// the origin. It is moved by framing once a model is loaded.
func NewCamera(fov float64) *Camera {
	if fov <= 0 || fov >= 180 {
		fov = DefaultFOV
	}
	return &Camera{
		Position: geometry.NewVector3(0, 0, 1),
		Target:   geometry.Vector3{},
		Up:       geometry.NewVector3(0, 1, 0),
		FOV:      fov,
		Aspect:   1,
		Near:     DefaultNear,
		Far:      DefaultFar,
	}
}

// SetAspect updates the aspect ratio from a surface size. Height is clamped
// to at least one pixel.
func (c *Camera) SetAspect(width, height int) {
	c.Aspect = float64(max(width, 0)) / float64(max(height, 1))
}

// VerticalFOV returns the vertical field of view in radians
func (c *Camera) VerticalFOV() float64 {
	return c.FOV * math.Pi / 180
}

// HorizontalFOV returns the horizontal field of view in radians
func (c *Camera) HorizontalFOV() float64 {
	return 2 * math.Atan(math.Tan(c.VerticalFOV()/2)*c.Aspect)
}

// Distance returns the distance from the camera to its target
func (c *Camera) Distance() float64 {
	return c.Position.Distance(c.Target)
}

// basis returns the camera's forward, right and up unit vectors
func (c *Camera) basis() (forward, right, up geometry.Vector3) {
	forward = c.Target.Sub(c.Position).Normalize()
	right = forward.Cross(c.Up).Normalize()
	up = right.Cross(forward).Normalize()
	return forward, right, up
}

// ToView transforms a world point into camera space: x right, y up and z the
// distance along the viewing direction
func (c *Camera) ToView(point geometry.Vector3) geometry.Vector3 {
	forward, right, up := c.basis()
	relative := point.Sub(c.Position)
	return geometry.NewVector3(relative.Dot(right), relative.Dot(up), relative.Dot(forward))
}

// Project projects a 3D point to 2D screen coordinates. The returned depth is
// the camera-space distance along the viewing direction.
func (c *Camera) Project(point geometry.Vector3, width, height float64) (float64, float64, float64) {
	v := c.ToView(point)
	z := v.Z

	// Perspective projection
	if z <= c.Near {
		z = c.Near
	}

	aspect := width / math.Max(height, 1)
	fovScale := math.Tan(c.VerticalFOV() / 2)

	screenX := (v.X/(z*fovScale*aspect))*(width/2) + (width / 2)
	screenY := (-v.Y/(z*fovScale))*(height/2) + (height / 2)

	return screenX, screenY, z
}

// ContainsSphere reports whether the sphere lies entirely inside the view
// frustum, within a relative tolerance
func (c *Camera) ContainsSphere(s geometry.Sphere) bool {
	const tolerance = 1e-9

	v := c.ToView(s.Center)
	r := s.Radius * (1 - tolerance)

	halfV := c.VerticalFOV() / 2
	halfH := c.HorizontalFOV() / 2

	// Signed distances to the four side planes, positive inside
	sides := []float64{
		v.Z*math.Sin(halfV) - v.Y*math.Cos(halfV),
		v.Z*math.Sin(halfV) + v.Y*math.Cos(halfV),
		v.Z*math.Sin(halfH) - v.X*math.Cos(halfH),
		v.Z*math.Sin(halfH) + v.X*math.Cos(halfH),
	}
	for _, d := range sides {
		if d < r {
			return false
		}
	}
	return v.Z-r >= c.Near && v.Z+r <= c.Far
}
