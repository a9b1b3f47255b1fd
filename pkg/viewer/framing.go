package viewer

import (
	"math"

	"github.com/makistry/meshview/pkg/geometry"
	"github.com/makistry/meshview/pkg/mesh"
)

// DefaultPadding leaves a 10% margin around a framed model
const DefaultPadding = 1.1

// FitDistance returns the camera distance at which a sphere of the given
// radius fits both the vertical and the horizontal field of view
func FitDistance(radius, fovDegrees, aspect, padding float64) float64 {
	if padding <= 0 {
		padding = DefaultPadding
	}
	vfov := fovDegrees * math.Pi / 180
	hfov := 2 * math.Atan(math.Tan(vfov/2)*aspect)

	fitHeight := radius / math.Sin(vfov/2)
	fitWidth := radius / math.Sin(hfov/2)
	return math.Max(fitHeight, fitWidth) * padding
}

// Frame recenters the asset about its bounding box center (once per asset),
// recomputes its bounding sphere and positions the camera to fit it. It
// reports false and leaves the camera unchanged when the sphere has no
// extent.
func Frame(camera *Camera, controls *Controls, asset *mesh.Asset, padding float64) bool {
	asset.Recenter()
	asset.ComputeBounds()
	return FrameSphere(camera, controls, asset.Sphere, padding)
}

// FrameSphere positions the camera on the +Z axis looking at the origin so
// the sphere fits the view, updates near and far planes and saves the
// controls state. A collapsed viewport (aspect <= 0) cannot be fitted, so
// the camera keeps its previous framing.
func FrameSphere(camera *Camera, controls *Controls, sphere geometry.Sphere, padding float64) bool {
	if sphere.IsDegenerate() || !(camera.Aspect > 0) {
		return false
	}

	distance := FitDistance(sphere.Radius, camera.FOV, camera.Aspect, padding)
	if math.IsInf(distance, 0) || math.IsNaN(distance) {
		return false
	}

	camera.Position = geometry.NewVector3(0, 0, distance)
	camera.Target = geometry.Vector3{}
	camera.Near = distance / 100
	camera.Far = distance * 100

	if controls != nil {
		controls.Sync()
		controls.SaveState()
	}
	return true
}
