package viewer

import (
	"errors"
	"fmt"
	"image/color"
	"sync"

	"github.com/makistry/meshview/pkg/geometry"
	"github.com/makistry/meshview/pkg/mesh"
)

var (
	// ErrDoubleRelease is returned when a resource is released a second time
	ErrDoubleRelease = errors.New("resource already released")
	// ErrUnknownHandle is returned for handles a device never issued
	ErrUnknownHandle = errors.New("unknown resource handle")
)

// MaxPixelRatio caps the device pixel ratio of a surface
const MaxPixelRatio = 2.0

// Handle identifies a device resource
type Handle uint64

// Size is the size of a viewport container in logical pixels
type Size struct {
	Width      int
	Height     int
	PixelRatio float64
}

// Pixels returns the drawing buffer size with the pixel ratio applied and
// capped at MaxPixelRatio
func (s Size) Pixels() (int, int) {
	ratio := s.PixelRatio
	if ratio <= 0 {
		ratio = 1
	}
	ratio = min(ratio, MaxPixelRatio)
	return max(int(float64(s.Width)*ratio), 0), max(int(float64(s.Height)*ratio), 1)
}

// LightKind distinguishes the lights of a scene
type LightKind int

const (
	// HemisphereLight blends between a sky and a ground color by normal
	// direction
	HemisphereLight LightKind = iota
	// DirectionalLight shines from Position towards the origin
	DirectionalLight
)

// Light describes one scene light
type Light struct {
	Kind        LightKind
	Color       Color
	GroundColor Color
	Intensity   float64
	Position    geometry.Vector3
}

// DefaultLights returns the hemisphere plus directional rig of a session
func DefaultLights() []Light {
	return []Light{
		{
			Kind:        HemisphereLight,
			Color:       Color{1, 1, 1},
			GroundColor: Color{0x44 / 255.0, 0x44 / 255.0, 0x44 / 255.0},
			Intensity:   0.75,
			Position:    geometry.NewVector3(0, 1, 0),
		},
		{
			Kind:      DirectionalLight,
			Color:     Color{1, 1, 1},
			Intensity: 0.75,
			Position:  geometry.NewVector3(3, 5, 8),
		},
	}
}

// DrawCall pairs a geometry with a material
type DrawCall struct {
	Geometry Handle
	Material Handle
	Priority int
}

// DrawList is everything a device needs to draw one frame. Calls are in draw
// order.
type DrawList struct {
	Camera     Camera
	Background color.RGBA
	Lights     []Light
	Calls      []DrawCall
}

// Device allocates and draws GPU-like resources. Each resource must be
// released exactly once.
type Device interface {
	CreateSurface(size Size) (Handle, error)
	ResizeSurface(surface Handle, size Size) error
	CreateGeometry(asset *mesh.Asset) (Handle, error)
	CreateMaterial(material Material) (Handle, error)
	Draw(surface Handle, list DrawList) error
	Release(h Handle) error
}

// ResourceTable tracks device resources and enforces single release. It is
// safe for concurrent use.
type ResourceTable[T any] struct {
	mu       sync.Mutex
	next     Handle
	live     map[Handle]T
	released map[Handle]bool
}

// NewResourceTable creates an empty table
func NewResourceTable[T any]() *ResourceTable[T] {
	return &ResourceTable[T]{
		live:     make(map[Handle]T),
		released: make(map[Handle]bool),
	}
}

// Add stores a resource and returns its handle
func (t *ResourceTable[T]) Add(v T) Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	t.live[t.next] = v
	return t.next
}

// Get returns a live resource
func (t *ResourceTable[T]) Get(h Handle) (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.live[h]
	if !ok {
		var zero T
		if t.released[h] {
			return zero, fmt.Errorf("handle %d: %w", h, ErrDoubleRelease)
		}
		return zero, fmt.Errorf("handle %d: %w", h, ErrUnknownHandle)
	}
	return v, nil
}

// Set replaces a live resource
func (t *ResourceTable[T]) Set(h Handle, v T) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.live[h]; !ok {
		return fmt.Errorf("handle %d: %w", h, ErrUnknownHandle)
	}
	t.live[h] = v
	return nil
}

// Remove takes a resource out of the table. A second removal of the same
// handle returns ErrDoubleRelease.
func (t *ResourceTable[T]) Remove(h Handle) (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.live[h]
	if !ok {
		var zero T
		if t.released[h] {
			return zero, fmt.Errorf("handle %d: %w", h, ErrDoubleRelease)
		}
		return zero, fmt.Errorf("handle %d: %w", h, ErrUnknownHandle)
	}
	delete(t.live, h)
	t.released[h] = true
	return v, nil
}

// Live returns the number of resources not yet released
func (t *ResourceTable[T]) Live() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.live)
}
