package app

import (
	"fmt"
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/makistry/meshview/pkg/geometry"
	"github.com/makistry/meshview/pkg/mesh"
	"github.com/makistry/meshview/pkg/viewer"
)

// Device draws viewport sessions into the raylib window. Lighting is baked
// into vertex colors per geometry and material pair, so meshes are uploaded
// lazily on first draw. All methods must be called on the window thread.
type Device struct {
	resources *viewer.ResourceTable[resource]
	baked     map[bakeKey]rl.Mesh
	material  rl.Material
	loaded    bool

	surfaceSize viewer.Size
}

type resource struct {
	surface  bool
	geometry *geometryData
	material *viewer.Material
}

// geometryData holds the expanded triangle soup and unique edges of an asset
type geometryData struct {
	positions []geometry.Vector3
	normals   []geometry.Vector3
	colors    []viewer.Color
	hasColors bool
	edges     [][2]rl.Vector3
}

type bakeKey struct {
	geometry viewer.Handle
	material viewer.Handle
}

// NewDevice creates a device. The window must already be open.
func NewDevice() *Device {
	return &Device{
		resources: viewer.NewResourceTable[resource](),
		baked:     make(map[bakeKey]rl.Mesh),
	}
}

// Live returns the number of unreleased resources
func (d *Device) Live() int {
	return d.resources.Live()
}

// CreateSurface registers the window as a surface
func (d *Device) CreateSurface(size viewer.Size) (viewer.Handle, error) {
	d.surfaceSize = size
	return d.resources.Add(resource{surface: true}), nil
}

// ResizeSurface records the new window size; raylib owns the framebuffer
func (d *Device) ResizeSurface(surface viewer.Handle, size viewer.Size) error {
	if _, err := d.resources.Get(surface); err != nil {
		return err
	}
	d.surfaceSize = size
	return nil
}

// CreateGeometry expands the asset into flat triangles and collects its
// unique edges for wireframe drawing
func (d *Device) CreateGeometry(asset *mesh.Asset) (viewer.Handle, error) {
	if asset == nil {
		return 0, fmt.Errorf("nil geometry")
	}
	return d.resources.Add(resource{geometry: expand(asset)}), nil
}

// CreateMaterial stores a copy of the material
func (d *Device) CreateMaterial(m viewer.Material) (viewer.Handle, error) {
	return d.resources.Add(resource{material: &m}), nil
}

// Release frees a resource and any baked meshes that use it
func (d *Device) Release(h viewer.Handle) error {
	if _, err := d.resources.Remove(h); err != nil {
		return err
	}
	for key, m := range d.baked {
		if key.geometry == h || key.material == h {
			rl.UnloadMesh(&m)
			delete(d.baked, key)
		}
	}
	return nil
}

// Close unloads the shared material
func (d *Device) Close() {
	for key, m := range d.baked {
		rl.UnloadMesh(&m)
		delete(d.baked, key)
	}
	if d.loaded {
		rl.UnloadMaterial(d.material)
		d.loaded = false
	}
}

// Draw clears the window and draws the list in 3D mode. It must be called
// between rl.BeginDrawing and rl.EndDrawing.
func (d *Device) Draw(surface viewer.Handle, list viewer.DrawList) error {
	if _, err := d.resources.Get(surface); err != nil {
		return err
	}
	if !d.loaded {
		d.material = rl.LoadMaterialDefault()
		d.loaded = true
	}

	bg := list.Background
	rl.ClearBackground(rl.NewColor(bg.R, bg.G, bg.B, bg.A))

	rl.BeginMode3D(toRaylibCamera(list.Camera))
	defer rl.EndMode3D()

	for _, call := range list.Calls {
		g, err := d.resources.Get(call.Geometry)
		if err != nil || g.geometry == nil {
			return fmt.Errorf("draw call geometry %d: %w", call.Geometry, orUnknown(err))
		}
		m, err := d.resources.Get(call.Material)
		if err != nil || m.material == nil {
			return fmt.Errorf("draw call material %d: %w", call.Material, orUnknown(err))
		}

		if m.material.Wireframe {
			drawWireframe(g.geometry, m.material)
			continue
		}
		d.drawFilled(call, g.geometry, m.material, list.Lights)
	}
	return nil
}

func (d *Device) drawFilled(call viewer.DrawCall, g *geometryData, mat *viewer.Material, lights []viewer.Light) {
	key := bakeKey{geometry: call.Geometry, material: call.Material}
	m, ok := d.baked[key]
	if !ok {
		m = bake(g, mat, lights)
		d.baked[key] = m
	}

	if mat.Transparent {
		rl.BeginBlendMode(rl.BlendAlpha)
		defer rl.EndBlendMode()
	}
	if !mat.DepthWrite {
		rl.DisableDepthMask()
		defer rl.EnableDepthMask()
	}
	if mat.Side == viewer.DoubleSide {
		rl.DisableBackfaceCulling()
		defer rl.EnableBackfaceCulling()
	}
	rl.DrawMesh(m, d.material, rl.MatrixIdentity())
}

func orUnknown(err error) error {
	if err != nil {
		return err
	}
	return viewer.ErrUnknownHandle
}

func toRaylibCamera(c viewer.Camera) rl.Camera3D {
	return rl.Camera3D{
		Position:   toRaylib(c.Position),
		Target:     toRaylib(c.Target),
		Up:         toRaylib(c.Up),
		Fovy:       float32(c.FOV),
		Projection: rl.CameraPerspective,
	}
}

func toRaylib(v geometry.Vector3) rl.Vector3 {
	return rl.Vector3{X: float32(v.X), Y: float32(v.Y), Z: float32(v.Z)}
}

// expand converts an asset to independent triangles, keeping vertex normals
// and colors when present
func expand(asset *mesh.Asset) *geometryData {
	g := &geometryData{hasColors: asset.HasColors()}
	seen := make(map[[2]uint32]bool)

	for t := 0; t < asset.TriangleCount(); t++ {
		a, b, c := asset.TriangleIndices(t)
		face := asset.Triangle(t).Normal
		for _, i := range [3]uint32{a, b, c} {
			g.positions = append(g.positions, asset.Vertex(int(i)))
			n := face
			if asset.HasNormals() {
				off := int(i) * 3
				n = geometry.NewVector3(float64(asset.Normals[off]), float64(asset.Normals[off+1]), float64(asset.Normals[off+2]))
			}
			g.normals = append(g.normals, n)
			if g.hasColors {
				off := int(i) * mesh.ColorStride
				g.colors = append(g.colors, viewer.Color{
					R: float64(asset.Colors[off]),
					G: float64(asset.Colors[off+1]),
					B: float64(asset.Colors[off+2]),
				})
			}
		}

		// Track drawn edges to avoid duplicates
		for _, e := range [3][2]uint32{{a, b}, {b, c}, {c, a}} {
			key := [2]uint32{min(e[0], e[1]), max(e[0], e[1])}
			if seen[key] {
				continue
			}
			seen[key] = true
			g.edges = append(g.edges, [2]rl.Vector3{
				toRaylib(asset.Vertex(int(e[0]))),
				toRaylib(asset.Vertex(int(e[1]))),
			})
		}
	}
	return g
}

// bake uploads a mesh with the lit material color in its vertex colors
func bake(g *geometryData, mat *viewer.Material, lights []viewer.Light) rl.Mesh {
	vertexCount := len(g.positions)
	m := rl.Mesh{
		VertexCount:   int32(vertexCount),
		TriangleCount: int32(vertexCount / 3),
	}

	vertices := make([]float32, vertexCount*3)
	normals := make([]float32, vertexCount*3)
	texcoords := make([]float32, vertexCount*2)
	colors := make([]uint8, vertexCount*4)

	alpha := uint8(255)
	if mat.Transparent {
		alpha = uint8(math.Round(math.Max(0, math.Min(1, mat.Opacity)) * 255))
	}

	for i, p := range g.positions {
		n := g.normals[i]
		vertices[i*3], vertices[i*3+1], vertices[i*3+2] = float32(p.X), float32(p.Y), float32(p.Z)
		normals[i*3], normals[i*3+1], normals[i*3+2] = float32(n.X), float32(n.Y), float32(n.Z)

		base := mat.Color
		if mat.VertexColors && g.hasColors {
			vc := g.colors[i]
			base = viewer.Color{R: vc.R * base.R, G: vc.G * base.G, B: vc.B * base.B}
		}
		lit := viewer.Shade(base, n, lights).RGBA8()
		colors[i*4], colors[i*4+1], colors[i*4+2], colors[i*4+3] = lit.R, lit.G, lit.B, alpha
	}

	if vertexCount > 0 {
		m.Vertices = &vertices[0]
		m.Normals = &normals[0]
		m.Texcoords = &texcoords[0]
		m.Colors = &colors[0]
	}

	// Upload mesh data to GPU
	rl.UploadMesh(&m, false)
	return m
}

// drawWireframe draws the unique edges as lines
func drawWireframe(g *geometryData, mat *viewer.Material) {
	c := mat.Color.RGBA8()
	alpha := uint8(255)
	if mat.Transparent {
		alpha = uint8(math.Round(math.Max(0, math.Min(1, mat.Opacity)) * 255))
	}
	col := rl.NewColor(c.R, c.G, c.B, alpha)

	if mat.Transparent {
		rl.BeginBlendMode(rl.BlendAlpha)
		defer rl.EndBlendMode()
	}
	for _, e := range g.edges {
		rl.DrawLine3D(e[0], e[1], col)
	}
}
