package viewer

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"sync"
	"sync/atomic"

	"github.com/makistry/meshview/pkg/geometry"
	"github.com/makistry/meshview/pkg/mesh"
)

// RasterDevice is a software Device drawing into in-memory images with a
// z-buffer. It backs snapshots, the fyne window and tests.
type RasterDevice struct {
	resources *ResourceTable[rasterResource]
	mu        sync.Mutex
	frames    atomic.Int64
}

type rasterResource struct {
	surface  *rasterSurface
	geometry *mesh.Asset
	material *Material
}

type rasterSurface struct {
	img    *image.RGBA
	zbuf   []float64
	width  int
	height int
}

func newRasterSurface(width, height int) *rasterSurface {
	return &rasterSurface{
		img:    image.NewRGBA(image.Rect(0, 0, width, height)),
		zbuf:   make([]float64, width*height),
		width:  width,
		height: height,
	}
}

// NewRasterDevice creates a software device
func NewRasterDevice() *RasterDevice {
	return &RasterDevice{resources: NewResourceTable[rasterResource]()}
}

// CreateSurface allocates a drawing buffer
func (d *RasterDevice) CreateSurface(size Size) (Handle, error) {
	w, h := size.Pixels()
	return d.resources.Add(rasterResource{surface: newRasterSurface(w, h)}), nil
}

// ResizeSurface reallocates the drawing buffer when its pixel size changes
func (d *RasterDevice) ResizeSurface(surface Handle, size Size) error {
	s, err := d.surface(surface)
	if err != nil {
		return err
	}
	w, h := size.Pixels()
	if s.width == w && s.height == h {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.resources.Set(surface, rasterResource{surface: newRasterSurface(w, h)})
}

// CreateGeometry registers the asset's buffers. The asset must not be
// modified while the handle is live.
func (d *RasterDevice) CreateGeometry(asset *mesh.Asset) (Handle, error) {
	if asset == nil {
		return 0, fmt.Errorf("nil geometry")
	}
	return d.resources.Add(rasterResource{geometry: asset}), nil
}

// CreateMaterial registers a material
func (d *RasterDevice) CreateMaterial(material Material) (Handle, error) {
	m := material
	return d.resources.Add(rasterResource{material: &m}), nil
}

// Release frees a resource
func (d *RasterDevice) Release(h Handle) error {
	_, err := d.resources.Remove(h)
	return err
}

// Live returns the number of resources not yet released
func (d *RasterDevice) Live() int {
	return d.resources.Live()
}

// Frames returns the number of frames drawn
func (d *RasterDevice) Frames() int64 {
	return d.frames.Load()
}

func (d *RasterDevice) surface(h Handle) (*rasterSurface, error) {
	r, err := d.resources.Get(h)
	if err != nil {
		return nil, err
	}
	if r.surface == nil {
		return nil, fmt.Errorf("handle %d is not a surface", h)
	}
	return r.surface, nil
}

// Draw renders the draw list in order
func (d *RasterDevice) Draw(surface Handle, list DrawList) error {
	s, err := d.surface(surface)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	// Clear color and depth
	bg := list.Background
	for i := 0; i < len(s.img.Pix); i += 4 {
		s.img.Pix[i], s.img.Pix[i+1], s.img.Pix[i+2], s.img.Pix[i+3] = bg.R, bg.G, bg.B, bg.A
	}
	for i := range s.zbuf {
		s.zbuf[i] = math.Inf(1)
	}

	for _, call := range list.Calls {
		g, err := d.resources.Get(call.Geometry)
		if err != nil || g.geometry == nil {
			return fmt.Errorf("draw call geometry %d: %w", call.Geometry, orInvalid(err))
		}
		m, err := d.resources.Get(call.Material)
		if err != nil || m.material == nil {
			return fmt.Errorf("draw call material %d: %w", call.Material, orInvalid(err))
		}
		s.drawMesh(&list, g.geometry, m.material)
	}

	d.frames.Add(1)
	return nil
}

func orInvalid(err error) error {
	if err != nil {
		return err
	}
	return ErrUnknownHandle
}

// Snapshot returns a copy of the surface's last frame
func (d *RasterDevice) Snapshot(surface Handle) (*image.RGBA, error) {
	s, err := d.surface(surface)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	out := image.NewRGBA(s.img.Rect)
	copy(out.Pix, s.img.Pix)
	return out, nil
}

// WritePNG encodes the surface's last frame as PNG
func (d *RasterDevice) WritePNG(surface Handle, w io.Writer) error {
	img, err := d.Snapshot(surface)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

func (s *rasterSurface) drawMesh(list *DrawList, asset *mesh.Asset, mat *Material) {
	width, height := float64(s.width), float64(s.height)
	cam := list.Camera

	// Project every vertex once
	n := asset.VertexCount()
	xs, ys, zs := make([]float64, n), make([]float64, n), make([]float64, n)
	behind := make([]bool, n)
	for i := 0; i < n; i++ {
		v := asset.Vertex(i)
		behind[i] = cam.ToView(v).Z <= cam.Near
		xs[i], ys[i], zs[i] = cam.Project(v, width, height)
	}

	alpha := 1.0
	if mat.Transparent {
		alpha = mat.Opacity
	}

	for t := 0; t < asset.TriangleCount(); t++ {
		a, b, c := asset.TriangleIndices(t)
		if behind[a] || behind[b] || behind[c] {
			continue
		}

		if mat.Wireframe {
			col := mat.Color
			plot := s.plotter(col, alpha, false, true)
			pairs := [3][2]uint32{{a, b}, {b, c}, {c, a}}
			for _, p := range pairs {
				drawLine(xs[p[0]], ys[p[0]], zs[p[0]], xs[p[1]], ys[p[1]], zs[p[1]], plot)
			}
			continue
		}

		// Screen-space winding: negative area faces the camera
		area := (xs[b]-xs[a])*(ys[c]-ys[a]) - (xs[c]-xs[a])*(ys[b]-ys[a])
		if area == 0 {
			continue
		}
		if area > 0 && mat.Side == FrontSide {
			continue
		}

		normal := asset.Triangle(t).Normal
		if area > 0 {
			normal = normal.Mul(-1)
		}

		base := mat.Color
		if mat.VertexColors && asset.HasColors() {
			base = averageColor(asset, a, b, c, base)
		}
		col := Shade(base, normal, list.Lights)

		plot := s.plotter(col, alpha, mat.DepthWrite, false)
		fillTriangle(xs[a], ys[a], zs[a], xs[b], ys[b], zs[b], xs[c], ys[c], zs[c], s.width, s.height, plot)
	}
}

// plotter returns a pixel writer with depth testing and alpha blending.
// Lines get a small depth tolerance so edges lying on a surface stay visible.
func (s *rasterSurface) plotter(col Color, alpha float64, depthWrite, line bool) func(x, y int, z float64) {
	r, g, b := col.R*255, col.G*255, col.B*255
	return func(x, y int, z float64) {
		if x < 0 || y < 0 || x >= s.width || y >= s.height {
			return
		}
		idx := y*s.width + x
		limit := s.zbuf[idx]
		if line {
			limit += z * 1e-3
		}
		if z > limit {
			return
		}
		if depthWrite {
			s.zbuf[idx] = z
		}

		p := idx * 4
		pix := s.img.Pix
		pix[p] = blend(pix[p], r, alpha)
		pix[p+1] = blend(pix[p+1], g, alpha)
		pix[p+2] = blend(pix[p+2], b, alpha)
		pix[p+3] = 255
	}
}

func blend(dst uint8, src, alpha float64) uint8 {
	v := src*alpha + float64(dst)*(1-alpha)
	return uint8(math.Max(0, math.Min(255, math.Round(v))))
}

func averageColor(asset *mesh.Asset, a, b, c uint32, tint Color) Color {
	var sum [3]float64
	for _, i := range []uint32{a, b, c} {
		off := int(i) * mesh.ColorStride
		sum[0] += float64(asset.Colors[off])
		sum[1] += float64(asset.Colors[off+1])
		sum[2] += float64(asset.Colors[off+2])
	}
	return Color{sum[0] / 3 * tint.R, sum[1] / 3 * tint.G, sum[2] / 3 * tint.B}
}

// Shade applies the scene lights to a flat-shaded face
func Shade(base Color, normal geometry.Vector3, lights []Light) Color {
	if len(lights) == 0 {
		return base
	}
	normal = normal.Normalize()

	var r, g, b float64
	for _, l := range lights {
		switch l.Kind {
		case HemisphereLight:
			w := 0.5*normal.Dot(l.Position.Normalize()) + 0.5
			r += l.Intensity * (l.GroundColor.R + (l.Color.R-l.GroundColor.R)*w)
			g += l.Intensity * (l.GroundColor.G + (l.Color.G-l.GroundColor.G)*w)
			b += l.Intensity * (l.GroundColor.B + (l.Color.B-l.GroundColor.B)*w)
		case DirectionalLight:
			k := l.Intensity * math.Max(0, normal.Dot(l.Position.Normalize()))
			r += k * l.Color.R
			g += k * l.Color.G
			b += k * l.Color.B
		}
	}
	return Color{
		R: math.Min(1, base.R*r),
		G: math.Min(1, base.G*g),
		B: math.Min(1, base.B*b),
	}
}

// fillTriangle fills a triangle using a scanline algorithm, interpolating
// depth and handing every covered pixel to plot
func fillTriangle(x1, y1, z1, x2, y2, z2, x3, y3, z3 float64, width, height int, plot func(x, y int, z float64)) {
	vertices := [3][3]float64{
		{x1, y1, z1},
		{x2, y2, z2},
		{x3, y3, z3},
	}

	// Sort vertices by Y coordinate (top to bottom)
	if vertices[0][1] > vertices[1][1] {
		vertices[0], vertices[1] = vertices[1], vertices[0]
	}
	if vertices[1][1] > vertices[2][1] {
		vertices[1], vertices[2] = vertices[2], vertices[1]
	}
	if vertices[0][1] > vertices[1][1] {
		vertices[0], vertices[1] = vertices[1], vertices[0]
	}

	x1, y1, z1 = vertices[0][0], vertices[0][1], vertices[0][2]
	x2, y2, z2 = vertices[1][0], vertices[1][1], vertices[1][2]
	x3, y3, z3 = vertices[2][0], vertices[2][1], vertices[2][2]

	edges := [3][6]float64{
		{x1, y1, z1, x2, y2, z2},
		{x2, y2, z2, x3, y3, z3},
		{x1, y1, z1, x3, y3, z3},
	}

	for y := int(math.Max(0, math.Ceil(y1))); y <= int(math.Min(float64(height-1), y3)); y++ {
		fy := float64(y)

		var xs, zs [2]float64
		found := 0
		for _, e := range edges {
			if found == 2 {
				break
			}
			ya, yb := e[1], e[4]
			if ya == yb || fy < ya || fy > yb {
				continue
			}
			t := (fy - ya) / (yb - ya)
			xs[found] = e[0] + t*(e[3]-e[0])
			zs[found] = e[2] + t*(e[5]-e[2])
			found++
		}
		if found < 2 {
			continue
		}

		xStart, xEnd, zStart, zEnd := xs[0], xs[1], zs[0], zs[1]
		if xStart > xEnd {
			xStart, xEnd = xEnd, xStart
			zStart, zEnd = zEnd, zStart
		}

		xFrom := int(math.Max(0, math.Ceil(xStart)))
		xTo := int(math.Min(float64(width-1), xEnd))
		for x := xFrom; x <= xTo; x++ {
			t := 0.0
			if xEnd != xStart {
				t = (float64(x) - xStart) / (xEnd - xStart)
			}
			plot(x, y, zStart+t*(zEnd-zStart))
		}
	}
}

// drawLine draws a line using Bresenham's algorithm with interpolated depth
func drawLine(fx1, fy1, z1, fx2, fy2, z2 float64, plot func(x, y int, z float64)) {
	x1, y1 := int(math.Round(fx1)), int(math.Round(fy1))
	x2, y2 := int(math.Round(fx2)), int(math.Round(fy2))

	dx := abs(x2 - x1)
	dy := abs(y2 - y1)
	steps := max(dx, dy)

	sx, sy := 1, 1
	if x1 >= x2 {
		sx = -1
	}
	if y1 >= y2 {
		sy = -1
	}

	err := dx - dy
	for i := 0; ; i++ {
		t := 0.0
		if steps > 0 {
			t = float64(i) / float64(steps)
		}
		plot(x1, y1, z1+t*(z2-z1))

		if x1 == x2 && y1 == y2 {
			break
		}

		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

var _ Device = (*RasterDevice)(nil)

// RGBA8 converts the color to 8-bit RGBA
func (c Color) RGBA8() color.RGBA {
	return color.RGBA{
		R: uint8(math.Round(math.Max(0, math.Min(1, c.R)) * 255)),
		G: uint8(math.Round(math.Max(0, math.Min(1, c.G)) * 255)),
		B: uint8(math.Round(math.Max(0, math.Min(1, c.B)) * 255)),
		A: 255,
	}
}
