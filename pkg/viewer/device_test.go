package viewer

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"

	"github.com/makistry/meshview/pkg/geometry"
	"github.com/makistry/meshview/pkg/mesh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResourceTableDoubleRelease(t *testing.T) {
	table := NewResourceTable[string]()
	h := table.Add("mesh")
	assert.Equal(t, 1, table.Live())

	v, err := table.Remove(h)
	require.NoError(t, err)
	assert.Equal(t, "mesh", v)
	assert.Equal(t, 0, table.Live())

	_, err = table.Remove(h)
	assert.ErrorIs(t, err, ErrDoubleRelease)

	_, err = table.Remove(Handle(999))
	assert.ErrorIs(t, err, ErrUnknownHandle)
}

func TestSizePixels(t *testing.T) {
	tests := []struct {
		size Size
		w, h int
	}{
		{Size{Width: 100, Height: 50}, 100, 50},
		{Size{Width: 100, Height: 50, PixelRatio: 1.5}, 150, 75},
		{Size{Width: 100, Height: 50, PixelRatio: 3}, 200, 100},
		{Size{Width: 100, Height: 0}, 100, 1},
	}
	for _, tt := range tests {
		w, h := tt.size.Pixels()
		assert.Equal(t, tt.w, w, "%+v", tt.size)
		assert.Equal(t, tt.h, h, "%+v", tt.size)
	}
}

func framedList(t *testing.T, d *RasterDevice, asset *mesh.Asset, material Material) DrawList {
	t.Helper()
	cam := NewCamera(45)
	require.True(t, Frame(cam, nil, asset, DefaultPadding))

	g, err := d.CreateGeometry(asset)
	require.NoError(t, err)
	m, err := d.CreateMaterial(material)
	require.NoError(t, err)

	return DrawList{
		Camera:     *cam,
		Background: color.RGBA{A: 255},
		Lights:     DefaultLights(),
		Calls:      []DrawCall{{Geometry: g, Material: m}},
	}
}

func TestRasterDrawsCube(t *testing.T) {
	d := NewRasterDevice()
	surface, err := d.CreateSurface(Size{Width: 64, Height: 64})
	require.NoError(t, err)

	list := framedList(t, d, mesh.Cube(0, 0, 0), VertexColorMaterial())
	require.NoError(t, d.Draw(surface, list))
	assert.Equal(t, int64(1), d.Frames())

	img, err := d.Snapshot(surface)
	require.NoError(t, err)

	center := img.RGBAAt(32, 32)
	assert.NotEqual(t, color.RGBA{A: 255}, center, "cube covers the center")
	corner := img.RGBAAt(0, 0)
	assert.Equal(t, color.RGBA{A: 255}, corner, "corner shows background")
}

func TestRasterWireframeDrawsEdgesOnly(t *testing.T) {
	d := NewRasterDevice()
	surface, err := d.CreateSurface(Size{Width: 64, Height: 64})
	require.NoError(t, err)

	// A single large quad facing the camera
	quad := mesh.Box("quad", 2, 2, 0, 0, 0, 0, 1)
	wire := WireframeMaterial()
	wire.Transparent = false
	list := framedList(t, d, quad, wire)
	require.NoError(t, d.Draw(surface, list))

	img, err := d.Snapshot(surface)
	require.NoError(t, err)

	lit := 0
	for i := 0; i < len(img.Pix); i += 4 {
		if img.Pix[i] == 255 {
			lit++
		}
	}
	assert.Greater(t, lit, 0)
	assert.Less(t, lit, 64*64/2, "only edges are drawn")
}

func TestRasterWritePNG(t *testing.T) {
	d := NewRasterDevice()
	surface, err := d.CreateSurface(Size{Width: 16, Height: 8})
	require.NoError(t, err)
	require.NoError(t, d.Draw(surface, DrawList{Background: color.RGBA{R: 10, G: 20, B: 30, A: 255}}))

	var buf bytes.Buffer
	require.NoError(t, d.WritePNG(surface, &buf))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 16, img.Bounds().Dx())
	assert.Equal(t, 8, img.Bounds().Dy())
	r, g, b, _ := img.At(3, 3).RGBA()
	assert.Equal(t, []uint32{10, 20, 30}, []uint32{r >> 8, g >> 8, b >> 8})
}

func TestRasterDrawReleasedGeometryFails(t *testing.T) {
	d := NewRasterDevice()
	surface, _ := d.CreateSurface(Size{Width: 8, Height: 8})
	list := framedList(t, d, mesh.Cube(0, 0, 0), ShellMaterial())

	require.NoError(t, d.Release(list.Calls[0].Geometry))
	assert.ErrorIs(t, d.Draw(surface, list), ErrDoubleRelease)
}

func TestRasterResize(t *testing.T) {
	d := NewRasterDevice()
	surface, _ := d.CreateSurface(Size{Width: 8, Height: 8})
	require.NoError(t, d.ResizeSurface(surface, Size{Width: 20, Height: 10}))

	img, err := d.Snapshot(surface)
	require.NoError(t, err)
	assert.Equal(t, 20, img.Bounds().Dx())
	assert.Equal(t, 1, d.Live())
}

func TestShadeFacingLight(t *testing.T) {
	lights := DefaultLights()
	toward := Shade(Color{1, 1, 1}, geometry.NewVector3(3, 5, 8), lights)
	away := Shade(Color{1, 1, 1}, geometry.NewVector3(-3, -5, -8), lights)
	assert.Greater(t, toward.R, away.R)
}
