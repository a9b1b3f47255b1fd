// Package gui is the fyne desktop front end: a software-rendered viewport and
// the design workbench around it.
package gui

import (
	"image"
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
	"github.com/makistry/meshview/pkg/viewer"
)

// Mouse sensitivities
const (
	rotateSpeed = 0.01 // radians per pixel
	zoomSpeed   = 0.01 // relative distance per scroll unit
)

// Viewport shows one viewer session rendered by a RasterDevice. Dragging
// orbits, scrolling zooms and a double tap resets the view.
type Viewport struct {
	widget.BaseWidget

	session *viewer.Session
	device  *viewer.RasterDevice

	mu     sync.Mutex
	frame  image.Image
	status string
}

// NewViewport creates a viewport with its own session on host. device must
// be the RasterDevice the host draws with.
func NewViewport(host *viewer.Host, device *viewer.RasterDevice, size fyne.Size) (*Viewport, error) {
	session, err := host.Create(&viewer.Size{Width: int(size.Width), Height: int(size.Height), PixelRatio: 1})
	if err != nil {
		return nil, err
	}
	v := &Viewport{
		session: session,
		device:  device,
		frame:   image.NewUniform(color.Black),
	}
	v.ExtendBaseWidget(v)
	return v, nil
}

// Session returns the viewport's session
func (v *Viewport) Session() *viewer.Session {
	return v.session
}

// CreateRenderer creates the renderer for the widget
func (v *Viewport) CreateRenderer() fyne.WidgetRenderer {
	img := canvas.NewImageFromImage(v.frame)
	img.FillMode = canvas.ImageFillStretch
	img.ScaleMode = canvas.ImageScaleFastest

	text := canvas.NewText("", color.White)
	text.Alignment = fyne.TextAlignCenter
	text.TextSize = 16

	return &viewportRenderer{viewport: v, image: img, status: text}
}

// Resize resizes the widget and the session's drawing buffer
func (v *Viewport) Resize(size fyne.Size) {
	v.BaseWidget.Resize(size)
	if size.Width <= 0 || size.Height <= 0 {
		return
	}
	_ = v.session.Resize(viewer.Size{Width: int(size.Width), Height: int(size.Height), PixelRatio: 1})
}

// Dragged orbits the camera
func (v *Viewport) Dragged(event *fyne.DragEvent) {
	v.session.Orbit(float64(event.Dragged.DY)*rotateSpeed, -float64(event.Dragged.DX)*rotateSpeed)
}

// DragEnd handles the end of a drag event
func (v *Viewport) DragEnd() {}

// Scrolled zooms the camera
func (v *Viewport) Scrolled(event *fyne.ScrollEvent) {
	v.session.Zoom(-float64(event.Scrolled.DY) * zoomSpeed)
}

// DoubleTapped returns to the framed view
func (v *Viewport) DoubleTapped(_ *fyne.PointEvent) {
	v.session.ResetView()
}

// Capture copies the session's last drawn frame into the widget. It is called
// by the render loop after each tick.
func (v *Viewport) Capture() {
	if v.session.Destroyed() {
		return
	}
	img, err := v.device.Snapshot(v.session.Surface())
	if err != nil {
		return
	}
	v.mu.Lock()
	v.frame = img
	v.status = v.session.Status().String()
	v.mu.Unlock()
}

// Destroy tears down the session
func (v *Viewport) Destroy() {
	v.session.Destroy()
}

type viewportRenderer struct {
	viewport *Viewport
	image    *canvas.Image
	status   *canvas.Text
}

func (r *viewportRenderer) Layout(size fyne.Size) {
	r.image.Resize(size)
	r.image.Move(fyne.NewPos(0, 0))
	textSize := r.status.MinSize()
	r.status.Resize(fyne.NewSize(size.Width, textSize.Height))
	r.status.Move(fyne.NewPos(0, (size.Height-textSize.Height)/2))
}

func (r *viewportRenderer) MinSize() fyne.Size {
	return fyne.NewSize(200, 150)
}

func (r *viewportRenderer) Refresh() {
	r.viewport.mu.Lock()
	r.image.Image = r.viewport.frame
	r.status.Text = r.viewport.status
	r.viewport.mu.Unlock()
	r.image.Refresh()
	r.status.Refresh()
}

func (r *viewportRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.image, r.status}
}

func (r *viewportRenderer) Destroy() {}
