package imgcut

import (
	"fmt"

	"golang.org/x/image/draw"

	"paperscan/internal/canvas"
	"paperscan/pkg/colorutil"
	"paperscan/pkg/geometry"
)

// GripDrawer paints the crop rectangle and both grip hotzones over the
// image. Everything it draws is derived from the handler state.
type GripDrawer struct {
	handler *Handler
	visible bool
}

func (d *GripDrawer) Layer() int                 { return canvas.LayerBox }
func (d *GripDrawer) Position() geometry.Point2D { return geometry.Point2D{} }
func (d *GripDrawer) Size() geometry.Size        { return d.handler.Zoom().Size }
func (d *GripDrawer) Visible() bool              { return d.visible }

// Show attaches the overlay.
func (d *GripDrawer) Show(s canvas.Surface) {
	d.visible = true
	if s != nil {
		s.Attach(d)
		s.Refresh()
	}
}

// Hide detaches the overlay.
func (d *GripDrawer) Hide(s canvas.Surface) {
	d.visible = false
	if s != nil {
		s.Detach(d)
		s.Refresh()
	}
}

// UpdActors runs the default visibility pass.
func (d *GripDrawer) UpdActors(s canvas.Surface, offset geometry.Point2D, area geometry.Size) {
	canvas.UpdateVisibility(d, s, offset, area)
}

// Draw paints the rectangle outline, both hotzones and the crop size.
func (d *GripDrawer) Draw(dst draw.Image, offset geometry.Point2D) {
	zoom := d.handler.Zoom().Factor
	coords := d.handler.GetCoords()

	rect := geometry.NewRect(
		float64(coords.Min.X)*zoom-offset.X,
		float64(coords.Min.Y)*zoom-offset.Y,
		float64(coords.Dx())*zoom,
		float64(coords.Dy())*zoom,
	)
	canvas.StrokeRect(dst, rect, colorutil.Blue, 2)

	for _, p := range d.handler.Grips() {
		c := p.Scale(zoom).Sub(offset)
		hot := geometry.NewRect(c.X-GripSize, c.Y-GripSize, 2*GripSize, 2*GripSize)
		canvas.FillRect(dst, hot, colorutil.WithAlpha(colorutil.Blue, 64))
		canvas.StrokeRect(dst, hot, colorutil.Blue, 1)
	}

	label := fmt.Sprintf("%dx%d", coords.Dx(), coords.Dy())
	canvas.DrawLabel(dst, label, int(rect.X)+4, int(rect.Y)+4, colorutil.Blue, 2)
}
