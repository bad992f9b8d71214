package imgcut

import (
	"image"
	"math"

	"github.com/sirupsen/logrus"
	"golang.org/x/image/draw"

	"paperscan/internal/canvas"
	"paperscan/pkg/geometry"
)

var log = logrus.WithField("component", "imgcut")

// State is the interaction state of a Handler.
type State int

const (
	Idle     State = iota // no grip selected
	Dragging              // one grip follows the pointer
)

func (s State) String() string {
	if s == Dragging {
		return "dragging"
	}
	return "idle"
}

// Handler shows an image on a canvas with two grips the user drags to
// select a crop rectangle. Clicking anywhere else cycles the zoom level.
type Handler struct {
	img     image.Image
	imgSize geometry.Size
	canvas  *canvas.Canvas

	zooms    []ZoomLevel
	grips    [2]*Grip
	selected *Grip
	visible  bool
	hovering bool

	imgDrawer  *canvas.ImageDrawer
	gripDrawer *GripDrawer
	listeners  []func()
}

// New replaces the content of c with img and the grip overlay. The grips
// start on the image corners and the image is first shown fitted to the
// canvas viewport. The handler ignores pointer events until SetVisible.
func New(img image.Image, c *canvas.Canvas) *Handler {
	b := img.Bounds()
	size := geometry.NewSize(float64(b.Dx()), float64(b.Dy()))
	h := &Handler{
		img:     img,
		imgSize: size,
		canvas:  c,
		zooms:   zoomLevels(size, c.VisibleSize()),
		grips: [2]*Grip{
			{},
			{Position: geometry.NewPoint2D(size.Width, size.Height)},
		},
	}

	h.imgDrawer = canvas.NewImageDrawer(geometry.Point2D{}, img)
	h.imgDrawer.Resize(h.zooms[0].Size)
	h.gripDrawer = &GripDrawer{handler: h}

	c.RemoveAllDrawers()
	c.AddDrawer(h.imgDrawer)
	c.AddDrawer(h.gripDrawer)
	c.SetSize(h.zooms[0].Size)
	c.AddPointerListener(h)

	log.WithFields(logrus.Fields{
		"width":  b.Dx(),
		"height": b.Dy(),
		"zoom":   h.zooms[0].Factor,
	}).Debug("crop handler ready")
	return h
}

// Close stops listening to the canvas.
func (h *Handler) Close() {
	h.canvas.RemovePointerListener(h)
}

// Image returns the image being cropped.
func (h *Handler) Image() image.Image { return h.img }

// State returns Dragging while a grip is selected.
func (h *Handler) State() State {
	if h.selected != nil {
		return Dragging
	}
	return Idle
}

// Zoom returns the current display zoom level.
func (h *Handler) Zoom() ZoomLevel { return h.zooms[0] }

// ZoomLevels returns the zoom cycle, current level first.
func (h *Handler) ZoomLevels() []ZoomLevel {
	return append([]ZoomLevel(nil), h.zooms...)
}

// Grips returns both grip positions in image pixels.
func (h *Handler) Grips() [2]geometry.Point2D {
	return [2]geometry.Point2D{h.grips[0].Position, h.grips[1].Position}
}

// SetGrip moves grip i (0 or 1) to p, clamped to the image, and notifies
// listeners.
func (h *Handler) SetGrip(i int, p geometry.Point2D) {
	h.grips[i].Move(p, h.imgSize)
	h.redraw()
	h.notify()
}

// SetVisible enables or disables pointer handling.
func (h *Handler) SetVisible(visible bool) {
	h.visible = visible
	if !visible {
		h.selected = nil
		h.hovering = false
	}
}

// Visible reports whether pointer events are handled.
func (h *Handler) Visible() bool { return h.visible }

// Hovering reports whether the pointer is over a grip or dragging one.
func (h *Handler) Hovering() bool { return h.hovering }

// OnGripMoved registers fn to be called after every crop or zoom change.
func (h *Handler) OnGripMoved(fn func()) {
	h.listeners = append(h.listeners, fn)
}

// GetCoords returns the crop rectangle from the smaller grip coordinates to
// the larger ones plus one, whichever grip is where.
func (h *Handler) GetCoords() image.Rectangle {
	a := h.grips[0].Position.ImagePoint()
	b := h.grips[1].Position.ImagePoint()
	return image.Rectangle{
		Min: image.Pt(min(a.X, b.X), min(a.Y, b.Y)),
		Max: image.Pt(max(a.X, b.X)+1, max(a.Y, b.Y)+1),
	}
}

// Crop returns the selected part of the image.
func (h *Handler) Crop() image.Image {
	r := h.GetCoords().Add(h.img.Bounds().Min).Intersect(h.img.Bounds())
	if sub, ok := h.img.(interface {
		SubImage(image.Rectangle) image.Image
	}); ok {
		return sub.SubImage(r)
	}
	out := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(out, out.Bounds(), h.img, r.Min, draw.Src)
	return out
}

// PointerPressed selects the grip under p, if any.
func (h *Handler) PointerPressed(p geometry.Point2D) {
	if !h.visible {
		return
	}
	h.selected = h.gripAt(p)
	h.hovering = h.selected != nil
}

// PointerMoved drags the selected grip, or tracks hovering.
func (h *Handler) PointerMoved(p geometry.Point2D) {
	if !h.visible {
		return
	}
	if h.selected == nil {
		h.hovering = h.gripAt(p) != nil
		return
	}
	h.hovering = true
	h.moveSelected(p)
	h.redraw()
	h.notify()
}

// PointerReleased drops the selected grip at p. A release without a grip
// selected cycles the zoom level instead.
func (h *Handler) PointerReleased(p geometry.Point2D) {
	if !h.visible {
		return
	}
	if h.selected != nil {
		h.moveSelected(p)
		h.selected = nil
		h.redraw()
	} else {
		h.cycleZoom()
	}
	h.notify()
}

func (h *Handler) gripAt(p geometry.Point2D) *Grip {
	for _, g := range h.grips {
		if g.IsOnGrip(p, h.zooms[0].Factor) {
			return g
		}
	}
	return nil
}

func (h *Handler) moveSelected(p geometry.Point2D) {
	h.selected.Move(p.Scale(1/h.zooms[0].Factor), h.imgSize)
}

func (h *Handler) cycleZoom() {
	h.zooms = append(h.zooms[1:], h.zooms[0])
	zoom := h.zooms[0]
	h.imgDrawer.Resize(zoom.Size)
	h.canvas.SetSize(zoom.Size)
	log.WithField("zoom", math.Round(zoom.Factor*1000)/1000).Debug("zoom changed")
}

func (h *Handler) redraw() {
	if s := h.canvas.Surface(); s != nil {
		s.Refresh()
	}
}

func (h *Handler) notify() {
	for _, fn := range h.listeners {
		fn()
	}
}
