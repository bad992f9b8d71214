package canvas

import (
	"github.com/sirupsen/logrus"
	"golang.org/x/image/draw"

	"paperscan/pkg/geometry"
)

var log = logrus.WithField("component", "canvas")

// Scroll increments, in content units.
const (
	ScrollStep = 10.0
	ScrollPage = 100.0
)

// PointerListener receives pointer events in content coordinates.
type PointerListener interface {
	PointerPressed(p geometry.Point2D)
	PointerMoved(p geometry.Point2D)
	PointerReleased(p geometry.Point2D)
}

// Canvas is a viewport over an ordered collection of drawers.
type Canvas struct {
	surface Surface

	drawers   []Drawer // paint order
	listeners []PointerListener

	offset  geometry.Point2D
	visible geometry.Size
	full    geometry.Size
	forced  bool
}

// New creates an empty canvas rendering onto surface.
func New(surface Surface) *Canvas {
	return &Canvas{surface: surface}
}

// Surface returns the surface drawers are shown on.
func (c *Canvas) Surface() Surface { return c.surface }

// AddDrawer inserts d after every drawer of the same or higher layer, grows
// the content size to contain it and runs a visibility pass. Adding a drawer
// twice does nothing.
func (c *Canvas) AddDrawer(d Drawer) {
	if indexOf(c.drawers, d) >= 0 {
		log.Debug("drawer already on canvas, ignored")
		return
	}
	c.drawers = insertByLayer(c.drawers, d)
	c.UpdActors()
}

// RemoveDrawer hides d and removes it from the canvas.
func (c *Canvas) RemoveDrawer(d Drawer) {
	i := indexOf(c.drawers, d)
	if i < 0 {
		return
	}
	d.Hide(c.surface)
	c.drawers = append(c.drawers[:i], c.drawers[i+1:]...)
	c.UpdActors()
}

// RemoveAllDrawers hides and drops every drawer. Used when switching
// documents.
func (c *Canvas) RemoveAllDrawers() {
	for _, d := range c.drawers {
		d.Hide(c.surface)
	}
	c.drawers = nil
	if !c.forced {
		c.full = geometry.Size{}
	}
	c.offset = geometry.Point2D{}
	c.surface.Refresh()
}

// Drawers returns the drawers in paint order.
func (c *Canvas) Drawers() []Drawer {
	return append([]Drawer(nil), c.drawers...)
}

// SetSize forces the content size, disabling automatic sizing.
func (c *Canvas) SetSize(size geometry.Size) {
	c.forced = true
	c.full = size
	c.UpdActors()
}

// UnforceSize hands sizing back to the drawers' bounding box.
func (c *Canvas) UnforceSize() {
	c.forced = false
	c.UpdActors()
}

// SizeForced reports whether SetSize is in effect.
func (c *Canvas) SizeForced() bool { return c.forced }

// FullSize returns the scrollable content size.
func (c *Canvas) FullSize() geometry.Size { return c.full }

// VisibleSize returns the viewport size.
func (c *Canvas) VisibleSize() geometry.Size { return c.visible }

// Offset returns the content position of the viewport's top-left corner.
func (c *Canvas) Offset() geometry.Point2D { return c.offset }

// SetVisibleSize changes the viewport size, as when the host is resized.
func (c *Canvas) SetVisibleSize(size geometry.Size) {
	c.visible = size
	c.UpdActors()
}

// SetOffset scrolls to p, clamping each axis to [0, full size].
func (c *Canvas) SetOffset(p geometry.Point2D) {
	c.offset = p
	c.UpdActors()
}

// ScrollBy moves the viewport by delta content units.
func (c *Canvas) ScrollBy(delta geometry.Point2D) {
	c.SetOffset(c.offset.Add(delta))
}

// Scroll moves the viewport by dx, dy steps.
func (c *Canvas) Scroll(dx, dy int) {
	c.ScrollBy(geometry.NewPoint2D(float64(dx)*ScrollStep, float64(dy)*ScrollStep))
}

// ScrollPage moves the viewport by dx, dy pages.
func (c *Canvas) ScrollPage(dx, dy int) {
	c.ScrollBy(geometry.NewPoint2D(float64(dx)*ScrollPage, float64(dy)*ScrollPage))
}

// UpdActors recomputes the content size, clamps the offset and tells every
// drawer where the viewport is.
func (c *Canvas) UpdActors() {
	c.recomputeSize()
	c.offset = geometry.Point2D{
		X: geometry.Clamp(c.offset.X, 0, c.full.Width),
		Y: geometry.Clamp(c.offset.Y, 0, c.full.Height),
	}

	for _, d := range c.drawers {
		if f, ok := d.(ContentFollower); ok {
			f.FitContent(c.full.Max(c.visible))
		}
		d.UpdActors(c.surface, c.offset, c.visible)
	}
}

func (c *Canvas) recomputeSize() {
	if c.forced {
		return
	}
	var full geometry.Size
	for _, d := range c.drawers {
		if _, ok := d.(ContentFollower); ok {
			continue
		}
		full = full.Max(d.Size().Extent(d.Position()))
	}
	c.full = full
}

// Render paints every visible drawer onto dst in paint order. dst covers
// the viewport.
func (c *Canvas) Render(dst draw.Image) {
	for _, d := range c.drawers {
		if d.Visible() {
			d.Draw(dst, c.offset)
		}
	}
}

// AddPointerListener registers l for pointer events.
func (c *Canvas) AddPointerListener(l PointerListener) {
	c.listeners = append(c.listeners, l)
}

// RemovePointerListener unregisters l.
func (c *Canvas) RemovePointerListener(l PointerListener) {
	for i, other := range c.listeners {
		if other == l {
			c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
			return
		}
	}
}

// ToContent translates a viewport point to content coordinates.
func (c *Canvas) ToContent(p geometry.Point2D) geometry.Point2D {
	return p.Add(c.offset)
}

// Press forwards a pointer press at viewport point p.
func (c *Canvas) Press(p geometry.Point2D) {
	p = c.ToContent(p)
	for _, l := range c.Listeners() {
		l.PointerPressed(p)
	}
}

// Motion forwards a pointer move at viewport point p.
func (c *Canvas) Motion(p geometry.Point2D) {
	p = c.ToContent(p)
	for _, l := range c.Listeners() {
		l.PointerMoved(p)
	}
}

// Release forwards a pointer release at viewport point p.
func (c *Canvas) Release(p geometry.Point2D) {
	p = c.ToContent(p)
	for _, l := range c.Listeners() {
		l.PointerReleased(p)
	}
}

// Listeners returns the registered pointer listeners.
func (c *Canvas) Listeners() []PointerListener {
	return append([]PointerListener(nil), c.listeners...)
}
