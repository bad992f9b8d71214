// Package canvas implements the virtualized drawing surface: a scrollable
// viewport over drawers stacked in layers, shown and hidden lazily as they
// enter and leave the visible area.
//
// Everything in this package runs on the interactive thread. Slow work
// (decoding page images) goes through a jobs.Scheduler and comes back as a
// single handoff posted to that thread.
package canvas

import (
	"golang.org/x/image/draw"

	"paperscan/pkg/geometry"
)

// Paint priorities. Higher layers are painted first, further back.
const (
	LayerBackground = 1000
	LayerImage      = 200
	LayerProgress   = 100
	LayerBox        = 50
	LayerFading     = 0
)

// PreloadMargin is added on every side of a page's box when deciding whether
// to start loading it.
const PreloadMargin = 1000.0

// Surface is where shown drawers get attached for rendering.
type Surface interface {
	Attach(d Drawer)
	Detach(d Drawer)
	Refresh()
}

// Drawer is a renderable node of the canvas. Layer never changes after
// construction. A drawer knows nothing of the viewport except what
// UpdActors tells it.
type Drawer interface {
	Layer() int
	Position() geometry.Point2D
	Size() geometry.Size
	Visible() bool

	// Show attaches the drawer's content to s and marks it visible.
	Show(s Surface)
	// Hide detaches the content and releases what can be rebuilt.
	Hide(s Surface)
	// UpdActors is called on every scroll, resize or content change.
	UpdActors(s Surface, offset geometry.Point2D, area geometry.Size)
	// Draw paints the drawer onto dst, whose origin is the viewport's
	// top-left corner at content position offset.
	Draw(dst draw.Image, offset geometry.Point2D)
}

// Resizer is implemented by drawers whose size can change after
// construction. Resize also rescales the rendered content.
type Resizer interface {
	Resize(size geometry.Size)
}

// ContentFollower is implemented by drawers that take the canvas size
// instead of contributing to it.
type ContentFollower interface {
	FitContent(size geometry.Size)
}

// Bounds returns the drawer's box in content coordinates.
func Bounds(d Drawer) geometry.Rect {
	return geometry.RectAt(d.Position(), d.Size())
}

// Viewport returns the visible window into the content.
func Viewport(offset geometry.Point2D, area geometry.Size) geometry.Rect {
	return geometry.RectAt(offset, area)
}

// OnScreen reports whether box shares a nonzero area with the viewport.
func OnScreen(box geometry.Rect, offset geometry.Point2D, area geometry.Size) bool {
	return box.Intersects(Viewport(offset, area))
}

// UpdateVisibility is the default visibility pass: it calls Show on the
// hidden-to-visible edge and Hide on the visible-to-hidden edge.
func UpdateVisibility(d Drawer, s Surface, offset geometry.Point2D, area geometry.Size) {
	on := OnScreen(Bounds(d), offset, area)
	switch {
	case on && !d.Visible():
		d.Show(s)
	case !on && d.Visible():
		d.Hide(s)
	}
}

// base carries the state every drawer has.
type base struct {
	layer   int
	pos     geometry.Point2D
	size    geometry.Size
	visible bool
}

func (b *base) Layer() int                 { return b.layer }
func (b *base) Position() geometry.Point2D { return b.pos }
func (b *base) Size() geometry.Size        { return b.size }
func (b *base) Visible() bool              { return b.visible }

// SetPosition moves the drawer. The canvas picks it up on its next update.
func (b *base) SetPosition(p geometry.Point2D) { b.pos = p }

func (b *base) attach(s Surface, d Drawer) {
	b.visible = true
	if s != nil {
		s.Attach(d)
		s.Refresh()
	}
}

func (b *base) detach(s Surface, d Drawer) {
	b.visible = false
	if s != nil {
		s.Detach(d)
		s.Refresh()
	}
}

// target returns the rectangle of dst covered by the drawer.
func (b *base) target(offset geometry.Point2D) geometry.Rect {
	return geometry.RectAt(b.pos.Sub(offset), b.size)
}
