package canvas

import (
	"image/color"

	"golang.org/x/image/draw"

	"paperscan/pkg/geometry"
)

// BackgroundDrawer fills the whole content area with a color. It is always
// visible and takes the canvas size instead of contributing to it.
type BackgroundDrawer struct {
	base
	color color.Color
}

// NewBackgroundDrawer creates a background of color c.
func NewBackgroundDrawer(c color.Color) *BackgroundDrawer {
	return &BackgroundDrawer{
		base:  base{layer: LayerBackground},
		color: c,
	}
}

// FitContent resizes the background to the canvas content size.
func (d *BackgroundDrawer) FitContent(size geometry.Size) { d.size = size }

// Show attaches the background.
func (d *BackgroundDrawer) Show(s Surface) { d.attach(s, d) }

// Hide detaches the background.
func (d *BackgroundDrawer) Hide(s Surface) { d.detach(s, d) }

// UpdActors shows the background the first time it is called.
func (d *BackgroundDrawer) UpdActors(s Surface, _ geometry.Point2D, _ geometry.Size) {
	if !d.visible {
		d.Show(s)
	}
}

// Draw fills the part of the viewport the background covers.
func (d *BackgroundDrawer) Draw(dst draw.Image, offset geometry.Point2D) {
	FillRect(dst, d.target(offset), d.color)
}
