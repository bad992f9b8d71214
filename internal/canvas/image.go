package canvas

import (
	"image"

	"golang.org/x/image/draw"

	"paperscan/pkg/geometry"
)

// ImageDrawer presents an image already held in memory.
type ImageDrawer struct {
	base
	img    image.Image
	scaled image.Image
}

// NewImageDrawer places img at pos at its natural size.
func NewImageDrawer(pos geometry.Point2D, img image.Image) *ImageDrawer {
	b := img.Bounds()
	return &ImageDrawer{
		base: base{
			layer: LayerImage,
			pos:   pos,
			size:  geometry.NewSize(float64(b.Dx()), float64(b.Dy())),
		},
		img: img,
	}
}

// Image returns the unscaled image.
func (d *ImageDrawer) Image() image.Image { return d.img }

// Resize changes the presented size; the image is rescaled on next draw.
func (d *ImageDrawer) Resize(size geometry.Size) {
	if size == d.size {
		return
	}
	d.size = size
	d.scaled = nil
}

// Show attaches the image.
func (d *ImageDrawer) Show(s Surface) { d.attach(s, d) }

// Hide detaches the image and drops the scaled copy.
func (d *ImageDrawer) Hide(s Surface) {
	d.scaled = nil
	d.detach(s, d)
}

// UpdActors runs the default visibility pass.
func (d *ImageDrawer) UpdActors(s Surface, offset geometry.Point2D, area geometry.Size) {
	UpdateVisibility(d, s, offset, area)
}

// Draw paints the image at its current size.
func (d *ImageDrawer) Draw(dst draw.Image, offset geometry.Point2D) {
	if d.scaled == nil {
		d.scaled = ScaleImage(d.img, d.size)
	}
	DrawImage(dst, d.scaled, d.target(offset))
}
