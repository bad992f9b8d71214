// Package imgcut lets the user pick a crop rectangle over an image by
// dragging two grips.
package imgcut

import (
	"math"

	"paperscan/pkg/geometry"
)

// GripSize is the half-width of a grip's hotzone in screen pixels. It does
// not change with the zoom factor.
const GripSize = 20.0

// Grip is one of the two corners of the crop rectangle, in image pixels.
type Grip struct {
	Position geometry.Point2D
}

// IsOnGrip reports whether screen point p falls in the grip's hotzone when
// the image is shown at ratio.
func (g *Grip) IsOnGrip(p geometry.Point2D, ratio float64) bool {
	cx := math.Trunc(ratio * g.Position.X)
	cy := math.Trunc(ratio * g.Position.Y)
	return cx-GripSize <= p.X && p.X <= cx+GripSize &&
		cy-GripSize <= p.Y && p.Y <= cy+GripSize
}

// Move sets the grip position, clamped to [0, size] on each axis.
func (g *Grip) Move(p geometry.Point2D, size geometry.Size) {
	g.Position = geometry.Point2D{
		X: geometry.Clamp(p.X, 0, size.Width),
		Y: geometry.Clamp(p.Y, 0, size.Height),
	}
}

// ZoomLevel is one entry of the zoom cycle.
type ZoomLevel struct {
	Factor float64
	Size   geometry.Size
}

// zoomLevels returns the fit-to-view level followed by the natural size.
func zoomLevels(img, visible geometry.Size) []ZoomLevel {
	factor := 1.0
	if !visible.Empty() && !img.Empty() {
		factor = math.Min(factor, math.Min(visible.Width/img.Width, visible.Height/img.Height))
	}
	return []ZoomLevel{
		{Factor: factor, Size: img.Scale(factor).Floor()},
		{Factor: 1, Size: img},
	}
}
