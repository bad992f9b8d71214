// Package colorutil provides shared color utilities for the drawing surface.
package colorutil

import (
	"image/color"
	"math"
)

// Common colors used by the drawers.
var (
	Black     = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White     = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	LightGray = color.RGBA{R: 211, G: 211, B: 211, A: 255}
	Blue      = color.RGBA{R: 0, G: 0, B: 255, A: 255}
	Green     = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	Yellow    = color.RGBA{R: 255, G: 255, B: 0, A: 255}
)

// FromFloat converts RGB components in [0, 1] to an opaque color.
func FromFloat(r, g, b float64) color.RGBA {
	return color.RGBA{R: unit(r), G: unit(g), B: unit(b), A: 255}
}

// WithAlpha returns c with its alpha replaced, premultiplying the components.
func WithAlpha(c color.RGBA, alpha uint8) color.RGBA {
	scale := float64(alpha) / 255
	return color.RGBA{
		R: uint8(float64(c.R) * scale),
		G: uint8(float64(c.G) * scale),
		B: uint8(float64(c.B) * scale),
		A: alpha,
	}
}

func unit(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}
