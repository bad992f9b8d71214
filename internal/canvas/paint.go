package canvas

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"paperscan/pkg/geometry"
)

// glyphs contains 3x5 pixel patterns, one bit per column, top row first.
var glyphs = map[rune][5]uint8{
	'0': {0b111, 0b101, 0b101, 0b101, 0b111},
	'1': {0b010, 0b110, 0b010, 0b010, 0b111},
	'2': {0b111, 0b001, 0b111, 0b100, 0b111},
	'3': {0b111, 0b001, 0b111, 0b001, 0b111},
	'4': {0b101, 0b101, 0b111, 0b001, 0b001},
	'5': {0b111, 0b100, 0b111, 0b001, 0b111},
	'6': {0b111, 0b100, 0b111, 0b101, 0b111},
	'7': {0b111, 0b001, 0b001, 0b001, 0b001},
	'8': {0b111, 0b101, 0b111, 0b101, 0b111},
	'9': {0b111, 0b101, 0b111, 0b001, 0b111},
	'x': {0b000, 0b101, 0b010, 0b101, 0b000},
	',': {0b000, 0b000, 0b000, 0b010, 0b100},
	'(': {0b001, 0b010, 0b010, 0b010, 0b001},
	')': {0b100, 0b010, 0b010, 0b010, 0b100},
	'-': {0b000, 0b000, 0b111, 0b000, 0b000},
	' ': {},
}

// FillRect fills r, in dst coordinates, with c.
func FillRect(dst draw.Image, r geometry.Rect, c color.Color) {
	area := r.ImageRect().Intersect(dst.Bounds())
	if area.Empty() {
		return
	}
	draw.Draw(dst, area, image.NewUniform(c), image.Point{}, draw.Over)
}

// StrokeRect draws the outline of r, thickness pixels wide, inside r.
func StrokeRect(dst draw.Image, r geometry.Rect, c color.Color, thickness int) {
	ir := r.ImageRect()
	t := thickness
	edges := []image.Rectangle{
		image.Rect(ir.Min.X, ir.Min.Y, ir.Max.X, ir.Min.Y+t),
		image.Rect(ir.Min.X, ir.Max.Y-t, ir.Max.X, ir.Max.Y),
		image.Rect(ir.Min.X, ir.Min.Y, ir.Min.X+t, ir.Max.Y),
		image.Rect(ir.Max.X-t, ir.Min.Y, ir.Max.X, ir.Max.Y),
	}
	src := image.NewUniform(c)
	for _, e := range edges {
		if area := e.Intersect(dst.Bounds()); !area.Empty() {
			draw.Draw(dst, area, src, image.Point{}, draw.Over)
		}
	}
}

// DashedRect draws a one pixel dashed outline of r.
func DashedRect(dst draw.Image, r geometry.Rect, c color.Color) {
	ir := r.ImageRect()
	bounds := dst.Bounds()
	set := func(x, y int) {
		if (x+y)%4 < 2 && image.Pt(x, y).In(bounds) {
			dst.Set(x, y, c)
		}
	}
	for x := ir.Min.X; x < ir.Max.X; x++ {
		set(x, ir.Min.Y)
		set(x, ir.Max.Y-1)
	}
	for y := ir.Min.Y; y < ir.Max.Y; y++ {
		set(ir.Min.X, y)
		set(ir.Max.X-1, y)
	}
}

// DrawLabel draws label with its top-left corner at (x, y), each font pixel
// scale pixels wide. Characters without a glyph are left blank.
func DrawLabel(dst draw.Image, label string, x, y int, c color.Color, scale int) {
	if scale < 1 {
		scale = 1
	}
	bounds := dst.Bounds()
	for i, ch := range []rune(label) {
		pattern := glyphs[ch]
		charX := x + i*4*scale
		for row := 0; row < 5; row++ {
			for col := 0; col < 3; col++ {
				if pattern[row]&(1<<(2-col)) == 0 {
					continue
				}
				block := image.Rect(0, 0, scale, scale).Add(image.Pt(charX+col*scale, y+row*scale))
				if area := block.Intersect(bounds); !area.Empty() {
					draw.Draw(dst, area, image.NewUniform(c), image.Point{}, draw.Src)
				}
			}
		}
	}
}

// LabelSize returns the pixel size DrawLabel covers.
func LabelSize(label string, scale int) (width, height int) {
	if scale < 1 {
		scale = 1
	}
	n := len([]rune(label))
	if n == 0 {
		return 0, 0
	}
	return n*4*scale - scale, 5 * scale
}

// DrawImage paints img into r, in dst coordinates. img is expected to have
// the size of r already.
func DrawImage(dst draw.Image, img image.Image, r geometry.Rect) {
	target := r.ImageRect()
	area := target.Intersect(dst.Bounds())
	if area.Empty() {
		return
	}
	sp := img.Bounds().Min.Add(area.Min.Sub(target.Min))
	draw.Draw(dst, area, img, sp, draw.Over)
}

// ScaleImage returns img resampled to size with bilinear filtering. The
// original is returned when it already has that size.
func ScaleImage(img image.Image, size geometry.Size) image.Image {
	w, h := int(size.Width), int(size.Height)
	if w <= 0 || h <= 0 {
		return image.NewRGBA(image.Rectangle{})
	}
	if b := img.Bounds(); b.Dx() == w && b.Dy() == h {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}
