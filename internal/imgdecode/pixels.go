package imgdecode

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// ErrUnsupportedLayout is returned for pixel layouts other than RGB and RGBA.
var ErrUnsupportedLayout = errors.New("unsupported pixel layout")

// Layout describes how pixel bytes are packed.
type Layout int

const (
	LayoutUnknown Layout = iota
	LayoutRGB            // 3 bytes per pixel
	LayoutRGBA           // 4 bytes per pixel, straight alpha
)

func (l Layout) String() string {
	switch l {
	case LayoutRGB:
		return "RGB"
	case LayoutRGBA:
		return "RGBA"
	default:
		return fmt.Sprintf("Layout(%d)", int(l))
	}
}

// BytesPerPixel returns the pixel stride, or 0 for unsupported layouts.
func (l Layout) BytesPerPixel() int {
	switch l {
	case LayoutRGB:
		return 3
	case LayoutRGBA:
		return 4
	default:
		return 0
	}
}

// Pixels is a decoded, tightly packed pixel buffer.
type Pixels struct {
	Data   []byte
	Width  int
	Height int
	Layout Layout
}

// Image converts the buffer into an image.Image. Layouts other than RGB and
// RGBA are a hard error.
func (p *Pixels) Image() (image.Image, error) {
	bpp := p.Layout.BytesPerPixel()
	if bpp == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLayout, p.Layout)
	}
	if p.Width <= 0 || p.Height <= 0 {
		return nil, fmt.Errorf("invalid image dimensions %dx%d", p.Width, p.Height)
	}
	if need := p.Width * p.Height * bpp; len(p.Data) < need {
		return nil, fmt.Errorf("pixel buffer too short: have %d bytes, need %d", len(p.Data), need)
	}

	rect := image.Rect(0, 0, p.Width, p.Height)
	if p.Layout == LayoutRGBA {
		img := image.NewNRGBA(rect)
		copy(img.Pix, p.Data)
		return img, nil
	}

	img := image.NewRGBA(rect)
	for i, j := 0, 0; i+2 < len(p.Data) && j+3 < len(img.Pix); i, j = i+3, j+4 {
		img.Pix[j+0] = p.Data[i+0]
		img.Pix[j+1] = p.Data[i+1]
		img.Pix[j+2] = p.Data[i+2]
		img.Pix[j+3] = 255
	}
	return img, nil
}

// FromImage packs img into a pixel buffer: RGB for opaque images, RGBA
// otherwise.
func FromImage(img image.Image) *Pixels {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	layout := LayoutRGBA
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		layout = LayoutRGB
	}
	bpp := layout.BytesPerPixel()
	data := make([]byte, w*h*bpp)

	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			data[i+0] = c.R
			data[i+1] = c.G
			data[i+2] = c.B
			if bpp == 4 {
				data[i+3] = c.A
			}
			i += bpp
		}
	}
	return &Pixels{Data: data, Width: w, Height: h, Layout: layout}
}
