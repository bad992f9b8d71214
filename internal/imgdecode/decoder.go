package imgdecode

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Decoder turns a Source into raw pixels.
type Decoder interface {
	Decode(ctx context.Context, src Source) (*Pixels, error)
}

// StdDecoder decodes through the image package and the x/image codecs.
type StdDecoder struct{}

// Decode decodes src.
func (StdDecoder) Decode(ctx context.Context, src Source) (*Pixels, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rc, err := src.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	img, _, err := image.Decode(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", src.Name(), err)
	}
	return FromImage(img), nil
}

// ForName returns the decoder registered under name: "std" (default) or
// "opencv".
func ForName(name string) (Decoder, error) {
	switch name {
	case "", "std":
		return StdDecoder{}, nil
	case "opencv":
		return CVDecoder{}, nil
	default:
		return nil, fmt.Errorf("unknown decoder %q", name)
	}
}

// Load decodes src with dec and converts the result to an image.Image.
func Load(ctx context.Context, dec Decoder, src Source) (image.Image, error) {
	px, err := dec.Decode(ctx, src)
	if err != nil {
		return nil, err
	}
	img, err := px.Image()
	if err != nil {
		return nil, fmt.Errorf("image %s: %w", src.Name(), err)
	}
	return img, nil
}
