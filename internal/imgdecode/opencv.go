package imgdecode

import (
	"context"
	"fmt"
	"io"

	"gocv.io/x/gocv"
)

// CVDecoder decodes through OpenCV's imdecode. It handles every format the
// linked OpenCV build supports (including JPEG 2000 and PNM scanner output).
type CVDecoder struct{}

// Decode decodes src. Three-channel images come back as RGB, four-channel
// images as RGBA and grayscale images are expanded to RGB; anything else is
// ErrUnsupportedLayout.
func (CVDecoder) Decode(ctx context.Context, src Source) (*Pixels, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rc, err := src.Open()
	if err != nil {
		return nil, err
	}
	buf, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", src.Name(), err)
	}

	mat, err := gocv.IMDecode(buf, gocv.IMReadUnchanged)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", src.Name(), err)
	}
	defer mat.Close()
	if mat.Empty() {
		return nil, fmt.Errorf("failed to decode image %s: empty result", src.Name())
	}

	var code gocv.ColorConversionCode
	layout := LayoutRGB
	switch mat.Channels() {
	case 1:
		code = gocv.ColorGrayToBGR
	case 3:
		code = gocv.ColorBGRToRGB
	case 4:
		code = gocv.ColorBGRAToRGBA
		layout = LayoutRGBA
	default:
		return nil, fmt.Errorf("image %s: %w: %d channels", src.Name(), ErrUnsupportedLayout, mat.Channels())
	}

	converted := gocv.NewMat()
	defer converted.Close()
	gocv.CvtColor(mat, &converted, code)

	return &Pixels{
		Data:   converted.ToBytes(),
		Width:  converted.Cols(),
		Height: converted.Rows(),
		Layout: layout,
	}, nil
}
