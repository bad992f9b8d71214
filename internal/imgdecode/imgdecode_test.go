package imgdecode

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, img image.Image) Bytes {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return Bytes{Label: "test.png", Data: buf.Bytes()}
}

func TestPixelsImageRGB(t *testing.T) {
	px := &Pixels{
		Data:   []byte{255, 0, 0, 0, 255, 0},
		Width:  2,
		Height: 1,
		Layout: LayoutRGB,
	}
	img, err := px.Image()
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 2, 1), img.Bounds())

	r, g, b, a := img.At(0, 0).RGBA()
	assert.Equal(t, []uint32{0xffff, 0, 0, 0xffff}, []uint32{r, g, b, a})
	r, g, b, a = img.At(1, 0).RGBA()
	assert.Equal(t, []uint32{0, 0xffff, 0, 0xffff}, []uint32{r, g, b, a})
}

func TestPixelsImageRGBAKeepsAlpha(t *testing.T) {
	px := &Pixels{Data: []byte{10, 20, 30, 40}, Width: 1, Height: 1, Layout: LayoutRGBA}
	img, err := px.Image()
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 10, G: 20, B: 30, A: 40}, img.At(0, 0))
}

func TestPixelsImageRejectsUnknownLayout(t *testing.T) {
	px := &Pixels{Data: []byte{1, 2}, Width: 1, Height: 1, Layout: Layout(7)}
	_, err := px.Image()
	require.ErrorIs(t, err, ErrUnsupportedLayout)
}

func TestPixelsImageRejectsShortBuffer(t *testing.T) {
	px := &Pixels{Data: []byte{1, 2, 3}, Width: 2, Height: 1, Layout: LayoutRGB}
	_, err := px.Image()
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrUnsupportedLayout)
}

func TestFromImagePicksLayout(t *testing.T) {
	opaque := image.NewRGBA(image.Rect(0, 0, 3, 2))
	for i := 3; i < len(opaque.Pix); i += 4 {
		opaque.Pix[i] = 255
	}
	px := FromImage(opaque)
	assert.Equal(t, LayoutRGB, px.Layout)
	assert.Len(t, px.Data, 3*2*3)

	translucent := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	px = FromImage(translucent)
	assert.Equal(t, LayoutRGBA, px.Layout)
	assert.Len(t, px.Data, 3*2*4)
}

func TestStdDecoderDecodesPNG(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	src.Set(1, 2, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
	for i := 3; i < len(src.Pix); i += 4 {
		src.Pix[i] = 255
	}

	img, err := Load(context.Background(), StdDecoder{}, encodePNG(t, src))
	require.NoError(t, err)
	require.Equal(t, 4, img.Bounds().Dx())
	require.Equal(t, 3, img.Bounds().Dy())

	r, g, b, _ := img.At(1, 2).RGBA()
	assert.Equal(t, []uint32{200, 100, 50}, []uint32{r >> 8, g >> 8, b >> 8})
}

func TestStdDecoderReportsGarbage(t *testing.T) {
	_, err := StdDecoder{}.Decode(context.Background(), Bytes{Label: "junk", Data: []byte("not an image")})
	require.ErrorContains(t, err, "junk")
}

func TestStdDecoderHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := StdDecoder{}.Decode(ctx, Bytes{Label: "x"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestDecodeConfigReadsHeader(t *testing.T) {
	w, h, err := DecodeConfig(encodePNG(t, image.NewGray(image.Rect(0, 0, 17, 9))))
	require.NoError(t, err)
	assert.Equal(t, 17, w)
	assert.Equal(t, 9, h)
}

type layoutDecoder struct{ layout Layout }

func (d layoutDecoder) Decode(context.Context, Source) (*Pixels, error) {
	return &Pixels{Data: make([]byte, 16), Width: 2, Height: 2, Layout: d.layout}, nil
}

func TestLoadFailsOnUnsupportedLayout(t *testing.T) {
	_, err := Load(context.Background(), layoutDecoder{layout: LayoutUnknown}, Bytes{Label: "gray"})
	require.ErrorIs(t, err, ErrUnsupportedLayout)
}

func TestForName(t *testing.T) {
	dec, err := ForName("")
	require.NoError(t, err)
	assert.IsType(t, StdDecoder{}, dec)

	dec, err = ForName("opencv")
	require.NoError(t, err)
	assert.IsType(t, CVDecoder{}, dec)

	_, err = ForName("magick")
	require.Error(t, err)
}

func TestIsSupportedFormat(t *testing.T) {
	assert.True(t, IsSupportedFormat("scan.TIF"))
	assert.True(t, IsSupportedFormat("/tmp/page.webp"))
	assert.False(t, IsSupportedFormat("notes.txt"))
}
