package canvas

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/image/draw"

	"paperscan/internal/imgdecode"
	"paperscan/internal/jobs"
	"paperscan/internal/loop"
	"paperscan/pkg/geometry"
)

// probe is a plain drawer counting its visibility edges.
type probe struct {
	base
	color        color.Color
	shows, hides int
}

func newProbe(layer int, x, y, w, h float64) *probe {
	return &probe{
		base:  base{layer: layer, pos: geometry.NewPoint2D(x, y), size: geometry.NewSize(w, h)},
		color: color.RGBA{A: 255},
	}
}

func (p *probe) Show(s Surface) {
	p.shows++
	p.attach(s, p)
}

func (p *probe) Hide(s Surface) {
	p.hides++
	p.detach(s, p)
}

func (p *probe) UpdActors(s Surface, offset geometry.Point2D, area geometry.Size) {
	UpdateVisibility(p, s, offset, area)
}

func (p *probe) Draw(dst draw.Image, offset geometry.Point2D) {
	FillRect(dst, p.target(offset), p.color)
}

// refreshCounter is a stage that counts refresh requests.
type refreshCounter struct {
	*Stage
	n int
}

func newRefreshCounter() *refreshCounter {
	rc := &refreshCounter{}
	rc.Stage = NewStage(func() { rc.n++ })
	return rc
}

func pngSource(t *testing.T, name string, w, h int, c color.Color) imgdecode.Bytes {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return imgdecode.Bytes{Label: name, Data: buf.Bytes()}
}

// gateDecoder blocks every decode until the gate is closed.
type gateDecoder struct {
	gate chan struct{}
}

func (d gateDecoder) Decode(ctx context.Context, src imgdecode.Source) (*imgdecode.Pixels, error) {
	<-d.gate
	return imgdecode.StdDecoder{}.Decode(ctx, src)
}

type failingDecoder struct{ err error }

func (d failingDecoder) Decode(context.Context, imgdecode.Source) (*imgdecode.Pixels, error) {
	return nil, d.err
}

type grayDecoder struct{}

func (grayDecoder) Decode(context.Context, imgdecode.Source) (*imgdecode.Pixels, error) {
	return &imgdecode.Pixels{Data: make([]byte, 4), Width: 2, Height: 2, Layout: imgdecode.LayoutUnknown}, nil
}

func newTestScheduler(t *testing.T, name string) (*jobs.Scheduler, *loop.Loop) {
	t.Helper()
	l := loop.New()
	s := jobs.NewScheduler(name, l)
	t.Cleanup(s.Stop)
	return s, l
}

func drainUntil(t *testing.T, l *loop.Loop, cond func() bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		l.Drain()
		return cond()
	}, 3*time.Second, 5*time.Millisecond)
}
