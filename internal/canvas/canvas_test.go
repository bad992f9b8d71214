package canvas

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperscan/pkg/colorutil"
	"paperscan/pkg/geometry"
)

func TestFullSizeIsMaxOfDrawerExtents(t *testing.T) {
	c := New(NewStage(nil))
	require.Equal(t, geometry.Size{}, c.FullSize())

	drawers := []*probe{
		newProbe(LayerImage, 0, 0, 100, 50),
		newProbe(LayerBox, 20, 300, 10, 10),
		newProbe(LayerImage, 400, 10, 5, 5),
		newProbe(LayerProgress, 0, 0, 0, 0),
	}
	var want geometry.Size
	for _, d := range drawers {
		c.AddDrawer(d)
		want = want.Max(d.Size().Extent(d.Position()))
		assert.Equal(t, want, c.FullSize())
	}
	assert.Equal(t, geometry.NewSize(405, 310), c.FullSize())
}

func TestForcedSizeWinsUntilUnforced(t *testing.T) {
	c := New(NewStage(nil))
	c.AddDrawer(newProbe(LayerImage, 0, 0, 100, 100))

	c.SetSize(geometry.NewSize(30, 2000))
	assert.True(t, c.SizeForced())
	assert.Equal(t, geometry.NewSize(30, 2000), c.FullSize())

	c.AddDrawer(newProbe(LayerImage, 500, 500, 100, 100))
	assert.Equal(t, geometry.NewSize(30, 2000), c.FullSize())

	c.UnforceSize()
	assert.False(t, c.SizeForced())
	assert.Equal(t, geometry.NewSize(600, 600), c.FullSize())
}

func TestBackgroundFollowsCanvasSize(t *testing.T) {
	c := New(NewStage(nil))
	bg := NewBackgroundDrawer(colorutil.LightGray)
	c.AddDrawer(bg)
	c.SetVisibleSize(geometry.NewSize(300, 200))
	c.AddDrawer(newProbe(LayerImage, 0, 0, 100, 1000))

	assert.Equal(t, geometry.NewSize(100, 1000), c.FullSize())
	assert.Equal(t, geometry.NewSize(300, 1000), bg.Size())
	assert.True(t, bg.Visible())

	c.SetOffset(geometry.NewPoint2D(0, 900))
	assert.True(t, bg.Visible())
}

func TestPaintOrderByLayerThenInsertion(t *testing.T) {
	c := New(NewStage(nil))
	box := newProbe(LayerBox, 0, 0, 1, 1)
	img1 := newProbe(LayerImage, 0, 0, 1, 1)
	bg := NewBackgroundDrawer(colorutil.White)
	img2 := newProbe(LayerImage, 0, 0, 1, 1)
	fade := newProbe(LayerFading, 0, 0, 1, 1)

	for _, d := range []Drawer{box, img1, bg, img2, fade} {
		c.AddDrawer(d)
	}
	c.AddDrawer(img1)

	assert.Equal(t, []Drawer{bg, img1, img2, box, fade}, c.Drawers())
}

func TestStagePaintsBackToFront(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	green := color.RGBA{G: 255, A: 255}

	stage := NewStage(nil)
	c := New(stage)
	c.SetVisibleSize(geometry.NewSize(10, 10))

	front := newProbe(LayerBox, 0, 0, 5, 5)
	front.color = red
	back := newProbe(LayerImage, 0, 0, 10, 10)
	back.color = green
	c.AddDrawer(front)
	c.AddDrawer(back)
	require.Equal(t, []Drawer{back, front}, stage.Attached())

	dst := image.NewRGBA(image.Rect(0, 0, 10, 10))
	stage.Render(dst, c.Offset())
	assert.Equal(t, red, dst.RGBAAt(2, 2))
	assert.Equal(t, green, dst.RGBAAt(7, 7))

	dst = image.NewRGBA(image.Rect(0, 0, 10, 10))
	c.Render(dst)
	assert.Equal(t, red, dst.RGBAAt(2, 2))
}

func TestOffsetIsClamped(t *testing.T) {
	c := New(NewStage(nil))
	c.SetVisibleSize(geometry.NewSize(100, 100))
	c.AddDrawer(newProbe(LayerImage, 0, 0, 300, 500))

	c.SetOffset(geometry.NewPoint2D(-20, 9000))
	assert.Equal(t, geometry.NewPoint2D(0, 500), c.Offset())

	c.SetOffset(geometry.NewPoint2D(0, 0))
	c.Scroll(0, 3)
	assert.Equal(t, geometry.NewPoint2D(0, 30), c.Offset())
	c.ScrollPage(1, -1)
	assert.Equal(t, geometry.NewPoint2D(100, 0), c.Offset())
	c.ScrollPage(5, 0)
	assert.Equal(t, geometry.NewPoint2D(300, 0), c.Offset())
}

func TestShrinkingContentPullsOffsetBack(t *testing.T) {
	c := New(NewStage(nil))
	far := newProbe(LayerImage, 0, 1000, 10, 10)
	c.AddDrawer(newProbe(LayerImage, 0, 0, 10, 10))
	c.AddDrawer(far)
	c.SetOffset(geometry.NewPoint2D(0, 800))

	c.RemoveDrawer(far)
	assert.Equal(t, geometry.NewPoint2D(0, 10), c.Offset())
}

func TestRemoveDrawerHidesIt(t *testing.T) {
	stage := NewStage(nil)
	c := New(stage)
	c.SetVisibleSize(geometry.NewSize(100, 100))
	a := newProbe(LayerImage, 0, 0, 10, 10)
	b := newProbe(LayerBox, 0, 0, 10, 10)
	c.AddDrawer(a)
	c.AddDrawer(b)

	c.RemoveDrawer(a)
	assert.Equal(t, 1, a.hides)
	assert.False(t, a.Visible())
	assert.Equal(t, []Drawer{b}, c.Drawers())
	assert.Equal(t, []Drawer{b}, stage.Attached())

	c.RemoveAllDrawers()
	assert.Equal(t, 1, b.hides)
	assert.Empty(t, c.Drawers())
	assert.Empty(t, stage.Attached())
	assert.Equal(t, geometry.Size{}, c.FullSize())
}

type pointerLog struct {
	events []string
	points []geometry.Point2D
}

func (p *pointerLog) PointerPressed(pt geometry.Point2D) {
	p.events = append(p.events, "press")
	p.points = append(p.points, pt)
}

func (p *pointerLog) PointerMoved(pt geometry.Point2D) {
	p.events = append(p.events, "motion")
	p.points = append(p.points, pt)
}

func (p *pointerLog) PointerReleased(pt geometry.Point2D) {
	p.events = append(p.events, "release")
	p.points = append(p.points, pt)
}

func TestPointerEventsAreInContentSpace(t *testing.T) {
	c := New(NewStage(nil))
	c.SetVisibleSize(geometry.NewSize(100, 100))
	c.AddDrawer(newProbe(LayerImage, 0, 0, 1000, 1000))
	c.SetOffset(geometry.NewPoint2D(40, 300))

	l := &pointerLog{}
	c.AddPointerListener(l)
	c.Press(geometry.NewPoint2D(1, 2))
	c.Motion(geometry.NewPoint2D(3, 4))
	c.Release(geometry.NewPoint2D(5, 6))

	assert.Equal(t, []string{"press", "motion", "release"}, l.events)
	assert.Equal(t, []geometry.Point2D{{X: 41, Y: 302}, {X: 43, Y: 304}, {X: 45, Y: 306}}, l.points)

	c.RemovePointerListener(l)
	c.Press(geometry.NewPoint2D(0, 0))
	assert.Len(t, l.events, 3)
}
