package imgcut

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperscan/internal/canvas"
	"paperscan/pkg/geometry"
)

func newHandler(t *testing.T, imgW, imgH int, view geometry.Size) (*Handler, *canvas.Canvas, *canvas.Stage) {
	t.Helper()
	stage := canvas.NewStage(nil)
	c := canvas.New(stage)
	c.SetVisibleSize(view)
	h := New(image.NewRGBA(image.Rect(0, 0, imgW, imgH)), c)
	h.SetVisible(true)
	return h, c, stage
}

func drag(c *canvas.Canvas, from, to geometry.Point2D) {
	c.Press(from)
	c.Motion(from.Add(to).Scale(0.5))
	c.Motion(to)
	c.Release(to)
}

func pt(x, y float64) geometry.Point2D { return geometry.NewPoint2D(x, y) }

func TestNewInstallsDrawersAndFitsImage(t *testing.T) {
	h, c, stage := newHandler(t, 400, 200, geometry.NewSize(200, 200))

	require.Len(t, h.ZoomLevels(), 2)
	assert.Equal(t, ZoomLevel{Factor: 0.5, Size: geometry.NewSize(200, 100)}, h.Zoom())
	assert.Equal(t, ZoomLevel{Factor: 1, Size: geometry.NewSize(400, 200)}, h.ZoomLevels()[1])

	assert.True(t, c.SizeForced())
	assert.Equal(t, geometry.NewSize(200, 100), c.FullSize())
	require.Len(t, c.Drawers(), 2)
	assert.Equal(t, canvas.LayerImage, c.Drawers()[0].Layer())
	assert.Equal(t, canvas.LayerBox, c.Drawers()[1].Layer())
	assert.Len(t, stage.Attached(), 2)

	assert.Equal(t, [2]geometry.Point2D{pt(0, 0), pt(400, 200)}, h.Grips())
	assert.Equal(t, Idle, h.State())
}

func TestSmallImageIsNeverEnlarged(t *testing.T) {
	h, _, _ := newHandler(t, 50, 40, geometry.NewSize(800, 600))
	assert.Equal(t, 1.0, h.Zoom().Factor)
	assert.Equal(t, geometry.NewSize(50, 40), h.Zoom().Size)
}

func TestCoordsAreNormalized(t *testing.T) {
	h, _, _ := newHandler(t, 100, 100, geometry.NewSize(100, 100))
	h.SetGrip(0, pt(10, 10))
	h.SetGrip(1, pt(5, 5))
	assert.Equal(t, image.Rect(5, 5, 11, 11), h.GetCoords())
	assert.Equal(t, image.Point{X: 5, Y: 5}, h.GetCoords().Min)
	assert.Equal(t, image.Point{X: 11, Y: 11}, h.GetCoords().Max)
}

func TestCoordsIgnoreWhichGripIsFirst(t *testing.T) {
	// Grip 0 dragged past grip 1.
	h1, c1, _ := newHandler(t, 200, 200, geometry.NewSize(200, 200))
	h1.SetGrip(0, pt(50, 50))
	h1.SetGrip(1, pt(100, 100))
	drag(c1, pt(50, 50), pt(150, 160))

	// Grip 1 dragged past grip 0 to the same spot.
	h2, c2, _ := newHandler(t, 200, 200, geometry.NewSize(200, 200))
	h2.SetGrip(0, pt(100, 100))
	h2.SetGrip(1, pt(50, 50))
	drag(c2, pt(50, 50), pt(150, 160))

	assert.NotEqual(t, h1.Grips(), h2.Grips())
	assert.Equal(t, image.Rect(100, 100, 151, 161), h1.GetCoords())
	assert.Equal(t, h1.GetCoords(), h2.GetCoords())
}

func TestDragAtReducedZoom(t *testing.T) {
	h, c, _ := newHandler(t, 400, 200, geometry.NewSize(200, 200))
	moved := 0
	h.OnGripMoved(func() { moved++ })

	// Grip 1 sits at (400, 200) in the image, (200, 100) on screen.
	c.Press(pt(195, 95))
	require.Equal(t, Dragging, h.State())
	assert.True(t, h.Hovering())

	c.Motion(pt(100, 50))
	assert.Equal(t, pt(200, 100), h.Grips()[1])
	assert.Equal(t, 1, moved)

	c.Release(pt(150, 60))
	assert.Equal(t, Idle, h.State())
	assert.Equal(t, pt(300, 120), h.Grips()[1])
	assert.Equal(t, 2, moved)
	assert.Equal(t, 0.5, h.Zoom().Factor)
}

func TestGripsAreClampedToImage(t *testing.T) {
	h, c, _ := newHandler(t, 400, 200, geometry.NewSize(200, 200))

	c.Press(pt(0, 0))
	c.Motion(pt(-50, 1000))
	assert.Equal(t, pt(0, 200), h.Grips()[0])
	c.Release(pt(5000, -1))
	assert.Equal(t, pt(400, 0), h.Grips()[0])
}

func TestClickOutsideGripsCyclesZoom(t *testing.T) {
	h, c, _ := newHandler(t, 400, 200, geometry.NewSize(200, 200))
	moved := 0
	h.OnGripMoved(func() { moved++ })
	grips := h.Grips()

	c.Press(pt(100, 50))
	assert.Equal(t, Idle, h.State())
	c.Release(pt(100, 50))

	assert.Equal(t, 1.0, h.Zoom().Factor)
	assert.Equal(t, geometry.NewSize(400, 200), c.FullSize())
	assert.Equal(t, geometry.NewSize(400, 200), c.Drawers()[0].Size())
	assert.Equal(t, geometry.NewSize(400, 200), c.Drawers()[1].Size())
	assert.Equal(t, grips, h.Grips())
	assert.Equal(t, 1, moved)

	c.Press(pt(100, 50))
	c.Release(pt(100, 50))
	assert.Equal(t, 0.5, h.Zoom().Factor)
	assert.Equal(t, geometry.NewSize(200, 100), c.FullSize())
	assert.Equal(t, 2, moved)
}

func TestHitTestUsesFixedHotzone(t *testing.T) {
	g := &Grip{Position: pt(100, 100)}
	assert.True(t, g.IsOnGrip(pt(70, 30), 0.5))
	assert.True(t, g.IsOnGrip(pt(30, 70), 0.5))
	assert.False(t, g.IsOnGrip(pt(71, 50), 0.5))
	assert.True(t, g.IsOnGrip(pt(120, 80), 1))
	assert.False(t, g.IsOnGrip(pt(121, 100), 1))
}

func TestHiddenHandlerIgnoresPointer(t *testing.T) {
	h, c, _ := newHandler(t, 400, 200, geometry.NewSize(200, 200))
	h.SetVisible(false)
	moved := 0
	h.OnGripMoved(func() { moved++ })

	drag(c, pt(0, 0), pt(50, 50))
	assert.Equal(t, pt(0, 0), h.Grips()[0])
	assert.Equal(t, 0.5, h.Zoom().Factor)
	assert.Equal(t, 0, moved)
	assert.False(t, h.Hovering())
}

func TestHoveringFollowsPointer(t *testing.T) {
	h, c, _ := newHandler(t, 400, 200, geometry.NewSize(200, 200))
	c.Motion(pt(10, 10))
	assert.True(t, h.Hovering())
	c.Motion(pt(100, 50))
	assert.False(t, h.Hovering())
}

func TestCloseStopsListening(t *testing.T) {
	h, c, _ := newHandler(t, 400, 200, geometry.NewSize(200, 200))
	h.Close()
	c.Press(pt(100, 50))
	c.Release(pt(100, 50))
	assert.Equal(t, 0.5, h.Zoom().Factor)
}

func TestCropReturnsSelection(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 20, 20))
	img.Set(6, 7, color.RGBA{R: 255, A: 255})
	c := canvas.New(canvas.NewStage(nil))
	c.SetVisibleSize(geometry.NewSize(20, 20))
	h := New(img, c)

	h.SetGrip(0, pt(10, 10))
	h.SetGrip(1, pt(5, 5))
	crop := h.Crop()
	require.Equal(t, image.Rect(5, 5, 11, 11), crop.Bounds())
	assert.Equal(t, color.RGBA{R: 255, A: 255}, crop.At(6, 7))

	h.SetGrip(1, pt(20, 20))
	assert.Equal(t, image.Rect(10, 10, 20, 20), h.Crop().Bounds())
}

func TestGripDrawerPaintsOutline(t *testing.T) {
	h, c, stage := newHandler(t, 100, 100, geometry.NewSize(100, 100))
	h.SetGrip(0, pt(30, 30))
	h.SetGrip(1, pt(69, 69))

	dst := image.NewRGBA(image.Rect(0, 0, 100, 100))
	stage.Render(dst, c.Offset())
	assert.Equal(t, uint8(255), dst.RGBAAt(50, 30).B)
	assert.Equal(t, uint8(255), dst.RGBAAt(69, 50).B)
}
