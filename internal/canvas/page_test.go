package canvas

import (
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperscan/internal/imgdecode"
	"paperscan/internal/jobs"
	"paperscan/pkg/geometry"
)

var pageSize = geometry.NewSize(400, 400)

func TestScrollingLoadsAndDiscardsPages(t *testing.T) {
	sched, l := newTestScheduler(t, "main")
	sched.Start()
	loader := NewPageLoader(imgdecode.StdDecoder{})

	stage := NewStage(nil)
	c := New(stage)
	c.SetVisibleSize(geometry.NewSize(800, 600))

	first := NewPageDrawer(geometry.NewPoint2D(0, 0), pngSource(t, "p1", 4, 4, color.White), pageSize, loader, sched)
	second := NewPageDrawer(geometry.NewPoint2D(0, 2000), pngSource(t, "p2", 4, 4, color.Black), pageSize, loader, sched)
	c.AddDrawer(first)
	c.AddDrawer(second)

	assert.True(t, first.Visible())
	assert.False(t, second.Visible())
	assert.Equal(t, PagePreloading, first.State())
	assert.Equal(t, PageUnloaded, second.State())

	drainUntil(t, l, func() bool { return first.State() == PageLoaded })
	require.NotNil(t, first.Image())

	c.SetOffset(geometry.NewPoint2D(0, 1600))
	assert.Equal(t, geometry.NewPoint2D(0, 1600), c.Offset())

	assert.False(t, first.Visible())
	assert.Equal(t, PageUnloaded, first.State())
	assert.Nil(t, first.Image())

	assert.True(t, second.Visible())
	assert.Equal(t, PagePreloading, second.State())
	assert.Equal(t, []Drawer{second}, stage.Attached())

	drainUntil(t, l, func() bool { return second.State() == PageLoaded })
	assert.Equal(t, 1, first.Preloads())
	assert.Equal(t, 1, second.Preloads())
}

func TestPreloadOncePerMarginInterval(t *testing.T) {
	sched, _ := newTestScheduler(t, "main")
	loader := NewPageLoader(imgdecode.StdDecoder{})

	c := New(NewStage(nil))
	c.SetVisibleSize(geometry.NewSize(800, 600))
	c.SetSize(geometry.NewSize(800, 5000))
	page := NewPageDrawer(geometry.NewPoint2D(0, 2000), pngSource(t, "p", 2, 2, color.White), pageSize, loader, sched)
	c.AddDrawer(page)
	require.Equal(t, 0, page.Preloads())

	// Margin-expanded box starts at 1000; the viewport reaches it at 400.
	for _, y := range []float64{450, 500, 700, 900, 1000} {
		c.SetOffset(geometry.NewPoint2D(0, y))
		assert.Equal(t, 1, page.Preloads(), "offset %v", y)
		assert.Equal(t, PagePreloading, page.State())
		assert.False(t, page.Visible())
	}

	c.SetOffset(geometry.NewPoint2D(0, 0))
	assert.Equal(t, PageUnloaded, page.State())
	assert.Equal(t, 1, page.Preloads())

	c.SetOffset(geometry.NewPoint2D(0, 500))
	assert.Equal(t, 2, page.Preloads())

	c.SetOffset(geometry.NewPoint2D(0, 4000))
	c.SetOffset(geometry.NewPoint2D(0, 3000))
	assert.Equal(t, 3, page.Preloads())
}

// Hiding discards the image even inside the margin, so showing the page
// again starts a second load within the same margin interval.
func TestShowingDiscardedPageReloadsIt(t *testing.T) {
	sched, l := newTestScheduler(t, "main")
	sched.Start()
	loader := NewPageLoader(imgdecode.StdDecoder{})

	c := New(NewStage(nil))
	c.SetVisibleSize(geometry.NewSize(800, 600))
	c.SetSize(geometry.NewSize(800, 5000))
	page := NewPageDrawer(geometry.NewPoint2D(0, 2000), pngSource(t, "p", 2, 2, color.White), pageSize, loader, sched)
	c.AddDrawer(page)

	c.SetOffset(geometry.NewPoint2D(0, 1600))
	require.True(t, page.Visible())
	drainUntil(t, l, func() bool { return page.State() == PageLoaded })
	assert.Equal(t, 1, page.Preloads())

	c.SetOffset(geometry.NewPoint2D(0, 1000))
	assert.False(t, page.Visible())
	assert.Equal(t, PageUnloaded, page.State())
	assert.Nil(t, page.Image())
	assert.Equal(t, 1, page.Preloads())

	c.SetOffset(geometry.NewPoint2D(0, 1600))
	assert.True(t, page.Visible())
	assert.Equal(t, 2, page.Preloads())
	drainUntil(t, l, func() bool { return page.State() == PageLoaded })
}

func TestHideCancelsPendingLoad(t *testing.T) {
	sched, l := newTestScheduler(t, "main")
	loader := NewPageLoader(imgdecode.StdDecoder{})

	c := New(NewStage(nil))
	c.SetVisibleSize(geometry.NewSize(800, 600))
	page := NewPageDrawer(geometry.NewPoint2D(0, 0), pngSource(t, "p", 2, 2, color.White), pageSize, loader, sched)
	c.AddDrawer(page)
	job := page.job
	require.NotNil(t, job)
	require.Len(t, sched.Pending(), 1)

	c.RemoveDrawer(page)
	assert.Equal(t, jobs.StateCancelled, job.State())
	assert.Empty(t, sched.Pending())
	l.Drain()
	assert.Equal(t, PageUnloaded, page.State())
}

func TestStaleLoadResultIsDiscarded(t *testing.T) {
	sched, l := newTestScheduler(t, "main")
	sched.Start()
	gate := make(chan struct{})
	loader := NewPageLoader(gateDecoder{gate: gate})

	c := New(NewStage(nil))
	c.SetVisibleSize(geometry.NewSize(800, 600))
	c.SetSize(geometry.NewSize(800, 10000))
	page := NewPageDrawer(geometry.NewPoint2D(0, 0), pngSource(t, "p", 2, 2, color.White), pageSize, loader, sched)
	c.AddDrawer(page)
	job := page.job
	require.NotNil(t, job)
	require.Eventually(t, func() bool { return sched.Running() == job }, time.Second, time.Millisecond)

	// The load cannot be interrupted; its result must be ignored.
	c.SetOffset(geometry.NewPoint2D(0, 5000))
	require.Equal(t, PageUnloaded, page.State())
	close(gate)

	drainUntil(t, l, func() bool { return job.State() == jobs.StateDone && sched.Running() == nil && l.Len() == 0 })
	assert.Equal(t, PageUnloaded, page.State())
	assert.Nil(t, page.Image())

	c.SetOffset(geometry.NewPoint2D(0, 0))
	drainUntil(t, l, func() bool { return page.State() == PageLoaded })
	assert.Equal(t, 2, page.Preloads())
}

func TestFailedLoadKeepsPageUnloaded(t *testing.T) {
	sched, l := newTestScheduler(t, "main")
	sched.Start()
	boom := errors.New("disk on fire")

	c := New(NewStage(nil))
	c.SetVisibleSize(geometry.NewSize(800, 600))
	page := NewPageDrawer(geometry.Point2D{}, imgdecode.Bytes{Label: "p"}, pageSize, NewPageLoader(failingDecoder{err: boom}), sched)
	c.AddDrawer(page)

	drainUntil(t, l, func() bool { return page.Err() != nil })
	assert.ErrorIs(t, page.Err(), boom)
	assert.Equal(t, PageUnloaded, page.State())
	assert.True(t, page.Visible())
}

func TestUnsupportedLayoutFailsLoad(t *testing.T) {
	sched, l := newTestScheduler(t, "main")
	sched.Start()

	c := New(NewStage(nil))
	c.SetVisibleSize(geometry.NewSize(800, 600))
	page := NewPageDrawer(geometry.Point2D{}, imgdecode.Bytes{Label: "gray"}, pageSize, NewPageLoader(grayDecoder{}), sched)
	c.AddDrawer(page)

	drainUntil(t, l, func() bool { return page.Err() != nil })
	assert.ErrorIs(t, page.Err(), imgdecode.ErrUnsupportedLayout)
	assert.Nil(t, page.Image())
}

func TestLoadedPageRefreshesAndDraws(t *testing.T) {
	sched, l := newTestScheduler(t, "main")
	sched.Start()
	surface := newRefreshCounter()

	c := New(surface)
	c.SetVisibleSize(geometry.NewSize(100, 100))
	src := pngSource(t, "p", 2, 2, color.RGBA{R: 255, A: 255})
	page := NewPageDrawer(geometry.NewPoint2D(10, 10), src, geometry.NewSize(2, 2), NewPageLoader(imgdecode.StdDecoder{}), sched)
	c.AddDrawer(page)
	page.Resize(geometry.NewSize(20, 20))

	before := surface.n
	drainUntil(t, l, func() bool { return page.State() == PageLoaded })
	assert.Greater(t, surface.n, before)

	dst := image.NewRGBA(image.Rect(0, 0, 100, 100))
	surface.Render(dst, c.Offset())
	assert.Equal(t, color.RGBA{R: 255, A: 255}, dst.RGBAAt(20, 20))
	assert.Equal(t, color.RGBA{}, dst.RGBAAt(50, 50))
}

func TestOpenPageDrawerReadsHeader(t *testing.T) {
	sched, _ := newTestScheduler(t, "main")
	page, err := OpenPageDrawer(geometry.Point2D{}, pngSource(t, "p", 30, 60, color.White), NewPageLoader(imgdecode.StdDecoder{}), sched)
	require.NoError(t, err)
	assert.Equal(t, geometry.NewSize(30, 60), page.Size())

	page.SetSizeRatio(0.5)
	assert.Equal(t, geometry.NewSize(15, 30), page.Size())
	assert.Equal(t, geometry.NewSize(30, 60), page.NaturalSize())
}
