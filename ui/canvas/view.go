// Package canvas provides the fyne widget hosting a drawing canvas.
package canvas

import (
	"image"
	"image/color"
	"sync"
	"sync/atomic"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	core "paperscan/internal/canvas"
	"paperscan/internal/loop"
	"paperscan/pkg/geometry"
)

var log = logrus.WithField("component", "view")

// Hoverer reports whether the pointer is over something grabbable.
type Hoverer interface {
	Hovering() bool
}

// View displays a core.Canvas. Canvas state is only touched from tasks
// posted to the interactive loop; the widget keeps the last composed frame
// under a mutex for fyne's render goroutine.
type View struct {
	widget.BaseWidget

	loop   *loop.Loop
	stage  *core.Stage
	canvas *core.Canvas
	raster *fynecanvas.Raster

	mu         sync.Mutex
	frame      *image.RGBA
	background color.Color

	composing atomic.Bool
	hovering  atomic.Bool
	hoverer   Hoverer // loop thread only

	// pointer state, fyne goroutine only
	pressed bool
	last    fyne.Position
}

var (
	_ fyne.Widget        = (*View)(nil)
	_ fyne.Scrollable    = (*View)(nil)
	_ fyne.Draggable     = (*View)(nil)
	_ desktop.Mouseable  = (*View)(nil)
	_ desktop.Hoverable  = (*View)(nil)
	_ desktop.Cursorable = (*View)(nil)
)

// NewView creates a view whose canvas runs its tasks on l.
func NewView(l *loop.Loop) *View {
	v := &View{loop: l, background: color.Black}
	v.stage = core.NewStage(v.requestFrame)
	v.canvas = core.New(v.stage)
	v.raster = fynecanvas.NewRaster(v.currentFrame)
	v.ExtendBaseWidget(v)
	return v
}

// Do runs fn with the canvas on the interactive loop and recomposes the
// frame afterwards.
func (v *View) Do(fn func(c *core.Canvas)) {
	v.loop.Post(func() {
		fn(v.canvas)
		v.afterEvent()
	})
}

// Canvas returns the hosted canvas. Only use it from loop tasks.
func (v *View) Canvas() *core.Canvas { return v.canvas }

// Stage returns the compositing surface of the canvas.
func (v *View) Stage() *core.Stage { return v.stage }

// SetBackground sets the color painted behind all drawers.
func (v *View) SetBackground(c color.Color) {
	v.mu.Lock()
	v.background = c
	v.mu.Unlock()
	v.loop.Post(v.requestFrame)
}

// SetHoverer makes the cursor follow h. Pass nil to reset. Loop thread only.
func (v *View) SetHoverer(h Hoverer) {
	v.hoverer = h
	v.updateHover()
}

// Frame returns the last composed frame, or nil.
func (v *View) Frame() *image.RGBA {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.frame
}

// Compose renders the visible drawers into a new frame. Loop thread only.
func (v *View) Compose() {
	v.composing.Store(false)
	size := v.canvas.VisibleSize()
	w, h := int(size.Width), int(size.Height)
	if w <= 0 || h <= 0 {
		return
	}
	v.mu.Lock()
	bg := v.background
	v.mu.Unlock()

	frame := image.NewRGBA(image.Rect(0, 0, w, h))
	core.FillRect(frame, geometry.NewRect(0, 0, size.Width, size.Height), bg)
	v.stage.Render(frame, v.canvas.Offset())

	v.mu.Lock()
	v.frame = frame
	v.mu.Unlock()
	v.raster.Refresh()
}

// requestFrame schedules one Compose however many drawers ask for it
// before the loop gets to it.
func (v *View) requestFrame() {
	if v.composing.CompareAndSwap(false, true) {
		v.loop.Post(v.Compose)
	}
}

func (v *View) afterEvent() {
	v.updateHover()
	v.requestFrame()
}

func (v *View) updateHover() {
	v.hovering.Store(v.hoverer != nil && v.hoverer.Hovering())
}

func (v *View) currentFrame(w, h int) image.Image {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.frame == nil {
		return image.NewUniform(v.background)
	}
	return v.frame
}

func point(p fyne.Position) geometry.Point2D {
	return geometry.NewPoint2D(float64(p.X), float64(p.Y))
}

// Resize implements fyne.Widget.
func (v *View) Resize(size fyne.Size) {
	v.BaseWidget.Resize(size)
	visible := geometry.NewSize(float64(size.Width), float64(size.Height))
	v.Do(func(c *core.Canvas) { c.SetVisibleSize(visible) })
}

// Scrolled implements fyne.Scrollable. One wheel notch is one scroll step.
func (v *View) Scrolled(ev *fyne.ScrollEvent) {
	dx, dy := steps(ev.Scrolled.DX), steps(ev.Scrolled.DY)
	if dx == 0 && dy == 0 {
		return
	}
	v.Do(func(c *core.Canvas) { c.Scroll(dx, dy) })
}

// fyne reports wheel-up as a positive delta; content moves the other way.
func steps(delta float32) int {
	switch {
	case delta > 0:
		return -1
	case delta < 0:
		return 1
	default:
		return 0
	}
}

// TypedKey scrolls with the arrow and page keys. Hosts forward window key
// events here.
func (v *View) TypedKey(ev *fyne.KeyEvent) {
	switch ev.Name {
	case fyne.KeyUp:
		v.Do(func(c *core.Canvas) { c.Scroll(0, -1) })
	case fyne.KeyDown:
		v.Do(func(c *core.Canvas) { c.Scroll(0, 1) })
	case fyne.KeyLeft:
		v.Do(func(c *core.Canvas) { c.Scroll(-1, 0) })
	case fyne.KeyRight:
		v.Do(func(c *core.Canvas) { c.Scroll(1, 0) })
	case fyne.KeyPageUp:
		v.Do(func(c *core.Canvas) { c.ScrollPage(0, -1) })
	case fyne.KeyPageDown:
		v.Do(func(c *core.Canvas) { c.ScrollPage(0, 1) })
	}
}

// MouseDown implements desktop.Mouseable.
func (v *View) MouseDown(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	v.pressed = true
	v.last = ev.Position
	p := point(ev.Position)
	v.Do(func(c *core.Canvas) { c.Press(p) })
}

// MouseUp implements desktop.Mouseable.
func (v *View) MouseUp(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	v.release(ev.Position)
}

func (v *View) release(pos fyne.Position) {
	if !v.pressed {
		return
	}
	v.pressed = false
	p := point(pos)
	v.Do(func(c *core.Canvas) { c.Release(p) })
}

// MouseIn implements desktop.Hoverable.
func (v *View) MouseIn(ev *desktop.MouseEvent) { v.motion(ev.Position) }

// MouseMoved implements desktop.Hoverable.
func (v *View) MouseMoved(ev *desktop.MouseEvent) { v.motion(ev.Position) }

// MouseOut implements desktop.Hoverable.
func (v *View) MouseOut() {}

// Dragged implements fyne.Draggable.
func (v *View) Dragged(ev *fyne.DragEvent) { v.motion(ev.Position) }

// DragEnd implements fyne.Draggable. Some drivers end a drag without a
// MouseUp.
func (v *View) DragEnd() { v.release(v.last) }

func (v *View) motion(pos fyne.Position) {
	v.last = pos
	p := point(pos)
	v.Do(func(c *core.Canvas) { c.Motion(p) })
}

// Cursor implements desktop.Cursorable.
func (v *View) Cursor() desktop.Cursor {
	if v.hovering.Load() {
		return desktop.CrosshairCursor
	}
	return desktop.PointerCursor
}

// MinSize keeps the view usable in tight layouts.
func (v *View) MinSize() fyne.Size {
	return fyne.NewSize(100, 100)
}

// CreateRenderer implements fyne.Widget.
func (v *View) CreateRenderer() fyne.WidgetRenderer {
	log.Debug("renderer created")
	return &viewRenderer{view: v}
}

type viewRenderer struct {
	view *View
}

func (r *viewRenderer) Layout(size fyne.Size) {
	r.view.raster.Resize(size)
}

func (r *viewRenderer) MinSize() fyne.Size {
	return r.view.MinSize()
}

func (r *viewRenderer) Refresh() {
	r.view.raster.Refresh()
}

func (r *viewRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.view.raster}
}

func (r *viewRenderer) Destroy() {}
