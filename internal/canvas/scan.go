package canvas

import (
	"errors"
	"image"
	"math"
	"time"

	"golang.org/x/image/draw"

	"paperscan/internal/jobs"
	"paperscan/pkg/colorutil"
	"paperscan/pkg/geometry"
)

// Progress strip appearance.
const (
	ProgressStripHeight = 4.0
	ProgressFrameRate   = 20 // frames per second
	ProgressSweepFrames = 40 // frames for one left-to-right sweep
)

// ErrNoExpectedSize is returned by AddChunk before SetExpectedSize.
var ErrNoExpectedSize = errors.New("scan size not known yet")

// ScanDrawer presents a scan while it streams in. Chunks arrive top to
// bottom and are scaled by one factor so the whole scan fits the target
// size. A thin strip with a sweeping marker shows the scan is running; it
// only animates while the drawer is visible.
type ScanDrawer struct {
	base
	fitSize  geometry.Size
	expected geometry.Size
	factor   float64
	img      *image.RGBA
	srcRows  float64

	animSched   Scheduler
	animFactory *jobs.Factory
	anim        *jobs.Job
	frame       int
	done        bool
	surface     Surface
}

// NewScanDrawer creates a scan drawer at pos fitting its content into
// target. The marker animation runs on animSched.
func NewScanDrawer(pos geometry.Point2D, target geometry.Size, animSched Scheduler) *ScanDrawer {
	return &ScanDrawer{
		base:        base{layer: LayerImage, pos: pos},
		fitSize:     target,
		factor:      1,
		animSched:   animSched,
		animFactory: jobs.NewFactory("ScanProgress"),
	}
}

// Factor returns the scale applied to incoming chunks.
func (d *ScanDrawer) Factor() float64 { return d.factor }

// Image returns the scaled scan assembled so far.
func (d *ScanDrawer) Image() *image.RGBA { return d.img }

// Done reports whether the scan finished.
func (d *ScanDrawer) Done() bool { return d.done }

// Animating reports whether the marker animation job is scheduled.
func (d *ScanDrawer) Animating() bool { return d.anim != nil }

// Frame returns the current marker animation frame.
func (d *ScanDrawer) Frame() int { return d.frame }

// SetExpectedSize sets the full size of the scan in source pixels and
// computes the scale factor min(1, target/expected) for both axes.
func (d *ScanDrawer) SetExpectedSize(expected geometry.Size) {
	d.expected = expected
	d.factor = 1
	if expected.Width > 0 {
		d.factor = math.Min(d.factor, d.fitSize.Width/expected.Width)
	}
	if expected.Height > 0 {
		d.factor = math.Min(d.factor, d.fitSize.Height/expected.Height)
	}
	d.size = expected.Scale(d.factor).Floor()
	d.srcRows = 0

	w, h := int(d.size.Width), int(d.size.Height)
	d.img = image.NewRGBA(image.Rect(0, 0, max(w, 0), max(h, 0)))
	d.refresh()
}

// AddChunk scales chunk and paints it right below the previous one. Row
// edges are rounded from the running source row count, so consecutive
// chunks never leave a gap.
func (d *ScanDrawer) AddChunk(chunk image.Image) error {
	if d.img == nil {
		return ErrNoExpectedSize
	}
	b := chunk.Bounds()
	top := int(math.Round(d.srcRows * d.factor))
	d.srcRows += float64(b.Dy())
	bottom := min(int(math.Round(d.srcRows*d.factor)), d.img.Bounds().Dy())
	width := min(int(math.Round(float64(b.Dx())*d.factor)), d.img.Bounds().Dx())

	if bottom > top && width > 0 {
		dr := image.Rect(0, top, width, bottom)
		draw.ApproxBiLinear.Scale(d.img, dr, chunk, b, draw.Src, nil)
	}
	d.refresh()
	return nil
}

// ScannedHeight returns how many rows of the scaled image are painted.
func (d *ScanDrawer) ScannedHeight() int {
	if d.img == nil {
		return 0
	}
	return min(int(math.Round(d.srcRows*d.factor)), d.img.Bounds().Dy())
}

// Finish marks the scan complete and stops the marker for good.
func (d *ScanDrawer) Finish() {
	d.done = true
	d.stopAnimation()
	d.refresh()
}

// Show attaches the drawer and starts the marker animation.
func (d *ScanDrawer) Show(s Surface) {
	d.surface = s
	d.attach(s, d)
	d.startAnimation()
}

// Hide stops the marker animation and detaches the drawer.
func (d *ScanDrawer) Hide(s Surface) {
	d.stopAnimation()
	d.detach(s, d)
}

// UpdActors runs the default visibility pass.
func (d *ScanDrawer) UpdActors(s Surface, offset geometry.Point2D, area geometry.Size) {
	d.surface = s
	UpdateVisibility(d, s, offset, area)
}

// Draw paints the scan so far and, while scanning, the progress strip
// right below the last row.
func (d *ScanDrawer) Draw(dst draw.Image, offset geometry.Point2D) {
	if d.img == nil {
		return
	}
	r := d.target(offset)
	DrawImage(dst, d.img, r)
	if d.done {
		return
	}

	strip := geometry.NewRect(r.X, r.Y+float64(d.ScannedHeight()), r.Width, ProgressStripHeight)
	if strip.Y+strip.Height > r.Y+r.Height {
		strip.Y = r.Y + r.Height - strip.Height
	}
	FillRect(dst, strip, colorutil.LightGray)
	FillRect(dst, d.markerRect(strip), colorutil.Blue)
}

// markerRect places the marker inside strip for the current frame,
// sweeping left to right and back.
func (d *ScanDrawer) markerRect(strip geometry.Rect) geometry.Rect {
	width := strip.Width / 10
	pos := d.frame % (2 * ProgressSweepFrames)
	if pos > ProgressSweepFrames {
		pos = 2*ProgressSweepFrames - pos
	}
	x := strip.X + (strip.Width-width)*float64(pos)/ProgressSweepFrames
	return geometry.NewRect(x, strip.Y, width, strip.Height)
}

func (d *ScanDrawer) startAnimation() {
	if d.done || d.anim != nil || d.animSched == nil {
		return
	}
	interval := time.Second / ProgressFrameRate
	job := d.animFactory.Make(jobs.PriorityProgress, true, jobs.Animator(interval), d.onFrame)
	d.anim = job
	if err := d.animSched.Schedule(job); err != nil {
		log.WithError(err).Warn("cannot animate scan progress")
		d.anim = nil
	}
}

func (d *ScanDrawer) stopAnimation() {
	if d.anim == nil {
		return
	}
	d.animSched.Cancel(d.anim)
	d.anim = nil
}

func (d *ScanDrawer) onFrame(ev jobs.Event) {
	if ev.Job != d.anim || ev.Kind != jobs.EventProgress {
		return
	}
	if frame, ok := ev.Value.(int); ok {
		d.frame = frame
		d.refresh()
	}
}

func (d *ScanDrawer) refresh() {
	if d.visible && d.surface != nil {
		d.surface.Refresh()
	}
}
