package canvas

import (
	"context"
	"fmt"
	"image"

	"github.com/sirupsen/logrus"
	"golang.org/x/image/draw"

	"paperscan/internal/imgdecode"
	"paperscan/internal/jobs"
	"paperscan/pkg/colorutil"
	"paperscan/pkg/geometry"
)

// Scheduler is the part of jobs.Scheduler drawers use.
type Scheduler interface {
	Schedule(job *jobs.Job) error
	Cancel(job *jobs.Job)
}

// PageState is the loading state of a PageDrawer.
type PageState int

const (
	PageUnloaded PageState = iota
	PagePreloading
	PageLoaded
)

func (s PageState) String() string {
	switch s {
	case PageUnloaded:
		return "unloaded"
	case PagePreloading:
		return "preloading"
	case PageLoaded:
		return "loaded"
	default:
		return fmt.Sprintf("PageState(%d)", int(s))
	}
}

// PageLoader makes the jobs that decode page images.
type PageLoader struct {
	factory *jobs.Factory
	decoder imgdecode.Decoder
}

// NewPageLoader creates a loader decoding through dec.
func NewPageLoader(dec imgdecode.Decoder) *PageLoader {
	return &PageLoader{factory: jobs.NewFactory("PageLoader"), decoder: dec}
}

// Make creates a non-cancelable job decoding src. Its result is an
// image.Image.
func (l *PageLoader) Make(src imgdecode.Source, handler jobs.Handler) *jobs.Job {
	work := func(ctx context.Context, _ func(any)) (any, error) {
		return imgdecode.Load(ctx, l.decoder, src)
	}
	return l.factory.Make(jobs.PriorityPageLoader, false, work, handler)
}

// PageDrawer presents a page image that is decoded lazily. Loading starts
// when the page's box, grown by PreloadMargin, starts intersecting the
// viewport. The decoded image is discarded whenever the page is hidden.
type PageDrawer struct {
	base
	source  imgdecode.Source
	loader  *PageLoader
	sched   Scheduler
	natural geometry.Size

	state    PageState
	job      *jobs.Job
	img      image.Image
	scaled   image.Image
	err      error
	inMargin bool
	preloads int
	surface  Surface
}

// NewPageDrawer creates an unloaded page at pos. size is the page's natural
// size in pixels.
func NewPageDrawer(pos geometry.Point2D, src imgdecode.Source, size geometry.Size, loader *PageLoader, sched Scheduler) *PageDrawer {
	return &PageDrawer{
		base:    base{layer: LayerImage, pos: pos, size: size},
		source:  src,
		loader:  loader,
		sched:   sched,
		natural: size,
	}
}

// OpenPageDrawer reads the image header of src to size the page without
// decoding it.
func OpenPageDrawer(pos geometry.Point2D, src imgdecode.Source, loader *PageLoader, sched Scheduler) (*PageDrawer, error) {
	w, h, err := imgdecode.DecodeConfig(src)
	if err != nil {
		return nil, err
	}
	return NewPageDrawer(pos, src, geometry.NewSize(float64(w), float64(h)), loader, sched), nil
}

// Source returns the page image handle.
func (d *PageDrawer) Source() imgdecode.Source { return d.source }

// State returns the loading state.
func (d *PageDrawer) State() PageState { return d.state }

// Image returns the decoded image, or nil unless the page is loaded.
func (d *PageDrawer) Image() image.Image { return d.img }

// Err returns the error of the last failed load.
func (d *PageDrawer) Err() error { return d.err }

// Preloads returns how many times loading was started.
func (d *PageDrawer) Preloads() int { return d.preloads }

// NaturalSize returns the page size read from its header.
func (d *PageDrawer) NaturalSize() geometry.Size { return d.natural }

// SetSizeRatio resizes the page to ratio times its natural size.
func (d *PageDrawer) SetSizeRatio(ratio float64) {
	d.Resize(d.natural.Scale(ratio).Floor())
}

// Resize changes the presented size; the image is rescaled on next draw.
func (d *PageDrawer) Resize(size geometry.Size) {
	if size == d.size {
		return
	}
	d.size = size
	d.scaled = nil
}

// Show attaches the page, and starts loading it if it was discarded.
func (d *PageDrawer) Show(s Surface) {
	d.surface = s
	d.attach(s, d)
	if d.state == PageUnloaded {
		d.preload()
	}
}

// Hide detaches the page and discards its image.
func (d *PageDrawer) Hide(s Surface) {
	d.unload()
	d.detach(s, d)
}

// UpdActors starts loading on the edge where the margin-expanded box enters
// the viewport, drops an image that was preloaded but never shown when the
// box leaves it, then runs the default visibility pass.
func (d *PageDrawer) UpdActors(s Surface, offset geometry.Point2D, area geometry.Size) {
	d.surface = s
	inMargin := OnScreen(Bounds(d).Expand(PreloadMargin), offset, area)
	switch {
	case inMargin && !d.inMargin && d.state == PageUnloaded:
		d.preload()
	case !inMargin && d.inMargin && !d.visible:
		d.unload()
	}
	d.inMargin = inMargin
	UpdateVisibility(d, s, offset, area)
}

// Draw paints the page image, or a blank sheet while it loads.
func (d *PageDrawer) Draw(dst draw.Image, offset geometry.Point2D) {
	r := d.target(offset)
	if d.img == nil {
		FillRect(dst, r, colorutil.White)
		StrokeRect(dst, r, colorutil.LightGray, 1)
		return
	}
	if d.scaled == nil {
		d.scaled = ScaleImage(d.img, d.size)
	}
	DrawImage(dst, d.scaled, r)
}

func (d *PageDrawer) logger() *logrus.Entry {
	return log.WithField("page", d.source.Name())
}

func (d *PageDrawer) preload() {
	job := d.loader.Make(d.source, d.onLoadEvent)
	d.state = PagePreloading
	d.job = job
	d.preloads++
	if err := d.sched.Schedule(job); err != nil {
		d.logger().WithError(err).Warn("cannot schedule page load")
		d.state = PageUnloaded
		d.job = nil
	}
}

func (d *PageDrawer) unload() {
	if d.job != nil {
		d.sched.Cancel(d.job)
	}
	d.job = nil
	d.img = nil
	d.scaled = nil
	d.state = PageUnloaded
}

// onLoadEvent is the single point where a load result reaches the drawer.
// Results of a job that is no longer the current one are dropped.
func (d *PageDrawer) onLoadEvent(ev jobs.Event) {
	if ev.Job != d.job || d.state != PagePreloading {
		if ev.Kind == jobs.EventDone {
			d.logger().WithField("job", ev.Job.Name()).Debug("stale page image discarded")
		}
		return
	}

	switch ev.Kind {
	case jobs.EventDone:
		img, ok := ev.Value.(image.Image)
		if !ok {
			d.logger().Errorf("page loader returned %T", ev.Value)
			d.state = PageUnloaded
			d.job = nil
			return
		}
		d.img = img
		d.scaled = nil
		d.err = nil
		d.state = PageLoaded
		d.job = nil
		if d.visible && d.surface != nil {
			d.surface.Refresh()
		}
	case jobs.EventFailed:
		d.logger().WithError(ev.Err).Warn("page load failed")
		d.err = ev.Err
		d.state = PageUnloaded
		d.job = nil
	case jobs.EventCancelled:
		d.state = PageUnloaded
		d.job = nil
	}
}
