// Package document lays the pages of a document out on a canvas.
package document

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"

	"paperscan/internal/canvas"
	"paperscan/internal/imgdecode"
	"paperscan/pkg/colorutil"
	"paperscan/pkg/geometry"
)

var log = logrus.WithField("component", "document")

// PageSpacing is the vertical gap between pages, in content units.
const PageSpacing = 12.0

// Document is an ordered list of page images.
type Document struct {
	Name  string
	Pages []imgdecode.Source
}

// FromFiles makes a document of the given image files.
func FromFiles(name string, paths ...string) *Document {
	doc := &Document{Name: name}
	for _, p := range paths {
		doc.Pages = append(doc.Pages, imgdecode.File(p))
	}
	return doc
}

// FromDir makes a document of the supported images of dir, sorted by file
// name.
func FromDir(dir string) (*Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read document directory: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if !e.IsDir() && imgdecode.IsSupportedFormat(e.Name()) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return FromFiles(filepath.Base(dir), paths...), nil
}

// Layout is the result of laying a document out.
type Layout struct {
	Background *canvas.BackgroundDrawer
	Pages      []*canvas.PageDrawer
}

// Options tune the layout.
type Options struct {
	// Ratio scales every page from its natural size.
	Ratio      float64
	Background color.Color
}

// Lay clears c and adds a background and one page drawer per page, stacked
// vertically. Pages whose header cannot be read are skipped with a warning.
func Lay(c *canvas.Canvas, doc *Document, loader *canvas.PageLoader, sched canvas.Scheduler, opts Options) *Layout {
	if opts.Ratio <= 0 {
		opts.Ratio = 1
	}
	if opts.Background == nil {
		opts.Background = colorutil.LightGray
	}
	c.RemoveAllDrawers()
	c.UnforceSize()

	layout := &Layout{Background: canvas.NewBackgroundDrawer(opts.Background)}
	c.AddDrawer(layout.Background)

	y := 0.0
	for _, src := range doc.Pages {
		page, err := canvas.OpenPageDrawer(geometry.NewPoint2D(0, y), src, loader, sched)
		if err != nil {
			log.WithError(err).WithField("page", src.Name()).Warn("skipping unreadable page")
			continue
		}
		page.SetSizeRatio(opts.Ratio)
		layout.Pages = append(layout.Pages, page)
		y += page.Size().Height + PageSpacing
	}
	for _, page := range layout.Pages {
		c.AddDrawer(page)
	}
	c.UpdActors()

	log.WithFields(logrus.Fields{"document": doc.Name, "pages": len(layout.Pages)}).Info("document laid out")
	return layout
}

// Visible returns the pages currently on screen.
func (l *Layout) Visible() []*canvas.PageDrawer {
	var out []*canvas.PageDrawer
	for _, p := range l.Pages {
		if p.Visible() {
			out = append(out, p)
		}
	}
	return out
}

// InState returns the pages in state s.
func (l *Layout) InState(s canvas.PageState) []*canvas.PageDrawer {
	var out []*canvas.PageDrawer
	for _, p := range l.Pages {
		if p.State() == s {
			out = append(out, p)
		}
	}
	return out
}

// PageAt returns the index of the page containing content point p, or -1.
func (l *Layout) PageAt(p geometry.Point2D) int {
	for i, page := range l.Pages {
		if canvas.Bounds(page).Contains(p) {
			return i
		}
	}
	return -1
}

// ScrollTo scrolls c so page i is at the top of the viewport.
func (l *Layout) ScrollTo(c *canvas.Canvas, i int) {
	if i < 0 || i >= len(l.Pages) {
		return
	}
	c.SetOffset(geometry.NewPoint2D(c.Offset().X, l.Pages[i].Position().Y))
}
