package canvas

import (
	"sync"

	"golang.org/x/image/draw"

	"paperscan/pkg/geometry"
)

// Stage is the compositing surface. It keeps attached drawers ordered by
// descending layer, then attach order, and paints them in that order.
type Stage struct {
	mu        sync.Mutex
	drawers   []Drawer
	onRefresh func()
}

// NewStage creates a stage. onRefresh, if not nil, is called each time a
// drawer asks for a redraw.
func NewStage(onRefresh func()) *Stage {
	return &Stage{onRefresh: onRefresh}
}

// Attach adds d to the painted set. Attaching twice does nothing.
func (s *Stage) Attach(d Drawer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if indexOf(s.drawers, d) >= 0 {
		return
	}
	s.drawers = insertByLayer(s.drawers, d)
}

// Detach removes d from the painted set.
func (s *Stage) Detach(d Drawer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := indexOf(s.drawers, d); i >= 0 {
		s.drawers = append(s.drawers[:i], s.drawers[i+1:]...)
	}
}

// Refresh requests a redraw from the host.
func (s *Stage) Refresh() {
	if s.onRefresh != nil {
		s.onRefresh()
	}
}

// Attached returns the attached drawers in paint order.
func (s *Stage) Attached() []Drawer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Drawer(nil), s.drawers...)
}

// Render paints every attached drawer onto dst.
func (s *Stage) Render(dst draw.Image, offset geometry.Point2D) {
	for _, d := range s.Attached() {
		d.Draw(dst, offset)
	}
}

func indexOf(drawers []Drawer, d Drawer) int {
	for i, other := range drawers {
		if other == d {
			return i
		}
	}
	return -1
}

// insertByLayer inserts d after every drawer of the same or higher layer.
func insertByLayer(drawers []Drawer, d Drawer) []Drawer {
	i := 0
	for i < len(drawers) && drawers[i].Layer() >= d.Layer() {
		i++
	}
	drawers = append(drawers, nil)
	copy(drawers[i+1:], drawers[i:])
	drawers[i] = d
	return drawers
}
