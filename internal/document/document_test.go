package document

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperscan/internal/canvas"
	"paperscan/internal/imgdecode"
	"paperscan/internal/jobs"
	"paperscan/internal/loop"
	"paperscan/pkg/colorutil"
	"paperscan/pkg/geometry"
)

func writePage(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewGray(image.Rect(0, 0, w, h))))
	require.NoError(t, f.Close())
	return path
}

func TestFromDirPicksImagesInOrder(t *testing.T) {
	dir := t.TempDir()
	writePage(t, dir, "b.png", 1, 1)
	writePage(t, dir, "a.png", 1, 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	doc, err := FromDir(dir)
	require.NoError(t, err)
	require.Len(t, doc.Pages, 2)
	assert.Equal(t, filepath.Join(dir, "a.png"), doc.Pages[0].Name())
	assert.Equal(t, filepath.Join(dir, "b.png"), doc.Pages[1].Name())
}

func TestLayStacksPages(t *testing.T) {
	dir := t.TempDir()
	doc := FromFiles("doc",
		writePage(t, dir, "1.png", 200, 300),
		filepath.Join(dir, "missing.png"),
		writePage(t, dir, "2.png", 100, 100),
		writePage(t, dir, "3.png", 200, 300),
	)

	l := loop.New()
	sched := jobs.NewScheduler("main", l)
	t.Cleanup(sched.Stop)
	c := canvas.New(canvas.NewStage(nil))
	c.SetVisibleSize(geometry.NewSize(400, 200))

	layout := Lay(c, doc, canvas.NewPageLoader(imgdecode.StdDecoder{}), sched, Options{Ratio: 0.5, Background: colorutil.LightGray})
	require.Len(t, layout.Pages, 3)

	assert.Equal(t, geometry.NewPoint2D(0, 0), layout.Pages[0].Position())
	assert.Equal(t, geometry.NewSize(100, 150), layout.Pages[0].Size())
	assert.Equal(t, geometry.NewPoint2D(0, 150+PageSpacing), layout.Pages[1].Position())
	assert.Equal(t, geometry.NewPoint2D(0, 200+2*PageSpacing), layout.Pages[2].Position())
	assert.Equal(t, geometry.NewSize(100, 350+2*PageSpacing), c.FullSize())

	assert.Len(t, layout.Visible(), 2)
	assert.True(t, layout.Background.Visible())
	assert.Len(t, layout.InState(canvas.PagePreloading), 3)

	assert.Equal(t, 1, layout.PageAt(geometry.NewPoint2D(10, 170)))
	assert.Equal(t, -1, layout.PageAt(geometry.NewPoint2D(150, 10)))

	layout.ScrollTo(c, 2)
	assert.Equal(t, 200+2*PageSpacing, c.Offset().Y)
	assert.Equal(t, []*canvas.PageDrawer{layout.Pages[2]}, layout.Visible())
}
