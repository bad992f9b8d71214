package main

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"paperscan/internal/canvas"
	"paperscan/internal/document"
	"paperscan/internal/imgdecode"
	"paperscan/internal/jobs"
	"paperscan/internal/loop"
	"paperscan/pkg/colorutil"
	"paperscan/pkg/geometry"
)

type renderOptions struct {
	Width, Height int
	ScrollX       float64
	ScrollY       float64
	Ratio         float64
	Timeout       time.Duration
	Out           string
}

func renderCmd() *cobra.Command {
	opts := renderOptions{Width: 800, Height: 600, Ratio: 1, Timeout: 30 * time.Second}
	cmd := &cobra.Command{
		Use:   "render PATH...",
		Short: "Lay pages out, scroll and render the viewport to PNG",
		Long: "Lay out the pages (image files, or one directory of images) the way the viewer does, " +
			"scroll the viewport, wait for the visible pages to load and write the viewport as PNG. " +
			"Reports which pages are visible and which were preloaded.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := openDocument(args)
			if err != nil {
				return err
			}
			img, err := render(cmd.Context(), cmd.OutOrStdout(), doc, decoder(), opts)
			if err != nil {
				return err
			}
			if opts.Out == "" {
				return nil
			}
			return writePNG(opts.Out, img)
		},
	}
	f := cmd.Flags()
	f.IntVar(&opts.Width, "width", opts.Width, "Viewport width")
	f.IntVar(&opts.Height, "height", opts.Height, "Viewport height")
	f.Float64Var(&opts.ScrollX, "scroll-x", 0, "Horizontal scroll offset")
	f.Float64Var(&opts.ScrollY, "scroll-y", 0, "Vertical scroll offset")
	f.Float64Var(&opts.Ratio, "ratio", opts.Ratio, "Page scale")
	f.DurationVar(&opts.Timeout, "timeout", opts.Timeout, "Give up waiting for pages after this long")
	f.StringVarP(&opts.Out, "out", "o", "", "Write the viewport to this PNG file")
	return cmd
}

func openDocument(args []string) (*document.Document, error) {
	if len(args) == 1 {
		if info, err := os.Stat(args[0]); err == nil && info.IsDir() {
			return document.FromDir(args[0])
		}
	}
	return document.FromFiles("pages", args...), nil
}

// render runs the canvas headless: the calling goroutine is the interactive
// thread and drains the loop until every visible page is loaded.
func render(ctx context.Context, w io.Writer, doc *document.Document, dec imgdecode.Decoder, opts renderOptions) (*image.RGBA, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	l := loop.New()
	sched := jobs.NewScheduler("main", l)
	sched.Start()
	defer sched.Stop()

	stage := canvas.NewStage(nil)
	c := canvas.New(stage)
	c.SetVisibleSize(geometry.NewSize(float64(opts.Width), float64(opts.Height)))
	layout := document.Lay(c, doc, canvas.NewPageLoader(dec), sched, document.Options{
		Ratio:      opts.Ratio,
		Background: colorutil.LightGray,
	})
	c.SetOffset(geometry.NewPoint2D(opts.ScrollX, opts.ScrollY))

	preloading := layout.InState(canvas.PagePreloading)

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	for !settled(layout) {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("pages did not load: %w", ctx.Err())
		case <-l.Wake():
			l.Drain()
		}
	}

	frame := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	canvas.FillRect(frame, geometry.NewRect(0, 0, float64(opts.Width), float64(opts.Height)), colorutil.Black)
	stage.Render(frame, c.Offset())

	full := c.FullSize()
	fmt.Fprintf(w, "content %.0fx%.0f, offset (%.0f, %.0f)\n", full.Width, full.Height, c.Offset().X, c.Offset().Y)
	for i, p := range layout.Pages {
		mark := " "
		if p.Visible() {
			mark = "*"
		}
		preloaded := ""
		for _, q := range preloading {
			if q == p {
				preloaded = " preloaded"
			}
		}
		errText := ""
		if p.Err() != nil {
			errText = " error: " + p.Err().Error()
		}
		fmt.Fprintf(w, "%s page %d %s at (%.0f, %.0f) %.0fx%.0f %s%s%s\n",
			mark, i+1, p.Source().Name(), p.Position().X, p.Position().Y,
			p.Size().Width, p.Size().Height, p.State(), preloaded, errText)
	}
	return frame, nil
}

// settled reports whether no visible page is still loading.
func settled(layout *document.Layout) bool {
	for _, p := range layout.Visible() {
		if p.State() == canvas.PagePreloading {
			return false
		}
	}
	return true
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
