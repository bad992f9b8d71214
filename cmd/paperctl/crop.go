package main

import (
	"context"
	"fmt"
	"image"
	"io"

	"github.com/spf13/cobra"

	"paperscan/internal/canvas"
	"paperscan/internal/imgcut"
	"paperscan/internal/imgdecode"
	"paperscan/internal/ocr"
	"paperscan/pkg/geometry"
)

type cropOptions struct {
	X1, Y1, X2, Y2 float64
	Out            string
	Lang           string
}

func cropCmd() *cobra.Command {
	var opts cropOptions
	cmd := &cobra.Command{
		Use:   "crop IMAGE",
		Short: "Crop an image between two grip positions",
		Long: "Place the two crop grips at (x1, y1) and (x2, y2), in image pixels, and write the " +
			"selected area. The grips are clamped to the image and may be given in any order. " +
			"With --ocr the text of the area is printed.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := imgdecode.Load(cmd.Context(), decoder(), imgdecode.File(args[0]))
			if err != nil {
				return err
			}
			out, rect := crop(img, opts)
			fmt.Fprintf(cmd.OutOrStdout(), "crop %v %dx%d\n", rect, rect.Dx(), rect.Dy())
			if opts.Out != "" {
				if err := writePNG(opts.Out, out); err != nil {
					return err
				}
			}
			if opts.Lang != "" {
				return recognize(cmd.Context(), cmd.OutOrStdout(), opts.Lang, out)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.Float64Var(&opts.X1, "x1", 0, "First grip X")
	f.Float64Var(&opts.Y1, "y1", 0, "First grip Y")
	f.Float64Var(&opts.X2, "x2", -1, "Second grip X (default: image width)")
	f.Float64Var(&opts.Y2, "y2", -1, "Second grip Y (default: image height)")
	f.StringVarP(&opts.Out, "out", "o", "", "Write the cropped image to this PNG file")
	f.StringVar(&opts.Lang, "ocr", "", "Recognize the text of the crop in this Tesseract language")
	return cmd
}

// crop drives a grip handler on a headless canvas and returns its crop.
func crop(img image.Image, opts cropOptions) (image.Image, image.Rectangle) {
	c := canvas.New(canvas.NewStage(nil))
	b := img.Bounds()
	c.SetVisibleSize(geometry.NewSize(float64(b.Dx()), float64(b.Dy())))

	h := imgcut.New(img, c)
	defer h.Close()
	h.SetGrip(0, geometry.NewPoint2D(opts.X1, opts.Y1))
	if opts.X2 >= 0 || opts.Y2 >= 0 {
		p := h.Grips()[1]
		if opts.X2 >= 0 {
			p.X = opts.X2
		}
		if opts.Y2 >= 0 {
			p.Y = opts.Y2
		}
		h.SetGrip(1, p)
	}
	return h.Crop(), h.GetCoords()
}

func recognize(ctx context.Context, w io.Writer, lang string, img image.Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e, err := ocr.NewEngine(lang)
	if err != nil {
		return err
	}
	defer e.Close()
	text, err := e.Recognize(img)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, text)
	return nil
}
