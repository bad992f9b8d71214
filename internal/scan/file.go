package scan

import (
	"context"
	"fmt"
	"image"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/image/draw"

	"paperscan/internal/imgdecode"
	"paperscan/pkg/geometry"
)

// Simulated scanner characteristics.
const (
	FileNativeResolution = 300
	FileStripHeight      = 64
)

// FileBackend simulates one scanner per image file. Scanning decodes the
// file and streams it in strips.
type FileBackend struct {
	decoder imgdecode.Decoder
	paths   []string
	// Delay is slept before each strip to mimic scanner speed.
	Delay time.Duration
}

// NewFileBackend creates a backend over paths.
func NewFileBackend(dec imgdecode.Decoder, paths ...string) *FileBackend {
	return &FileBackend{decoder: dec, paths: paths}
}

// Devices returns one device per file.
func (b *FileBackend) Devices(ctx context.Context) ([]Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	devices := make([]Device, 0, len(b.paths))
	for _, p := range b.paths {
		devices = append(devices, &fileDevice{backend: b, path: p})
	}
	return devices, nil
}

type fileDevice struct {
	backend *FileBackend
	path    string
}

func (d *fileDevice) ID() string   { return "file:" + d.path }
func (d *fileDevice) Name() string { return "Simulated " + filepath.Base(d.path) }

func (d *fileDevice) Resolutions(context.Context) (Resolutions, error) {
	return Resolutions{Min: 100, Max: 600, Step: 25}, nil
}

func (d *fileDevice) Sources() []string { return []string{"Flatbed", "Automatic Document Feeder"} }
func (d *fileDevice) Modes() []string   { return []string{"Lineart", "Gray", "Color"} }

func (d *fileDevice) Scan(ctx context.Context, opts Options) (Session, error) {
	img, err := imgdecode.Load(ctx, d.backend.decoder, imgdecode.File(d.path))
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", d.ID(), err)
	}
	if opts.Resolution > 0 && opts.Resolution != FileNativeResolution {
		b := img.Bounds()
		w := max(1, b.Dx()*opts.Resolution/FileNativeResolution)
		h := max(1, b.Dy()*opts.Resolution/FileNativeResolution)
		scaled := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, b, draw.Src, nil)
		img = scaled
	}
	return &stripSession{
		id:    uuid.New(),
		img:   img,
		strip: FileStripHeight,
		delay: d.backend.Delay,
	}, nil
}

// stripSession streams an in-memory image in fixed-height strips.
type stripSession struct {
	id    uuid.UUID
	img   image.Image
	strip int
	delay time.Duration
	line  int
}

func (s *stripSession) ID() uuid.UUID { return s.id }

func (s *stripSession) ExpectedSize() geometry.Size {
	b := s.img.Bounds()
	return geometry.NewSize(float64(b.Dx()), float64(b.Dy()))
}

func (s *stripSession) Next(ctx context.Context) (image.Image, error) {
	b := s.img.Bounds()
	if s.line >= b.Dy() {
		return nil, io.EOF
	}
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.delay):
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows := min(s.strip, b.Dy()-s.line)
	chunk := image.NewRGBA(image.Rect(0, 0, b.Dx(), rows))
	draw.Draw(chunk, chunk.Bounds(), s.img, image.Pt(b.Min.X, b.Min.Y+s.line), draw.Src)
	s.line += rows
	return chunk, nil
}

func (s *stripSession) Image() image.Image { return s.img }
