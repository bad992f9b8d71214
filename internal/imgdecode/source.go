// Package imgdecode turns opaque image handles into raw pixel buffers.
package imgdecode

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Source is an opaque handle on encoded image data.
type Source interface {
	Name() string
	Open() (io.ReadCloser, error)
}

// File is a Source backed by an image file.
type File string

// Name returns the file path.
func (f File) Name() string { return string(f) }

// Open opens the file for reading.
func (f File) Open() (io.ReadCloser, error) {
	file, err := os.Open(string(f))
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	return file, nil
}

// Bytes is an in-memory Source.
type Bytes struct {
	Label string
	Data  []byte
}

// Name returns the label.
func (b Bytes) Name() string { return b.Label }

// Open returns a reader over the data.
func (b Bytes) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b.Data)), nil
}

// DecodeConfig reads only the image header and returns its dimensions.
func DecodeConfig(src Source) (width, height int, err error) {
	rc, err := src.Open()
	if err != nil {
		return 0, 0, err
	}
	defer rc.Close()

	cfg, _, err := image.DecodeConfig(rc)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read image header of %s: %w", src.Name(), err)
	}
	return cfg.Width, cfg.Height, nil
}

// SupportedFormats returns the list of supported image formats.
func SupportedFormats() []string {
	return []string{".tiff", ".tif", ".png", ".jpg", ".jpeg", ".bmp", ".webp"}
}

// IsSupportedFormat checks if the given path has a supported image format.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}
