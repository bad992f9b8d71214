// Package ocr wraps Tesseract: language discovery and text recognition of
// scanned pages.
package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"github.com/sirupsen/logrus"

	"paperscan/internal/jobs"
)

var log = logrus.WithField("component", "ocr")

// ErrNoTesseract is returned when Tesseract or its language data cannot be
// found.
var ErrNoTesseract = errors.New("tesseract not available")

// ErrDisabled is returned when recognition is requested with no language.
var ErrDisabled = errors.New("OCR is disabled")

// Engine recognizes text with Tesseract.
type Engine struct {
	client *gosseract.Client
	lang   string
}

// NewEngine creates an engine for lang, a Tesseract language code such as
// "eng" or "eng+fra".
func NewEngine(lang string) (*Engine, error) {
	client := gosseract.NewClient()
	if err := client.SetLanguage(strings.Split(lang, "+")...); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set OCR language %q: %w", lang, err)
	}
	return &Engine{client: client, lang: lang}, nil
}

// Close releases OCR resources.
func (e *Engine) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// Recognize returns the text of img with whitespace runs collapsed inside
// each line.
func (e *Engine) Recognize(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode image for OCR: %w", err)
	}

	if err := e.client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		return "", fmt.Errorf("failed to set PSM: %w", err)
	}
	if err := e.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	text, err := e.client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	log.WithFields(logrus.Fields{"lang": e.lang, "chars": len(text)}).Debug("page recognized")
	return cleanText(text), nil
}

// cleanText trims lines, collapses inner whitespace and drops blank lines.
func cleanText(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// Recognizer makes jobs recognizing the text of an image.
type Recognizer struct {
	factory *jobs.Factory
}

// NewRecognizer creates a recognizer factory.
func NewRecognizer() *Recognizer {
	return &Recognizer{factory: jobs.NewFactory("OCR")}
}

// Make creates a job whose result is the text of img in lang. An empty
// lang fails with ErrDisabled.
func (r *Recognizer) Make(lang string, img image.Image, handler jobs.Handler) *jobs.Job {
	work := func(ctx context.Context, _ func(any)) (any, error) {
		if lang == "" {
			return nil, ErrDisabled
		}
		e, err := NewEngine(lang)
		if err != nil {
			return nil, err
		}
		defer e.Close()
		return e.Recognize(img)
	}
	return r.factory.Make(jobs.PriorityOCR, false, work, handler)
}
