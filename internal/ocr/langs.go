package ocr

import (
	"context"
	"fmt"
	"sort"

	"github.com/otiai10/gosseract/v2"

	"paperscan/internal/jobs"
)

// Lang is an OCR language choice. The zero Code means OCR is disabled.
type Lang struct {
	Code string
	Name string
}

// Disabled is the entry listed first by the language finder.
var Disabled = Lang{Name: "Disabled"}

// langNames maps Tesseract codes to readable names.
var langNames = map[string]string{
	"ces":     "Czech",
	"chi_sim": "Chinese (simplified)",
	"dan":     "Danish",
	"deu":     "German",
	"eng":     "English",
	"fin":     "Finnish",
	"fra":     "French",
	"ita":     "Italian",
	"jpn":     "Japanese",
	"nld":     "Dutch",
	"nor":     "Norwegian",
	"pol":     "Polish",
	"por":     "Portuguese",
	"rus":     "Russian",
	"spa":     "Spanish",
	"swe":     "Swedish",
	"tur":     "Turkish",
	"ukr":     "Ukrainian",
}

// Data files Tesseract lists that are not languages.
var notLanguages = map[string]bool{"osd": true, "equ": true}

// LangName returns a readable name for code, or code itself.
func LangName(code string) string {
	if name, ok := langNames[code]; ok {
		return name
	}
	return code
}

// Lister returns the installed Tesseract language codes.
type Lister func() ([]string, error)

// LangFinder makes jobs listing the OCR languages.
type LangFinder struct {
	factory *jobs.Factory
	list    Lister
}

// NewLangFinder creates a finder. A nil list asks Tesseract.
func NewLangFinder(list Lister) *LangFinder {
	if list == nil {
		list = gosseract.GetAvailableLanguages
	}
	return &LangFinder{factory: jobs.NewFactory("OCRLangFinder"), list: list}
}

// Langs returns Disabled followed by the installed languages sorted by
// name.
func (f *LangFinder) Langs() ([]Lang, error) {
	codes, err := f.list()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoTesseract, err)
	}
	langs := make([]Lang, 0, len(codes))
	for _, code := range codes {
		if notLanguages[code] {
			continue
		}
		langs = append(langs, Lang{Code: code, Name: LangName(code)})
	}
	sort.Slice(langs, func(i, j int) bool { return langs[i].Name < langs[j].Name })
	return append([]Lang{Disabled}, langs...), nil
}

// Make creates a job whose result is the []Lang list.
func (f *LangFinder) Make(handler jobs.Handler) *jobs.Job {
	work := func(ctx context.Context, _ func(any)) (any, error) {
		langs, err := f.Langs()
		if err != nil {
			return nil, err
		}
		log.WithField("count", len(langs)-1).Info("OCR languages found")
		return langs, nil
	}
	return f.factory.Make(jobs.PriorityOCRLangFinder, false, work, handler)
}
