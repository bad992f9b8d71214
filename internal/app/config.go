package app

import (
	"fmt"
	"image/color"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
)

// MaxScanSamples is how many past calibration scans feed the estimate.
const MaxScanSamples = 8

// DefaultScanTime is the estimate used before any scan was recorded.
const DefaultScanTime = 30 * time.Second

// Preference keys.
const (
	KeyDecoder         = "decoder"
	KeyBackground      = "canvas.background"
	KeyPageRatio       = "canvas.page_ratio"
	KeyScanDevice      = "scan.device"
	KeyScanResolution  = "scan.resolution"
	KeyOCRLang         = "ocr.lang"
	KeyScanDurations   = "scan.durations"
	KeyScanResolutions = "scan.resolutions"
)

// Store is the preference backend a Config is read from and written to.
type Store interface {
	String(key string) string
	SetString(key, val string)
	FloatWithFallback(key string, fallback float64) float64
	SetFloat(key string, val float64)
	Floats(key string) []float64
	SetFloats(key string, vals []float64)
}

// ScanSample is one recorded calibration scan.
type ScanSample struct {
	Resolution int     `validate:"gt=0"`
	Seconds    float64 `validate:"gt=0"`
}

// Config holds the user settings of the application.
type Config struct {
	Decoder        string       `validate:"oneof=std opencv"`
	Background     string       `validate:"hexcolor"`
	PageRatio      float64      `validate:"gt=0,lte=4"`
	ScanDevice     string       `validate:"omitempty,max=256"`
	ScanResolution int          `validate:"omitempty,min=50,max=4800"`
	OCRLang        string       `validate:"omitempty,max=64"`
	ScanSamples    []ScanSample `validate:"max=8,dive"`
}

var (
	validateOnce sync.Once
	validateInst *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validateInst = validator.New(validator.WithRequiredStructEnabled())
	})
	return validateInst
}

// DefaultConfig returns the settings used on first start.
func DefaultConfig() Config {
	return Config{
		Decoder:    "std",
		Background: "#a0a0a0",
		PageRatio:  0.5,
	}
}

// Validate checks every field against its constraints.
func (c Config) Validate() error {
	return validatorInstance().Struct(c)
}

// Sanitize returns c with every invalid field replaced by its default.
func (c Config) Sanitize() Config {
	err := c.Validate()
	if err == nil {
		return c
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		log.WithError(err).Warn("config validation failed, using defaults")
		return DefaultConfig()
	}

	def := reflect.ValueOf(DefaultConfig())
	out := reflect.ValueOf(&c).Elem()
	for _, fe := range verrs {
		name := fe.StructNamespace()
		name = strings.TrimPrefix(name, "Config.")
		if i := strings.IndexAny(name, "[."); i >= 0 {
			name = name[:i]
		}
		field := out.FieldByName(name)
		if !field.IsValid() {
			continue
		}
		log.WithFields(logrus.Fields{
			"field": name,
			"value": fmt.Sprint(fe.Value()),
			"rule":  fe.Tag(),
		}).Warn("invalid setting, using default")
		field.Set(def.FieldByName(name))
	}
	return c
}

// LoadConfig reads the settings from s, falling back to defaults for
// anything missing or invalid.
func LoadConfig(s Store) Config {
	def := DefaultConfig()
	c := Config{
		Decoder:        s.String(KeyDecoder),
		Background:     s.String(KeyBackground),
		PageRatio:      s.FloatWithFallback(KeyPageRatio, def.PageRatio),
		ScanDevice:     s.String(KeyScanDevice),
		ScanResolution: int(s.FloatWithFallback(KeyScanResolution, 0)),
		OCRLang:        s.String(KeyOCRLang),
	}
	if c.Decoder == "" {
		c.Decoder = def.Decoder
	}
	if c.Background == "" {
		c.Background = def.Background
	}

	secs := s.Floats(KeyScanDurations)
	res := s.Floats(KeyScanResolutions)
	for i := 0; i < len(secs) && i < len(res); i++ {
		c.ScanSamples = append(c.ScanSamples, ScanSample{Resolution: int(res[i]), Seconds: secs[i]})
	}
	if len(c.ScanSamples) > MaxScanSamples {
		c.ScanSamples = c.ScanSamples[len(c.ScanSamples)-MaxScanSamples:]
	}
	return c.Sanitize()
}

// Save writes the settings to s.
func (c Config) Save(s Store) {
	s.SetString(KeyDecoder, c.Decoder)
	s.SetString(KeyBackground, c.Background)
	s.SetFloat(KeyPageRatio, c.PageRatio)
	s.SetString(KeyScanDevice, c.ScanDevice)
	s.SetFloat(KeyScanResolution, float64(c.ScanResolution))
	s.SetString(KeyOCRLang, c.OCRLang)

	secs := make([]float64, len(c.ScanSamples))
	res := make([]float64, len(c.ScanSamples))
	for i, sm := range c.ScanSamples {
		secs[i] = sm.Seconds
		res[i] = float64(sm.Resolution)
	}
	s.SetFloats(KeyScanDurations, secs)
	s.SetFloats(KeyScanResolutions, res)
}

// RecordScan appends a scan duration, keeping the last MaxScanSamples.
func (c *Config) RecordScan(resolution int, d time.Duration) {
	if resolution <= 0 || d <= 0 {
		return
	}
	c.ScanSamples = append(c.ScanSamples, ScanSample{Resolution: resolution, Seconds: d.Seconds()})
	if len(c.ScanSamples) > MaxScanSamples {
		c.ScanSamples = c.ScanSamples[len(c.ScanSamples)-MaxScanSamples:]
	}
}

// EstimatedScanTime predicts how long a scan at resolution takes. With
// samples at two or more resolutions, duration is fitted linearly against
// the pixel count (resolution squared); otherwise the mean is used.
func (c Config) EstimatedScanTime(resolution int) time.Duration {
	if len(c.ScanSamples) == 0 {
		return DefaultScanTime
	}
	xs := make([]float64, len(c.ScanSamples))
	ys := make([]float64, len(c.ScanSamples))
	distinct := map[int]bool{}
	for i, s := range c.ScanSamples {
		xs[i] = float64(s.Resolution) * float64(s.Resolution)
		ys[i] = s.Seconds
		distinct[s.Resolution] = true
	}
	mean := stat.Mean(ys, nil)
	secs := mean
	if len(distinct) >= 2 && resolution > 0 {
		alpha, beta := stat.LinearRegression(xs, ys, nil, false)
		secs = alpha + beta*float64(resolution)*float64(resolution)
	}
	// a bad fit must not yield a zero or negative estimate
	if secs < mean/10 {
		secs = mean / 10
	}
	return time.Duration(secs * float64(time.Second))
}

// BackgroundColor parses Background, falling back to the default.
func (c Config) BackgroundColor() color.Color {
	if col, ok := parseHexColor(c.Background); ok {
		return col
	}
	col, _ := parseHexColor(DefaultConfig().Background)
	return col
}

// parseHexColor accepts #rgb, #rrggbb and #rrggbbaa.
func parseHexColor(s string) (color.NRGBA, bool) {
	s = strings.TrimPrefix(s, "#")
	switch len(s) {
	case 3:
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]}) + "ff"
	case 6:
		s += "ff"
	case 8:
	default:
		return color.NRGBA{}, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.NRGBA{}, false
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, true
}
