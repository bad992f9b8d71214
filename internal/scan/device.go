// Package scan talks to scanners: device discovery, resolution discovery
// and streaming scan sessions, each run as a job.
package scan

import (
	"context"
	"errors"
	"fmt"
	"image"
	"regexp"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"paperscan/pkg/geometry"
)

var log = logrus.WithField("component", "scan")

// ErrNoDevice is returned when a requested scanner is not available.
var ErrNoDevice = errors.New("no such scan device")

// Resolution defaults, in dpi.
const (
	DefaultCalibrationResolution = 200
	RecommendedResolution        = 300
	minResolutionStep            = 50
)

// Options are the settings of one scan.
type Options struct {
	Resolution int
	Source     string
	Mode       string
}

// Device is a scanner.
type Device interface {
	ID() string
	Name() string
	Resolutions(ctx context.Context) (Resolutions, error)
	Sources() []string
	Modes() []string
	Scan(ctx context.Context, opts Options) (Session, error)
}

// Session is one running scan. Next returns image strips from top to
// bottom and io.EOF after the last one.
type Session interface {
	ID() uuid.UUID
	ExpectedSize() geometry.Size
	Next(ctx context.Context) (image.Image, error)
	// Image returns the whole scan once Next has returned io.EOF.
	Image() image.Image
}

// Backend enumerates scanners.
type Backend interface {
	Devices(ctx context.Context) ([]Device, error)
}

// Resolutions is what a device reports: either a list of values or a
// range.
type Resolutions struct {
	Values []int
	Min    int
	Max    int
	Step   int
}

// List returns the supported resolutions. Ranges are expanded with a step
// of at least 50 dpi.
func (r Resolutions) List() []int {
	if len(r.Values) > 0 {
		return append([]int(nil), r.Values...)
	}
	step := max(r.Step, minResolutionStep)
	var out []int
	for res := r.Min; res <= r.Max; res += step {
		out = append(out, res)
	}
	return out
}

// FindDevice returns the device of the backend with the given id.
func FindDevice(ctx context.Context, b Backend, id string) (Device, error) {
	devices, err := b.Devices(ctx)
	if err != nil {
		return nil, err
	}
	for _, dev := range devices {
		if dev.ID() == id {
			return dev, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoDevice, id)
}

// SelectOption returns the first of values matching a preferred pattern,
// trying patterns in order. Patterns are regular expressions matched
// against the whole value.
func SelectOption(values []string, preferred ...string) (string, error) {
	for _, pattern := range preferred {
		re, err := regexp.Compile("^(?:" + pattern + ")$")
		if err != nil {
			return "", fmt.Errorf("bad option pattern %q: %w", pattern, err)
		}
		for _, v := range values {
			if re.MatchString(v) {
				return v, nil
			}
		}
	}
	return "", fmt.Errorf("none of %v matches %v", values, preferred)
}
