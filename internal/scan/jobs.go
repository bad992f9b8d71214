package scan

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"paperscan/internal/jobs"
	"paperscan/pkg/geometry"
)

// DeviceFound is the progress value of a device finder job.
type DeviceFound struct {
	ID       string
	Name     string
	Selected bool
	Device   Device
}

// ResolutionFound is the progress value of a resolution finder job.
type ResolutionFound struct {
	Value    int
	Label    string
	Selected bool
}

// Progress values of a calibration scan job, in the order they are
// reported.
type (
	ScanStarted struct {
		Session    uuid.UUID
		Resolution int
	}
	ScanInfo struct {
		ExpectedSize geometry.Size
	}
	ScanChunk struct {
		Line  int
		Image image.Image
	}
)

// ScanResult is the result of a calibration scan job.
type ScanResult struct {
	Session    uuid.UUID
	Image      image.Image
	Resolution int
	Duration   time.Duration
}

// DeviceFinder makes jobs listing the scanners of a backend.
type DeviceFinder struct {
	factory *jobs.Factory
	backend Backend
}

// NewDeviceFinder creates a device finder over b.
func NewDeviceFinder(b Backend) *DeviceFinder {
	return &DeviceFinder{factory: jobs.NewFactory("DeviceFinder"), backend: b}
}

// Make creates a job reporting each device as a DeviceFound progress value.
// The device whose id is selectedID is flagged. The result is the
// []DeviceFound list.
func (f *DeviceFinder) Make(selectedID string, handler jobs.Handler) *jobs.Job {
	work := func(ctx context.Context, progress func(any)) (any, error) {
		log.Info("Looking for scan devices")
		devices, err := f.backend.Devices(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list scan devices: %w", err)
		}
		found := make([]DeviceFound, 0, len(devices))
		for _, dev := range devices {
			df := DeviceFound{ID: dev.ID(), Name: dev.Name(), Selected: dev.ID() == selectedID, Device: dev}
			log.WithFields(logrus.Fields{"name": df.Name, "id": df.ID}).Info("Device found")
			found = append(found, df)
			progress(df)
		}
		return found, nil
	}
	return f.factory.Make(jobs.PriorityDeviceFinder, false, work, handler)
}

// ResolutionFinder makes jobs listing the resolutions of a scanner.
type ResolutionFinder struct {
	factory     *jobs.Factory
	recommended int
}

// NewResolutionFinder creates a resolution finder labelling recommended as
// such.
func NewResolutionFinder(recommended int) *ResolutionFinder {
	return &ResolutionFinder{factory: jobs.NewFactory("ResolutionFinder"), recommended: recommended}
}

// Make creates a job reporting each resolution of dev as a ResolutionFound
// progress value. The result is the []ResolutionFound list.
func (f *ResolutionFinder) Make(dev Device, selected int, handler jobs.Handler) *jobs.Job {
	work := func(ctx context.Context, progress func(any)) (any, error) {
		log.WithField("device", dev.ID()).Info("Looking for resolutions")
		res, err := dev.Resolutions(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read resolutions of %s: %w", dev.ID(), err)
		}
		values := res.List()
		log.WithField("resolutions", values).Info("Resolutions found")

		found := make([]ResolutionFound, 0, len(values))
		for _, v := range values {
			rf := ResolutionFound{Value: v, Label: fmt.Sprintf("%d", v), Selected: v == selected}
			if v == f.recommended {
				rf.Label += " (recommended)"
			}
			found = append(found, rf)
			progress(rf)
		}
		return found, nil
	}
	return f.factory.Make(jobs.PriorityResolutionFinder, false, work, handler)
}

// CalibrationScan makes jobs running a full-area scan used to pick the
// crop area.
type CalibrationScan struct {
	factory *jobs.Factory
}

// NewCalibrationScan creates a calibration scan factory.
func NewCalibrationScan() *CalibrationScan {
	return &CalibrationScan{factory: jobs.NewFactory("CalibrationScan")}
}

// CalibrationResolution picks the highest of resolutions not above
// DefaultCalibrationResolution, or the default when none is.
func CalibrationResolution(resolutions []int) int {
	sorted := slices.Clone(resolutions)
	slices.Sort(sorted)
	res := DefaultCalibrationResolution
	for _, r := range sorted {
		if r > DefaultCalibrationResolution {
			break
		}
		res = r
	}
	return res
}

// Make creates a job scanning with dev. It reports ScanStarted, ScanInfo
// once the size is known, one ScanChunk per strip, and returns a
// ScanResult.
func (f *CalibrationScan) Make(dev Device, resolutions []int, handler jobs.Handler) *jobs.Job {
	work := func(ctx context.Context, progress func(any)) (any, error) {
		start := time.Now()
		opts := Options{Resolution: CalibrationResolution(resolutions)}
		dlog := log.WithField("device", dev.ID())
		dlog.WithField("resolution", opts.Resolution).Info("Calibration scan")

		source, err := SelectOption(dev.Sources(), "Auto", "FlatBed", "Flatbed", ".*ADF.*", ".*Feeder.*")
		if err != nil {
			dlog.WithError(err).Warn("Unable to set scanner source")
		}
		opts.Source = source
		switch modes := dev.Modes(); {
		case slices.Contains(modes, "Color"):
			opts.Mode = "Color"
		case slices.Contains(modes, "Gray"):
			opts.Mode = "Gray"
		default:
			dlog.Warn("Unable to set scanner mode, may be lineart")
		}

		session, err := dev.Scan(ctx, opts)
		if err != nil {
			return nil, err
		}
		progress(ScanStarted{Session: session.ID(), Resolution: opts.Resolution})
		if size := session.ExpectedSize(); size.Height > 0 {
			progress(ScanInfo{ExpectedSize: size})
		}

		line := 0
		for {
			chunk, err := session.Next(ctx)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("scan %s failed at line %d: %w", session.ID(), line, err)
			}
			progress(ScanChunk{Line: line, Image: chunk})
			line += chunk.Bounds().Dy()
		}

		return ScanResult{
			Session:    session.ID(),
			Image:      session.Image(),
			Resolution: opts.Resolution,
			Duration:   time.Since(start),
		}, nil
	}
	return f.factory.Make(jobs.PriorityCalibrationScan, false, work, handler)
}
