package app

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"paperscan/internal/canvas"
	"paperscan/internal/imgcut"
	"paperscan/internal/jobs"
	"paperscan/internal/scan"
	"paperscan/pkg/geometry"
)

// ErrScanInProgress is returned when a calibration starts while a scan runs.
var ErrScanInProgress = errors.New("a scan is already running")

// Step is the progress of a calibration.
type Step int

const (
	StepIdle Step = iota
	StepDevices
	StepResolutions
	StepScanning
	StepCropping
	StepFailed
)

func (s Step) String() string {
	switch s {
	case StepIdle:
		return "idle"
	case StepDevices:
		return "devices"
	case StepResolutions:
		return "resolutions"
	case StepScanning:
		return "scanning"
	case StepCropping:
		return "cropping"
	case StepFailed:
		return "failed"
	default:
		return fmt.Sprintf("Step(%d)", int(s))
	}
}

// Calibrator runs the calibration flow on a canvas: find a device, find its
// resolutions, stream a calibration scan into a ScanDrawer with a
// time-based progress bar, then hand the result to a crop handler. All
// methods and callbacks run on the interactive loop.
type Calibrator struct {
	state  *State
	canvas *canvas.Canvas

	devices     *scan.DeviceFinder
	resolutions *scan.ResolutionFinder
	calibration *scan.CalibrationScan
	progress    *jobs.Factory

	step        Step
	device      scan.Device
	drawer      *canvas.ScanDrawer
	handler     *imgcut.Handler
	progressJob *jobs.Job
	err         error

	// OnStatus receives a human readable status line.
	OnStatus func(string)
	// OnProgress receives the scan progress in [0, 1].
	OnProgress func(float64)
	// OnCropReady receives the crop handler once the scan is shown.
	OnCropReady func(*imgcut.Handler)
}

// NewCalibrator creates a calibrator scanning from b onto c.
func NewCalibrator(s *State, b scan.Backend, c *canvas.Canvas) *Calibrator {
	return &Calibrator{
		state:       s,
		canvas:      c,
		devices:     scan.NewDeviceFinder(b),
		resolutions: scan.NewResolutionFinder(scan.RecommendedResolution),
		calibration: scan.NewCalibrationScan(),
		progress:    jobs.NewFactory("CalibrationProgress"),
	}
}

// Step returns where the calibration is.
func (k *Calibrator) Step() Step { return k.step }

// Err returns why the last calibration failed.
func (k *Calibrator) Err() error { return k.err }

// Device returns the device in use, or nil.
func (k *Calibrator) Device() scan.Device { return k.device }

// Drawer returns the scan drawer of the running or last scan.
func (k *Calibrator) Drawer() *canvas.ScanDrawer { return k.drawer }

// Handler returns the crop handler once the scan finished.
func (k *Calibrator) Handler() *imgcut.Handler { return k.handler }

// Start begins a calibration with the configured device and resolution.
func (k *Calibrator) Start() error {
	cfg := k.state.Config()
	if !k.state.BeginScan(cfg.ScanDevice) {
		return ErrScanInProgress
	}
	if k.handler != nil {
		k.handler.Close()
		k.handler = nil
	}
	k.device, k.drawer, k.err = nil, nil, nil

	k.setStep(StepDevices, "Looking for scan devices ...")
	job := k.devices.Make(cfg.ScanDevice, k.onDevices)
	if err := k.state.Main().Schedule(job); err != nil {
		k.fail(err)
		return err
	}
	return nil
}

func (k *Calibrator) onDevices(ev jobs.Event) {
	switch ev.Kind {
	case jobs.EventFailed:
		k.fail(ev.Err)
		return
	case jobs.EventCancelled:
		k.fail(errors.New("device discovery cancelled"))
		return
	case jobs.EventProgress:
		return
	}

	found, _ := ev.Value.([]scan.DeviceFound)
	var pick *scan.DeviceFound
	for i := range found {
		if found[i].Selected {
			pick = &found[i]
			break
		}
	}
	if pick == nil && len(found) > 0 {
		pick = &found[0]
	}
	if pick == nil {
		k.fail(scan.ErrNoDevice)
		return
	}
	k.device = pick.Device

	cfg := k.state.Config()
	if cfg.ScanDevice != pick.ID {
		cfg.ScanDevice = pick.ID
		k.state.SetConfig(cfg)
	}

	k.setStep(StepResolutions, "Loading resolutions of "+pick.Name+" ...")
	job := k.resolutions.Make(k.device, cfg.ScanResolution, k.onResolutions)
	if err := k.state.Main().Schedule(job); err != nil {
		k.fail(err)
	}
}

func (k *Calibrator) onResolutions(ev jobs.Event) {
	switch ev.Kind {
	case jobs.EventFailed:
		k.fail(ev.Err)
		return
	case jobs.EventCancelled:
		k.fail(errors.New("resolution discovery cancelled"))
		return
	case jobs.EventProgress:
		return
	}

	found, _ := ev.Value.([]scan.ResolutionFound)
	values := make([]int, len(found))
	for i, rf := range found {
		values[i] = rf.Value
	}
	resolution := scan.CalibrationResolution(values)

	k.canvas.RemoveAllDrawers()
	k.canvas.UnforceSize()
	k.drawer = canvas.NewScanDrawer(geometry.Point2D{}, k.canvas.VisibleSize(), k.state.Progress())
	k.canvas.AddDrawer(k.drawer)

	k.setStep(StepScanning, "Scanning ...")
	scanJob := k.calibration.Make(k.device, values, k.onScan)
	if err := k.state.Main().Schedule(scanJob); err != nil {
		k.fail(err)
		return
	}

	estimate := k.state.Config().EstimatedScanTime(resolution)
	var job *jobs.Job
	job = jobs.MakeProgressUpdater(k.progress, 0, 1, estimate, func(v float64) {
		// events of a cancelled updater may still be queued
		if k.progressJob == job {
			k.reportProgress(v)
		}
	})
	k.progressJob = job
	if err := k.state.Progress().Schedule(job); err != nil {
		log.WithError(err).Debug("no progress bar")
		k.progressJob = nil
	}
}

func (k *Calibrator) onScan(ev jobs.Event) {
	switch ev.Kind {
	case jobs.EventProgress:
		k.onScanProgress(ev.Value)
	case jobs.EventDone:
		res, _ := ev.Value.(scan.ScanResult)
		k.onScanDone(res)
	case jobs.EventFailed:
		k.fail(ev.Err)
	case jobs.EventCancelled:
		k.fail(errors.New("calibration scan cancelled"))
	}
}

func (k *Calibrator) onScanProgress(v any) {
	switch p := v.(type) {
	case scan.ScanStarted:
		log.WithFields(logrus.Fields{"session": p.Session, "resolution": p.Resolution}).Info("calibration scan started")
	case scan.ScanInfo:
		k.drawer.SetExpectedSize(p.ExpectedSize)
		k.canvas.UpdActors()
	case scan.ScanChunk:
		if err := k.drawer.AddChunk(p.Image); err != nil {
			log.WithError(err).WithField("line", p.Line).Warn("chunk dropped")
		}
	}
}

func (k *Calibrator) onScanDone(res scan.ScanResult) {
	k.stopProgress()
	k.reportProgress(1)
	k.drawer.Finish()
	k.state.FinishScan(res.Resolution, res.Duration)

	if res.Image == nil {
		k.fail(errors.New("calibration scan returned no image"))
		return
	}
	h := imgcut.New(res.Image, k.canvas)
	h.SetVisible(true)
	h.OnGripMoved(func() { k.state.SetCrop(h.GetCoords()) })
	k.handler = h
	k.state.SetCrop(h.GetCoords())

	k.setStep(StepCropping, "Select the area to scan")
	if k.OnCropReady != nil {
		k.OnCropReady(h)
	}
}

func (k *Calibrator) fail(err error) {
	k.stopProgress()
	if k.drawer != nil {
		k.drawer.Finish()
	}
	k.err = err
	if k.state.Scanning() {
		k.state.FailScan(err)
	}
	log.WithError(err).Warn("calibration failed")
	k.setStep(StepFailed, "Calibration failed: "+err.Error())
}

func (k *Calibrator) stopProgress() {
	if k.progressJob != nil {
		k.state.Progress().Cancel(k.progressJob)
		k.progressJob = nil
	}
}

func (k *Calibrator) reportProgress(v float64) {
	if k.OnProgress != nil {
		k.OnProgress(v)
	}
}

func (k *Calibrator) setStep(step Step, status string) {
	k.step = step
	log.WithField("step", step).Debug(status)
	if k.OnStatus != nil {
		k.OnStatus(status)
	}
}
