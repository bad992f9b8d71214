// Package app provides application lifecycle management, configuration, and events.
package app

import (
	"image"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"paperscan/internal/document"
	"paperscan/internal/imgdecode"
	"paperscan/internal/jobs"
	"paperscan/internal/loop"
)

var log = logrus.WithField("component", "app")

// State holds the application state: the interactive loop, the job
// schedulers, the settings, the open document and the current crop.
type State struct {
	mu sync.RWMutex

	loop     *loop.Loop
	main     *jobs.Scheduler
	progress *jobs.Scheduler

	config   Config
	document *document.Document
	crop     image.Rectangle
	scanning bool

	// Event listeners
	listeners map[EventType][]EventListener
}

// EventType identifies different application events.
type EventType int

const (
	EventDocumentOpened EventType = iota
	EventConfigChanged
	EventScanStarted
	EventScanFinished
	EventScanFailed
	EventCropChanged
)

func (e EventType) String() string {
	switch e {
	case EventDocumentOpened:
		return "document-opened"
	case EventConfigChanged:
		return "config-changed"
	case EventScanStarted:
		return "scan-started"
	case EventScanFinished:
		return "scan-finished"
	case EventScanFailed:
		return "scan-failed"
	case EventCropChanged:
		return "crop-changed"
	default:
		return "unknown"
	}
}

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// NewState creates the application state. Schedulers are created stopped;
// call Start.
func NewState(cfg Config) *State {
	l := loop.New()
	return &State{
		loop:      l,
		main:      jobs.NewScheduler("main", l),
		progress:  jobs.NewScheduler("progress", l),
		config:    cfg.Sanitize(),
		listeners: make(map[EventType][]EventListener),
	}
}

// Loop returns the interactive thread's task queue.
func (s *State) Loop() *loop.Loop { return s.loop }

// Main returns the scheduler for decoding, discovery and scans.
func (s *State) Main() *jobs.Scheduler { return s.main }

// Progress returns the scheduler for progress bars and animations.
func (s *State) Progress() *jobs.Scheduler { return s.progress }

// Start starts both schedulers.
func (s *State) Start() {
	s.main.Start()
	s.progress.Start()
	log.Debug("schedulers started")
}

// Stop stops both schedulers, cancelling whatever they still hold.
func (s *State) Stop() {
	s.progress.Stop()
	s.main.Stop()
	log.Debug("schedulers stopped")
}

// On registers an event listener for the specified event type.
func (s *State) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *State) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	log.WithField("event", event).Debug("emit")
	for _, listener := range listeners {
		listener(data)
	}
}

// Config returns a copy of the current settings.
func (s *State) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg := s.config
	cfg.ScanSamples = append([]ScanSample(nil), s.config.ScanSamples...)
	return cfg
}

// SetConfig replaces the settings. Invalid fields fall back to defaults.
func (s *State) SetConfig(cfg Config) {
	cfg = cfg.Sanitize()
	s.mu.Lock()
	s.config = cfg
	s.mu.Unlock()
	s.Emit(EventConfigChanged, cfg)
}

// Decoder returns the image decoder selected in the settings.
func (s *State) Decoder() imgdecode.Decoder {
	name := s.Config().Decoder
	dec, err := imgdecode.ForName(name)
	if err != nil {
		log.WithError(err).WithField("decoder", name).Warn("falling back to std decoder")
		return imgdecode.StdDecoder{}
	}
	return dec
}

// Document returns the open document, or nil.
func (s *State) Document() *document.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.document
}

// OpenDocument makes doc the current document.
func (s *State) OpenDocument(doc *document.Document) {
	s.mu.Lock()
	s.document = doc
	s.crop = image.Rectangle{}
	s.mu.Unlock()
	log.WithFields(logrus.Fields{"document": doc.Name, "pages": len(doc.Pages)}).Info("document opened")
	s.Emit(EventDocumentOpened, doc)
}

// Scanning reports whether a scan is in progress.
func (s *State) Scanning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scanning
}

// BeginScan marks a scan as started. It returns false if one is already
// running.
func (s *State) BeginScan(deviceID string) bool {
	s.mu.Lock()
	if s.scanning {
		s.mu.Unlock()
		return false
	}
	s.scanning = true
	s.mu.Unlock()
	s.Emit(EventScanStarted, deviceID)
	return true
}

// FinishScan records the scan duration for later estimates and ends the
// scan.
func (s *State) FinishScan(resolution int, d time.Duration) {
	s.mu.Lock()
	s.scanning = false
	s.config.RecordScan(resolution, d)
	s.mu.Unlock()
	s.Emit(EventScanFinished, d)
}

// FailScan ends the scan with err.
func (s *State) FailScan(err error) {
	s.mu.Lock()
	s.scanning = false
	s.mu.Unlock()
	s.Emit(EventScanFailed, err)
}

// Crop returns the current crop rectangle in image pixels.
func (s *State) Crop() image.Rectangle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.crop
}

// SetCrop stores the crop rectangle and notifies listeners when it changed.
func (s *State) SetCrop(r image.Rectangle) {
	s.mu.Lock()
	if s.crop == r {
		s.mu.Unlock()
		return
	}
	s.crop = r
	s.mu.Unlock()
	s.Emit(EventCropChanged, r)
}
