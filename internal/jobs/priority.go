package jobs

// Priority bands used by callers. Lower values are scheduled first among the
// jobs pending on one scheduler.
const (
	PriorityDeviceFinder     = 500
	PriorityCalibrationScan  = 495
	PriorityResolutionFinder = 490
	PriorityOCRLangFinder    = 480
	PriorityOCR              = 400
	PriorityPageLoader       = 350

	// PriorityProgress is used for purely cosmetic animation jobs, which
	// live on their own scheduler and never compete with real work.
	PriorityProgress = 1000
)
