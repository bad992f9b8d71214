package jobs

import (
	"context"
	"time"
)

// ProgressInterval is how often a progress updater reports.
const ProgressInterval = 100 * time.Millisecond

// ProgressUpdater returns work that reports a purely time-based fraction:
// valueMin + (valueMax-valueMin) * elapsed/total, every ProgressInterval,
// until total has elapsed. It knows nothing about the operation it shadows.
func ProgressUpdater(valueMin, valueMax float64, total time.Duration) Func {
	return progressUpdater(valueMin, valueMax, total, ProgressInterval)
}

func progressUpdater(valueMin, valueMax float64, total, interval time.Duration) Func {
	return func(ctx context.Context, progress func(any)) (any, error) {
		start := time.Now()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			frac := 1.0
			if total > 0 {
				frac = min(1.0, float64(time.Since(start))/float64(total))
			}
			progress(valueMin + (valueMax-valueMin)*frac)
			if frac >= 1.0 {
				return valueMax, nil
			}

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-ticker.C:
			}
		}
	}
}

// MakeProgressUpdater creates a cancelable progress updater job. onProgress
// receives each interpolated value on the interactive thread. Cancel the job
// as soon as the real operation completes.
func MakeProgressUpdater(f *Factory, valueMin, valueMax float64, total time.Duration, onProgress func(float64)) *Job {
	return f.Make(PriorityProgress, true, ProgressUpdater(valueMin, valueMax, total), func(ev Event) {
		if ev.Kind != EventProgress || onProgress == nil {
			return
		}
		if v, ok := ev.Value.(float64); ok {
			onProgress(v)
		}
	})
}

// Animator returns work that reports an increasing frame number every
// interval until it is cancelled.
func Animator(interval time.Duration) Func {
	return func(ctx context.Context, progress func(any)) (any, error) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for frame := 0; ; frame++ {
			progress(frame)
			select {
			case <-ctx.Done():
				return frame, ctx.Err()
			case <-ticker.C:
			}
		}
	}
}
