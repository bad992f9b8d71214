package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestProgressUpdaterInterpolatesToMax(t *testing.T) {
	var values []float64
	fn := progressUpdater(0, 1, 40*time.Millisecond, 5*time.Millisecond)

	result, err := fn(context.Background(), func(v any) { values = append(values, v.(float64)) })
	require.NoError(t, err)
	require.Equal(t, 1.0, result)
	require.GreaterOrEqual(t, len(values), 2)
	require.Equal(t, 1.0, values[len(values)-1])
	for i := 1; i < len(values); i++ {
		require.GreaterOrEqual(t, values[i], values[i-1])
		require.LessOrEqual(t, values[i], 1.0)
	}
}

func TestProgressUpdaterZeroTotalReportsMaxImmediately(t *testing.T) {
	var values []float64
	fn := ProgressUpdater(0.2, 0.8, 0)
	_, err := fn(context.Background(), func(v any) { values = append(values, v.(float64)) })
	require.NoError(t, err)
	require.Equal(t, []float64{0.8}, values)
}

func TestProgressUpdaterJobIsCancelable(t *testing.T) {
	s, l := newTestScheduler(t, "progress")
	f := NewFactory("ProgressUpdater")

	var last float64
	job := MakeProgressUpdater(f, 0, 1, time.Hour, func(v float64) { last = v })
	require.True(t, job.Cancelable())
	require.Equal(t, PriorityProgress, job.Priority())

	require.NoError(t, s.Schedule(job))
	s.Start()
	require.Eventually(t, func() bool { return job.State() == StateRunning }, time.Second, time.Millisecond)

	s.Cancel(job)
	drainUntil(t, l, func() bool { return job.State() == StateCancelled })
	require.Less(t, last, 0.01)
}

func TestAnimatorCountsFramesUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var frames []int
	fn := Animator(time.Millisecond)

	done := make(chan error, 1)
	go func() {
		_, err := fn(ctx, func(v any) {
			frames = append(frames, v.(int))
			if len(frames) == 3 {
				cancel()
			}
		})
		done <- err
	}()
	require.ErrorIs(t, <-done, context.Canceled)
	require.Equal(t, []int{0, 1, 2}, frames[:3])
}
