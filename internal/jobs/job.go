// Package jobs runs slow work (image decoding, device discovery, scans) off
// the interactive thread and hands the results back to it.
//
// A Factory makes Jobs bound to one piece of work and to a Handler. A
// Scheduler runs its jobs one at a time, most urgent first, and posts every
// event a job produces to a Poster (the interactive thread's task queue), so
// handlers never run on a worker goroutine.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "jobs")

// State is the lifecycle state of a Job.
type State int

const (
	StatePending State = iota
	StateRunning
	StateDone
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed || s == StateCancelled
}

// EventKind identifies what a job reported.
type EventKind int

const (
	EventProgress EventKind = iota
	EventDone
	EventFailed
	EventCancelled
)

func (k EventKind) String() string {
	switch k {
	case EventProgress:
		return "progress"
	case EventDone:
		return "done"
	case EventFailed:
		return "failed"
	case EventCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Event is delivered to a job's Handler on the interactive thread. Value
// carries the progress payload or the final result; Err is set for
// EventFailed.
type Event struct {
	Job   *Job
	Kind  EventKind
	Value any
	Err   error
}

// Handler consumes job events. It always runs on the interactive thread.
type Handler func(Event)

// Func is the unit of work of a job. It may call progress any number of times
// before returning its result. ctx is only ever cancelled for cancelable jobs.
type Func func(ctx context.Context, progress func(any)) (any, error)

// Job is a unit of deferred work.
type Job struct {
	id         int64
	factory    string
	priority   int
	cancelable bool
	fn         Func
	handler    Handler

	mu              sync.Mutex
	state           State
	cancel          context.CancelFunc
	cancelRequested bool

	// Guarded by the owning scheduler's mutex.
	owner *Scheduler
	seq   uint64
	index int
}

// ID returns the job identifier, unique and increasing per factory.
func (j *Job) ID() int64 { return j.id }

// Name returns "<factory>#<id>".
func (j *Job) Name() string { return fmt.Sprintf("%s#%d", j.factory, j.id) }

// Priority returns the scheduling priority. Lower values run first.
func (j *Job) Priority() int { return j.priority }

// Cancelable reports whether the job honours cancellation while running.
func (j *Job) Cancelable() bool { return j.cancelable }

// State returns the current lifecycle state.
func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

func (j *Job) String() string {
	return fmt.Sprintf("%s(prio=%d, %s)", j.Name(), j.priority, j.State())
}

// transition moves the job to state unless it already reached a terminal
// state. It returns false when the transition was refused.
func (j *Job) transition(state State) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state.Terminal() {
		return false
	}
	j.state = state
	return true
}

func (j *Job) begin(cancel context.CancelFunc) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.state = StateRunning
	j.cancel = cancel
}

func (j *Job) requestCancel() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.cancelRequested = true
	if j.cancel != nil {
		j.cancel()
	}
}

// Factory makes jobs for one kind of work and numbers them.
type Factory struct {
	name string
	ids  atomic.Int64
}

// NewFactory creates a factory. The name shows up in job names and logs.
func NewFactory(name string) *Factory {
	return &Factory{name: name}
}

// Name returns the factory name.
func (f *Factory) Name() string { return f.name }

// Make creates a pending job running fn and reporting to handler.
func (f *Factory) Make(priority int, cancelable bool, fn Func, handler Handler) *Job {
	return &Job{
		id:         f.ids.Add(1),
		factory:    f.name,
		priority:   priority,
		cancelable: cancelable,
		fn:         fn,
		handler:    handler,
		state:      StatePending,
		index:      -1,
	}
}
