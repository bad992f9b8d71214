package jobs

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// ErrSchedulerStopped is returned when scheduling on a stopped scheduler.
var ErrSchedulerStopped = errors.New("scheduler stopped")

// Poster hands a task over to the interactive thread.
type Poster interface {
	Post(fn func())
}

// PosterFunc adapts a function to the Poster interface.
type PosterFunc func(fn func())

// Post calls f(fn).
func (f PosterFunc) Post(fn func()) { f(fn) }

// Scheduler runs jobs one at a time on its own worker goroutine, in
// (priority, insertion order) order. Several schedulers may run side by side;
// there is no ordering between them.
type Scheduler struct {
	name   string
	poster Poster
	log    *logrus.Entry

	mu       sync.Mutex
	cond     *sync.Cond
	pending  jobQueue
	seq      uint64
	running  *Job
	started  bool
	stopping bool
	done     chan struct{}
}

// NewScheduler creates a stopped scheduler delivering events through poster.
// Jobs may be scheduled before Start; they run once it is called.
func NewScheduler(name string, poster Poster) *Scheduler {
	s := &Scheduler{
		name:   name,
		poster: poster,
		log:    log.WithField("scheduler", name),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Name returns the scheduler name.
func (s *Scheduler) Name() string { return s.name }

// Start launches the worker goroutine. Calling Start on a running scheduler
// does nothing.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.stopping = false
	s.done = make(chan struct{})
	go s.work(s.done)
	s.log.Debug("scheduler started")
}

// Stop drops every pending job, cancels the running job if it is cancelable
// and waits for the worker to return. A running non-cancelable job is waited
// for. The scheduler can be started again afterwards.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.stopping = true
		dropped := s.drainPending()
		s.mu.Unlock()
		s.dropAll(dropped)
		return
	}
	s.started = false
	s.stopping = true
	dropped := s.drainPending()
	running := s.running
	done := s.done
	s.cond.Broadcast()
	s.mu.Unlock()

	if running != nil && running.cancelable {
		running.requestCancel()
	}
	s.dropAll(dropped)
	<-done
	s.log.Debug("scheduler stopped")
}

// Schedule queues job. Scheduling a job that is already queued, running or
// finished is ignored.
func (s *Scheduler) Schedule(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopping {
		s.log.WithField("job", job.Name()).Warn("schedule on stopped scheduler")
		return fmt.Errorf("schedule %s: %w", job.Name(), ErrSchedulerStopped)
	}
	if job.owner != nil || job.State() != StatePending {
		s.log.WithField("job", job.Name()).Debug("job already scheduled, ignored")
		return nil
	}

	s.seq++
	job.seq = s.seq
	job.owner = s
	heap.Push(&s.pending, job)
	s.cond.Signal()
	s.log.WithFields(logrus.Fields{"job": job.Name(), "priority": job.priority}).Debug("job scheduled")
	return nil
}

// Cancel removes a pending job without running it, or asks a running
// cancelable job to stop early. Cancelling a running non-cancelable job does
// nothing; its result still gets delivered.
func (s *Scheduler) Cancel(job *Job) {
	s.mu.Lock()
	if job.owner == s && job.index >= 0 {
		heap.Remove(&s.pending, job.index)
		s.mu.Unlock()
		s.log.WithField("job", job.Name()).Debug("pending job cancelled")
		if job.transition(StateCancelled) {
			s.deliver(Event{Job: job, Kind: EventCancelled})
		}
		return
	}
	running := s.running == job
	s.mu.Unlock()

	if running && job.cancelable {
		s.log.WithField("job", job.Name()).Debug("cancelling running job")
		job.requestCancel()
	}
}

// Pending returns the queued jobs in the order they will run.
func (s *Scheduler) Pending() []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	jobs := make([]*Job, len(s.pending))
	copy(jobs, s.pending)
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].priority != jobs[j].priority {
			return jobs[i].priority < jobs[j].priority
		}
		return jobs[i].seq < jobs[j].seq
	})
	return jobs
}

// Running returns the job currently executing, or nil.
func (s *Scheduler) Running() *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) drainPending() []*Job {
	dropped := make([]*Job, 0, len(s.pending))
	for s.pending.Len() > 0 {
		dropped = append(dropped, heap.Pop(&s.pending).(*Job))
	}
	return dropped
}

func (s *Scheduler) dropAll(jobs []*Job) {
	for _, job := range jobs {
		if job.transition(StateCancelled) {
			s.deliver(Event{Job: job, Kind: EventCancelled})
		}
	}
}

func (s *Scheduler) work(done chan struct{}) {
	defer close(done)
	for {
		s.mu.Lock()
		for s.pending.Len() == 0 && !s.stopping {
			s.cond.Wait()
		}
		if s.stopping {
			s.mu.Unlock()
			return
		}
		job := heap.Pop(&s.pending).(*Job)
		ctx, cancel := context.WithCancel(context.Background())
		job.begin(cancel)
		s.running = job
		s.mu.Unlock()

		s.execute(ctx, job)
		cancel()

		s.mu.Lock()
		s.running = nil
		s.mu.Unlock()
	}
}

func (s *Scheduler) execute(ctx context.Context, job *Job) {
	jlog := s.log.WithField("job", job.Name())
	jlog.Debug("job started")

	runCtx := ctx
	if !job.cancelable {
		runCtx = context.Background()
	}

	value, err := s.call(runCtx, ctx, job)
	switch {
	case job.cancelable && ctx.Err() != nil:
		jlog.Debug("job cancelled")
		if job.transition(StateCancelled) {
			s.deliver(Event{Job: job, Kind: EventCancelled})
		}
	case err != nil:
		jlog.WithError(err).Warn("job failed")
		if job.transition(StateFailed) {
			s.deliver(Event{Job: job, Kind: EventFailed, Err: err})
		}
	default:
		jlog.Debug("job done")
		if job.transition(StateDone) {
			s.deliver(Event{Job: job, Kind: EventDone, Value: value})
		}
	}
}

// call runs the job body, turning a panic into an error.
func (s *Scheduler) call(runCtx, ctx context.Context, job *Job) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.WithField("job", job.Name()).Errorf("job panicked: %v", r)
			value, err = nil, fmt.Errorf("job %s panicked: %v", job.Name(), r)
		}
	}()
	progress := func(v any) {
		if ctx.Err() != nil {
			return
		}
		s.deliver(Event{Job: job, Kind: EventProgress, Value: v})
	}
	return job.fn(runCtx, progress)
}

func (s *Scheduler) deliver(ev Event) {
	handler := ev.Job.handler
	if handler == nil || s.poster == nil {
		return
	}
	s.poster.Post(func() { handler(ev) })
}
