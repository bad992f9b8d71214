// Package loop provides the task queue of the interactive thread.
//
// Everything that touches canvas, drawer or grip state runs as a task on the
// loop: job events posted by schedulers, pointer and scroll events posted by
// the host widget. Tasks run in the order they were posted, one at a time, on
// whichever goroutine drains the loop.
package loop

import (
	"context"
	"sync"
)

// Loop is a single-consumer FIFO of tasks.
type Loop struct {
	mu    sync.Mutex
	tasks []func()
	wake  chan struct{}
}

// New creates an empty loop.
func New() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Post queues fn to run on the interactive thread. Safe for concurrent use;
// never blocks.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.tasks = append(l.tasks, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Wake returns a channel that receives a value whenever tasks are posted.
// Hosts that drive their own tick can select on it and call Drain.
func (l *Loop) Wake() <-chan struct{} {
	return l.wake
}

// Drain runs every task queued so far on the calling goroutine and returns
// how many ran. Tasks posted while draining run in the same call.
func (l *Loop) Drain() int {
	n := 0
	for {
		l.mu.Lock()
		batch := l.tasks
		l.tasks = nil
		l.mu.Unlock()

		if len(batch) == 0 {
			return n
		}
		for _, fn := range batch {
			fn()
		}
		n += len(batch)
	}
}

// Len returns the number of queued tasks.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tasks)
}

// Run drains the loop each time work is posted, until ctx is done. The
// goroutine calling Run becomes the interactive thread.
func (l *Loop) Run(ctx context.Context) error {
	l.Drain()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
			l.Drain()
		}
	}
}
