// Package loop is the privileged thread: the one goroutine allowed to
// touch host state, run commands and analyze heaps. Other goroutines hand
// it work and wait.
package loop

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrStopped is returned for work handed to a loop that is not running
var ErrStopped = errors.New("loop stopped")

type job struct {
	fn   func()
	done chan struct{}
}

type Loop struct {
	jobs    chan job
	stopped chan struct{}
	running atomic.Bool
}

func New() *Loop {
	return &Loop{
		jobs:    make(chan job),
		stopped: make(chan struct{}),
	}
}

// Run executes posted work until ctx is done. It must be called once.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return errors.New("loop already running")
	}
	defer close(l.stopped)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case j := <-l.jobs:
			j.fn()
			if j.done != nil {
				close(j.done)
			}
		}
	}
}

// Do runs fn on the loop and waits for it to finish. It returns early if
// ctx is done or the loop stops before picking fn up. Calling Do from
// the loop itself deadlocks.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case l.jobs <- job{fn: fn, done: done}:
	case <-l.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	// Once picked up fn runs to completion, there is no cancelling it
	<-done
	return nil
}

// Post hands fn to the loop without waiting for it to run
func (l *Loop) Post(fn func()) {
	go func() {
		select {
		case l.jobs <- job{fn: fn}:
		case <-l.stopped:
		}
	}()
}

// Stopped is closed once Run has returned
func (l *Loop) Stopped() <-chan struct{} {
	return l.stopped
}
