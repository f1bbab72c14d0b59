package actor

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// ReadyQueueWorker drives an ActorScheduler's ready queue cooperatively: it
// calls DispatchNext in a loop, blocking on the scheduler's wake signal
// when nothing is ready, and returns cleanly once the supplied
// ShutdownToken triggers. Concurrent workers sharing one scheduler are
// bounded by a golang.org/x/sync/semaphore.Weighted sized to
// SchedulerConfig.ReadyQueueWorkerCount, so embedders can spawn more
// worker goroutines than the configured count without over-subscribing
// dispatch.
type ReadyQueueWorker struct {
	sched    *ActorScheduler
	shutdown *ShutdownToken
	sem      *semaphore.Weighted
}

// NewReadyQueueWorker builds a worker bounded to sched's configured
// ReadyQueueWorkerCount.
func NewReadyQueueWorker(sched *ActorScheduler, shutdown *ShutdownToken) *ReadyQueueWorker {
	weight := int64(sched.config.ReadyQueueWorkerCount)
	if weight < 1 {
		weight = 1
	}
	return &ReadyQueueWorker{sched: sched, shutdown: shutdown, sem: semaphore.NewWeighted(weight)}
}

// Run blocks, processing ready cells until ctx is cancelled or shutdown
// triggers. Callers typically invoke Run from ReadyQueueWorkerCount
// goroutines sharing the same *ReadyQueueWorker.
func (w *ReadyQueueWorker) Run(ctx context.Context) error {
	if err := w.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer w.sem.Release(1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.shutdown.Done():
			return nil
		default:
		}

		if w.sched.DispatchNext() {
			continue
		}

		if !w.WaitForReady(ctx) {
			return nil
		}
	}
}

// ProcessReadyOnce dispatches exactly one ready cell, if any, without
// blocking. It reports whether work was actually performed, for embedders
// driving the scheduler from their own event loop (e.g. the in-process
// test harness) rather than a background goroutine.
func (w *ReadyQueueWorker) ProcessReadyOnce() bool {
	return w.sched.DispatchNext()
}

// WaitForReady blocks until either new work is signalled, ctx is done, or
// shutdown triggers. It returns false if the caller should stop (ctx done
// or shutdown triggered) rather than loop again.
func (w *ReadyQueueWorker) WaitForReady(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-w.shutdown.Done():
		return false
	case <-w.sched.wake.Wait():
		return true
	}
}
