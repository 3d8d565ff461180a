package deconz

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// submitQueue is a bounded-concurrency FIFO executor gating driver
// submissions. Work is admitted in arrival order and at most
// `concurrent` items run at once; it does not guarantee completion order
// across items, only that submission to the driver happens in admission
// order per slot. delay additionally paces consecutive submissions no
// closer together than the configured interval.
type submitQueue struct {
	sem   chan struct{}
	delay time.Duration

	mu      sync.Mutex
	lastRun time.Time

	log zerolog.Logger
}

func newSubmitQueue(concurrent int, delay time.Duration, log zerolog.Logger) *submitQueue {
	if concurrent <= 0 {
		concurrent = 2
	}
	return &submitQueue{
		sem:   make(chan struct{}, concurrent),
		delay: delay,
		log:   log,
	}
}

// run blocks until a concurrency slot is free and the pacing delay has
// elapsed since the previous submission, then executes fn while holding
// the slot. The caller supplies fn; run itself never touches the driver
// directly, keeping the queue ignorant of what it is gating.
func (q *submitQueue) run(ctx context.Context, fn func(context.Context) error) error {
	select {
	case q.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-q.sem }()

	if q.delay > 0 {
		q.mu.Lock()
		wait := time.Until(q.lastRun.Add(q.delay))
		if wait > 0 {
			q.mu.Unlock()
			t := time.NewTimer(wait)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			}
			q.mu.Lock()
		}
		q.lastRun = time.Now()
		q.mu.Unlock()
	}

	return fn(ctx)
}
