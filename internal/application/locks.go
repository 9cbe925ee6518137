package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/example/console-booking/internal/metrics"
	"golang.org/x/sync/semaphore"
)

// DefaultLockTimeout bounds how long a mutation waits for its resource.
const DefaultLockTimeout = 2 * time.Second

// ResourceLocks serializes mutations per resource. Reads never take these locks.
type ResourceLocks struct {
	timeout time.Duration
	metrics metrics.Recorder

	mu   sync.Mutex
	sems map[string]*semaphore.Weighted
}

// NewResourceLocks constructs a lock set. A non-positive timeout selects DefaultLockTimeout.
func NewResourceLocks(timeout time.Duration, recorder metrics.Recorder) *ResourceLocks {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	if recorder == nil {
		recorder = metrics.NewNoopMetrics()
	}
	return &ResourceLocks{
		timeout: timeout,
		metrics: recorder,
		sems:    make(map[string]*semaphore.Weighted),
	}
}

func (l *ResourceLocks) semaphore(resourceID string) *semaphore.Weighted {
	l.mu.Lock()
	defer l.mu.Unlock()
	sem, ok := l.sems[resourceID]
	if !ok {
		sem = semaphore.NewWeighted(1)
		l.sems[resourceID] = sem
	}
	return sem
}

// Acquire takes the lock for resourceID. It returns ErrBusy when the lock is not
// free within the timeout and the caller's context error when ctx ends first.
func (l *ResourceLocks) Acquire(ctx context.Context, resourceID string) (release func(), err error) {
	sem := l.semaphore(resourceID)
	started := time.Now()

	waitCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	if err := sem.Acquire(waitCtx, 1); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrBusy
		}
		return nil, err
	}
	l.metrics.RecordLockWait(resourceID, time.Since(started))

	var once sync.Once
	return func() { once.Do(func() { sem.Release(1) }) }, nil
}
