package core

// execution_limiter.go bounds how many imports execute at once in this
// process and refuses a second execution of an import that is already
// running here. Cross-process exclusion is the Locker's job.
//
// When all slots are taken, Acquire waits up to maxWait before failing with
// ErrTooManyImports. WaitForDrain lets shutdown wait for running imports.

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrTooManyImports is returned when no execution slot frees up in time.
var ErrTooManyImports = errors.New("too many imports running, please try again later")

const (
	// DefaultMaxConcurrentImports is the default limit for parallel executions.
	DefaultMaxConcurrentImports = 5

	// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
	DefaultMaxWaitTime = 30 * time.Second
)

// ExecutionLimiter is a semaphore keyed by import id.
type ExecutionLimiter struct {
	slots   chan struct{}
	maxWait time.Duration

	mu      sync.Mutex
	running map[string]time.Time
	waiting map[string]bool
}

// NewExecutionLimiter allows at most maxConcurrent simultaneous executions.
func NewExecutionLimiter(maxConcurrent int, maxWait time.Duration) *ExecutionLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentImports
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	return &ExecutionLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
		running: make(map[string]time.Time),
		waiting: make(map[string]bool),
	}
}

// Acquire reserves a slot for importID. The returned release func is safe to
// call more than once.
func (l *ExecutionLimiter) Acquire(ctx context.Context, importID string) (func(), error) {
	l.mu.Lock()
	if _, busy := l.running[importID]; busy || l.waiting[importID] {
		l.mu.Unlock()
		return nil, ErrImportLocked
	}
	l.waiting[importID] = true
	l.mu.Unlock()

	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
	case <-timer.C:
		l.abandon(importID)
		return nil, ErrTooManyImports
	case <-ctx.Done():
		l.abandon(importID)
		return nil, ctx.Err()
	}

	l.mu.Lock()
	delete(l.waiting, importID)
	l.running[importID] = time.Now()
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.running, importID)
			l.mu.Unlock()
			<-l.slots
		})
	}, nil
}

func (l *ExecutionLimiter) abandon(importID string) {
	l.mu.Lock()
	delete(l.waiting, importID)
	l.mu.Unlock()
}

// Active returns the number of running executions.
func (l *ExecutionLimiter) Active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.running)
}

// Running returns the ids of running imports, longest-running first.
func (l *ExecutionLimiter) Running() []string {
	l.mu.Lock()
	ids := make([]string, 0, len(l.running))
	started := make(map[string]time.Time, len(l.running))
	for id, t := range l.running {
		ids = append(ids, id)
		started[id] = t
	}
	l.mu.Unlock()

	sort.Slice(ids, func(i, j int) bool {
		if started[ids[i]].Equal(started[ids[j]]) {
			return ids[i] < ids[j]
		}
		return started[ids[i]].Before(started[ids[j]])
	})
	return ids
}

// WaitForDrain blocks until no execution is running or ctx is done.
func (l *ExecutionLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.Active() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// LimiterStatus is a snapshot for the health endpoint.
type LimiterStatus struct {
	Active        int      `json:"active"`
	Available     int      `json:"available"`
	MaxConcurrent int      `json:"maxConcurrent"`
	Running       []string `json:"running"`
}

// Status returns the current limiter state.
func (l *ExecutionLimiter) Status() LimiterStatus {
	running := l.Running()
	return LimiterStatus{
		Active:        len(running),
		Available:     cap(l.slots) - len(l.slots),
		MaxConcurrent: cap(l.slots),
		Running:       running,
	}
}
