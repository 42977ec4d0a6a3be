package ratelimit

import (
	"sync"
	"time"
)

// globalBreaker trips when the shared resource-intensive concurrency
// counter exceeds 1.5x max_global_concurrent and rejects all requests
// for recoveryTime, distinct from the job queue's failure-counting
// breaker (internal/queue.CircuitBreaker): this one reacts to
// saturation, not to downstream errors.
type globalBreaker struct {
	mu        sync.Mutex
	recovery  time.Duration
	openUntil time.Time
}

func newGlobalBreaker(recovery time.Duration) *globalBreaker {
	return &globalBreaker{recovery: recovery}
}

func (b *globalBreaker) open() (bool, time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openUntil.IsZero() {
		return false, 0
	}
	now := time.Now()
	if now.After(b.openUntil) {
		b.openUntil = time.Time{}
		return false, 0
	}
	return true, b.openUntil.Sub(now)
}

func (b *globalBreaker) trip() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.openUntil = time.Now().Add(b.recovery)
}

func (b *globalBreaker) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.openUntil = time.Time{}
}
