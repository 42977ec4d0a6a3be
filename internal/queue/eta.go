package queue

import (
	"sync"
	"time"
)

// etaEstimator is an exponentially weighted moving average of job
// processing time, α = 0.1 per the processing-time estimator.
type etaEstimator struct {
	mu    sync.Mutex
	alpha float64
	mean  time.Duration
	seen  bool
}

func newETAEstimator() *etaEstimator {
	return &etaEstimator{alpha: 0.1}
}

func (e *etaEstimator) Observe(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.seen {
		e.mean = d
		e.seen = true
		return
	}
	e.mean = time.Duration(e.alpha*float64(d) + (1-e.alpha)*float64(e.mean))
}

func (e *etaEstimator) Estimate() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.seen {
		return 0
	}
	return e.mean
}
