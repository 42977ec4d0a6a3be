package queue

import (
	"sync"
	"time"

	"github.com/alphacv/matchcore/pkg/types"
)

// statusEntry pairs a job record with the time it completed, so expired
// entries can be swept without a separate index.
type statusEntry struct {
	job         types.Job
	completedAt time.Time
}

// statusMap is a bounded map of job records that expire a TTL after
// completion, so polling clients can retrieve status without the queue
// growing unbounded.
type statusMap struct {
	mu      sync.RWMutex
	entries map[string]*statusEntry
	ttl     time.Duration
}

func newStatusMap(ttl time.Duration) *statusMap {
	if ttl < 10*time.Minute {
		ttl = 10 * time.Minute
	}
	return &statusMap{entries: make(map[string]*statusEntry), ttl: ttl}
}

func (m *statusMap) Put(job types.Job) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := &statusEntry{job: job}
	if job.Status == types.JobCompleted || job.Status == types.JobFailed {
		entry.completedAt = time.Now()
	}
	m.entries[job.JobID] = entry
}

func (m *statusMap) Get(jobID string) (types.Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[jobID]
	if !ok {
		return types.Job{}, false
	}
	return e.job, true
}

// Sweep removes entries that completed more than ttl ago.
func (m *statusMap) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	now := time.Now()
	for id, e := range m.entries {
		if e.completedAt.IsZero() {
			continue
		}
		if now.Sub(e.completedAt) > m.ttl {
			delete(m.entries, id)
			removed++
		}
	}
	return removed
}

func (m *statusMap) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
