package queue

import (
	"sync"

	"github.com/alphacv/matchcore/pkg/types"
)

// priorityLevels lists priorities from highest to lowest, the order a
// pop must respect so strict priority holds within a single pop.
var priorityLevels = []types.Priority{
	types.PriorityUrgent, types.PriorityHigh, types.PriorityNormal, types.PriorityLow,
}

// priorityQueue is a multiple-producer/multiple-consumer FIFO queue per
// priority class. Within one class, order is FIFO; across classes, pop
// always drains the highest non-empty class first.
type priorityQueue struct {
	mu    sync.Mutex
	lanes map[types.Priority][]*types.Job
}

func newPriorityQueue() *priorityQueue {
	return &priorityQueue{lanes: make(map[types.Priority][]*types.Job)}
}

func (q *priorityQueue) Push(job *types.Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.lanes[job.Priority] = append(q.lanes[job.Priority], job)
}

// Pop removes and returns the oldest job in the highest non-empty
// priority class, or nil if every lane is empty.
func (q *priorityQueue) Pop() *types.Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, p := range priorityLevels {
		lane := q.lanes[p]
		if len(lane) == 0 {
			continue
		}
		job := lane[0]
		q.lanes[p] = lane[1:]
		return job
	}
	return nil
}

// Len returns the total number of queued jobs across all lanes.
func (q *priorityQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	total := 0
	for _, lane := range q.lanes {
		total += len(lane)
	}
	return total
}

// LenByPriority returns the queue depth per priority, used by
// system_metrics and the per-priority queue-depth gauge.
func (q *priorityQueue) LenByPriority() map[types.Priority]int {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make(map[types.Priority]int, len(priorityLevels))
	for _, p := range priorityLevels {
		out[p] = len(q.lanes[p])
	}
	return out
}

// Position returns the 1-based position of jobID within its own
// priority lane, or 0 if not found. Counting only within the job's
// lane is deliberate: a lower-priority job's full queue position also
// depends on how many higher-priority jobs exist ahead of it, which
// the caller adds in separately (see Queue.GetStatus).
func (q *priorityQueue) Position(jobID string) (pos int, priority types.Priority, found bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, p := range priorityLevels {
		for i, j := range q.lanes[p] {
			if j.JobID == jobID {
				return i + 1, p, true
			}
		}
	}
	return 0, 0, false
}
