// Package queue implements C5, the enterprise job queue: priority
// lanes, an auto-scaling worker pool, a circuit breaker around
// downstream failures, retry-with-demoted-priority, and a bounded,
// TTL-expiring status map. The worker-loop/semaphore/backoff shape is
// generalized from the authorization engine's plain goroutine worker
// pool (internal/engine/worker_pool.go) and the job-runner pattern in
// a reference command-line agent runner, neither of which had
// priority, auto-scaling, or circuit-breaking built in.
package queue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alphacv/matchcore/internal/metrics"
	"github.com/alphacv/matchcore/pkg/coreerr"
	"github.com/alphacv/matchcore/pkg/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler executes one job's ingestion; it is C4's entry point. The
// queue never imports internal/ingest directly, avoiding an import
// cycle and keeping the queue ignorant of pipeline internals.
type Handler func(ctx context.Context, job *types.Job) (*types.IngestResult, error)

// Config holds every tunable enumerated in the external interfaces
// section. New replaces a non-positive MinWorkers or MaxWorkers with the
// DefaultConfig value; the status map raises StatusTTL to at least ten
// minutes and Shutdown falls back to the default ShutdownDeadline when it
// is zero. Every other field is used as given, so callers normally start
// from DefaultConfig.
type Config struct {
	MinWorkers int
	MaxWorkers int

	QueueHighWatermark int
	QueueLowWatermark  int
	ScaleInterval      time.Duration

	JobMaxRetries int

	CircuitThreshold       int
	CircuitWindow          time.Duration
	CircuitRecoveryTimeout time.Duration

	MemoryLimitMB   int
	CPULimitPercent float64

	StatusTTL time.Duration

	ShutdownDeadline time.Duration
}

func DefaultConfig() Config {
	return Config{
		MinWorkers:             2,
		MaxWorkers:             50,
		QueueHighWatermark:     1000,
		QueueLowWatermark:      10,
		ScaleInterval:          30 * time.Second,
		JobMaxRetries:          3,
		CircuitThreshold:       10,
		CircuitWindow:          5 * time.Minute,
		CircuitRecoveryTimeout: 5 * time.Minute,
		MemoryLimitMB:          4096,
		CPULimitPercent:        90,
		StatusTTL:              10 * time.Minute,
		ShutdownDeadline:       30 * time.Second,
	}
}

// Queue is the C5 enterprise job queue.
type Queue struct {
	cfg     Config
	handler Handler
	monitor ResourceMonitor
	metrics metrics.Metrics
	logger  *zap.Logger

	jobs   *priorityQueue
	status *statusMap
	eta    *etaEstimator
	breaker *CircuitBreaker

	activeWorkers int64
	workerCancels []context.CancelFunc
	workerWG      sync.WaitGroup
	workerMu      sync.Mutex

	paused int32
	closed int32

	stopAutoscale chan struct{}
	stopSweep     chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
}

// New constructs and starts a Queue with MinWorkers running immediately.
func New(cfg Config, handler Handler, monitor ResourceMonitor, m metrics.Metrics, logger *zap.Logger) *Queue {
	if cfg.MinWorkers <= 0 {
		cfg.MinWorkers = DefaultConfig().MinWorkers
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = DefaultConfig().MaxWorkers
	}
	if m == nil {
		m = metrics.NewNoOpMetrics()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if monitor == nil {
		monitor = StaticResourceMonitor{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	q := &Queue{
		cfg:           cfg,
		handler:       handler,
		monitor:       monitor,
		metrics:       m,
		logger:        logger,
		jobs:          newPriorityQueue(),
		status:        newStatusMap(cfg.StatusTTL),
		eta:           newETAEstimator(),
		breaker:       NewCircuitBreaker(cfg.CircuitThreshold, cfg.CircuitWindow, cfg.CircuitRecoveryTimeout),
		stopAutoscale: make(chan struct{}),
		stopSweep:     make(chan struct{}),
		ctx:           ctx,
		cancel:        cancel,
	}

	for i := 0; i < cfg.MinWorkers; i++ {
		q.spawnWorker()
	}
	go q.autoscaleLoop()
	go q.sweepLoop()

	return q
}

// Submit admits an application job. It rejects with ErrOverloaded if
// resource thresholds or the hard queue cap are exceeded, per the
// admission rule in the component design.
func (q *Queue) Submit(app types.ApplicationData) (string, error) {
	if atomic.LoadInt32(&q.closed) == 1 {
		return "", coreerr.Overloaded("queue is shutting down")
	}

	if q.monitor.MemoryUsedMB() > q.cfg.MemoryLimitMB ||
		q.monitor.CPUPercent() > q.cfg.CPULimitPercent ||
		q.jobs.Len() > 2*q.cfg.QueueHighWatermark {
		return "", coreerr.Overloaded("queue at capacity or resource limits exceeded")
	}

	priority := app.PriorityHint

	jobID := app.ApplicationID
	if jobID == "" {
		jobID = uuid.NewString()
	}

	job := &types.Job{
		JobID:       jobID,
		Application: app,
		Priority:    priority,
		CreatedAt:   time.Now(),
		Status:      types.JobQueued,
		MaxRetries:  q.cfg.JobMaxRetries,
	}

	q.status.Put(*job)
	q.jobs.Push(job)
	q.updateQueueDepthMetrics()

	return jobID, nil
}

// GetStatus returns a job's current status, approximate queue
// position, and an ETA derived from the processing-time estimator.
func (q *Queue) GetStatus(jobID string) (types.Job, int, time.Duration, bool) {
	job, ok := q.status.Get(jobID)
	if !ok {
		return types.Job{}, 0, 0, false
	}

	if job.Status != types.JobQueued {
		return job, 0, 0, true
	}

	pos, priority, found := q.jobs.Position(jobID)
	if !found {
		return job, 0, 0, true
	}

	ahead := pos - 1
	for _, p := range priorityLevels {
		if p == priority {
			break
		}
		ahead += q.jobs.LenByPriority()[p]
	}

	eta := time.Duration(ahead+1) * q.eta.Estimate()
	return job, ahead + 1, eta, true
}

// spawnWorker starts one long-lived worker goroutine following the
// scheduling loop: check breaker, pop, execute, record.
func (q *Queue) spawnWorker() {
	ctx, cancel := context.WithCancel(q.ctx)

	q.workerMu.Lock()
	q.workerCancels = append(q.workerCancels, cancel)
	q.workerMu.Unlock()

	atomic.AddInt64(&q.activeWorkers, 1)
	q.metrics.UpdateActiveWorkers(int(atomic.LoadInt64(&q.activeWorkers)))

	q.workerWG.Add(1)
	go q.runWorker(ctx)
}

func (q *Queue) runWorker(ctx context.Context) {
	defer q.workerWG.Done()
	defer func() {
		atomic.AddInt64(&q.activeWorkers, -1)
		q.metrics.UpdateActiveWorkers(int(atomic.LoadInt64(&q.activeWorkers)))
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if q.breaker.Open() {
			select {
			case <-time.After(200 * time.Millisecond):
			case <-ctx.Done():
				return
			}
			continue
		}

		if atomic.LoadInt32(&q.paused) == 1 {
			select {
			case <-time.After(200 * time.Millisecond):
			case <-ctx.Done():
				return
			}
			continue
		}

		job := q.jobs.Pop()
		if job == nil {
			select {
			case <-time.After(50 * time.Millisecond):
			case <-ctx.Done():
				return
			}
			continue
		}

		q.execute(ctx, job)
	}
}

func (q *Queue) execute(ctx context.Context, job *types.Job) {
	now := time.Now()
	job.StartedAt = &now
	job.Status = types.JobProcessing
	q.status.Put(*job)
	q.updateQueueDepthMetrics()

	result, err := q.handler(ctx, job)

	completed := time.Now()
	duration := completed.Sub(now)
	q.eta.Observe(duration)

	if err != nil {
		q.breaker.RecordFailure()
		job.Error = jobErrorFrom(err)

		if job.RetryCount < job.MaxRetries {
			job.RetryCount++
			job.Priority = types.PriorityLow
			job.Error = nil
			job.Status = types.JobQueued
			job.StartedAt = nil
			q.status.Put(*job)
			q.jobs.Push(job)
			q.logger.Warn("job failed, retrying at lowered priority",
				zap.String("job_id", job.JobID), zap.Int("retry_count", job.RetryCount), zap.Error(err))
			q.metrics.RecordJobOutcome("retry", duration)
			return
		}

		job.Status = types.JobFailed
		job.CompletedAt = &completed
		q.status.Put(*job)
		q.logger.Error("job permanently failed", zap.String("job_id", job.JobID), zap.Error(err))
		q.metrics.RecordJobOutcome("failed", duration)
		q.updateQueueDepthMetrics()
		return
	}

	q.breaker.RecordSuccess()
	job.Status = types.JobCompleted
	job.Result = result
	job.CompletedAt = &completed
	q.status.Put(*job)
	q.metrics.RecordJobOutcome("completed", duration)
	q.updateQueueDepthMetrics()
}

func jobErrorFrom(err error) *types.JobError {
	kind, ok := coreerr.KindOf(err)
	je := &types.JobError{Message: err.Error()}
	if ok {
		je.Kind = string(kind)
	} else {
		je.Kind = string(coreerr.KindInternal)
	}
	if ce, ok := err.(*coreerr.Error); ok {
		je.Step = ce.Step
	}
	return je
}

// autoscaleLoop evaluates the scale-up/down rule every ScaleInterval.
func (q *Queue) autoscaleLoop() {
	ticker := time.NewTicker(q.cfg.ScaleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			q.evaluateScaling()
		case <-q.stopAutoscale:
			return
		case <-q.ctx.Done():
			return
		}
	}
}

func (q *Queue) evaluateScaling() {
	current := int(atomic.LoadInt64(&q.activeWorkers))
	total := q.jobs.Len()

	if total > q.cfg.QueueHighWatermark &&
		q.monitor.MemoryUsedMB() < int(0.8*float64(q.cfg.MemoryLimitMB)) &&
		q.monitor.CPUPercent() < 0.8*q.cfg.CPULimitPercent {

		room := q.cfg.MaxWorkers - current
		scaleBy := min(5, room)
		for i := 0; i < scaleBy; i++ {
			q.spawnWorker()
		}
		return
	}

	if total < q.cfg.QueueLowWatermark && q.eta.Estimate() < 30*time.Second {
		excess := current - q.cfg.MinWorkers
		scaleBy := min(2, excess)
		for i := 0; i < scaleBy; i++ {
			q.stopOneWorker()
		}
	}
}

func (q *Queue) stopOneWorker() {
	q.workerMu.Lock()
	defer q.workerMu.Unlock()
	if len(q.workerCancels) == 0 {
		return
	}
	cancel := q.workerCancels[len(q.workerCancels)-1]
	q.workerCancels = q.workerCancels[:len(q.workerCancels)-1]
	cancel()
}

func (q *Queue) sweepLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			q.status.Sweep()
		case <-q.stopSweep:
			return
		case <-q.ctx.Done():
			return
		}
	}
}

func (q *Queue) updateQueueDepthMetrics() {
	for p, depth := range q.jobs.LenByPriority() {
		q.metrics.UpdateQueueDepth(p.String(), depth)
	}
}

// SystemMetrics reports queue/worker/performance/circuit-breaker state
// for operators.
type SystemMetrics struct {
	QueueDepth    map[string]int
	ActiveWorkers int
	AvgProcessMs  int64
	CircuitOpen   bool
	StatusEntries int
}

func (q *Queue) SystemMetrics() SystemMetrics {
	byPriority := q.jobs.LenByPriority()
	depth := make(map[string]int, len(byPriority))
	for p, d := range byPriority {
		depth[p.String()] = d
	}
	return SystemMetrics{
		QueueDepth:    depth,
		ActiveWorkers: int(atomic.LoadInt64(&q.activeWorkers)),
		AvgProcessMs:  q.eta.Estimate().Milliseconds(),
		CircuitOpen:   q.breaker.Open(),
		StatusEntries: q.status.Len(),
	}
}

// Control applies an operator action: pause, resume, scale_up,
// scale_down, reset_circuit_breaker, or drain (a supplemented action
// that clears any pause so workers keep taking jobs, and returns once no
// job is left queued; Submit is not blocked while it waits).
func (q *Queue) Control(action string) error {
	switch action {
	case "pause":
		atomic.StoreInt32(&q.paused, 1)
	case "resume":
		atomic.StoreInt32(&q.paused, 0)
	case "scale_up":
		q.spawnWorker()
	case "scale_down":
		q.stopOneWorker()
	case "reset_circuit_breaker":
		q.breaker.Reset()
	case "drain":
		atomic.StoreInt32(&q.paused, 0)
		for q.jobs.Len() > 0 {
			time.Sleep(100 * time.Millisecond)
		}
	default:
		return fmt.Errorf("unknown control action: %s", action)
	}
	return nil
}

// Shutdown signals workers to finish their current job and exit. New
// submissions are rejected immediately; queues drain until empty or
// the shutdown deadline elapses.
func (q *Queue) Shutdown(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&q.closed, 0, 1) {
		return nil
	}

	close(q.stopAutoscale)
	close(q.stopSweep)

	deadline := q.cfg.ShutdownDeadline
	if deadline <= 0 {
		deadline = DefaultConfig().ShutdownDeadline
	}
	drainCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	for q.jobs.Len() > 0 {
		select {
		case <-drainCtx.Done():
			q.logger.Warn("shutdown deadline reached with jobs still queued", zap.Int("remaining", q.jobs.Len()))
			goto drainDone
		case <-time.After(100 * time.Millisecond):
		}
	}
drainDone:

	q.cancel()
	q.workerWG.Wait()
	return nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
