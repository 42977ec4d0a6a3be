package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alphacv/matchcore/pkg/coreerr"
	"github.com/alphacv/matchcore/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.MinWorkers = 1
	cfg.MaxWorkers = 2
	cfg.ScaleInterval = time.Hour // don't let autoscaling interfere with assertions
	cfg.ShutdownDeadline = time.Second
	return cfg
}

func TestSubmitAndComplete(t *testing.T) {
	handled := make(chan struct{}, 1)
	h := func(ctx context.Context, job *types.Job) (*types.IngestResult, error) {
		handled <- struct{}{}
		return &types.IngestResult{DocumentID: "doc-1"}, nil
	}

	q := New(testConfig(), h, nil, nil, nil)
	defer q.Shutdown(context.Background())

	jobID, err := q.Submit(types.ApplicationData{ApplicationID: "app-1"})
	require.NoError(t, err)

	select {
	case <-handled:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not processed")
	}

	deadline := time.Now().Add(time.Second)
	var job types.Job
	for time.Now().Before(deadline) {
		var ok bool
		job, ok = q.status.Get(jobID)
		if ok && job.Status == types.JobCompleted {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, types.JobCompleted, job.Status)
	assert.Equal(t, "doc-1", job.Result.DocumentID)
}

func TestSubmitRejectsWhenOverloaded(t *testing.T) {
	cfg := testConfig()
	cfg.QueueHighWatermark = 1
	h := func(ctx context.Context, job *types.Job) (*types.IngestResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	monitor := StaticResourceMonitor{MemMB: 10_000_000, CPU: 0}

	q := New(cfg, h, monitor, nil, nil)
	defer q.Shutdown(context.Background())

	_, err := q.Submit(types.ApplicationData{ApplicationID: "app-1"})
	kind, ok := coreerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, coreerr.KindOverloaded, kind)
}

func TestRetryDemotesPriorityThenFails(t *testing.T) {
	cfg := testConfig()
	cfg.JobMaxRetries = 1
	calls := 0
	h := func(ctx context.Context, job *types.Job) (*types.IngestResult, error) {
		calls++
		return nil, coreerr.Upstream("boom", nil)
	}

	q := New(cfg, h, nil, nil, nil)
	defer q.Shutdown(context.Background())

	jobID, err := q.Submit(types.ApplicationData{ApplicationID: "app-1"})
	require.NoError(t, err)

	deadline := time.Now().Add(2 * time.Second)
	var job types.Job
	for time.Now().Before(deadline) {
		var ok bool
		job, ok = q.status.Get(jobID)
		if ok && job.Status == types.JobFailed {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, types.JobFailed, job.Status)
	assert.Equal(t, 1, job.RetryCount)
	assert.Equal(t, types.PriorityLow, job.Priority)
	assert.Equal(t, 2, calls)
}

func TestGetStatus_PositionAccountsForHigherPriorityLanesOnce(t *testing.T) {
	q := New(testConfig(), nil, nil, nil, nil)
	defer q.Shutdown(context.Background())

	require.NoError(t, q.Control("pause"))

	_, err := q.Submit(types.ApplicationData{ApplicationID: "urgent-1", PriorityHint: types.PriorityUrgent})
	require.NoError(t, err)
	_, err = q.Submit(types.ApplicationData{ApplicationID: "high-1", PriorityHint: types.PriorityHigh})
	require.NoError(t, err)
	normalID, err := q.Submit(types.ApplicationData{ApplicationID: "normal-1", PriorityHint: types.PriorityNormal})
	require.NoError(t, err)

	_, pos, _, ok := q.GetStatus(normalID)
	require.True(t, ok)
	assert.Equal(t, 3, pos, "one urgent plus one high job ahead, counted once each")
}

func TestPriorityQueueStrictOrdering(t *testing.T) {
	q := newPriorityQueue()
	low := &types.Job{JobID: "low", Priority: types.PriorityLow}
	urgent := &types.Job{JobID: "urgent", Priority: types.PriorityUrgent}
	q.Push(low)
	q.Push(urgent)

	first := q.Pop()
	assert.Equal(t, "urgent", first.JobID)
	second := q.Pop()
	assert.Equal(t, "low", second.JobID)
}

func TestCircuitBreakerTripsAndRecovers(t *testing.T) {
	b := NewCircuitBreaker(2, time.Minute, 50*time.Millisecond)
	assert.False(t, b.Open())
	b.RecordFailure()
	assert.False(t, b.Open())
	b.RecordFailure()
	assert.True(t, b.Open())

	time.Sleep(60 * time.Millisecond)
	assert.False(t, b.Open())
}

func TestControlPauseResume(t *testing.T) {
	processed := make(chan struct{}, 10)
	h := func(ctx context.Context, job *types.Job) (*types.IngestResult, error) {
		processed <- struct{}{}
		return &types.IngestResult{}, nil
	}
	q := New(testConfig(), h, nil, nil, nil)
	defer q.Shutdown(context.Background())

	require.NoError(t, q.Control("pause"))
	_, err := q.Submit(types.ApplicationData{ApplicationID: "app-1"})
	require.NoError(t, err)

	select {
	case <-processed:
		t.Fatal("job processed while paused")
	case <-time.After(150 * time.Millisecond):
	}

	require.NoError(t, q.Control("resume"))
	select {
	case <-processed:
	case <-time.After(2 * time.Second):
		t.Fatal("job not processed after resume")
	}
}
