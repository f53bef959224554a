package jobqueue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQueue(t *testing.T) {
	tests := []struct {
		name            string
		workers         int
		expectedWorkers int
	}{
		{"Valid worker count", 5, 5},
		{"Zero workers", 0, DefaultWorkers},
		{"Negative workers", -1, DefaultWorkers},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queue := NewQueue(nil, tt.workers)

			assert.NotNil(t, queue)
			assert.Equal(t, tt.expectedWorkers, queue.workers)
			assert.Equal(t, tt.expectedWorkers, cap(queue.workerPool))
			assert.NotNil(t, queue.handlers)
			assert.False(t, queue.IsRunning())
		})
	}
}

func TestConstants(t *testing.T) {
	assert.Equal(t, "job:", JobKeyPrefix)
	assert.Equal(t, "job_queue", JobQueueKey)
	assert.Equal(t, "job_processing", JobProcessingKey)
	assert.Equal(t, "job_stats", JobStatsKey)
	assert.Equal(t, "job_delayed", JobDelayedKey)
	assert.Equal(t, 3, DefaultMaxRetries)
	assert.Equal(t, 24*time.Hour, JobTTL)
}

func TestQueueProcessesRegisteredHandler(t *testing.T) {
	client := newTestRedis(t)
	q := NewQueue(client, 1)
	ctx := context.Background()

	var got atomic.Value
	q.Handle(JobTypeNotifyUser, func(_ context.Context, job *Job) error {
		got.Store(job.Payload["user_id"])
		return nil
	})

	job, err := q.EnqueueJob(ctx, JobTypeNotifyUser, map[string]interface{}{"user_id": "42"})
	require.NoError(t, err)

	processed, err := q.ProcessNext(ctx)
	require.NoError(t, err)
	assert.True(t, processed)
	assert.Equal(t, "42", got.Load())

	_, err = q.GetJob(ctx, job.ID)
	assert.Error(t, err, "completed jobs are removed")

	stats, err := q.GetJobStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats[JobStatusCompleted])

	size, err := q.GetProcessingSize(ctx)
	require.NoError(t, err)
	assert.Zero(t, size)
}

func TestQueueRetriesFailedJob(t *testing.T) {
	client := newTestRedis(t)
	q := NewQueue(client, 1)
	q.SetRetryDelay(10 * time.Millisecond)
	ctx := context.Background()

	var calls int32
	q.Handle(JobTypeNotifyAdmin, func(context.Context, *Job) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			return errors.New("telegram timeout")
		}
		return nil
	})

	_, err := q.EnqueueJob(ctx, JobTypeNotifyAdmin, map[string]interface{}{})
	require.NoError(t, err)

	processed, err := q.ProcessNext(ctx)
	require.NoError(t, err)
	require.True(t, processed)

	delayed, err := q.GetDelayedSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), delayed)

	require.Eventually(t, func() bool {
		_, _ = q.PromoteDue(ctx)
		n, _ := q.GetQueueSize(ctx)
		return n == 1
	}, 2*time.Second, 10*time.Millisecond)

	processed, err = q.ProcessNext(ctx)
	require.NoError(t, err)
	assert.True(t, processed)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestQueueRetrySurvivesRestart(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()

	first := NewQueue(client, 1)
	first.SetRetryDelay(20 * time.Millisecond)
	first.Handle(JobTypeNotifyUser, func(context.Context, *Job) error { return errors.New("telegram timeout") })

	job, err := first.EnqueueJob(ctx, JobTypeNotifyUser, map[string]interface{}{"user_id": "42"})
	require.NoError(t, err)
	_, err = first.ProcessNext(ctx)
	require.NoError(t, err)

	stored, err := first.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusRetrying, stored.Status)

	// a new process on the same Redis picks the retry up
	second := NewQueue(client, 1)
	var delivered int32
	second.Handle(JobTypeNotifyUser, func(context.Context, *Job) error {
		atomic.AddInt32(&delivered, 1)
		return nil
	})

	require.Eventually(t, func() bool {
		processed, err := second.ProcessNext(ctx)
		return err == nil && processed
	}, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&delivered))

	delayed, err := second.GetDelayedSize(ctx)
	require.NoError(t, err)
	assert.Zero(t, delayed)
}

func TestQueueUnknownJobTypeFailsPermanently(t *testing.T) {
	client := newTestRedis(t)
	q := NewQueue(client, 1)
	ctx := context.Background()

	job, err := q.EnqueueJob(ctx, JobType("unknown"), nil)
	require.NoError(t, err)

	_, err = q.ProcessNext(ctx)
	require.NoError(t, err)

	stored, err := q.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusFailed, stored.Status)
}

func TestQueueProcessNextEmpty(t *testing.T) {
	client := newTestRedis(t)
	q := NewQueue(client, 1)

	processed, err := q.ProcessNext(context.Background())
	require.NoError(t, err)
	assert.False(t, processed)
}
