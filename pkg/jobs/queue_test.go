package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingHandler struct {
	mu       sync.Mutex
	calls    int
	failures int
}

func (h *countingHandler) handle(ctx context.Context, job Job) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	if h.calls <= h.failures {
		return errors.New("transient failure")
	}
	return nil
}

func (h *countingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

func TestQueueProcessesJobs(t *testing.T) {
	handler := &countingHandler{}
	q := NewQueue("test", handler.handle, QueueConfig{Workers: 2})
	q.Start(context.Background())
	defer q.Stop()

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(Job{ID: "job", Type: "noop"}))
	}

	require.Eventually(t, func() bool {
		return handler.count() == 5
	}, 5*time.Second, 10*time.Millisecond)
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	handler := &countingHandler{failures: 2}
	q := NewQueue("test", handler.handle, QueueConfig{
		Workers:    1,
		MaxRetries: 3,
		RetryDelay: 10 * time.Millisecond,
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "flaky", Type: "retry"}))

	// Two failures plus the succeeding attempt.
	require.Eventually(t, func() bool {
		return handler.count() == 3
	}, 5*time.Second, 10*time.Millisecond)
}

func TestQueueGivesUpAfterMaxRetries(t *testing.T) {
	handler := &countingHandler{failures: 100}
	q := NewQueue("test", handler.handle, QueueConfig{
		Workers:    1,
		MaxRetries: 2,
		RetryDelay: 10 * time.Millisecond,
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "doomed", Type: "retry"}))

	// First attempt plus two retries, then the job is dropped.
	require.Eventually(t, func() bool {
		return handler.count() == 3
	}, 5*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 3, handler.count())
}

func TestQueueRejectsEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("test", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})

	err := q.Enqueue(Job{ID: "early"})
	assert.Error(t, err)
}
