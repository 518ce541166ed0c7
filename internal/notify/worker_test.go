package notify

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"supperclub/internal/ledger"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryPolicy_NextDelay(t *testing.T) {
	policy := RetryPolicy{InitialDelay: time.Second, MaxDelay: 10 * time.Second, BackoffFactor: 2}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, time.Second},
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 10 * time.Second},
		{20, 10 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, policy.NextDelay(tt.attempt), "attempt %d", tt.attempt)
	}

	assert.Equal(t, time.Second, RetryPolicy{}.NextDelay(1))
}

func TestRetryPolicy_Exhausted(t *testing.T) {
	assert.False(t, RetryPolicy{MaxRetries: 3}.Exhausted(2))
	assert.True(t, RetryPolicy{MaxRetries: 3}.Exhausted(3))
	assert.True(t, RetryPolicy{}.Exhausted(5))
	assert.False(t, RetryPolicy{}.Exhausted(4))
}

// flakySink fails the first failures deliveries and then records jobs.
type flakySink struct {
	mu        sync.Mutex
	failures  int
	calls     int
	delivered []Job
}

func (s *flakySink) Deliver(_ context.Context, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls <= s.failures {
		return errors.New("sink unavailable")
	}
	s.delivered = append(s.delivered, job)
	return nil
}

func (s *flakySink) snapshot() (int, []Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls, append([]Job(nil), s.delivered...)
}

func testRetry() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, InitialDelay: 5 * time.Millisecond, MaxDelay: 20 * time.Millisecond, BackoffFactor: 2}
}

func TestWorker_Delivers(t *testing.T) {
	logger := zerolog.New(io.Discard)
	q := NewMemoryQueue(8)
	sink := &flakySink{}
	w := NewWorker(q, sink, testRetry(), 10*time.Millisecond, &logger)
	ctx := context.Background()

	found, err := w.ProcessOne(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, q.Push(ctx, Job{ID: "j1", UserID: "u1", Type: "booking_confirmed"}))
	found, err = w.ProcessOne(ctx)
	require.NoError(t, err)
	assert.True(t, found)

	_, delivered := sink.snapshot()
	require.Len(t, delivered, 1)
	assert.Equal(t, "j1", delivered[0].ID)
}

func TestWorker_RetriesThenDelivers(t *testing.T) {
	logger := zerolog.New(io.Discard)
	q := NewMemoryQueue(8)
	sink := &flakySink{failures: 2}
	w := NewWorker(q, sink, testRetry(), 10*time.Millisecond, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	require.NoError(t, q.Push(ctx, Job{ID: "j1", UserID: "u1", Type: "booking_requested"}))

	require.Eventually(t, func() bool {
		_, delivered := sink.snapshot()
		return len(delivered) == 1
	}, 2*time.Second, 5*time.Millisecond)

	calls, delivered := sink.snapshot()
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, delivered[0].Attempts)
	assert.Equal(t, "sink unavailable", delivered[0].LastError)
	assert.Empty(t, q.DeadLetters())
}

func TestWorker_DeadLetter(t *testing.T) {
	logger := zerolog.New(io.Discard)
	q := NewMemoryQueue(8)
	sink := &flakySink{failures: 100}
	w := NewWorker(q, sink, testRetry(), 10*time.Millisecond, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	require.NoError(t, q.Push(ctx, Job{ID: "j1", UserID: "u1", Type: "application_approved"}))

	require.Eventually(t, func() bool {
		return len(q.DeadLetters()) == 1
	}, 2*time.Second, 5*time.Millisecond)

	dead := q.DeadLetters()[0]
	assert.Equal(t, "j1", dead.ID)
	assert.Equal(t, 3, dead.Attempts)

	calls, delivered := sink.snapshot()
	assert.Equal(t, 3, calls)
	assert.Empty(t, delivered)
}

func TestWorker_StopsOnCancel(t *testing.T) {
	logger := zerolog.New(io.Discard)
	w := NewWorker(NewMemoryQueue(1), &flakySink{}, RetryPolicy{}, 10*time.Millisecond, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestDispatcher(t *testing.T) {
	logger := zerolog.New(io.Discard)
	ctx := context.Background()

	t.Run("Enqueues", func(t *testing.T) {
		q := NewMemoryQueue(2)
		d := NewDispatcher(q, &logger)
		require.NoError(t, d.Notify(ctx, "host-1", "booking_requested", "b1"))

		job, err := q.Pop(ctx, 0)
		require.NoError(t, err)
		require.NotNil(t, job)
		assert.NotEmpty(t, job.ID)
		assert.Equal(t, "host-1", job.UserID)
		assert.Equal(t, "booking_requested", job.Type)
		assert.Equal(t, "b1", job.EntityID)
		assert.False(t, job.EnqueuedAt.IsZero())
	})

	t.Run("MissingRecipient", func(t *testing.T) {
		d := NewDispatcher(NewMemoryQueue(1), &logger)
		assert.Error(t, d.Notify(ctx, "", "booking_requested", "b1"))
	})

	t.Run("QueueFull", func(t *testing.T) {
		q := NewMemoryQueue(1)
		d := NewDispatcher(q, &logger)
		require.NoError(t, d.Notify(ctx, "u", "t", "e"))
		assert.ErrorIs(t, d.Notify(ctx, "u", "t", "e"), ErrQueueFull)
	})
}

func TestInboxSink(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewMemoryStore()
	sink := NewInboxSink(store)
	base := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

	require.NoError(t, sink.Deliver(ctx, Job{ID: "n1", UserID: "guest", Type: "booking_confirmed", EntityID: "b1", EnqueuedAt: base}))
	require.NoError(t, sink.Deliver(ctx, Job{ID: "n2", UserID: "guest", Type: "reschedule_accepted", EntityID: "b1", EnqueuedAt: base.Add(time.Hour)}))
	require.NoError(t, sink.Deliver(ctx, Job{ID: "n3", UserID: "host", Type: "booking_requested", EntityID: "b1", EnqueuedAt: base}))

	// redelivery is a no-op
	require.NoError(t, sink.Deliver(ctx, Job{ID: "n1", UserID: "guest", Type: "booking_confirmed", EntityID: "b1", EnqueuedAt: base}))

	inbox, err := sink.List(ctx, "guest")
	require.NoError(t, err)
	require.Len(t, inbox, 2)
	assert.Equal(t, "n2", inbox[0].ID)
	assert.Equal(t, "n1", inbox[1].ID)
	assert.Equal(t, 1, inbox[1].Attempts)

	empty, err := sink.List(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
