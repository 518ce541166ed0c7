package notify

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"supperclub/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { client.Close() })
	return s, client
}

func TestRedisQueue(t *testing.T) {
	s, client := setupRedis(t)
	q := NewRedisQueue(client, "notifications:queue", "notifications:deadletter")
	ctx := context.Background()

	require.NoError(t, Ping(ctx, client))

	t.Run("FIFO", func(t *testing.T) {
		require.NoError(t, q.Push(ctx, Job{ID: "1", UserID: "u", Type: "booking_requested"}))
		require.NoError(t, q.Push(ctx, Job{ID: "2", UserID: "u", Type: "booking_confirmed"}))

		first, err := q.Pop(ctx, time.Second)
		require.NoError(t, err)
		require.NotNil(t, first)
		assert.Equal(t, "1", first.ID)

		second, err := q.Pop(ctx, time.Second)
		require.NoError(t, err)
		require.NotNil(t, second)
		assert.Equal(t, "2", second.ID)
	})

	t.Run("EmptyPop", func(t *testing.T) {
		job, err := q.Pop(ctx, time.Second)
		require.NoError(t, err)
		assert.Nil(t, job)
	})

	t.Run("DeadLetter", func(t *testing.T) {
		require.NoError(t, q.DeadLetter(ctx, Job{ID: "dead", Attempts: 5, LastError: "boom"}))
		dead, err := q.DeadLetters(ctx)
		require.NoError(t, err)
		require.Len(t, dead, 1)
		assert.Equal(t, "dead", dead[0].ID)
		assert.Equal(t, 5, dead[0].Attempts)
	})

	t.Run("ServerDown", func(t *testing.T) {
		s.Close()
		assert.Error(t, q.Push(ctx, Job{ID: "lost"}))
	})
}

func TestNewRedisClient(t *testing.T) {
	_, client := setupRedis(t)
	addr := client.Options().Addr

	c := NewRedisClient(config.RedisConfig{Address: addr, PoolSize: 3})
	defer c.Close()

	assert.Equal(t, addr, c.Options().Addr)
	assert.Equal(t, 3, c.Options().PoolSize)
	assert.NoError(t, Ping(context.Background(), c))
}

func TestMemoryQueue(t *testing.T) {
	ctx := context.Background()

	t.Run("PushPop", func(t *testing.T) {
		q := NewMemoryQueue(2)
		require.NoError(t, q.Push(ctx, Job{ID: "a"}))
		require.NoError(t, q.Push(ctx, Job{ID: "b"}))
		assert.ErrorIs(t, q.Push(ctx, Job{ID: "c"}), ErrQueueFull)
		assert.Equal(t, 2, q.Len())

		job, err := q.Pop(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, "a", job.ID)
	})

	t.Run("Timeout", func(t *testing.T) {
		q := NewMemoryQueue(1)
		job, err := q.Pop(ctx, 10*time.Millisecond)
		require.NoError(t, err)
		assert.Nil(t, job)
	})

	t.Run("Cancelled", func(t *testing.T) {
		q := NewMemoryQueue(1)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := q.Pop(cctx, time.Second)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("DeadLetters", func(t *testing.T) {
		q := NewMemoryQueue(1)
		require.NoError(t, q.DeadLetter(ctx, Job{ID: "x"}))
		assert.Len(t, q.DeadLetters(), 1)
	})
}

type mockQueue struct {
	mock.Mock
}

func (m *mockQueue) Push(ctx context.Context, job Job) error {
	return m.Called(ctx, job).Error(0)
}

func (m *mockQueue) Pop(ctx context.Context, timeout time.Duration) (*Job, error) {
	args := m.Called(ctx, timeout)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Job), args.Error(1)
}

func (m *mockQueue) DeadLetter(ctx context.Context, job Job) error {
	return m.Called(ctx, job).Error(0)
}

func TestFailoverQueue(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.New(io.Discard)

	primary := new(mockQueue)
	fallback := NewMemoryQueue(8)
	q := NewFailoverQueue(primary, fallback, &logger)

	clock := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	q.now = func() time.Time { return clock }

	t.Run("PrimarySuccess", func(t *testing.T) {
		primary.On("Push", ctx, Job{ID: "1"}).Return(nil).Once()
		require.NoError(t, q.Push(ctx, Job{ID: "1"}))
		assert.Zero(t, fallback.Len())
		primary.AssertExpectations(t)
	})

	t.Run("PrimaryFailure", func(t *testing.T) {
		primary.On("Push", ctx, Job{ID: "2"}).Return(errors.New("redis down")).Once()
		require.NoError(t, q.Push(ctx, Job{ID: "2"}))
		assert.Equal(t, 1, fallback.Len())
		assert.True(t, q.isDown.Load())

		// primary is skipped while down
		require.NoError(t, q.Push(ctx, Job{ID: "3"}))
		assert.Equal(t, 2, fallback.Len())
		primary.AssertExpectations(t)
	})

	t.Run("PopDrainsFallbackFirst", func(t *testing.T) {
		job, err := q.Pop(ctx, time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, "2", job.ID)
		job, err = q.Pop(ctx, time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, "3", job.ID)
	})

	t.Run("Recovery", func(t *testing.T) {
		clock = clock.Add(2 * time.Minute)
		primary.On("Push", ctx, Job{ID: "4"}).Return(nil).Once()
		require.NoError(t, q.Push(ctx, Job{ID: "4"}))
		assert.False(t, q.isDown.Load())
		primary.AssertExpectations(t)
	})

	t.Run("PopFromPrimary", func(t *testing.T) {
		primary.On("Pop", ctx, time.Millisecond).Return(&Job{ID: "4"}, nil).Once()
		job, err := q.Pop(ctx, time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, "4", job.ID)
		primary.AssertExpectations(t)
	})

	t.Run("DeadLetterFallback", func(t *testing.T) {
		primary.On("DeadLetter", ctx, Job{ID: "5"}).Return(errors.New("redis down")).Once()
		require.NoError(t, q.DeadLetter(ctx, Job{ID: "5"}))
		assert.Len(t, fallback.DeadLetters(), 1)
	})
}
