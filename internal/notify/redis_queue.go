package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"supperclub/internal/config"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient builds a Redis client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// Ping checks the Redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// RedisQueue is a list-backed queue: LPUSH to enqueue, BRPOP to dequeue.
type RedisQueue struct {
	client        *redis.Client
	queueKey      string
	deadLetterKey string
}

func NewRedisQueue(client *redis.Client, queueKey, deadLetterKey string) *RedisQueue {
	return &RedisQueue{
		client:        client,
		queueKey:      queueKey,
		deadLetterKey: deadLetterKey,
	}
}

func (q *RedisQueue) Push(ctx context.Context, job Job) error {
	if q.client == nil {
		return errors.New("redis client is nil")
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	if err := q.client.LPush(ctx, q.queueKey, data).Err(); err != nil {
		return fmt.Errorf("failed to push job: %w", err)
	}
	return nil
}

func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration) (*Job, error) {
	if q.client == nil {
		return nil, errors.New("redis client is nil")
	}
	res, err := q.client.BRPop(ctx, timeout, q.queueKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to pop job: %w", err)
	}
	if len(res) != 2 {
		return nil, nil
	}

	var job Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	return &job, nil
}

func (q *RedisQueue) DeadLetter(ctx context.Context, job Job) error {
	if q.client == nil {
		return errors.New("redis client is nil")
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	if err := q.client.LPush(ctx, q.deadLetterKey, data).Err(); err != nil {
		return fmt.Errorf("failed to push dead letter: %w", err)
	}
	return nil
}

// DeadLetters returns parked jobs, newest first.
func (q *RedisQueue) DeadLetters(ctx context.Context) ([]Job, error) {
	raw, err := q.client.LRange(ctx, q.deadLetterKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read dead letters: %w", err)
	}
	jobs := make([]Job, 0, len(raw))
	for _, item := range raw {
		var job Job
		if err := json.Unmarshal([]byte(item), &job); err != nil {
			return nil, fmt.Errorf("decode dead letter: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}
