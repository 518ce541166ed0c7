package notify

import (
	"context"
	"sync"
	"time"
)

// MemoryQueue is a bounded in-process queue used when Redis is unavailable.
type MemoryQueue struct {
	jobs chan Job

	mu   sync.Mutex
	dead []Job
}

func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = 128
	}
	return &MemoryQueue{jobs: make(chan Job, size)}
}

func (q *MemoryQueue) Push(_ context.Context, job Job) error {
	select {
	case q.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *MemoryQueue) Pop(ctx context.Context, timeout time.Duration) (*Job, error) {
	if timeout <= 0 {
		select {
		case job := <-q.jobs:
			return &job, nil
		default:
			return nil, nil
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case job := <-q.jobs:
		return &job, nil
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *MemoryQueue) DeadLetter(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.dead = append(q.dead, job)
	return nil
}

// DeadLetters returns parked jobs, oldest first.
func (q *MemoryQueue) DeadLetters() []Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Job(nil), q.dead...)
}

// Len reports how many jobs are waiting.
func (q *MemoryQueue) Len() int {
	return len(q.jobs)
}
