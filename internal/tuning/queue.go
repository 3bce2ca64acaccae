// Package tuning delivers reviewer feedback to the detector's threshold-tuning
// endpoint. Delivery is decoupled from the evaluation write through a Redis
// list queue: a failed or slow tuning service never blocks or rolls back an
// evaluation submission.
package tuning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/devix/thermoscan/internal/detector"
)

const queueKey = "tuning:feedback"

// Task is one queued feedback delivery.
type Task struct {
	ID       uuid.UUID                  `json:"id"`
	Attempts int                        `json:"attempts"`
	Feedback detector.ThresholdFeedback `json:"feedback"`
}

// Queue is the outbound feedback queue.
type Queue interface {
	Enqueue(ctx context.Context, fb detector.ThresholdFeedback) error
	// Requeue puts a failed task back, keeping its attempt count.
	Requeue(ctx context.Context, task *Task) error
	// Dequeue blocks up to timeout for the next task. Returns (nil, nil) when
	// the queue stayed empty.
	Dequeue(ctx context.Context, timeout time.Duration) (*Task, error)
}

// RedisQueue implements Queue on a Redis list (LPUSH producer, BRPOP consumer).
type RedisQueue struct {
	client *redis.Client
}

// NewRedisQueue creates a RedisQueue from a Redis URL.
func NewRedisQueue(redisURL string) (*RedisQueue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisQueue{client: redis.NewClient(opts)}, nil
}

func (q *RedisQueue) Enqueue(ctx context.Context, fb detector.ThresholdFeedback) error {
	return q.Requeue(ctx, &Task{ID: uuid.New(), Feedback: fb})
}

func (q *RedisQueue) Requeue(ctx context.Context, task *Task) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode tuning task: %w", err)
	}
	if err := q.client.LPush(ctx, queueKey, payload).Err(); err != nil {
		return fmt.Errorf("enqueue tuning task: %w", err)
	}
	return nil
}

func (q *RedisQueue) Dequeue(ctx context.Context, timeout time.Duration) (*Task, error) {
	res, err := q.client.BRPop(ctx, timeout, queueKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dequeue tuning task: %w", err)
	}

	// BRPop returns [key, value].
	var task Task
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		return nil, fmt.Errorf("decode tuning task: %w", err)
	}
	return &task, nil
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}

var _ Queue = (*RedisQueue)(nil)
