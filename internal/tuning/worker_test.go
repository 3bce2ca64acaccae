package tuning

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devix/thermoscan/internal/detector"
	"github.com/devix/thermoscan/pkg/models"
)

// memQueue satisfies Queue with a slice.
type memQueue struct {
	mu    sync.Mutex
	tasks []*Task
}

func (q *memQueue) Enqueue(ctx context.Context, fb detector.ThresholdFeedback) error {
	return q.Requeue(ctx, &Task{ID: uuid.New(), Feedback: fb})
}

func (q *memQueue) Requeue(ctx context.Context, task *Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
	return nil
}

func (q *memQueue) Dequeue(ctx context.Context, timeout time.Duration) (*Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return nil, nil
	}
	task := q.tasks[0]
	q.tasks = q.tasks[1:]
	return task, nil
}

func (q *memQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// fakeDetector records UpdateThresholds calls and fails the first failN of them.
type fakeDetector struct {
	mu    sync.Mutex
	calls int
	failN int
}

func (f *fakeDetector) Predict(ctx context.Context, filename string, image []byte) ([]models.Finding, error) {
	return nil, nil
}

func (f *fakeDetector) UpdateThresholds(ctx context.Context, fb detector.ThresholdFeedback) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failN {
		return detector.ErrUnavailable
	}
	return nil
}

func TestDeliver_Success(t *testing.T) {
	q := &memQueue{}
	det := &fakeDetector{}
	w := NewWorker(q, det, time.Second)

	task := &Task{ID: uuid.New(), Feedback: detector.ThresholdFeedback{ImageURL: "thermal.png"}}
	w.deliver(context.Background(), task)

	assert.Equal(t, 1, det.calls)
	assert.Zero(t, q.len())
}

func TestDeliver_RequeuesOnFailure(t *testing.T) {
	q := &memQueue{}
	det := &fakeDetector{failN: 1}
	w := NewWorker(q, det, time.Second)

	task := &Task{ID: uuid.New()}
	w.deliver(context.Background(), task)

	require.Equal(t, 1, q.len())
	assert.Equal(t, 1, q.tasks[0].Attempts)
}

func TestDeliver_DropsAfterMaxAttempts(t *testing.T) {
	q := &memQueue{}
	det := &fakeDetector{failN: maxAttempts}
	w := NewWorker(q, det, time.Second)

	task := &Task{ID: uuid.New(), Attempts: maxAttempts - 1}
	w.deliver(context.Background(), task)

	assert.Zero(t, q.len())
}

func TestRun_DeliversWithRetries(t *testing.T) {
	q := &memQueue{}
	det := &fakeDetector{failN: 2}
	w := NewWorker(q, det, time.Second)

	require.NoError(t, q.Enqueue(context.Background(), detector.ThresholdFeedback{ImageURL: "thermal.png"}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	// Two failed attempts are requeued, the third delivers.
	require.Eventually(t, func() bool {
		det.mu.Lock()
		defer det.mu.Unlock()
		return det.calls == 3
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after context cancellation")
	}

	assert.Zero(t, q.len())
}
