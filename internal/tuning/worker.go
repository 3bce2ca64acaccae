package tuning

import (
	"context"
	"log/slog"
	"time"

	"github.com/devix/thermoscan/internal/detector"
)

const maxAttempts = 3

// Worker consumes the feedback queue and forwards tasks to the detector. A task
// that keeps failing is requeued up to maxAttempts, then dropped with an error
// log; feedback is best effort by contract.
type Worker struct {
	queue    Queue
	detector detector.Client
	timeout  time.Duration
}

// NewWorker creates a Worker. timeout bounds each delivery call.
func NewWorker(queue Queue, det detector.Client, timeout time.Duration) *Worker {
	return &Worker{queue: queue, detector: det, timeout: timeout}
}

// Run consumes tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	slog.Info("tuning worker started")
	for {
		if ctx.Err() != nil {
			slog.Info("tuning worker stopped")
			return
		}

		task, err := w.queue.Dequeue(ctx, 5*time.Second)
		if err != nil {
			if ctx.Err() != nil {
				slog.Info("tuning worker stopped")
				return
			}
			slog.Error("dequeue tuning task failed", "error", err)
			time.Sleep(time.Second)
			continue
		}
		if task == nil {
			continue
		}

		w.deliver(ctx, task)
	}
}

func (w *Worker) deliver(ctx context.Context, task *Task) {
	callCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	err := w.detector.UpdateThresholds(callCtx, task.Feedback)
	if err == nil {
		slog.Info("threshold feedback delivered", "task_id", task.ID, "attempts", task.Attempts+1)
		return
	}

	task.Attempts++
	if task.Attempts >= maxAttempts {
		slog.Error("dropping threshold feedback after repeated failures",
			"task_id", task.ID, "attempts", task.Attempts, "error", err)
		return
	}

	slog.Warn("threshold feedback delivery failed, requeueing",
		"task_id", task.ID, "attempt", task.Attempts, "error", err)
	if pushErr := w.queue.Requeue(ctx, task); pushErr != nil {
		slog.Error("requeue threshold feedback failed", "task_id", task.ID, "error", pushErr)
	}
}
