package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go-forum-app/internal/logger"

	"golang.org/x/sync/errgroup"
)

// HandlerFunc processes the payload of one task.
type HandlerFunc func(ctx context.Context, payload []byte) error

// Worker consumes tasks from a queue and dispatches them by name.
// Failed tasks are logged and dropped; retrying is left to the broker.
type Worker struct {
	queue       Queue
	concurrency int
	log         logger.Logger

	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

// NewWorker creates a worker running concurrency consumers.
func NewWorker(q Queue, concurrency int, log logger.Logger) *Worker {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Worker{
		queue:       q,
		concurrency: concurrency,
		log:         log,
		handlers:    make(map[string]HandlerFunc),
	}
}

// Handle registers the handler for tasks called name.
func (w *Worker) Handle(name string, h HandlerFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[name] = h
}

// Run consumes tasks until ctx is cancelled or the queue is closed.
func (w *Worker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < w.concurrency; i++ {
		g.Go(func() error {
			return w.consume(ctx)
		})
	}
	return g.Wait()
}

func (w *Worker) consume(ctx context.Context) error {
	for {
		task, err := w.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, ErrClosed) || ctx.Err() != nil {
				return nil
			}
			w.log.Error(err, "Failed to dequeue task")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}
		w.Process(ctx, task)
	}
}

// Process runs a single task through its handler.
func (w *Worker) Process(ctx context.Context, task *Task) {
	w.mu.RLock()
	h, ok := w.handlers[task.Name]
	w.mu.RUnlock()

	log := w.log.With(map[string]interface{}{"task": task.Name, "task_id": task.ID})
	if !ok {
		log.Warn("No handler registered for task, dropped")
		return
	}
	if err := safeCall(ctx, h, task.Payload); err != nil {
		log.Error(err, "Task failed")
		return
	}
	log.Debug("Task done")
}

func safeCall(ctx context.Context, h HandlerFunc, payload []byte) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("task panicked: %v", rec)
		}
	}()
	return h(ctx, payload)
}
