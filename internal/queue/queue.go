// Package queue is the background task queue used to move work such as
// notification writes off the request path. Delivery is at-least-once.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go-forum-app/internal/config"

	"github.com/google/uuid"
)

// ErrClosed is returned by a queue that has been closed.
var ErrClosed = errors.New("queue closed")

// Task is a named unit of background work with a JSON payload.
type Task struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// NewTask builds a task, marshalling payload to JSON.
func NewTask(name string, payload interface{}) (*Task, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", name, err)
	}
	return &Task{
		ID:         uuid.NewString(),
		Name:       name,
		Payload:    raw,
		EnqueuedAt: time.Now().UTC(),
	}, nil
}

// Queue is a task broker.
type Queue interface {
	// Enqueue publishes a task and returns without waiting for it to run.
	Enqueue(ctx context.Context, name string, payload interface{}) error
	// Dequeue blocks until a task is available or ctx is done.
	Dequeue(ctx context.Context) (*Task, error)
	Close() error
}

// New creates the queue selected by cfg.Driver.
func New(cfg config.QueueConfig) (Queue, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemory(cfg.Buffer), nil
	case "redis":
		return NewRedis(cfg)
	default:
		return nil, fmt.Errorf("unknown queue driver %q", cfg.Driver)
	}
}
