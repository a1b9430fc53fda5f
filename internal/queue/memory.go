package queue

import (
	"context"
	"sync"
)

// Memory is an in-process queue backed by a buffered channel. Tasks are lost
// when the process exits.
type Memory struct {
	tasks chan *Task
	done  chan struct{}
	once  sync.Once
}

// NewMemory creates a memory queue holding up to buffer pending tasks.
func NewMemory(buffer int) *Memory {
	if buffer <= 0 {
		buffer = 64
	}
	return &Memory{
		tasks: make(chan *Task, buffer),
		done:  make(chan struct{}),
	}
}

// Enqueue adds a task, blocking while the buffer is full.
func (m *Memory) Enqueue(ctx context.Context, name string, payload interface{}) error {
	task, err := NewTask(name, payload)
	if err != nil {
		return err
	}
	select {
	case <-m.done:
		return ErrClosed
	default:
	}
	select {
	case m.tasks <- task:
		return nil
	case <-m.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dequeue waits for the next task.
func (m *Memory) Dequeue(ctx context.Context) (*Task, error) {
	select {
	case task := <-m.tasks:
		return task, nil
	case <-m.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len returns the number of pending tasks.
func (m *Memory) Len() int {
	return len(m.tasks)
}

// Close stops the queue. Pending tasks are dropped.
func (m *Memory) Close() error {
	m.once.Do(func() { close(m.done) })
	return nil
}
