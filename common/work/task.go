package work

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// task adapts a plain function into an Executor
type task[T any] struct {
	ID           string
	execute      func(ctx context.Context) (T, error)
	errorHandler func(error)
	timeout      time.Duration
}

// TaskOption configures a task built by NewTask
type TaskOption[T any] func(*task[T])

// WithID sets the task's id, which otherwise defaults to a fresh UUID. Pools
// and run locks key on it, so stable ids give stable lock keys.
func WithID[T any](id string) TaskOption[T] {
	return func(t *task[T]) {
		t.ID = id
	}
}

// WithErrorHandler sets the callback invoked when the task fails
func WithErrorHandler[T any](handler func(error)) TaskOption[T] {
	return func(t *task[T]) {
		t.errorHandler = handler
	}
}

// WithTimeout overrides the pool's default timeout for this task
func WithTimeout[T any](timeout time.Duration) TaskOption[T] {
	return func(t *task[T]) {
		t.timeout = timeout
	}
}

// NewTask wraps a function as a pool Executor
func NewTask[T any](
	execute func(ctx context.Context) (T, error),
	options ...TaskOption[T],
) (Executor[T], error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	t := &task[T]{
		ID:      id.String(),
		execute: execute,
	}
	for _, opt := range options {
		opt(t)
	}
	return t, nil
}

func (t *task[T]) ExecutorID() string {
	return t.ID
}

func (t *task[T]) Execute(ctx context.Context) (T, error) {
	return t.execute(ctx)
}

func (t *task[T]) OnError(err error) {
	if t.errorHandler != nil {
		t.errorHandler(err)
	}
}

func (t *task[T]) Timeout() time.Duration {
	return t.timeout
}
