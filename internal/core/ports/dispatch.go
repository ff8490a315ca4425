package ports

import "context"

// Task is a unit of outbound work. It receives the dispatcher's context, not the
// submitter's.
type Task = func(ctx context.Context)

// TaskDispatcher runs tasks on a bounded worker pool. Submit blocks while the pool
// is saturated and fails only when ctx ends or the dispatcher is closed.
type TaskDispatcher interface {
	Submit(ctx context.Context, task Task) error
}

// SequenceSource hands out process-wide unique, strictly increasing numbers.
type SequenceSource interface {
	Next() int64
}
