// Package taskqueue provides the bounded FIFO job queue coupling the broker
// consumer to the worker pool. Admission never blocks the producer: a full
// queue is reported immediately so the consumer can nack instead of stalling
// its acknowledgment loop.
package taskqueue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrQueueFull is returned by Enqueue when occupancy equals capacity
	ErrQueueFull = errors.New("task queue is full")
	// ErrQueueClosed is returned once the queue is closed and drained
	ErrQueueClosed = errors.New("task queue is closed")
)

// Job is one unit of work: a single input file path awaiting classification
// and processing. Immutable once created; owned by exactly one component at
// a time (producer, queue, then one worker).
type Job struct {
	ID         string
	SourcePath string
	EnqueuedAt time.Time
}

// NewJob creates a Job for the given source path
func NewJob(sourcePath string) Job {
	return Job{
		ID:         uuid.NewString(),
		SourcePath: sourcePath,
		EnqueuedAt: time.Now().UTC(),
	}
}

// Queue is a fixed-capacity FIFO job queue safe for concurrent use.
// The backing buffer is a channel and is never exposed.
type Queue struct {
	jobs      chan Job
	closed    chan struct{}
	closeOnce sync.Once
}

// New creates a Queue with the given fixed capacity.
// Capacities below one are clamped to one.
func New(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{
		jobs:   make(chan Job, capacity),
		closed: make(chan struct{}),
	}
}

// Enqueue admits a job without blocking. It returns ErrQueueFull when the
// queue is at capacity and ErrQueueClosed after Close.
func (q *Queue) Enqueue(job Job) error {
	select {
	case <-q.closed:
		return ErrQueueClosed
	default:
	}

	select {
	case q.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Dequeue returns the oldest job, blocking while the queue is empty.
// After Close, buffered jobs are still drained in order; once empty,
// Dequeue returns ErrQueueClosed. Context cancellation returns ctx.Err().
func (q *Queue) Dequeue(ctx context.Context) (Job, error) {
	select {
	case job := <-q.jobs:
		return job, nil
	case <-ctx.Done():
		return Job{}, ctx.Err()
	case <-q.closed:
		// Closed may win the race while jobs remain buffered; drain first.
		select {
		case job := <-q.jobs:
			return job, nil
		default:
			return Job{}, ErrQueueClosed
		}
	}
}

// Len returns the current occupancy
func (q *Queue) Len() int {
	return len(q.jobs)
}

// Cap returns the fixed capacity
func (q *Queue) Cap() int {
	return cap(q.jobs)
}

// Close stops admission and lets consumers drain the remaining jobs.
// Safe to call more than once.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		close(q.closed)
	})
}
