package hls

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lumbrjx/codek7/streaming/pkg/logger"
)

const defaultMutationTimeout = 5 * time.Minute

// Task mutates HLS artifacts. It must honour ctx cancellation.
type Task func(ctx context.Context) error

type job struct {
	ctx  context.Context
	task Task
	done chan error
}

// MutationQueue runs HLS mutation tasks one at a time, in submission order,
// for the whole process.
type MutationQueue struct {
	timeout time.Duration

	mu      sync.Mutex
	pending []*job
	closed  bool
	wake    chan struct{}
	stopped chan struct{}
}

func NewMutationQueue(timeout time.Duration) *MutationQueue {
	if timeout <= 0 {
		timeout = defaultMutationTimeout
	}
	q := &MutationQueue{
		timeout: timeout,
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
	go q.run()
	return q
}

// Enqueue waits for every previously enqueued task, runs task and returns its error.
// It returns ctx.Err() as soon as ctx ends; a task that has not started yet is skipped.
func (q *MutationQueue) Enqueue(ctx context.Context, task Task) error {
	j := &job{ctx: ctx, task: task, done: make(chan error, 1)}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.pending = append(q.pending, j)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}

	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len is the number of tasks waiting to start.
func (q *MutationQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Close refuses new tasks and returns once the already enqueued ones have run.
func (q *MutationQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.stopped
		return
	}
	q.closed = true
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	<-q.stopped
}

func (q *MutationQueue) run() {
	defer close(q.stopped)
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			closed := q.closed
			q.mu.Unlock()
			if closed {
				return
			}
			<-q.wake
			continue
		}
		j := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		q.mu.Unlock()

		q.execute(j)
	}
}

// execute answers j.done as soon as the task ends or times out, but only returns
// once the task goroutine has exited, so the next task never overlaps it.
func (q *MutationQueue) execute(j *job) {
	if err := j.ctx.Err(); err != nil {
		j.done <- err
		return
	}

	ctx, cancel := context.WithTimeout(j.ctx, q.timeout)
	defer cancel()

	result := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				result <- fmt.Errorf("hls mutation panicked: %v", r)
			}
		}()
		result <- j.task(ctx)
	}()

	select {
	case err := <-result:
		if err != nil && ctx.Err() != nil {
			err = q.cancelled(j)
		}
		j.done <- err
	case <-ctx.Done():
		j.done <- q.cancelled(j)
		<-result
		logger.Logger.Warn("Timed out HLS mutation task finished, resuming queue")
	}
}

// cancelled reports why the task context ended: the caller went away or the
// mutation ran past its timeout.
func (q *MutationQueue) cancelled(j *job) error {
	if err := j.ctx.Err(); err != nil {
		return err
	}
	logger.Logger.Warn("HLS mutation task exceeded its timeout",
		"timeout_ms", q.timeout.Milliseconds(),
	)
	return ErrMutationTimeout
}
