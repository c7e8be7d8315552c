// Package perkey provides a scheduler that serializes work per key while
// allowing work for different keys to execute concurrently.
//
// Typical use-case: event-sourced aggregates, where commands for one
// aggregate ID should run sequentially within a process, but different
// aggregates in parallel.
package perkey

import (
	"context"
	"errors"
	"sync"
)

// ErrSchedulerClosed is returned when Do is called on a closed scheduler.
var ErrSchedulerClosed = errors.New("scheduler is closed")

// Option configures a Scheduler.
type Option func(*config)

type config struct {
	bufferSize int
}

// WithBufferSize sets the task buffer size per worker (default: 64).
func WithBufferSize(size int) Option {
	return func(c *config) {
		if size > 0 {
			c.bufferSize = size
		}
	}
}

// Scheduler runs tasks such that for any given key, tasks execute
// sequentially in submission order. Tasks for different keys proceed in
// parallel.
type Scheduler[K comparable] struct {
	mu         sync.Mutex
	workers    map[K]*worker
	closed     bool
	wg         sync.WaitGroup // tracks in-flight Do operations
	bufferSize int
}

type worker struct {
	tasks chan *task
}

type task struct {
	fn   func() error
	done chan error
}

func New[K comparable](opts ...Option) *Scheduler[K] {
	cfg := &config{bufferSize: 64}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Scheduler[K]{
		workers:    make(map[K]*worker),
		bufferSize: cfg.bufferSize,
	}
}

// Do schedules fn to run for the given key and blocks until fn finishes,
// returning its error.
func (s *Scheduler[K]) Do(key K, fn func() error) error {
	return s.DoContext(context.Background(), key, fn)
}

// DoContext is like Do but respects context cancellation. If the context is
// cancelled while waiting, the context error is returned; an already
// enqueued task still executes.
func (s *Scheduler[K]) DoContext(ctx context.Context, key K, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSchedulerClosed
	}
	s.wg.Add(1)
	w := s.getOrCreateWorkerLocked(key)
	s.mu.Unlock()

	t := &task{
		fn:   fn,
		done: make(chan error, 1),
	}

	select {
	case w.tasks <- t:
	case <-ctx.Done():
		s.wg.Done()
		return ctx.Err()
	}

	select {
	case err := <-t.done:
		s.wg.Done()
		return err
	case <-ctx.Done():
		s.wg.Done()
		return ctx.Err()
	}
}

// Close stops accepting new tasks and shuts down all workers. Tasks already
// queued still run.
func (s *Scheduler[K]) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	// Wait for in-flight Do calls to finish enqueueing so we never send on
	// a closed channel.
	s.wg.Wait()

	s.mu.Lock()
	for _, w := range s.workers {
		close(w.tasks)
	}
	s.workers = nil
	s.mu.Unlock()
}

func (s *Scheduler[K]) getOrCreateWorkerLocked(key K) *worker {
	if w, ok := s.workers[key]; ok {
		return w
	}
	w := &worker{tasks: make(chan *task, s.bufferSize)}
	s.workers[key] = w
	go runWorker(w)
	return w
}

func runWorker(w *worker) {
	for t := range w.tasks {
		t.done <- t.fn()
	}
}
