package ecs

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// TaskSystem runs long-running work outside of the frame. Components start
// a task and poll it from their update function instead of blocking.
type TaskSystem struct {
	sem *semaphore.Weighted
	log *zap.Logger
	wg  sync.WaitGroup
}

// NewTaskSystem creates a task system running at most workers tasks at
// once.
func NewTaskSystem(workers int, log *zap.Logger) *TaskSystem {
	return &TaskSystem{
		sem: semaphore.NewWeighted(int64(max(workers, 1))),
		log: log,
	}
}

// Task is a handle to work started with TaskSystem.StartTask.
type Task struct {
	name     string
	done     chan struct{}
	err      error
	duration time.Duration
}

// StartTask runs fn on its own goroutine once a worker slot is free. A
// started task always runs to completion. A panic in fn is turned into the
// task's error.
func (ts *TaskSystem) StartTask(name string, fn func() error) *Task {
	t := &Task{name: name, done: make(chan struct{})}
	ts.wg.Add(1)

	go func() {
		defer ts.wg.Done()
		defer close(t.done)

		// Acquire cannot fail on a background context.
		_ = ts.sem.Acquire(context.Background(), 1)
		defer ts.sem.Release(1)

		start := time.Now()
		t.err = runTask(fn)
		t.duration = time.Since(start)

		if t.err != nil {
			ts.log.Error("task failed", zap.String("task", name), zap.Error(t.err))
		}
	}()

	return t
}

func runTask(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("task panicked: %v", r)
		}
	}()
	return fn()
}

// WaitForAll blocks until every started task has finished.
func (ts *TaskSystem) WaitForAll() {
	ts.wg.Wait()
}

// Name returns the name the task was started with.
func (t *Task) Name() string {
	return t.name
}

// IsFinished reports whether the task has completed without blocking.
func (t *Task) IsFinished() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the task has completed and returns its error.
func (t *Task) Wait() error {
	<-t.done
	return t.err
}

// Duration returns how long the task ran. It is zero until the task has
// finished.
func (t *Task) Duration() time.Duration {
	if !t.IsFinished() {
		return 0
	}
	return t.duration
}
