package workers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"vibedojo-ledger/logger"
)

type task struct {
	name string
	run  func(ctx context.Context) error
}

// Dispatcher runs fire-and-forget side effects on a fixed pool of goroutines. Task failures
// are logged and never reach the caller.
type Dispatcher struct {
	queue       chan task
	taskTimeout time.Duration
	log         *logger.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(workers, queueSize int, taskTimeout time.Duration, log *logger.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	d := &Dispatcher{
		queue:       make(chan task, queueSize),
		taskTimeout: taskTimeout,
		log:         log.With("component", "Dispatcher"),
	}
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.work()
	}
	return d
}

// Submit enqueues a task without blocking. It returns false when the queue is full or the
// dispatcher is closed; the task is dropped.
func (d *Dispatcher) Submit(name string, run func(ctx context.Context) error) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.log.Warn("dispatcher closed, task dropped", "task", name)
		return false
	}
	select {
	case d.queue <- task{name: name, run: run}:
		return true
	default:
		d.log.Warn("dispatch queue full, task dropped", "task", name)
		return false
	}
}

// Close stops accepting tasks and waits for queued ones to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for t := range d.queue {
		if err := d.runTask(t); err != nil {
			d.log.Warn("background task failed", "task", t.name, "error", err)
		}
	}
}

func (d *Dispatcher) runTask(t task) (err error) {
	ctx := context.Background()
	if d.taskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.taskTimeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return t.run(ctx)
}
