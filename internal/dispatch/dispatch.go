// Package dispatch runs best-effort secondary writes off the request path.
//
// A task is fire-and-forget: the caller never waits for it and never sees
// its error. Failures go to a FailureSink instead.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"
)

// Task is one secondary write. It receives a context that is not tied to
// the request that scheduled it.
type Task func(ctx context.Context) error

// Dispatcher schedules tasks without blocking the caller. Tasks sharing a
// non-empty key run one at a time in dispatch order; key is the id of the
// document the task writes.
type Dispatcher interface {
	Dispatch(key, name string, task Task)
}

var (
	ErrQueueFull = errors.New("dispatch queue full")
	ErrStopped   = errors.New("dispatcher stopped")
)

// PoolConfig holds configuration for a Pool. QueueSize bounds each
// worker's queue.
type PoolConfig struct {
	Workers     int
	QueueSize   int
	TaskTimeout time.Duration
}

type job struct {
	name string
	task Task
}

// Pool runs tasks on a fixed set of goroutines, each fed by its own bounded
// queue. A key always hashes to the same worker.
type Pool struct {
	cfg    PoolConfig
	sink   FailureSink
	queues []chan job
	next   atomic.Uint32

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// NewPool creates a pool. Call Start before dispatching.
func NewPool(cfg PoolConfig, sink FailureSink) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = 10 * time.Second
	}
	if sink == nil {
		sink = NopSink{}
	}
	queues := make([]chan job, cfg.Workers)
	for i := range queues {
		queues[i] = make(chan job, cfg.QueueSize)
	}
	return &Pool{
		cfg:    cfg,
		sink:   sink,
		queues: queues,
	}
}

func (p *Pool) Start() {
	for _, q := range p.queues {
		p.wg.Add(1)
		go p.run(q)
	}
}

// Dispatch enqueues the task on the worker owning key; an empty key goes to
// the next worker in turn. A full queue or a stopped pool reports the task
// as failed instead of blocking.
func (p *Pool) Dispatch(key, name string, task Task) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		p.sink.TaskFailed(name, ErrStopped)
		return
	}
	select {
	case p.queues[p.worker(key)] <- job{name: name, task: task}:
	default:
		p.sink.TaskFailed(name, ErrQueueFull)
	}
}

func (p *Pool) worker(key string) int {
	if key == "" {
		return int(p.next.Add(1) % uint32(len(p.queues)))
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(p.queues)))
}

// Stop rejects new tasks and waits for queued ones to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	for _, q := range p.queues {
		close(q)
	}
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pool) run(jobs <-chan job) {
	defer p.wg.Done()
	for j := range jobs {
		execute(j.name, j.task, p.cfg.TaskTimeout, p.sink)
	}
}

// Inline runs each task on the caller's goroutine. Tests use it so the
// secondary writes have landed when the operation returns.
type Inline struct {
	Sink    FailureSink
	Timeout time.Duration
}

func (d Inline) Dispatch(_, name string, task Task) {
	sink := d.Sink
	if sink == nil {
		sink = NopSink{}
	}
	execute(name, task, d.Timeout, sink)
}

func execute(name string, task Task, timeout time.Duration, sink FailureSink) {
	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			sink.TaskFailed(name, fmt.Errorf("panic: %v", r))
		}
	}()

	if err := task(ctx); err != nil {
		sink.TaskFailed(name, err)
		return
	}
	sink.TaskSucceeded(name)
}
