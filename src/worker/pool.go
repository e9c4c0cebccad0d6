package worker

import (
	"context"
	"runtime"
	"sync"

	"go.uber.org/zap"
)

// Task is run on a worker goroutine. It must report its outcome itself,
// typically by posting back into the event loop.
type Task func(ctx context.Context)

// Pool is a fixed-size worker pool with a 1-slot input queue (strict back-pressure).
type Pool struct {
	jobs   chan job
	wg     sync.WaitGroup
	once   sync.Once
	logger *zap.Logger
}

type job struct {
	ctx  context.Context
	task Task
}

// New creates a worker pool. Size defaults to NumCPU when size<=0. Queue is 1 slot.
func New(size int, logger *zap.Logger) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pool{jobs: make(chan job, 1), logger: logger}
	p.start(size)
	return p
}

func (p *Pool) start(n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for j := range p.jobs {
				p.run(id, j)
			}
		}(i)
	}
}

func (p *Pool) run(id int, j job) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("worker task panicked", zap.Int("worker", id), zap.Any("panic", r))
		}
	}()
	p.logger.Debug("worker starting task", zap.Int("worker", id))
	j.task(j.ctx)
	p.logger.Debug("worker finished task", zap.Int("worker", id))
}

// Submit enqueues a task if the single-slot queue is free. Returns false if dropped.
func (p *Pool) Submit(ctx context.Context, task Task) bool {
	select {
	case p.jobs <- job{ctx: ctx, task: task}:
		return true
	default:
		return false
	}
}

// Close stops the pool after draining current work. Safe to call more than once.
func (p *Pool) Close() {
	p.once.Do(func() { close(p.jobs) })
	p.wg.Wait()
}
