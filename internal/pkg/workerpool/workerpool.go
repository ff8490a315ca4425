// Package workerpool implements the bounded task dispatcher: a pool of workers
// draining a bounded queue, growing from a minimum to a maximum size when the queue
// is full, and applying backpressure beyond that.
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"fulfillment/internal/pkg/errs"

	"github.com/benbjohnson/clock"
)

var ErrPoolClosed = errors.New("worker pool is closed")

// Task receives the pool's context, which is cancelled once the pool has drained.
type Task = func(ctx context.Context)

type Config struct {
	MinWorkers  int
	MaxWorkers  int
	QueueSize   int
	IdleTimeout time.Duration

	// Clock drives the idle timeout of extra workers. Defaults to the wall clock.
	Clock clock.Clock
}

func DefaultConfig() Config {
	return Config{
		MinWorkers:  50,
		MaxWorkers:  80,
		QueueSize:   30,
		IdleTimeout: 5 * time.Second,
	}
}

func (c Config) Validate() error {
	if c.MinWorkers < 1 {
		return errs.NewValueIsOutOfRangeError("MinWorkers", c.MinWorkers, 1, c.MaxWorkers)
	}
	if c.MaxWorkers < c.MinWorkers {
		return errs.NewValueIsOutOfRangeError("MaxWorkers", c.MaxWorkers, c.MinWorkers, 1<<16)
	}
	if c.QueueSize < 0 {
		return errs.NewValueIsOutOfRangeError("QueueSize", c.QueueSize, 0, 1<<16)
	}
	if c.IdleTimeout <= 0 {
		return errs.NewValueIsInvalidError("IdleTimeout")
	}
	return nil
}

// Pool runs submitted tasks. It is safe for concurrent use.
type Pool struct {
	cfg    Config
	clock  clock.Clock
	queue  chan Task
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	// mu guards closed; Submit holds the read lock while enqueueing so Close
	// never strands a task behind exited workers.
	mu     sync.RWMutex
	closed bool

	workers atomic.Int32
	busy    atomic.Int32
	wg      sync.WaitGroup
}

// New starts MinWorkers workers.
func New(cfg Config, logger *slog.Logger) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid worker pool config: %w", err)
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		cfg:    cfg,
		clock:  cfg.Clock,
		queue:  make(chan Task, cfg.QueueSize),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
		logger: logger.With("component", "workerpool"),
	}

	for range cfg.MinWorkers {
		p.workers.Add(1)
		p.wg.Add(1)
		go p.work(nil, false)
	}
	return p, nil
}

// Submit queues task, starting an extra worker when the queue is full and the pool
// is below its maximum. At the maximum it blocks until the queue has room, ctx ends
// or the pool is closed.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	if task == nil {
		return errs.NewValueIsRequiredError("task")
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	if p.offer(task) {
		return nil
	}

	select {
	case p.queue <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) offer(task Task) bool {
	select {
	case p.queue <- task:
		return true
	default:
	}
	return p.grow(task)
}

func (p *Pool) grow(task Task) bool {
	for {
		n := p.workers.Load()
		if int(n) >= p.cfg.MaxWorkers {
			return false
		}
		if p.workers.CompareAndSwap(n, n+1) {
			break
		}
	}
	p.wg.Add(1)
	go p.work(task, true)
	return true
}

// Close stops accepting tasks, runs everything already queued and waits for the
// workers to exit.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.done)
	p.mu.Unlock()

	p.wg.Wait()
	p.cancel()
}

func (p *Pool) Workers() int { return int(p.workers.Load()) }

func (p *Pool) Busy() int { return int(p.busy.Load()) }

func (p *Pool) Queued() int { return len(p.queue) }

func (p *Pool) work(first Task, extra bool) {
	defer p.wg.Done()
	defer p.workers.Add(-1)

	if first != nil {
		p.run(first)
	}

	var idle <-chan time.Time
	var timer *clock.Timer
	if extra {
		timer = p.clock.Timer(p.cfg.IdleTimeout)
		defer timer.Stop()
		idle = timer.C
	}

	for {
		select {
		case task := <-p.queue:
			p.run(task)
			if timer != nil {
				timer.Reset(p.cfg.IdleTimeout)
			}
		case <-idle:
			return
		case <-p.done:
			p.drain()
			return
		}
	}
}

func (p *Pool) drain() {
	for {
		select {
		case task := <-p.queue:
			p.run(task)
		default:
			return
		}
	}
}

func (p *Pool) run(task Task) {
	p.busy.Add(1)
	defer p.busy.Add(-1)
	defer func() {
		if r := recover(); r != nil {
			p.logger.ErrorContext(p.ctx, "Task panicked", "panic", r)
		}
	}()
	task(p.ctx)
}
