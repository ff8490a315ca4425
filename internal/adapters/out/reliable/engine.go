package reliable

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"fulfillment/internal/pkg/errs"
	"fulfillment/internal/pkg/framing"

	"github.com/benbjohnson/clock"
)

const DefaultInterval = 3000 * time.Millisecond

var (
	ErrEngineClosed = errors.New("reliable engine is closed")
	ErrExpired      = errors.New("request expired without acknowledgement")
)

// Transport is a peer connection frames can be written to.
type Transport interface {
	Name() string
	Send(frame []byte) error
}

// PendingRequest describes one command awaiting acknowledgement.
type PendingRequest struct {
	Seq      int64
	Peer     string
	Tag      int64
	Frame    []byte
	Attempts int
	Due      time.Time
}

type Config struct {
	Interval time.Duration

	// MaxAttempts caps the number of writes per request, 0 means unlimited.
	MaxAttempts int

	Clock clock.Clock
}

func DefaultConfig() Config {
	return Config{Interval: DefaultInterval}
}

type Stats struct {
	Pending int
	Resends uint64
	Expired uint64
}

// Engine tracks pending requests and resends them until acknowledged.
type Engine struct {
	counter  *Counter
	interval time.Duration
	maxTries int
	clock    clock.Clock
	logger   *slog.Logger

	mu       sync.Mutex
	pending  map[int64]*entry
	queue    resendQueue
	closed   bool
	onExpire func(PendingRequest)

	resends atomic.Uint64
	expired atomic.Uint64

	wake chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

// NewEngine starts the resend scheduler. Close stops it.
func NewEngine(counter *Counter, cfg Config, logger *slog.Logger) (*Engine, error) {
	if counter == nil {
		return nil, errs.NewValueIsRequiredError("counter")
	}
	if cfg.Interval <= 0 {
		return nil, errs.NewValueIsInvalidError("interval")
	}
	if cfg.MaxAttempts < 0 {
		return nil, errs.NewValueIsOutOfRangeError("maxAttempts", cfg.MaxAttempts, 0, "unbounded")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}

	e := &Engine{
		counter:  counter,
		interval: cfg.Interval,
		maxTries: cfg.MaxAttempts,
		clock:    cfg.Clock,
		logger:   logger.With("component", "reliable"),
		pending:  make(map[int64]*entry),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}

	e.wg.Add(1)
	go e.loop()
	return e, nil
}

// OnExpire registers the handler called, outside any lock, for every request
// dropped after MaxAttempts writes.
func (e *Engine) OnExpire(fn func(PendingRequest)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onExpire = fn
}

// Send assigns the next sequence number, builds and encodes the message once,
// registers it as pending and writes it to peer. tag identifies the package the
// command belongs to. A failed write is left to the resend schedule.
func (e *Engine) Send(ctx context.Context, peer Transport, tag int64, build func(seq int64) framing.Marshaler) (int64, error) {
	seq := e.counter.Next()
	frame, err := framing.Encode(build(seq))
	if err != nil {
		return 0, fmt.Errorf("encode seq %d: %w", seq, err)
	}

	ent := &entry{
		req: PendingRequest{
			Seq:      seq,
			Peer:     peer.Name(),
			Tag:      tag,
			Frame:    frame,
			Attempts: 1,
			Due:      e.clock.Now().Add(e.interval),
		},
		peer: peer,
		done: make(chan struct{}),
	}

	// Registered before the first write so an ack racing the write is not lost.
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return 0, ErrEngineClosed
	}
	e.pending[seq] = ent
	heap.Push(&e.queue, ent)
	e.mu.Unlock()
	e.signal()

	if err := peer.Send(frame); err != nil {
		e.logger.WarnContext(ctx, "Write failed, will resend",
			"peer", ent.req.Peer, "seq", seq, "error", err)
	}
	return seq, nil
}

// Acknowledge removes the pending requests with the given sequence numbers and
// returns how many were pending. Unknown numbers are ignored.
func (e *Engine) Acknowledge(seqs ...int64) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := 0
	for _, seq := range seqs {
		if _, ok := e.removeLocked(seq, nil); ok {
			n++
		}
	}
	return n
}

// Fail removes a pending request the peer reported an error for and returns it.
func (e *Engine) Fail(seq int64, reason string) (PendingRequest, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ent, ok := e.pending[seq]
	if !ok {
		return PendingRequest{}, false
	}
	e.removeLocked(seq, errs.NewPeerReportedError(ent.req.Peer, seq, reason))
	return ent.req, true
}

// Await blocks until seq is no longer pending. It returns nil once acknowledged
// (or if seq was not pending), the peer's error after Fail, ErrExpired,
// ErrEngineClosed or the context error.
func (e *Engine) Await(ctx context.Context, seq int64) error {
	e.mu.Lock()
	ent, ok := e.pending[seq]
	e.mu.Unlock()
	if !ok {
		return nil
	}

	select {
	case <-ent.done:
		return ent.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Lookup returns a copy of a pending request.
func (e *Engine) Lookup(seq int64) (PendingRequest, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ent, ok := e.pending[seq]
	if !ok {
		return PendingRequest{}, false
	}
	return ent.req, true
}

func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

func (e *Engine) Stats() Stats {
	return Stats{
		Pending: e.Pending(),
		Resends: e.resends.Load(),
		Expired: e.expired.Load(),
	}
}

// Close stops the scheduler and releases every Await with ErrEngineClosed.
// Pending requests are dropped.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	for seq := range e.pending {
		e.removeLocked(seq, ErrEngineClosed)
	}
	e.mu.Unlock()

	close(e.done)
	e.wg.Wait()
}

func (e *Engine) removeLocked(seq int64, reason error) (*entry, bool) {
	ent, ok := e.pending[seq]
	if !ok {
		return nil, false
	}
	delete(e.pending, seq)
	if ent.index >= 0 {
		heap.Remove(&e.queue, ent.index)
	}
	ent.err = reason
	close(ent.done)
	return ent, true
}

func (e *Engine) signal() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func (e *Engine) loop() {
	defer e.wg.Done()

	for {
		next, ok := e.fire()

		var tick <-chan time.Time
		var timer *clock.Timer
		if ok {
			timer = e.clock.Timer(next.Sub(e.clock.Now()))
			tick = timer.C
		}

		select {
		case <-tick:
		case <-e.wake:
		case <-e.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

type resend struct {
	peer  Transport
	seq   int64
	frame []byte
}

// fire rewrites every due request, expires the ones at their cap and returns the
// next due time.
func (e *Engine) fire() (time.Time, bool) {
	now := e.clock.Now()

	var writes []resend
	var expired []PendingRequest

	e.mu.Lock()
	for len(e.queue) > 0 && !e.queue[0].req.Due.After(now) {
		ent := e.queue[0]
		if e.maxTries > 0 && ent.req.Attempts >= e.maxTries {
			expired = append(expired, ent.req)
			e.removeLocked(ent.req.Seq, ErrExpired)
			continue
		}
		ent.req.Attempts++
		ent.req.Due = now.Add(e.interval)
		heap.Fix(&e.queue, ent.index)
		writes = append(writes, resend{peer: ent.peer, seq: ent.req.Seq, frame: ent.req.Frame})
	}
	next, ok := e.queue.next()
	onExpire := e.onExpire
	e.mu.Unlock()

	ctx := context.Background()
	for _, w := range writes {
		e.resends.Add(1)
		if err := w.peer.Send(w.frame); err != nil {
			e.logger.DebugContext(ctx, "Resend failed", "peer", w.peer.Name(), "seq", w.seq, "error", err)
		}
	}
	for _, req := range expired {
		e.expired.Add(1)
		e.logger.WarnContext(ctx, "Request expired without acknowledgement",
			"peer", req.Peer, "seq", req.Seq, "tag", req.Tag, "attempts", req.Attempts)
		if onExpire != nil {
			onExpire(req)
		}
	}
	return next, ok
}
