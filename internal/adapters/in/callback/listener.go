// Package callback accepts connections opened by the carrier to deliver events
// directly, used with the per-command carrier mode. Every accepted connection is
// read frame by frame; batches are routed and acknowledged on that connection.
package callback

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"

	"fulfillment/internal/adapters/out/peer"
	"fulfillment/internal/pkg/framing"

	"github.com/google/uuid"
)

// Router handles one inbound batch and replies on its connection.
type Router interface {
	Route(ctx context.Context, body []byte, reply peer.Reply) error
}

type Listener struct {
	addr   string
	router Router
	logger *slog.Logger

	mu     sync.Mutex
	ln     net.Listener
	conns  map[net.Conn]struct{}
	closed bool
	wg     sync.WaitGroup
}

func NewListener(addr string, router Router, logger *slog.Logger) *Listener {
	return &Listener{
		addr:   addr,
		router: router,
		logger: logger.With("component", "callback_listener"),
		conns:  make(map[net.Conn]struct{}),
	}
}

// Listen binds the address; Serve must be called to accept connections.
func (l *Listener) Listen() error {
	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.ln = ln
	l.mu.Unlock()
	return nil
}

// Addr returns the bound address, nil before Listen.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// Serve accepts connections until ctx ends, then closes every open connection and
// waits for their handlers.
func (l *Listener) Serve(ctx context.Context) error {
	l.mu.Lock()
	ln := l.ln
	l.mu.Unlock()
	if ln == nil {
		if err := l.Listen(); err != nil {
			return err
		}
		return l.Serve(ctx)
	}

	stop := context.AfterFunc(ctx, l.shutdown)
	defer stop()

	l.logger.InfoContext(ctx, "Callback listener started", "addr", ln.Addr().String())
	for {
		conn, err := ln.Accept()
		if err != nil {
			l.wg.Wait()
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		l.mu.Lock()
		if l.closed {
			l.mu.Unlock()
			_ = conn.Close()
			continue
		}
		l.conns[conn] = struct{}{}
		l.mu.Unlock()

		l.wg.Add(1)
		go l.handle(ctx, conn)
	}
}

func (l *Listener) handle(ctx context.Context, conn net.Conn) {
	defer l.wg.Done()
	defer func() {
		l.mu.Lock()
		delete(l.conns, conn)
		l.mu.Unlock()
		_ = conn.Close()
	}()

	session := uuid.NewString()
	logger := l.logger.With("session", session, "remote", conn.RemoteAddr().String())
	logger.DebugContext(ctx, "Carrier connected")

	var writeMu sync.Mutex
	reply := func(frame []byte) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		_, err := conn.Write(frame)
		return err
	}

	r := framing.NewReader(conn)
	for {
		body, err := r.ReadFrame()
		if err != nil {
			logger.DebugContext(ctx, "Carrier connection closed", "error", err)
			return
		}
		_ = l.router.Route(ctx, body, reply)
	}
}

func (l *Listener) shutdown() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	if l.ln != nil {
		_ = l.ln.Close()
	}
	for c := range l.conns {
		_ = c.Close()
	}
}
