// Package peer implements a framed TCP link to one external peer: dialing, an
// optional handshake, a receive loop and reconnection after failures.
package peer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"fulfillment/internal/pkg/errs"
	"fulfillment/internal/pkg/framing"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
)

const (
	DefaultReconnectDelay = time.Second
	defaultMaxRedials     = 3
)

var (
	// ErrRedial is returned by a Handshaker that needs the handshake retried on a
	// fresh connection.
	ErrRedial = errors.New("handshake requires a fresh connection")

	ErrNotReady = errors.New("link is not ready")
	ErrClosed   = errors.New("link is closed")
)

// Handshaker runs the registration exchange on a new connection before it is
// marked ready.
type Handshaker interface {
	Handshake(ctx context.Context, conn net.Conn, r *framing.Reader) error
}

// Dialer opens a connection to the peer.
type Dialer func(ctx context.Context) (net.Conn, error)

// TCPDialer dials addr over TCP.
func TCPDialer(addr string) Dialer {
	var d net.Dialer
	return func(ctx context.Context) (net.Conn, error) {
		return d.DialContext(ctx, "tcp", addr)
	}
}

// FrameHandler processes one inbound frame body.
type FrameHandler func(ctx context.Context, body []byte)

type Config struct {
	Name           string
	Addr           string
	ReconnectDelay time.Duration

	// Dial defaults to TCPDialer(Addr).
	Dial Dialer

	// Handshaker may be nil when the peer needs no registration.
	Handshaker Handshaker

	// MaxRedials bounds consecutive ErrRedial answers within one Connect.
	MaxRedials int

	Clock clock.Clock
}

// Link owns the connection to one peer. Send is safe for concurrent use; frames
// are written whole under a per-link lock.
type Link struct {
	cfg    Config
	logger *slog.Logger
	state  atomic.Int32

	sendMu sync.Mutex

	mu      sync.Mutex
	conn    net.Conn
	reader  *framing.Reader
	session string
	closed  bool
}

func NewLink(cfg Config, logger *slog.Logger) (*Link, error) {
	if cfg.Name == "" {
		return nil, errs.NewValueIsRequiredError("name")
	}
	if cfg.Dial == nil {
		if cfg.Addr == "" {
			return nil, errs.NewValueIsRequiredError("addr")
		}
		cfg.Dial = TCPDialer(cfg.Addr)
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.MaxRedials <= 0 {
		cfg.MaxRedials = defaultMaxRedials
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}

	return &Link{
		cfg:    cfg,
		logger: logger.With("component", "peer", "peer", cfg.Name),
	}, nil
}

func (l *Link) Name() string { return l.cfg.Name }

func (l *Link) State() State { return State(l.state.Load()) }

// Session identifies the current connection; it changes on every reconnect.
func (l *Link) Session() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.session
}

func (l *Link) setState(s State) {
	if prev := State(l.state.Swap(int32(s))); prev != s {
		l.logger.Debug("Link state changed", "from", prev, "to", s)
	}
}

// Connect dials the peer and runs the handshake. A handshake answering ErrRedial
// is retried on a fresh connection. Handshake rejections are returned as is.
func (l *Link) Connect(ctx context.Context) error {
	for redials := 0; ; redials++ {
		if l.isClosed() {
			return ErrClosed
		}

		l.setState(Connecting)
		conn, err := l.cfg.Dial(ctx)
		if err != nil {
			l.setState(Disconnected)
			return errs.NewConnectionError(l.cfg.Name, l.cfg.Addr, err)
		}
		reader := framing.NewReader(conn)

		if l.cfg.Handshaker != nil {
			l.setState(Handshaking)
			err = l.cfg.Handshaker.Handshake(ctx, conn, reader)
			if errors.Is(err, ErrRedial) && redials < l.cfg.MaxRedials {
				_ = conn.Close()
				l.logger.InfoContext(ctx, "Handshake asked for a fresh connection, redialing", "redial", redials+1)
				continue
			}
			if err != nil {
				_ = conn.Close()
				l.setState(Disconnected)
				return fmt.Errorf("%s handshake: %w", l.cfg.Name, err)
			}
		}

		session := uuid.NewString()
		l.mu.Lock()
		if l.closed {
			l.mu.Unlock()
			_ = conn.Close()
			return ErrClosed
		}
		l.conn, l.reader, l.session = conn, reader, session
		l.mu.Unlock()

		l.setState(Ready)
		l.logger.InfoContext(ctx, "Link ready", "session", session)
		return nil
	}
}

// Receive blocks until one frame arrives on the current connection.
func (l *Link) Receive() ([]byte, error) {
	l.mu.Lock()
	reader := l.reader
	l.mu.Unlock()
	if reader == nil {
		return nil, errs.NewConnectionError(l.cfg.Name, l.cfg.Addr, ErrNotReady)
	}
	return reader.ReadFrame()
}

// Send writes one complete frame. A write failure drops the connection so the
// receive loop reconnects.
func (l *Link) Send(frame []byte) error {
	l.sendMu.Lock()
	defer l.sendMu.Unlock()

	l.mu.Lock()
	conn := l.conn
	l.mu.Unlock()
	if conn == nil {
		return errs.NewConnectionError(l.cfg.Name, l.cfg.Addr, ErrNotReady)
	}

	if _, err := conn.Write(frame); err != nil {
		l.drop(conn)
		return errs.NewConnectionError(l.cfg.Name, l.cfg.Addr, err)
	}
	return nil
}

// Run reads frames and passes them to handle until ctx ends or Close is called,
// reconnecting after every read failure. It connects first if needed.
func (l *Link) Run(ctx context.Context, handle FrameHandler) error {
	stop := context.AfterFunc(ctx, l.Close)
	defer stop()

	for {
		l.mu.Lock()
		conn, reader := l.conn, l.reader
		l.mu.Unlock()

		if conn == nil {
			if err := l.reconnect(ctx); err != nil {
				return err
			}
			continue
		}

		body, err := reader.ReadFrame()
		if err != nil {
			if l.isClosed() {
				return nil
			}
			l.logger.WarnContext(ctx, "Link broken, reconnecting", "error", err)
			l.drop(conn)
			continue
		}
		handle(ctx, body)
	}
}

// reconnect retries Connect after a fixed delay until it succeeds or the link
// is closed.
func (l *Link) reconnect(ctx context.Context) error {
	for attempt := 1; ; attempt++ {
		l.setState(Reconnecting)
		select {
		case <-ctx.Done():
			return nil
		case <-l.cfg.Clock.After(l.cfg.ReconnectDelay):
		}

		err := l.Connect(ctx)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, ErrClosed), l.isClosed():
			return nil
		case errors.Is(err, errs.ErrHandshakeRejected):
			l.logger.ErrorContext(ctx, "Handshake rejected on reconnect", "attempt", attempt, "error", err)
		default:
			l.logger.WarnContext(ctx, "Reconnect failed", "attempt", attempt, "error", err)
		}
	}
}

func (l *Link) drop(conn net.Conn) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn != conn {
		return
	}
	_ = conn.Close()
	l.conn, l.reader = nil, nil
	if !l.closed {
		l.setState(Reconnecting)
	}
}

func (l *Link) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// Close closes the connection and stops Run. The link cannot be reused.
func (l *Link) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	if l.conn != nil {
		_ = l.conn.Close()
	}
	l.conn, l.reader = nil, nil
	l.setState(Disconnected)
}
