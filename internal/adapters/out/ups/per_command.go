package ups

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fulfillment/internal/adapters/out/peer"
	"fulfillment/internal/core/ports"
	"fulfillment/internal/pkg/framing"

	"github.com/benbjohnson/clock"
)

// Engine is the part of the reliable engine the per-command gateway needs.
type Engine interface {
	Sender
	Await(ctx context.Context, seq int64) error
}

type PerCommandConfig struct {
	Addr string

	// Dial defaults to a TCP dialer for Addr.
	Dial peer.Dialer

	// ReconnectDelay is the pause before redialing a carrier that refused or
	// dropped the command's connection.
	ReconnectDelay time.Duration

	Clock clock.Clock
}

// PerCommandGateway sends every carrier command on its own connection and
// returns once the carrier acknowledged it.
type PerCommandGateway struct {
	cfg    PerCommandConfig
	engine Engine
	router *Router
	logger *slog.Logger
}

func NewPerCommandGateway(cfg PerCommandConfig, engine Engine, router *Router, logger *slog.Logger) *PerCommandGateway {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = peer.DefaultReconnectDelay
	}
	return &PerCommandGateway{
		cfg:    cfg,
		engine: engine,
		router: router,
		logger: logger.With("component", "ups_per_command"),
	}
}

func (g *PerCommandGateway) RequestPickup(ctx context.Context, req ports.PickupRequest) (int64, error) {
	return g.sendAndAwait(ctx, req.PackageID, pickupBuilder(req))
}

func (g *PerCommandGateway) NotifyLoadReady(ctx context.Context, packageID int64) (int64, error) {
	return g.sendAndAwait(ctx, packageID, loadReadyBuilder(packageID))
}

// sendAndAwait registers the command, then keeps a connection for it open,
// redialing after every failure, and routes whatever the carrier sends on it
// until the command is settled. Resends go out on the current connection. Only
// a peer error or the end of ctx returns an error.
func (g *PerCommandGateway) sendAndAwait(ctx context.Context, tag int64, build func(seq int64) framing.Marshaler) (int64, error) {
	link, err := peer.NewLink(peer.Config{
		Name:           PeerName,
		Addr:           g.cfg.Addr,
		Dial:           g.cfg.Dial,
		ReconnectDelay: g.cfg.ReconnectDelay,
		Clock:          g.cfg.Clock,
	}, g.logger)
	if err != nil {
		return 0, err
	}
	defer link.Close()

	if err = link.Connect(ctx); err != nil {
		g.logger.WarnContext(ctx, "Carrier not reachable, command stays pending", "error", err)
	}

	seq, err := g.engine.Send(ctx, link, tag, build)
	if err != nil {
		return 0, err
	}

	// The link is closed between frames only, so the frame that settles the
	// command is fully routed and its items acknowledged first.
	var routing sync.Mutex
	route := g.router.FrameHandler(link.Send)
	handle := func(ctx context.Context, body []byte) {
		routing.Lock()
		defer routing.Unlock()
		route(ctx, body)
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = link.Run(runCtx, handle)
	}()

	err = g.engine.Await(ctx, seq)

	routing.Lock()
	cancel()
	routing.Unlock()
	<-done

	if err != nil {
		return seq, fmt.Errorf("carrier command %d: %w", seq, err)
	}
	return seq, nil
}
