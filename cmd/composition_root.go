package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"fulfillment/internal/adapters/in/callback"
	httpin "fulfillment/internal/adapters/in/http"
	"fulfillment/internal/adapters/out/memory"
	"fulfillment/internal/adapters/out/peer"
	"fulfillment/internal/adapters/out/postgres"
	"fulfillment/internal/adapters/out/reliable"
	"fulfillment/internal/adapters/out/ups"
	"fulfillment/internal/adapters/out/world"
	"fulfillment/internal/core/application/fulfillment"
	"fulfillment/internal/core/application/usecases/commands"
	"fulfillment/internal/core/application/usecases/queries"
	"fulfillment/internal/core/ports"
	"fulfillment/internal/jobs"
	"fulfillment/internal/metrics"
	"fulfillment/internal/pkg/workerpool"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	gorm_postgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

// MetadataStore is a ports.MetadataStore that can report its health.
type MetadataStore interface {
	ports.MetadataStore
	Ping(ctx context.Context) error
}

type CompositionRoot struct {
	cfg    Config
	logger *slog.Logger

	registry  *prometheus.Registry
	collector *metrics.Collector
	store     MetadataStore

	counter *reliable.Counter
	engine  *reliable.Engine
	pool    *workerpool.Pool
	seen    *peer.SeenCache

	handshaker   *world.Handshaker
	worldLink    *peer.Link
	worldGateway *world.Gateway
	worldRouter  *world.Router

	upsLink   *peer.Link
	carrier   ports.CarrierGateway
	upsRouter *ups.Router
	callback  *callback.Listener

	service *fulfillment.Service
	jobs    *jobs.JobManager
}

// eventSink forwards routed events to the service, which is built after the
// routers the carrier gateway depends on.
type eventSink struct {
	service *fulfillment.Service
}

func (s *eventSink) Handle(ctx context.Context, event fulfillment.Event) error {
	return s.service.Handle(ctx, event)
}

// NewCompositionRoot builds every component. It reads the warehouse list from the
// metadata store but opens no peer connection; Run does.
func NewCompositionRoot(ctx context.Context, cfg Config, logger *slog.Logger) (*CompositionRoot, error) {
	c := &CompositionRoot{cfg: cfg, logger: logger}

	if err := c.createMetrics(); err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	store, err := c.createStore()
	if err != nil {
		return nil, fmt.Errorf("metadata store: %w", err)
	}
	c.store = store

	warehouses, err := store.Warehouses(ctx)
	if err != nil {
		return nil, fmt.Errorf("read warehouses: %w", err)
	}

	c.counter = reliable.NewCounter()
	c.engine, err = reliable.NewEngine(c.counter, reliable.Config{
		Interval:    cfg.ResendInterval,
		MaxAttempts: cfg.ResendMaxAttempts,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("reliable engine: %w", err)
	}

	poolCfg := workerpool.DefaultConfig()
	poolCfg.MinWorkers, poolCfg.MaxWorkers, poolCfg.QueueSize = cfg.PoolMin, cfg.PoolMax, cfg.PoolQueue
	c.pool, err = workerpool.New(poolCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("worker pool: %w", err)
	}

	c.seen, err = peer.NewSeenCache(peer.DefaultSeenSize)
	if err != nil {
		return nil, err
	}

	c.handshaker = world.NewHandshaker(cfg.WorldID, warehouses, logger)
	c.worldLink, err = peer.NewLink(peer.Config{
		Name:           world.PeerName,
		Addr:           cfg.WorldAddr(),
		ReconnectDelay: cfg.ReconnectDelay,
		Handshaker:     c.handshaker,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("world link: %w", err)
	}
	c.worldGateway = world.NewGateway(c.engine, c.worldLink, cfg.SimSpeed)

	sink := &eventSink{}
	c.upsRouter = ups.NewRouter(c.engine, sink, c.seen, logger)
	if err = c.createCarrier(); err != nil {
		return nil, err
	}

	c.service = fulfillment.NewService(
		c.worldGateway,
		c.carrier,
		store,
		c.pool,
		c.counter,
		logger,
		fulfillment.WithObserver(c.collector),
	)
	sink.service = c.service
	c.worldRouter = world.NewRouter(c.engine, c.service, c.seen, logger)

	c.engine.OnExpire(c.onExpire)

	if cfg.CallbackPort != "" {
		c.callback = callback.NewListener(net.JoinHostPort("", cfg.CallbackPort), c.upsRouter, logger)
	}

	c.jobs = jobs.NewJobManager(c.service, cfg.StatusQuerySchedule, c.engine, cfg.PendingThreshold, logger)

	if err = c.watch(); err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	return c, nil
}

func (c *CompositionRoot) createMetrics() error {
	c.registry = prometheus.NewRegistry()
	if err := c.registry.Register(collectors.NewGoCollector()); err != nil {
		return err
	}
	if err := c.registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return err
	}

	collector, err := metrics.New(c.registry)
	if err != nil {
		return err
	}
	c.collector = collector
	return nil
}

func (c *CompositionRoot) watch() error {
	if err := c.collector.WatchEngine(c.engine); err != nil {
		return err
	}
	if err := c.collector.WatchPool(c.pool); err != nil {
		return err
	}
	if err := c.collector.WatchLink(c.worldLink); err != nil {
		return err
	}
	if c.upsLink != nil {
		return c.collector.WatchLink(c.upsLink)
	}
	return nil
}

func (c *CompositionRoot) createStore() (MetadataStore, error) {
	if !c.cfg.UsesDatabase() {
		c.logger.Info("Using YAML catalog", "path", c.cfg.CatalogPath)
		return memory.Load(c.cfg.CatalogPath)
	}

	gormDB, err := gorm.Open(gorm_postgres.Open(c.cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if c.cfg.AutoMigrate {
		if err = postgres.Migrate(gormDB); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	c.logger.Info("Using PostgreSQL store", "host", c.cfg.DBHost, "database", c.cfg.DBName)
	return postgres.NewMetadataStore(gormDB)
}

func (c *CompositionRoot) createCarrier() error {
	switch c.cfg.UPSMode {
	case ups.ModePerCommand:
		c.carrier = ups.NewPerCommandGateway(ups.PerCommandConfig{
			Addr:           c.cfg.UPSAddr(),
			ReconnectDelay: c.cfg.ReconnectDelay,
		}, c.engine, c.upsRouter, c.logger)
		return nil
	default:
		link, err := peer.NewLink(peer.Config{
			Name:           ups.PeerName,
			Addr:           c.cfg.UPSAddr(),
			ReconnectDelay: c.cfg.ReconnectDelay,
		}, c.logger)
		if err != nil {
			return fmt.Errorf("ups link: %w", err)
		}
		c.upsLink = link
		c.carrier = ups.NewGateway(c.engine, link)
		return nil
	}
}

// onExpire runs on the engine's resend goroutine, so the failure is applied on a
// separate one.
func (c *CompositionRoot) onExpire(req reliable.PendingRequest) {
	go func() {
		_ = c.service.Handle(context.Background(), fulfillment.CommandExpired{
			Peer:      req.Peer,
			Seq:       req.Seq,
			PackageID: req.Tag,
			Attempts:  req.Attempts,
		})
	}()
}

func (c *CompositionRoot) Service() *fulfillment.Service { return c.service }

func (c *CompositionRoot) Engine() *reliable.Engine { return c.engine }

func (c *CompositionRoot) CreatePurchaseCommandHandler() commands.PurchaseCommandHandler {
	return commands.NewPurchaseCommandHandler(c.service, c.logger)
}

func (c *CompositionRoot) CreateGetPackageQueryHandler() queries.GetPackageQueryHandler {
	return queries.NewGetPackageQueryHandler(c.service)
}

func (c *CompositionRoot) CreateListPackagesQueryHandler() queries.ListPackagesQueryHandler {
	return queries.NewListPackagesQueryHandler(c.service)
}

func (c *CompositionRoot) CreateHTTPServer() *echo.Echo {
	server := httpin.NewServer(
		c.CreatePurchaseCommandHandler(),
		c.CreateGetPackageQueryHandler(),
		c.CreateListPackagesQueryHandler(),
		c.store,
		promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry}),
		c.links()...,
	)
	return httpin.NewEcho(server)
}

func (c *CompositionRoot) links() []httpin.Link {
	links := []httpin.Link{c.worldLink}
	if c.upsLink != nil {
		links = append(links, c.upsLink)
	}
	return links
}

// Run connects to World, starts every receive loop, job and listener, and blocks
// until ctx ends or a component fails. A failed World connection at startup,
// including a rejected handshake, is returned immediately.
func (c *CompositionRoot) Run(ctx context.Context) error {
	if err := c.worldLink.Connect(ctx); err != nil {
		c.Close()
		return fmt.Errorf("connect to world: %w", err)
	}
	if id, ok := c.handshaker.WorldID(); ok {
		c.logger.InfoContext(ctx, "Registered with world", "world_id", id)
	}

	if c.upsLink != nil {
		if err := c.upsLink.Connect(ctx); err != nil {
			c.logger.WarnContext(ctx, "Carrier not reachable yet, will keep retrying", "error", err)
		}
	}

	if err := c.jobs.StartAll(); err != nil {
		c.Close()
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	// The links outlive gctx so the disconnect below still has a connection.
	linkCtx, stopLinks := context.WithCancel(context.WithoutCancel(ctx))
	defer stopLinks()

	g.Go(func() error {
		return c.worldLink.Run(linkCtx, c.worldRouter.FrameHandler(c.worldLink.Send))
	})
	if c.upsLink != nil {
		g.Go(func() error {
			return c.upsLink.Run(linkCtx, c.upsRouter.FrameHandler(c.upsLink.Send))
		})
	}
	if c.callback != nil {
		g.Go(func() error {
			return c.callback.Serve(gctx)
		})
	}

	e := c.CreateHTTPServer()
	g.Go(func() error {
		c.logger.InfoContext(gctx, "HTTP server started", "port", c.cfg.HTTPPort)
		err := e.Start(net.JoinHostPort("0.0.0.0", c.cfg.HTTPPort))
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	<-gctx.Done()
	c.logger.InfoContext(ctx, "Shutting down")
	if err := c.worldGateway.Disconnect(); err != nil {
		c.logger.WarnContext(ctx, "Failed to send disconnect to world", "error", err)
	}
	stopLinks()
	c.Close()

	return g.Wait()
}

// Close stops jobs and releases the links, the engine and the worker pool.
func (c *CompositionRoot) Close() {
	c.jobs.StopAll()
	c.worldLink.Close()
	if c.upsLink != nil {
		c.upsLink.Close()
	}
	c.engine.Close()
	c.pool.Close()
}
