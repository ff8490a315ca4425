// Package http exposes the coordinator over HTTP: purchase intake from the
// storefront, package status polling, health and Prometheus metrics.
package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"fulfillment/internal/adapters/out/peer"
	"fulfillment/internal/core/application/usecases/commands"
	"fulfillment/internal/core/application/usecases/queries"
	"fulfillment/internal/pkg/errs"
	"fulfillment/internal/pkg/workerpool"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Error is the JSON body of every failed request.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Accepted is the body of an accepted purchase.
type Accepted struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

// HealthChecker reports whether the metadata store is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Link is a peer connection whose state is reported by GET /api/v1/links.
type Link interface {
	Name() string
	State() peer.State
	Session() string
}

// LinkStatus describes one peer connection. Session is set while the link is
// ready and matches the session attribute of the link's log lines.
type LinkStatus struct {
	Peer    string `json:"peer"`
	State   string `json:"state"`
	Session string `json:"session,omitempty"`
}

// Server coordinates between HTTP handlers and application use cases.
type Server struct {
	// Command handlers
	purchaseHandler commands.PurchaseCommandHandler

	// Query handlers
	getPackageHandler   queries.GetPackageQueryHandler
	listPackagesHandler queries.ListPackagesQueryHandler

	health  HealthChecker
	metrics http.Handler
	links   []Link
}

// NewServer creates a new HTTP server with the required command and query handlers.
// metrics may be nil, in which case /metrics is not served.
func NewServer(
	purchaseHandler commands.PurchaseCommandHandler,
	getPackageHandler queries.GetPackageQueryHandler,
	listPackagesHandler queries.ListPackagesQueryHandler,
	health HealthChecker,
	metrics http.Handler,
	links ...Link,
) *Server {
	return &Server{
		purchaseHandler:     purchaseHandler,
		getPackageHandler:   getPackageHandler,
		listPackagesHandler: listPackagesHandler,
		health:              health,
		metrics:             metrics,
		links:               links,
	}
}

// NewEcho builds the echo instance with every route registered.
func NewEcho(s *Server) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	e.GET("/health", s.Health)
	if s.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(s.metrics))
	}

	api := e.Group("/api/v1")
	api.POST("/packages/:id/purchase", s.Purchase)
	api.GET("/packages/:id", s.GetPackage)
	api.GET("/packages", s.ListPackages)
	api.GET("/links", s.Links)
	return e
}

// Purchase handles POST /api/v1/packages/:id/purchase - starts fulfilling a
// package the storefront recorded.
func (s *Server) Purchase(ctx echo.Context) error {
	id, ok := packageID(ctx)
	if !ok {
		return badRequest(ctx, "Invalid package id")
	}

	cmd, err := commands.NewPurchaseCommand(id)
	if err != nil {
		return badRequest(ctx, "Invalid package id: "+err.Error())
	}

	if handleErr := s.purchaseHandler.Handle(ctx.Request().Context(), cmd); handleErr != nil {
		switch {
		case errors.Is(handleErr, errs.ErrValueIsInvalid):
			return ctx.JSON(http.StatusConflict, Error{
				Code:    http.StatusConflict,
				Message: handleErr.Error(),
			})
		case errors.Is(handleErr, workerpool.ErrPoolClosed),
			errors.Is(handleErr, context.Canceled),
			errors.Is(handleErr, context.DeadlineExceeded):
			return ctx.JSON(http.StatusServiceUnavailable, Error{
				Code:    http.StatusServiceUnavailable,
				Message: "Coordinator is not accepting purchases",
			})
		default:
			return ctx.JSON(http.StatusInternalServerError, Error{
				Code:    http.StatusInternalServerError,
				Message: "Failed to start purchase",
			})
		}
	}

	return ctx.JSON(http.StatusAccepted, Accepted{ID: id, Status: "accepted"})
}

// GetPackage handles GET /api/v1/packages/:id - returns a tracked package.
func (s *Server) GetPackage(ctx echo.Context) error {
	id, ok := packageID(ctx)
	if !ok {
		return badRequest(ctx, "Invalid package id")
	}

	query, err := queries.NewGetPackageQuery(id)
	if err != nil {
		return badRequest(ctx, "Invalid package id: "+err.Error())
	}

	view, err := s.getPackageHandler.Handle(ctx.Request().Context(), query)
	if err != nil {
		if errors.Is(err, errs.ErrObjectNotFound) {
			return ctx.JSON(http.StatusNotFound, Error{
				Code:    http.StatusNotFound,
				Message: "Package is not tracked",
			})
		}
		return ctx.JSON(http.StatusInternalServerError, Error{
			Code:    http.StatusInternalServerError,
			Message: "Failed to retrieve package",
		})
	}

	return ctx.JSON(http.StatusOK, view)
}

// ListPackages handles GET /api/v1/packages?status= - lists tracked packages,
// optionally filtered by status.
func (s *Server) ListPackages(ctx echo.Context) error {
	query, err := queries.NewListPackagesQuery(ctx.QueryParam("status"))
	if err != nil {
		return badRequest(ctx, "Invalid status filter")
	}

	views, err := s.listPackagesHandler.Handle(ctx.Request().Context(), query)
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, Error{
			Code:    http.StatusInternalServerError,
			Message: "Failed to retrieve packages",
		})
	}

	return ctx.JSON(http.StatusOK, views)
}

// Health handles GET /health.
func (s *Server) Health(ctx echo.Context) error {
	if s.health != nil {
		if err := s.health.Ping(ctx.Request().Context()); err != nil {
			return ctx.String(http.StatusServiceUnavailable, "Unhealthy")
		}
	}
	return ctx.String(http.StatusOK, "Healthy")
}

// Links handles GET /api/v1/links - reports the state of every peer link.
func (s *Server) Links(ctx echo.Context) error {
	out := make([]LinkStatus, 0, len(s.links))
	for _, l := range s.links {
		st := LinkStatus{Peer: l.Name(), State: l.State().String()}
		if l.State() == peer.Ready {
			st.Session = l.Session()
		}
		out = append(out, st)
	}
	return ctx.JSON(http.StatusOK, out)
}

func packageID(ctx echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	return id, err == nil
}

func badRequest(ctx echo.Context, message string) error {
	return ctx.JSON(http.StatusBadRequest, Error{
		Code:    http.StatusBadRequest,
		Message: message,
	})
}
