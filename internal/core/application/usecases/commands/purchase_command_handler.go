package commands

import (
	"context"
	"log/slog"
)

// PurchaseStarter begins fulfillment of a stored package.
type PurchaseStarter interface {
	Purchase(ctx context.Context, packageID int64) error
}

// PurchaseCommandHandler hands validated purchase requests to the fulfillment service.
type PurchaseCommandHandler struct {
	starter PurchaseStarter
	logger  *slog.Logger
}

func NewPurchaseCommandHandler(starter PurchaseStarter, logger *slog.Logger) PurchaseCommandHandler {
	return PurchaseCommandHandler{
		starter: starter,
		logger:  logger.With("component", "purchase-command"),
	}
}

// Handle queues the purchase. It returns once the work is accepted, not when the
// purchase reached World.
func (h PurchaseCommandHandler) Handle(ctx context.Context, cmd PurchaseCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	if err := h.starter.Purchase(ctx, cmd.PackageID()); err != nil {
		h.logger.WarnContext(ctx, "Purchase rejected", "package_id", cmd.PackageID(), "error", err)
		return err
	}

	h.logger.InfoContext(ctx, "Purchase accepted", "package_id", cmd.PackageID())
	return nil
}
