package ports

import (
	"context"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/parcel"
)

// WorldGateway sends commands to the World simulator. Every method returns the
// sequence number the command was sent under; delivery is retried until World
// acknowledges it.
type WorldGateway interface {
	// Purchase asks World to stock items at a warehouse. packageID only tags the
	// pending command for failure reporting.
	Purchase(ctx context.Context, warehouseID int32, items []kernel.Item, packageID int64) (int64, error)

	Pack(ctx context.Context, instruction parcel.PackInstruction) (int64, error)

	Load(ctx context.Context, warehouseID int32, truckID int32, packageID int64) (int64, error)

	// Query asks World for the current status of a package.
	Query(ctx context.Context, packageID int64) (int64, error)
}

// PickupRequest carries what the carrier needs to dispatch a truck.
type PickupRequest struct {
	PackageID      int64
	WarehouseID    int32
	Destination    kernel.Location
	CarrierAccount string
	Items          []kernel.Item
}

// CarrierGateway sends commands to the carrier.
type CarrierGateway interface {
	RequestPickup(ctx context.Context, req PickupRequest) (int64, error)

	// NotifyLoadReady tells the carrier the package is on its truck.
	NotifyLoadReady(ctx context.Context, packageID int64) (int64, error)
}
