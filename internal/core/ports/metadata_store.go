package ports

import (
	"context"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/parcel"
)

// PurchaseOrder is what the storefront recorded for a package: where to buy the
// stock, which products, and where the carrier delivers them.
type PurchaseOrder struct {
	PackageID      int64
	WarehouseID    int32
	Items          []kernel.Item
	Destination    kernel.Location
	CarrierAccount string
}

// MetadataStore is the storefront's package catalog. The coordinator reads purchase
// details and warehouses from it and writes status changes back.
type MetadataStore interface {
	// PurchaseOrder returns the purchase recorded for a package.
	// Returns errs.ErrObjectNotFound when no such package exists.
	PurchaseOrder(ctx context.Context, packageID int64) (PurchaseOrder, error)

	// Warehouses returns every warehouse to register with World.
	Warehouses(ctx context.Context) ([]kernel.Warehouse, error)

	// UpdateStatus records the current fulfillment status of a package.
	// Returns errs.ErrObjectNotFound when no such package exists.
	UpdateStatus(ctx context.Context, packageID int64, status parcel.Status) error
}
