// Package postgres implements the metadata store on the storefront's PostgreSQL
// database using GORM.
//
// The storefront owns the schema. The coordinator reads packages with their order
// lines and products, reads the warehouse list, and writes only the package status
// column. Migrate creates the tables for local runs and tests.
//
// Usage:
//
//	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
//	if err != nil {
//	    return err
//	}
//	store, err := NewMetadataStore(db)
//	if err != nil {
//	    return err
//	}
//	order, err := store.PurchaseOrder(ctx, packageID)
//
// Status values are stored lower-case; a package still being purchased is stored
// as "processing", the storefront's name for it.
package postgres

import (
	"context"

	"fulfillment/internal/adapters/out/postgres/packagerepo"
	"fulfillment/internal/adapters/out/postgres/warehouserepo"
	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/parcel"
	"fulfillment/internal/core/ports"
	"fulfillment/internal/pkg/errs"

	"gorm.io/gorm"
)

var _ ports.MetadataStore = (*MetadataStore)(nil)

// MetadataStore implements ports.MetadataStore on top of the package and warehouse
// repositories.
type MetadataStore struct {
	db         *gorm.DB
	packages   *packagerepo.GormPackageRepository
	warehouses *warehouserepo.GormWarehouseRepository
}

// NewMetadataStore creates a store on an open GORM connection.
func NewMetadataStore(db *gorm.DB) (*MetadataStore, error) {
	if db == nil {
		return nil, errs.NewValueIsRequiredError("db")
	}

	return &MetadataStore{
		db:         db,
		packages:   packagerepo.NewGormPackageRepository(db),
		warehouses: warehouserepo.NewGormWarehouseRepository(db),
	}, nil
}

// Migrate creates or updates the storefront tables the store reads.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&packagerepo.ItemDTO{},
		&packagerepo.PackageDTO{},
		&packagerepo.OrderDTO{},
		&warehouserepo.WarehouseDTO{},
	)
}

// PurchaseOrder reads the package and its lines in one transaction.
func (s *MetadataStore) PurchaseOrder(ctx context.Context, packageID int64) (ports.PurchaseOrder, error) {
	var order ports.PurchaseOrder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = packagerepo.NewGormPackageRepository(tx).Get(ctx, packageID)
		return err
	})
	if err != nil {
		return ports.PurchaseOrder{}, err
	}
	return order, nil
}

func (s *MetadataStore) Warehouses(ctx context.Context) ([]kernel.Warehouse, error) {
	return s.warehouses.GetAll(ctx)
}

func (s *MetadataStore) UpdateStatus(ctx context.Context, packageID int64, status parcel.Status) error {
	return s.packages.UpdateStatus(ctx, packageID, status)
}

// Status returns the stored status of a package.
func (s *MetadataStore) Status(ctx context.Context, packageID int64) (parcel.Status, error) {
	return s.packages.Status(ctx, packageID)
}

// Ping checks the database connection.
func (s *MetadataStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
