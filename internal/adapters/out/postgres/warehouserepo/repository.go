// Package warehouserepo reads the storefront's warehouse table.
package warehouserepo

import (
	"context"

	"fulfillment/internal/core/domain/model/kernel"

	"gorm.io/gorm"
)

// WarehouseDTO is a row of the storefront's warehouse table.
type WarehouseDTO struct {
	ID int32 `gorm:"primaryKey"`
	X  int32 `gorm:"not null;default:1"`
	Y  int32 `gorm:"not null;default:1"`
}

// TableName overrides GORM's naming to match the storefront schema.
func (WarehouseDTO) TableName() string {
	return "amazon_warehouse"
}

func toDomain(dto WarehouseDTO) (kernel.Warehouse, error) {
	return kernel.NewWarehouse(dto.ID, kernel.NewLocation(dto.X, dto.Y))
}

// GormWarehouseRepository implements warehouse reads using GORM.
type GormWarehouseRepository struct {
	db *gorm.DB
}

func NewGormWarehouseRepository(db *gorm.DB) *GormWarehouseRepository {
	return &GormWarehouseRepository{db: db}
}

// GetAll returns every warehouse ordered by id.
func (r *GormWarehouseRepository) GetAll(ctx context.Context) ([]kernel.Warehouse, error) {
	var dtos []WarehouseDTO
	if err := r.db.WithContext(ctx).Order("id").Find(&dtos).Error; err != nil {
		return nil, err
	}

	warehouses := make([]kernel.Warehouse, 0, len(dtos))
	for _, dto := range dtos {
		w, err := toDomain(dto)
		if err != nil {
			return nil, err
		}
		warehouses = append(warehouses, w)
	}

	return warehouses, nil
}
