package packagerepo

import (
	"context"
	"errors"

	"fulfillment/internal/core/domain/model/parcel"
	"fulfillment/internal/core/ports"
	"fulfillment/internal/pkg/errs"

	"gorm.io/gorm"
)

// GormPackageRepository reads purchases from and writes statuses to the storefront
// tables using GORM.
type GormPackageRepository struct {
	db *gorm.DB
}

// NewGormPackageRepository creates a new GORM package repository.
func NewGormPackageRepository(db *gorm.DB) *GormPackageRepository {
	return &GormPackageRepository{db: db}
}

// Get returns the purchase recorded for a package, lines ordered by their id.
func (r *GormPackageRepository) Get(ctx context.Context, packageID int64) (ports.PurchaseOrder, error) {
	var dto PackageDTO
	err := r.db.WithContext(ctx).
		Preload("Orders", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Orders.Item").
		First(&dto, "id = ?", packageID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.PurchaseOrder{}, errs.NewObjectNotFoundError("packageID", packageID)
		}
		return ports.PurchaseOrder{}, err
	}

	return toPurchaseOrder(dto)
}

// Status returns the stored status of a package.
func (r *GormPackageRepository) Status(ctx context.Context, packageID int64) (parcel.Status, error) {
	var dto PackageDTO
	if err := r.db.WithContext(ctx).Select("id", "status").First(&dto, "id = ?", packageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return parcel.Unknown, errs.NewObjectNotFoundError("packageID", packageID)
		}
		return parcel.Unknown, err
	}

	return ParseStatusName(dto.Status)
}

// UpdateStatus writes the status column of a package.
func (r *GormPackageRepository) UpdateStatus(ctx context.Context, packageID int64, status parcel.Status) error {
	if err := status.Validate(); err != nil {
		return err
	}

	result := r.db.WithContext(ctx).
		Model(&PackageDTO{}).
		Where("id = ?", packageID).
		Update("status", statusName(status))
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return errs.NewObjectNotFoundError("packageID", packageID)
	}
	return nil
}
