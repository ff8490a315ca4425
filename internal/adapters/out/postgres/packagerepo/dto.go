// Package packagerepo maps the storefront's package tables onto purchase orders.
// The tables are owned by the storefront; this package only reads package contents
// and writes the status column back.
package packagerepo

import (
	"time"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/parcel"
	"fulfillment/internal/core/ports"
	"fulfillment/internal/pkg/errs"
)

// StatusProcessing is the storefront's name for a package still being purchased.
const StatusProcessing = "processing"

// PackageDTO is a row of the storefront's package table.
type PackageDTO struct {
	ID           int64      `gorm:"primaryKey"`
	OwnerID      int64      `gorm:"not null;index"`
	Warehouse    int32      `gorm:"not null;default:1"`
	Status       string     `gorm:"type:varchar(100);not null;default:processing"`
	DestX        int32      `gorm:"not null;default:10"`
	DestY        int32      `gorm:"not null;default:10"`
	CreationTime time.Time  `gorm:"autoCreateTime"`
	UPSName      string     `gorm:"column:ups_name;type:varchar(50);not null;default:''"`
	Orders       []OrderDTO `gorm:"foreignKey:PackageID;constraint:OnDelete:CASCADE"`
}

// TableName overrides GORM's naming to match the storefront schema.
func (PackageDTO) TableName() string {
	return "amazon_package"
}

// OrderDTO is one product line of a package.
type OrderDTO struct {
	ID           int64     `gorm:"primaryKey"`
	OwnerID      int64     `gorm:"not null;index"`
	ItemID       *int64    `gorm:"index"`
	Item         *ItemDTO  `gorm:"foreignKey:ItemID;constraint:OnDelete:SET NULL"`
	ItemCnt      int32     `gorm:"not null;default:1"`
	ItemPrice    float64   `gorm:"not null;default:0.99"`
	PackageID    *int64    `gorm:"index"`
	CreationTime time.Time `gorm:"autoCreateTime"`
}

func (OrderDTO) TableName() string {
	return "amazon_order"
}

// ItemDTO is a product of the storefront catalog.
type ItemDTO struct {
	ID          int64   `gorm:"primaryKey"`
	Description string  `gorm:"type:varchar(100);not null"`
	Price       float64 `gorm:"not null;default:0.99"`
	OnSell      bool    `gorm:"not null;default:true"`
}

func (ItemDTO) TableName() string {
	return "amazon_item"
}

// statusName converts a Status into the value stored in the status column.
func statusName(status parcel.Status) string {
	if status == parcel.Purchasing {
		return StatusProcessing
	}
	return status.String()
}

// ParseStatusName converts a stored status column value back into a Status.
func ParseStatusName(name string) (parcel.Status, error) {
	if name == StatusProcessing {
		return parcel.Purchasing, nil
	}
	return parcel.ParseStatus(name)
}

// toPurchaseOrder builds the purchase recorded for a package row with its lines
// and products preloaded.
func toPurchaseOrder(dto PackageDTO) (ports.PurchaseOrder, error) {
	items := make([]kernel.Item, 0, len(dto.Orders))
	for _, line := range dto.Orders {
		if line.ItemID == nil || line.Item == nil {
			return ports.PurchaseOrder{}, errs.NewValueIsRequiredErrorWithCause("item",
				errs.NewObjectNotFoundError("orderID", line.ID))
		}

		item, err := kernel.NewItem(*line.ItemID, line.Item.Description, line.ItemCnt)
		if err != nil {
			return ports.PurchaseOrder{}, err
		}
		items = append(items, item)
	}

	if len(items) == 0 {
		return ports.PurchaseOrder{}, errs.NewValueIsRequiredError("items")
	}

	return ports.PurchaseOrder{
		PackageID:      dto.ID,
		WarehouseID:    dto.Warehouse,
		Items:          items,
		Destination:    kernel.NewLocation(dto.DestX, dto.DestY),
		CarrierAccount: dto.UPSName,
	}, nil
}
