package parcel

import (
	"slices"

	"fulfillment/internal/core/domain/model/kernel"
)

// PackInstruction is the immutable content of a pack command: which warehouse packs
// which items under which ship id.
type PackInstruction struct {
	warehouseID int32
	items       []kernel.Item
	shipID      int64
}

func (pi PackInstruction) WarehouseID() int32 {
	return pi.warehouseID
}

func (pi PackInstruction) Items() []kernel.Item {
	return slices.Clone(pi.items)
}

func (pi PackInstruction) ShipID() int64 {
	return pi.shipID
}
