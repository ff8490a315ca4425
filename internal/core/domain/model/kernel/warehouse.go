package kernel

import (
	"fmt"

	"fulfillment/internal/pkg/errs"
	"fulfillment/internal/pkg/guard"
)

var ErrWarehouseIsNotConstructed = errs.NewValueIsRequiredError("warehouse must be created via NewWarehouse")

// Warehouse is a warehouse registered with the World simulator during the handshake.
type Warehouse struct { //nolint:recvcheck //using for validation
	id       int32
	location Location
	guard    guard.ConstructorGuard
}

func NewWarehouse(id int32, location Location) (Warehouse, error) {
	if err := location.Validate(); err != nil {
		return Warehouse{}, errs.NewValueIsInvalidErrorWithCause("location", err)
	}
	return Warehouse{id: id, location: location, guard: guard.NewConstructorGuard()}, nil
}

func (w Warehouse) Validate() error {
	return w.guard.Validate(ErrWarehouseIsNotConstructed)
}

func (w Warehouse) ID() int32 {
	return w.id
}

func (w Warehouse) Location() Location {
	return w.location
}

func (w Warehouse) String() string {
	return fmt.Sprintf("Warehouse(%d@%d,%d)", w.id, w.location.X(), w.location.Y())
}
