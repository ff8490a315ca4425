package commands

import (
	"errors"
	"fmt"

	"fulfillment/internal/pkg/errs"
	"fulfillment/internal/pkg/guard"
)

var ErrPurchaseCommandIsNotConstructed = errors.New(
	"PurchaseCommand must be created via NewPurchaseCommand constructor",
)

// PurchaseCommand asks the coordinator to fulfill a package the storefront has
// recorded.
//
// Example:
//
//	cmd, err := NewPurchaseCommand(42)
//	if err != nil {
//	    return fmt.Errorf("invalid purchase: %w", err)
//	}
//	if err := handler.Handle(ctx, cmd); err != nil {
//	    return fmt.Errorf("purchase not started: %w", err)
//	}
type PurchaseCommand struct { //nolint:recvcheck //using for validation
	packageID int64

	guard guard.ConstructorGuard
}

func NewPurchaseCommand(packageID int64) (PurchaseCommand, error) {
	if packageID <= 0 {
		return PurchaseCommand{}, errs.NewValueIsInvalidErrorWithCause("packageID",
			fmt.Errorf("must be positive, got %d", packageID))
	}
	return PurchaseCommand{packageID: packageID, guard: guard.NewConstructorGuard()}, nil
}

// Validate ensures the command was created through the constructor.
func (c PurchaseCommand) Validate() error {
	return c.guard.Validate(ErrPurchaseCommandIsNotConstructed)
}

func (c PurchaseCommand) PackageID() int64 {
	return c.packageID
}
