package queries

import (
	"context"
	"errors"
	"fmt"

	"fulfillment/internal/pkg/errs"
	"fulfillment/internal/pkg/guard"
)

var ErrGetPackageQueryIsNotConstructed = errors.New(
	"GetPackageQuery must be created via NewGetPackageQuery constructor",
)

// GetPackageQuery returns the current state of one package.
type GetPackageQuery struct {
	packageID int64
	guard     guard.ConstructorGuard
}

func NewGetPackageQuery(packageID int64) (GetPackageQuery, error) {
	if packageID <= 0 {
		return GetPackageQuery{}, errs.NewValueIsInvalidErrorWithCause("packageID",
			fmt.Errorf("must be positive, got %d", packageID))
	}
	return GetPackageQuery{packageID: packageID, guard: guard.NewConstructorGuard()}, nil
}

func (q GetPackageQuery) Validate() error {
	return q.guard.Validate(ErrGetPackageQueryIsNotConstructed)
}

func (q GetPackageQuery) PackageID() int64 {
	return q.packageID
}

type GetPackageQueryHandler struct {
	reader PackageReader
}

func NewGetPackageQueryHandler(reader PackageReader) GetPackageQueryHandler {
	return GetPackageQueryHandler{reader: reader}
}

// Handle returns errs.ErrObjectNotFound for packages that are not, or no longer,
// being fulfilled.
func (h GetPackageQueryHandler) Handle(ctx context.Context, query GetPackageQuery) (PackageView, error) {
	if err := query.Validate(); err != nil {
		return PackageView{}, err
	}
	if err := contextDone(ctx); err != nil {
		return PackageView{}, err
	}

	p, err := h.reader.Get(query.PackageID())
	if err != nil {
		return PackageView{}, err
	}
	return toView(p), nil
}
