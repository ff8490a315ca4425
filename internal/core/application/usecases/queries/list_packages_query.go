package queries

import (
	"context"
	"errors"

	"fulfillment/internal/core/domain/model/parcel"
	"fulfillment/internal/pkg/guard"
)

var ErrListPackagesQueryIsNotConstructed = errors.New(
	"ListPackagesQuery must be created via NewListPackagesQuery constructor",
)

// ListPackagesQuery returns every tracked package, optionally only those in one status.
type ListPackagesQuery struct {
	status parcel.Status
	guard  guard.ConstructorGuard
}

// NewListPackagesQuery builds the query. An empty status selects all packages.
func NewListPackagesQuery(status string) (ListPackagesQuery, error) {
	q := ListPackagesQuery{guard: guard.NewConstructorGuard()}
	if status == "" {
		return q, nil
	}
	s, err := parcel.ParseStatus(status)
	if err != nil {
		return ListPackagesQuery{}, err
	}
	q.status = s
	return q, nil
}

func (q ListPackagesQuery) Validate() error {
	return q.guard.Validate(ErrListPackagesQueryIsNotConstructed)
}

type ListPackagesQueryHandler struct {
	reader PackageReader
}

func NewListPackagesQueryHandler(reader PackageReader) ListPackagesQueryHandler {
	return ListPackagesQueryHandler{reader: reader}
}

func (h ListPackagesQueryHandler) Handle(ctx context.Context, query ListPackagesQuery) ([]PackageView, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	if err := contextDone(ctx); err != nil {
		return nil, err
	}

	views := make([]PackageView, 0)
	for _, p := range h.reader.List() {
		if query.status != parcel.Unknown && p.Status() != query.status {
			continue
		}
		views = append(views, toView(p))
	}
	return views, nil
}
