package queries

import (
	"context"

	"fulfillment/internal/core/domain/model/parcel"
)

// PackageReader exposes the in-memory package records.
type PackageReader interface {
	Get(packageID int64) (*parcel.Package, error)
	List() []*parcel.Package
}

// PackageView is the polling representation of a package.
type PackageView struct {
	ID          int64      `json:"id"`
	WarehouseID int32      `json:"warehouse_id"`
	TruckID     *int32     `json:"truck_id,omitempty"`
	Status      string     `json:"status"`
	WorldStatus string     `json:"world_status,omitempty"`
	Failure     string     `json:"failure,omitempty"`
	Destination Coordinate `json:"destination"`
	Items       []ItemView `json:"items"`
}

type Coordinate struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
}

type ItemView struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
	Count       int32  `json:"count"`
}

func toView(p *parcel.Package) PackageView {
	v := PackageView{
		ID:          p.ID(),
		WarehouseID: p.WarehouseID(),
		Status:      p.Status().String(),
		WorldStatus: p.LastReported(),
		Failure:     p.Failure(),
		Destination: Coordinate{X: p.Destination().X(), Y: p.Destination().Y()},
	}
	if truck, ok := p.TruckID(); ok {
		v.TruckID = &truck
	}
	for _, it := range p.Items() {
		v.Items = append(v.Items, ItemView{ID: it.ID(), Description: it.Description(), Count: it.Count()})
	}
	return v
}

// contextDone lets handlers bail out early when the caller has gone away.
func contextDone(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
