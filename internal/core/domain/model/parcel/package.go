package parcel

import (
	"errors"
	"fmt"
	"slices"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/pkg/errs"
)

var (
	// ErrPackageIsNotConstructed is returned when a Package was not created through
	// NewPackage or NewArrivedPackage.
	ErrPackageIsNotConstructed = errors.New("Package must be created via NewPackage constructor")

	// ErrNoTruckAssigned is returned when loading is attempted before a truck arrived.
	ErrNoTruckAssigned = errors.New("no truck assigned")
)

// Package is the aggregate root for one shipment. Its id doubles as the World
// shipid and the carrier package id.
//
// Package follows these invariants:
//   - id and warehouse id are positive
//   - it carries at least one item
//   - the pack instruction never changes after construction
//   - Loading is only entered from Packed with a truck assigned
type Package struct {
	id             int64
	warehouseID    int32
	truckID        *int32
	destination    kernel.Location
	carrierAccount string
	items          []kernel.Item
	status         Status

	// buySeq is the sequence number of the purchase command sent for this
	// package, used to order competing matches for one arrival.
	buySeq int64

	// lastReported is the latest status string World returned for a query.
	lastReported string
	failure      string

	isConstructed bool
}

// NewPackage creates a package for a local purchase request in Purchasing status.
//
// Parameters:
//   - id: package id assigned by the storefront, must be positive
//   - warehouseID: warehouse the stock is bought into, must be positive
//   - items: product lines, at least one
//   - destination: delivery destination
//   - carrierAccount: optional carrier user name, may be empty
//
// Returns:
//   - *Package: the package in Purchasing status
//   - error: all validation failures joined together
func NewPackage(
	id int64,
	warehouseID int32,
	items []kernel.Item,
	destination kernel.Location,
	carrierAccount string,
) (*Package, error) {
	return newPackage(id, warehouseID, items, destination, carrierAccount, Purchasing)
}

// NewArrivedPackage creates a package for stock that arrived without a matching
// local purchase. It starts in Processed status.
func NewArrivedPackage(
	id int64,
	warehouseID int32,
	items []kernel.Item,
	destination kernel.Location,
	carrierAccount string,
) (*Package, error) {
	return newPackage(id, warehouseID, items, destination, carrierAccount, Processed)
}

func newPackage(
	id int64,
	warehouseID int32,
	items []kernel.Item,
	destination kernel.Location,
	carrierAccount string,
	status Status,
) (*Package, error) {
	p := &Package{
		carrierAccount: carrierAccount,
		status:         status,
		isConstructed:  true,
	}

	if err := errors.Join(
		p.setID(id),
		p.setWarehouseID(warehouseID),
		p.setItems(items),
		p.setDestination(destination),
	); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *Package) setID(id int64) error {
	if id <= 0 {
		return errs.NewValueIsInvalidErrorWithCause("id", fmt.Errorf("must be positive, got %d", id))
	}
	p.id = id
	return nil
}

func (p *Package) setWarehouseID(id int32) error {
	if id <= 0 {
		return errs.NewValueIsInvalidErrorWithCause("warehouseID", fmt.Errorf("must be positive, got %d", id))
	}
	p.warehouseID = id
	return nil
}

func (p *Package) setItems(items []kernel.Item) error {
	if len(items) == 0 {
		return errs.NewValueIsRequiredError("items")
	}
	for i, it := range items {
		if err := it.Validate(); err != nil {
			return errs.NewValueIsInvalidErrorWithCause(fmt.Sprintf("items[%d]", i), err)
		}
	}
	p.items = slices.Clone(items)
	return nil
}

func (p *Package) setDestination(loc kernel.Location) error {
	if err := loc.Validate(); err != nil {
		return errs.NewValueIsInvalidErrorWithCause("destination", err)
	}
	p.destination = loc
	return nil
}

// Validate ensures the Package was built by a constructor.
func (p *Package) Validate() error {
	if p == nil || !p.isConstructed {
		return ErrPackageIsNotConstructed
	}
	return nil
}

func (p *Package) ID() int64 {
	return p.id
}

func (p *Package) WarehouseID() int32 {
	return p.warehouseID
}

// TruckID returns the assigned truck and whether one is assigned.
func (p *Package) TruckID() (int32, bool) {
	if p.truckID == nil {
		return 0, false
	}
	return *p.truckID, true
}

func (p *Package) Destination() kernel.Location {
	return p.destination
}

func (p *Package) CarrierAccount() string {
	return p.carrierAccount
}

// Items returns a copy of the product lines.
func (p *Package) Items() []kernel.Item {
	return slices.Clone(p.items)
}

func (p *Package) Status() Status {
	return p.status
}

func (p *Package) BuySeq() int64 {
	return p.buySeq
}

// LastReported returns the latest World-side status string, if any.
func (p *Package) LastReported() string {
	return p.lastReported
}

// Failure returns the reason recorded when the package moved to Error.
func (p *Package) Failure() string {
	return p.failure
}

// PackInstruction derives the pack request for World from the package.
func (p *Package) PackInstruction() PackInstruction {
	return PackInstruction{warehouseID: p.warehouseID, items: slices.Clone(p.items), shipID: p.id}
}

// Clone returns an independent copy for read models.
func (p *Package) Clone() *Package {
	cp := *p
	cp.items = slices.Clone(p.items)
	if p.truckID != nil {
		truck := *p.truckID
		cp.truckID = &truck
	}
	return &cp
}

// RecordBuy stores the sequence number of the purchase command. Only valid while Purchasing.
func (p *Package) RecordBuy(seq int64) error {
	if p.status != Purchasing {
		return errs.NewValueIsInvalidErrorWithCause("status",
			fmt.Errorf("cannot record a purchase for a package in %s", p.status))
	}
	p.buySeq = seq
	return nil
}

// MatchesArrival reports whether stock that arrived at warehouseID with the given
// items belongs to this package.
func (p *Package) MatchesArrival(warehouseID int32, items []kernel.Item) bool {
	return p.status == Purchasing && p.warehouseID == warehouseID && kernel.SameItems(p.items, items)
}

func (p *Package) Process() error {
	return p.apply(p.status.Process)
}

func (p *Package) StartPacking() error {
	return p.apply(p.status.StartPacking)
}

func (p *Package) CompletePacking() error {
	return p.apply(p.status.CompletePacking)
}

// AssignTruck records the truck that will carry the package. A later assignment
// replaces an earlier one until loading starts.
func (p *Package) AssignTruck(truckID int32) error {
	if p.status.IsTerminal() || p.status >= Loading {
		return errs.NewValueIsInvalidErrorWithCause("truckID",
			fmt.Errorf("cannot assign a truck to a package in %s", p.status))
	}
	p.truckID = &truckID
	return nil
}

// ReadyToLoad reports whether the package is packed and a truck waits for it.
func (p *Package) ReadyToLoad() bool {
	return p.status == Packed && p.truckID != nil
}

// StartLoading transitions Packed -> Loading. It requires an assigned truck.
func (p *Package) StartLoading() error {
	if p.truckID == nil {
		return errs.NewValueIsInvalidErrorWithCause("truckID", ErrNoTruckAssigned)
	}
	return p.apply(p.status.StartLoading)
}

func (p *Package) CompleteLoading() error {
	return p.apply(p.status.CompleteLoading)
}

func (p *Package) StartDelivery() error {
	return p.apply(p.status.StartDelivery)
}

func (p *Package) CompleteDelivery() error {
	return p.apply(p.status.CompleteDelivery)
}

// ReportWorldStatus records the status string World returned for a query.
func (p *Package) ReportWorldStatus(status string) {
	p.lastReported = status
}

// Fail moves the package to Error and records why.
func (p *Package) Fail(reason string) error {
	if err := p.apply(p.status.Fail); err != nil {
		return err
	}
	p.failure = reason
	return nil
}

func (p *Package) apply(transition func() (Status, error)) error {
	if err := p.Validate(); err != nil {
		return err
	}
	next, err := transition()
	if err != nil {
		return err
	}
	p.status = next
	return nil
}
