package parcel

import (
	"fmt"

	"fulfillment/internal/pkg/errs"
)

// Status is the fulfillment state of a package.
//
// State transitions:
//
//	Purchasing ──> Processed ──> Packing ──> Packed ──> Loading ──> Loaded ──┬──> Delivering ──> Delivered
//	                                                                         └─────────────────────^
//	any non-terminal ──> Error
//	any except Delivered ──> Delivered (a carrier delivery report always wins)
type Status int

const (
	// Unknown catches uninitialized Status values.
	Unknown Status = iota

	// Purchasing is the status of a locally requested package whose stock purchase
	// has been sent to World but not yet confirmed.
	Purchasing

	// Processed means the stock arrived at the warehouse.
	Processed

	// Packing means a pack command was sent to World.
	Packing

	// Packed means World reported the package packed.
	Packed

	// Loading means a load command was sent for a packed package with a truck at the warehouse.
	Loading

	// Loaded means World reported the package on the truck.
	Loaded

	// Delivering means the carrier reported the truck on its way.
	Delivering

	// Delivered is final; the record is discarded.
	Delivered

	// Error is final; set when a command could not be delivered.
	Error
)

func getStatusStrings() map[Status]string {
	return map[Status]string{
		Unknown:    "unknown",
		Purchasing: "purchasing",
		Processed:  "processed",
		Packing:    "packing",
		Packed:     "packed",
		Loading:    "loading",
		Loaded:     "loaded",
		Delivering: "delivering",
		Delivered:  "delivered",
		Error:      "error",
	}
}

// String returns the lower-case name used for persistence and the HTTP API.
func (s Status) String() string {
	if str, ok := getStatusStrings()[s]; ok {
		return str
	}
	return "unknown"
}

// ParseStatus converts a persisted status name back into a Status.
func ParseStatus(value string) (Status, error) {
	for s, str := range getStatusStrings() {
		if s != Unknown && str == value {
			return s, nil
		}
	}
	return Unknown, errs.NewValueIsInvalidErrorWithCause("status", fmt.Errorf("%q is not a valid status", value))
}

// Validate checks the value is one of the defined non-Unknown statuses.
func (s Status) Validate() error {
	if s <= Unknown || s > Error {
		return errs.NewValueIsInvalidErrorWithCause("status", fmt.Errorf("%d is not a valid status", s))
	}
	return nil
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == Delivered || s == Error
}

// IsInFlight reports whether World holds the package and may answer a status query.
func (s Status) IsInFlight() bool {
	switch s {
	case Processed, Packing, Packed, Loading, Loaded, Delivering:
		return true
	default:
		return false
	}
}

func (s Status) transition(to Status, allowed ...Status) (Status, error) {
	for _, from := range allowed {
		if s == from {
			return to, nil
		}
	}
	return 0, errs.NewValueIsInvalidErrorWithCause(
		"status",
		fmt.Errorf("cannot move from %s to %s", s, to),
	)
}

// Process transitions Purchasing -> Processed.
func (s Status) Process() (Status, error) {
	return s.transition(Processed, Purchasing)
}

// StartPacking transitions Processed -> Packing.
func (s Status) StartPacking() (Status, error) {
	return s.transition(Packing, Processed)
}

// CompletePacking transitions Packing -> Packed.
func (s Status) CompletePacking() (Status, error) {
	return s.transition(Packed, Packing)
}

// StartLoading transitions Packed -> Loading. The truck precondition is checked by Package.
func (s Status) StartLoading() (Status, error) {
	return s.transition(Loading, Packed)
}

// CompleteLoading transitions Loading -> Loaded.
func (s Status) CompleteLoading() (Status, error) {
	return s.transition(Loaded, Loading)
}

// StartDelivery transitions Loaded -> Delivering.
func (s Status) StartDelivery() (Status, error) {
	return s.transition(Delivering, Loaded)
}

// CompleteDelivery moves any status except Delivered to Delivered. The carrier
// reports deliveries independently of World, so a delivery may be reported while
// the package is still Loading, before any delivery start, or after an Error.
func (s Status) CompleteDelivery() (Status, error) {
	if s == Delivered || s == Unknown {
		return 0, errs.NewValueIsInvalidErrorWithCause("status", fmt.Errorf("cannot move from %s to %s", s, Delivered))
	}
	return Delivered, nil
}

// ExpectsDelivery reports whether a delivery report is the normal next step.
func (s Status) ExpectsDelivery() bool {
	return s == Loaded || s == Delivering
}

// Fail moves any non-terminal status to Error.
func (s Status) Fail() (Status, error) {
	if s.IsTerminal() || s == Unknown {
		return 0, errs.NewValueIsInvalidErrorWithCause("status", fmt.Errorf("cannot fail a package in %s", s))
	}
	return Error, nil
}
