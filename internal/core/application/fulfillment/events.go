package fulfillment

import "fulfillment/internal/core/domain/model/kernel"

// Event is a decoded inbound notification from World or the carrier. The set of
// implementations is closed.
type Event interface {
	eventName() string
}

// PurchaseArrived: World stocked a warehouse.
type PurchaseArrived struct {
	Seq         int64
	WarehouseID int32
	Items       []kernel.Item
}

// PackagePacked: World finished packing a shipment.
type PackagePacked struct {
	Seq       int64
	PackageID int64
}

// PackageLoaded: World put a shipment on its truck.
type PackageLoaded struct {
	Seq       int64
	PackageID int64
}

// PackageStatusReported answers a status query sent to World.
type PackageStatusReported struct {
	Seq       int64
	PackageID int64
	Status    string
}

// PickupScheduled: the carrier accepted a pickup request and named a truck.
type PickupScheduled struct {
	Seq       int64
	PackageID int64
	TruckID   int32
}

// TruckArrived: the carrier's truck is at the warehouse.
type TruckArrived struct {
	Seq         int64
	PackageID   int64
	TruckID     int32
	WarehouseID int32
}

type DeliveryStarted struct {
	Seq       int64
	PackageID int64
}

type DeliveryCompleted struct {
	Seq       int64
	PackageID int64
}

// CommandRejected: a peer answered one of our commands with an error. The pending
// command has already been cancelled; PackageID is zero when it was not tagged.
type CommandRejected struct {
	Peer      string
	OriginSeq int64
	PackageID int64
	Reason    string
}

// CommandExpired: a command ran out of resend attempts without an acknowledgement.
type CommandExpired struct {
	Peer      string
	Seq       int64
	PackageID int64
	Attempts  int
}

// RequestAnswered reports the outcome of a redirect or cancel request to the carrier.
type RequestAnswered struct {
	Seq       int64
	Kind      string
	PackageID int64
	Success   bool
	Reason    string
}

// SimulationFinished: World announced it will send nothing more.
type SimulationFinished struct{}

func (PurchaseArrived) eventName() string       { return "purchase_arrived" }
func (PackagePacked) eventName() string         { return "packed" }
func (PackageLoaded) eventName() string         { return "loaded" }
func (PackageStatusReported) eventName() string { return "package_status" }
func (PickupScheduled) eventName() string       { return "pickup_scheduled" }
func (TruckArrived) eventName() string          { return "truck_arrived" }
func (DeliveryStarted) eventName() string       { return "delivery_started" }
func (DeliveryCompleted) eventName() string     { return "delivery_completed" }
func (CommandRejected) eventName() string       { return "command_rejected" }
func (CommandExpired) eventName() string        { return "command_expired" }
func (RequestAnswered) eventName() string       { return "request_answered" }
func (SimulationFinished) eventName() string    { return "simulation_finished" }

// EventName returns the stable name of an event kind for logs and metrics.
func EventName(e Event) string {
	return e.eventName()
}
