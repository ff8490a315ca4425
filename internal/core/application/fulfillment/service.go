package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/parcel"
	"fulfillment/internal/core/domain/services"
	"fulfillment/internal/core/ports"
	"fulfillment/internal/pkg/errs"
)

// SyntheticIDOffset is added to a fresh sequence number to form the id of a package
// synthesized for an arrival that matched no purchase.
const SyntheticIDOffset = 10000

// claimAttempts bounds how often an arrival retries after losing a match to a
// concurrent arrival before it is treated as unmatched.
const claimAttempts = 3

// Observer receives status changes and event outcomes, typically for metrics.
type Observer interface {
	StatusChanged(status parcel.Status)
	EventHandled(event string, outcome string)
}

type noopObserver struct{}

func (noopObserver) StatusChanged(parcel.Status) {}
func (noopObserver) EventHandled(string, string) {}

type Option func(*Service)

func WithObserver(o Observer) Option {
	return func(s *Service) {
		if o != nil {
			s.observer = o
		}
	}
}

// Service is the package fulfillment state machine.
type Service struct {
	registry   *registry
	matcher    services.PurchaseMatcher
	world      ports.WorldGateway
	carrier    ports.CarrierGateway
	store      ports.MetadataStore
	dispatcher ports.TaskDispatcher
	seq        ports.SequenceSource
	observer   Observer
	logger     *slog.Logger
}

func NewService(
	world ports.WorldGateway,
	carrier ports.CarrierGateway,
	store ports.MetadataStore,
	dispatcher ports.TaskDispatcher,
	seq ports.SequenceSource,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		registry:   newRegistry(),
		matcher:    services.NewPurchaseMatcher(),
		world:      world,
		carrier:    carrier,
		store:      store,
		dispatcher: dispatcher,
		seq:        seq,
		observer:   noopObserver{},
		logger:     logger.With("component", "fulfillment"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Purchase starts fulfilling a package recorded by the storefront. The purchase
// details are looked up and the buy command sent on the dispatcher; the call
// returns once the work is queued.
func (s *Service) Purchase(ctx context.Context, packageID int64) error {
	if packageID <= 0 {
		return errs.NewValueIsInvalidErrorWithCause("packageID", fmt.Errorf("must be positive, got %d", packageID))
	}
	if _, ok := s.registry.lookup(packageID); ok {
		return errs.NewValueIsInvalidErrorWithCause("packageID",
			fmt.Errorf("package %d is already being fulfilled", packageID))
	}

	return s.dispatcher.Submit(ctx, func(ctx context.Context) {
		s.purchase(ctx, packageID)
	})
}

func (s *Service) purchase(ctx context.Context, packageID int64) {
	order, err := s.store.PurchaseOrder(ctx, packageID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load purchase", "package_id", packageID, "error", err)
		return
	}

	p, err := parcel.NewPackage(packageID, order.WarehouseID, order.Items, order.Destination, order.CarrierAccount)
	if err != nil {
		s.logger.ErrorContext(ctx, "Invalid purchase", "package_id", packageID, "error", err)
		return
	}
	if err = s.registry.add(p); err != nil {
		s.logger.WarnContext(ctx, "Duplicate purchase request", "package_id", packageID, "error", err)
		return
	}
	s.recordStatus(ctx, true, packageID, parcel.Purchasing)

	err = s.registry.update(packageID, "purchase", func(p *parcel.Package) error {
		seq, sendErr := s.world.Purchase(ctx, p.WarehouseID(), p.Items(), p.ID())
		if sendErr != nil {
			return sendErr
		}
		return p.RecordBuy(seq)
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to send purchase", "package_id", packageID, "error", err)
		s.fail(ctx, true, packageID, fmt.Sprintf("purchase not sent: %v", err))
		return
	}

	s.logger.InfoContext(ctx, "Purchase sent",
		"package_id", packageID, "warehouse_id", order.WarehouseID, "items", len(order.Items))
}

// Handle applies one inbound event. Events for unknown packages and events that do
// not fit the package's current status are logged and dropped; the returned error
// describes why.
func (s *Service) Handle(ctx context.Context, event Event) error {
	var err error
	switch e := event.(type) {
	case PurchaseArrived:
		err = s.onPurchaseArrived(ctx, e)
	case PackagePacked:
		err = s.onPacked(ctx, e)
	case PackageLoaded:
		err = s.onLoaded(ctx, e)
	case PackageStatusReported:
		err = s.registry.update(e.PackageID, e.eventName(), func(p *parcel.Package) error {
			p.ReportWorldStatus(e.Status)
			return nil
		})
	case PickupScheduled:
		err = s.registry.update(e.PackageID, e.eventName(), func(p *parcel.Package) error {
			return p.AssignTruck(e.TruckID)
		})
	case TruckArrived:
		err = s.onTruckArrived(ctx, e)
	case DeliveryStarted:
		err = s.onDeliveryStarted(ctx, e)
	case DeliveryCompleted:
		err = s.onDeliveryCompleted(ctx, e)
	case CommandRejected:
		s.logger.WarnContext(ctx, "Command rejected by peer",
			"peer", e.Peer, "origin_seq", e.OriginSeq, "package_id", e.PackageID, "reason", e.Reason)
	case CommandExpired:
		err = s.onExpired(ctx, e)
	case RequestAnswered:
		s.logger.InfoContext(ctx, "Carrier answered request",
			"kind", e.Kind, "package_id", e.PackageID, "success", e.Success, "reason", e.Reason)
	case SimulationFinished:
		s.logger.InfoContext(ctx, "World reported simulation finished", "in_flight", s.registry.len())
	default:
		err = fmt.Errorf("unsupported event %T", event)
	}

	s.report(ctx, event, err)
	return err
}

func (s *Service) report(ctx context.Context, event Event, err error) {
	name := event.eventName()
	switch {
	case err == nil:
		s.observer.EventHandled(name, "applied")
	case errors.Is(err, errs.ErrUnknownPackage):
		s.observer.EventHandled(name, "unknown_package")
		s.logger.WarnContext(ctx, "Event dropped", "event", name, "error", err)
	case errors.Is(err, errs.ErrValueIsInvalid):
		s.observer.EventHandled(name, "ignored")
		s.logger.DebugContext(ctx, "Event ignored", "event", name, "error", err)
	default:
		s.observer.EventHandled(name, "failed")
		s.logger.ErrorContext(ctx, "Event failed", "event", name, "error", err)
	}
}

func (s *Service) onPurchaseArrived(ctx context.Context, e PurchaseArrived) error {
	for range claimAttempts {
		candidates := s.registry.snapshot(func(p *parcel.Package) bool { return p.Status() == parcel.Purchasing })
		match, err := s.matcher.Match(e.WarehouseID, e.Items, candidates)
		if errors.Is(err, services.ErrNoMatchingPurchase) {
			break
		}
		if err != nil {
			return err
		}

		claimed := false
		err = s.registry.update(match.ID(), e.eventName(), func(p *parcel.Package) error {
			if !p.MatchesArrival(e.WarehouseID, e.Items) {
				return nil
			}
			claimed = true
			return p.Process()
		})
		if err != nil && !errors.Is(err, errs.ErrUnknownPackage) {
			return err
		}
		if claimed {
			s.logger.InfoContext(ctx, "Purchase arrived", "package_id", match.ID(), "warehouse_id", e.WarehouseID)
			s.recordStatus(ctx, false, match.ID(), parcel.Processed)
			s.fulfill(ctx, false, match.ID())
			return nil
		}
	}

	return s.dispatcher.Submit(ctx, func(ctx context.Context) {
		s.synthesize(ctx, e)
	})
}

func (s *Service) synthesize(ctx context.Context, e PurchaseArrived) {
	id := s.seq.Next() + SyntheticIDOffset

	destination := kernel.NewLocation(0, 0)
	account := ""
	order, err := s.store.PurchaseOrder(ctx, id)
	switch {
	case err == nil:
		destination, account = order.Destination, order.CarrierAccount
	case errors.Is(err, errs.ErrObjectNotFound):
	default:
		s.logger.WarnContext(ctx, "Failed to look up synthesized package", "package_id", id, "error", err)
	}

	p, err := parcel.NewArrivedPackage(id, e.WarehouseID, e.Items, destination, account)
	if err != nil {
		s.logger.ErrorContext(ctx, "Cannot synthesize package", "warehouse_id", e.WarehouseID, "error", err)
		return
	}
	if err = s.registry.add(p); err != nil {
		s.logger.ErrorContext(ctx, "Cannot register synthesized package", "package_id", id, "error", err)
		return
	}

	s.logger.InfoContext(ctx, "Arrival matched no purchase, package synthesized",
		"package_id", id, "warehouse_id", e.WarehouseID)
	s.recordStatus(ctx, true, id, parcel.Processed)
	s.fulfill(ctx, true, id)
}

// fulfill requests a pickup from the carrier and packing from World for a
// processed package. The package enters Packing before the pack command leaves.
func (s *Service) fulfill(ctx context.Context, inline bool, packageID int64) {
	var (
		pickup ports.PickupRequest
		pack   parcel.PackInstruction
	)
	err := s.registry.update(packageID, "fulfill", func(p *parcel.Package) error {
		if err := p.StartPacking(); err != nil {
			return err
		}
		pickup = ports.PickupRequest{
			PackageID:      p.ID(),
			WarehouseID:    p.WarehouseID(),
			Destination:    p.Destination(),
			CarrierAccount: p.CarrierAccount(),
			Items:          p.Items(),
		}
		pack = p.PackInstruction()
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Cannot start packing", "package_id", packageID, "error", err)
		return
	}
	s.recordStatus(ctx, inline, packageID, parcel.Packing)

	s.run(ctx, inline, func(ctx context.Context) {
		if _, err := s.carrier.RequestPickup(ctx, pickup); err != nil {
			s.logger.ErrorContext(ctx, "Failed to request pickup", "package_id", packageID, "error", err)
		}
	})
	s.run(ctx, inline, func(ctx context.Context) {
		if _, err := s.world.Pack(ctx, pack); err != nil {
			s.logger.ErrorContext(ctx, "Failed to send pack", "package_id", packageID, "error", err)
		}
	})
}

type loadOrder struct {
	warehouseID int32
	truckID     int32
	packageID   int64
}

// startLoading moves a packed package with a waiting truck to Loading. It must run
// under the record lock; the returned order is nil when loading cannot start.
func startLoading(p *parcel.Package) *loadOrder {
	if !p.ReadyToLoad() {
		return nil
	}
	if err := p.StartLoading(); err != nil {
		return nil
	}
	truck, _ := p.TruckID()
	return &loadOrder{warehouseID: p.WarehouseID(), truckID: truck, packageID: p.ID()}
}

func (s *Service) load(ctx context.Context, order *loadOrder) {
	if order == nil {
		return
	}
	s.logger.InfoContext(ctx, "Loading package",
		"package_id", order.packageID, "truck_id", order.truckID, "warehouse_id", order.warehouseID)
	s.recordStatus(ctx, false, order.packageID, parcel.Loading)
	s.run(ctx, false, func(ctx context.Context) {
		if _, err := s.world.Load(ctx, order.warehouseID, order.truckID, order.packageID); err != nil {
			s.logger.ErrorContext(ctx, "Failed to send load", "package_id", order.packageID, "error", err)
		}
	})
}

func (s *Service) onPacked(ctx context.Context, e PackagePacked) error {
	var order *loadOrder
	err := s.registry.update(e.PackageID, e.eventName(), func(p *parcel.Package) error {
		if err := p.CompletePacking(); err != nil {
			return err
		}
		order = startLoading(p)
		return nil
	})
	if err != nil {
		return err
	}

	s.recordStatus(ctx, false, e.PackageID, parcel.Packed)
	s.load(ctx, order)
	return nil
}

func (s *Service) onTruckArrived(ctx context.Context, e TruckArrived) error {
	var order *loadOrder
	err := s.registry.update(e.PackageID, e.eventName(), func(p *parcel.Package) error {
		if err := p.AssignTruck(e.TruckID); err != nil {
			return err
		}
		order = startLoading(p)
		return nil
	})
	if err != nil {
		return err
	}

	s.load(ctx, order)
	return nil
}

func (s *Service) onLoaded(ctx context.Context, e PackageLoaded) error {
	err := s.registry.update(e.PackageID, e.eventName(), (*parcel.Package).CompleteLoading)
	if err != nil {
		return err
	}

	s.recordStatus(ctx, false, e.PackageID, parcel.Loaded)
	s.run(ctx, false, func(ctx context.Context) {
		if _, err := s.carrier.NotifyLoadReady(ctx, e.PackageID); err != nil {
			s.logger.ErrorContext(ctx, "Failed to notify load ready", "package_id", e.PackageID, "error", err)
		}
	})
	return nil
}

func (s *Service) onDeliveryStarted(ctx context.Context, e DeliveryStarted) error {
	if err := s.registry.update(e.PackageID, e.eventName(), (*parcel.Package).StartDelivery); err != nil {
		return err
	}
	s.recordStatus(ctx, false, e.PackageID, parcel.Delivering)
	return nil
}

// onDeliveryCompleted discards the record whatever its status; the carrier has
// the package, so nothing else will arrive for it.
func (s *Service) onDeliveryCompleted(ctx context.Context, e DeliveryCompleted) error {
	var from parcel.Status
	err := s.registry.update(e.PackageID, e.eventName(), func(p *parcel.Package) error {
		from = p.Status()
		return p.CompleteDelivery()
	})
	if err != nil {
		return err
	}
	s.registry.remove(e.PackageID)

	if !from.ExpectsDelivery() {
		s.logger.WarnContext(ctx, "Delivery reported in an unexpected status",
			"package_id", e.PackageID, "status", from)
	}

	s.logger.InfoContext(ctx, "Package delivered", "package_id", e.PackageID)
	s.recordStatus(ctx, false, e.PackageID, parcel.Delivered)
	return nil
}

func (s *Service) onExpired(ctx context.Context, e CommandExpired) error {
	s.logger.ErrorContext(ctx, "Command expired without acknowledgement",
		"peer", e.Peer, "seq", e.Seq, "package_id", e.PackageID, "attempts", e.Attempts)
	if e.PackageID == 0 {
		return nil
	}
	reason := fmt.Sprintf("%s command %d unacknowledged after %d attempts", e.Peer, e.Seq, e.Attempts)
	if err := s.registry.update(e.PackageID, e.eventName(), func(p *parcel.Package) error {
		return p.Fail(reason)
	}); err != nil {
		return err
	}
	s.recordStatus(ctx, false, e.PackageID, parcel.Error)
	return nil
}

func (s *Service) fail(ctx context.Context, inline bool, packageID int64, reason string) {
	err := s.registry.update(packageID, "fail", func(p *parcel.Package) error {
		return p.Fail(reason)
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Cannot fail package", "package_id", packageID, "error", err)
		return
	}
	s.recordStatus(ctx, inline, packageID, parcel.Error)
}

// recordStatus reports a status change and writes it through to the storefront.
func (s *Service) recordStatus(ctx context.Context, inline bool, packageID int64, status parcel.Status) {
	s.observer.StatusChanged(status)
	s.run(ctx, inline, func(ctx context.Context) {
		// Writes may be reordered on the pool; persist whatever is current.
		if p, ok := s.registry.get(packageID); ok {
			status = p.Status()
		}
		err := s.store.UpdateStatus(ctx, packageID, status)
		switch {
		case err == nil:
		case errors.Is(err, errs.ErrObjectNotFound):
			s.logger.DebugContext(ctx, "Status not persisted, package unknown to storefront",
				"package_id", packageID, "status", status)
		default:
			s.logger.ErrorContext(ctx, "Failed to persist status",
				"package_id", packageID, "status", status, "error", err)
		}
	})
}

// run executes fn on the dispatcher, or directly when the caller already is a
// dispatcher task.
func (s *Service) run(ctx context.Context, inline bool, fn ports.Task) {
	if inline {
		fn(ctx)
		return
	}
	if err := s.dispatcher.Submit(ctx, fn); err != nil {
		s.logger.ErrorContext(ctx, "Failed to dispatch task", "error", err)
	}
}

// Get returns a copy of a tracked package.
func (s *Service) Get(packageID int64) (*parcel.Package, error) {
	p, ok := s.registry.get(packageID)
	if !ok {
		return nil, errs.NewObjectNotFoundError("packageID", packageID)
	}
	return p, nil
}

// List returns copies of all tracked packages ordered by id.
func (s *Service) List() []*parcel.Package {
	return s.registry.snapshot(nil)
}

// InFlight returns copies of the packages World currently holds.
func (s *Service) InFlight() []*parcel.Package {
	return s.registry.snapshot(func(p *parcel.Package) bool { return p.Status().IsInFlight() })
}

// QueryStatus asks World for the status of a package. The answer arrives as a
// PackageStatusReported event.
func (s *Service) QueryStatus(ctx context.Context, packageID int64) error {
	if _, ok := s.registry.lookup(packageID); !ok {
		return errs.NewObjectNotFoundError("packageID", packageID)
	}
	_, err := s.world.Query(ctx, packageID)
	return err
}
