package fulfillment_test

import (
	"sync"
	"testing"

	"fulfillment/internal/core/application/fulfillment"
	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/parcel"
	"fulfillment/internal/core/ports"
	"fulfillment/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	world   *MockWorldGateway
	carrier *MockCarrierGateway
	store   *MockMetadataStore
	seq     *counter
	service *fulfillment.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		world:   new(MockWorldGateway),
		carrier: new(MockCarrierGateway),
		store:   new(MockMetadataStore),
		seq:     new(counter),
	}
	f.store.On("UpdateStatus", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	f.service = fulfillment.NewService(f.world, f.carrier, f.store, inlineDispatcher{}, f.seq, discardLogger())
	return f
}

func apples(t *testing.T) []kernel.Item {
	t.Helper()
	it, err := kernel.NewItem(1, "apple", 2)
	require.NoError(t, err)
	return []kernel.Item{it}
}

// purchased drives a package through Purchase and the matching arrival into Packing.
func (f *fixture) purchased(t *testing.T, packageID int64, warehouseID int32) {
	t.Helper()
	ctx := t.Context()

	f.store.On("PurchaseOrder", mock.Anything, packageID).Return(ports.PurchaseOrder{
		PackageID:      packageID,
		WarehouseID:    warehouseID,
		Items:          apples(t),
		Destination:    kernel.NewLocation(7, 8),
		CarrierAccount: "alice",
	}, nil).Once()
	f.world.On("Purchase", mock.Anything, warehouseID, mock.Anything, packageID).Return(int64(100+packageID), nil).Once()
	f.carrier.On("RequestPickup", mock.Anything, mock.MatchedBy(func(r ports.PickupRequest) bool {
		return r.PackageID == packageID
	})).Return(int64(1), nil).Once()
	f.world.On("Pack", mock.Anything, mock.MatchedBy(func(pi parcel.PackInstruction) bool {
		return pi.ShipID() == packageID
	})).Return(int64(2), nil).Once()

	require.NoError(t, f.service.Purchase(ctx, packageID))
	p, err := f.service.Get(packageID)
	require.NoError(t, err)
	require.Equal(t, parcel.Purchasing, p.Status())
	require.Equal(t, 100+packageID, p.BuySeq())

	require.NoError(t, f.service.Handle(ctx, fulfillment.PurchaseArrived{Seq: 1, WarehouseID: warehouseID, Items: apples(t)}))
	p, err = f.service.Get(packageID)
	require.NoError(t, err)
	require.Equal(t, parcel.Packing, p.Status())
}

func TestService_EndToEnd(t *testing.T) {
	ctx := t.Context()
	f := newFixture(t)
	f.purchased(t, 1, 3)

	// truck arrives before packing completes: no load yet
	require.NoError(t, f.service.Handle(ctx, fulfillment.TruckArrived{Seq: 2, PackageID: 1, TruckID: 9, WarehouseID: 3}))
	f.world.AssertNotCalled(t, "Load", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	f.world.On("Load", mock.Anything, int32(3), int32(9), int64(1)).Return(int64(5), nil).Once()
	require.NoError(t, f.service.Handle(ctx, fulfillment.PackagePacked{Seq: 3, PackageID: 1}))
	p, err := f.service.Get(1)
	require.NoError(t, err)
	assert.Equal(t, parcel.Loading, p.Status())

	f.carrier.On("NotifyLoadReady", mock.Anything, int64(1)).Return(int64(6), nil).Once()
	require.NoError(t, f.service.Handle(ctx, fulfillment.PackageLoaded{Seq: 4, PackageID: 1}))

	require.NoError(t, f.service.Handle(ctx, fulfillment.DeliveryStarted{Seq: 5, PackageID: 1}))
	require.NoError(t, f.service.Handle(ctx, fulfillment.DeliveryCompleted{Seq: 6, PackageID: 1}))

	_, err = f.service.Get(1)
	require.ErrorIs(t, err, errs.ErrObjectNotFound)

	err = f.service.Handle(ctx, fulfillment.PackagePacked{Seq: 7, PackageID: 1})
	require.ErrorIs(t, err, errs.ErrUnknownPackage)

	f.world.AssertExpectations(t)
	f.carrier.AssertExpectations(t)
	f.store.AssertCalled(t, "UpdateStatus", mock.Anything, int64(1), parcel.Delivered)
}

func TestService_PackedBeforeTruckThenDirectDelivery(t *testing.T) {
	ctx := t.Context()
	f := newFixture(t)
	f.purchased(t, 1, 3)

	// packed before any truck: no load yet
	require.NoError(t, f.service.Handle(ctx, fulfillment.PackagePacked{Seq: 2, PackageID: 1}))
	p, err := f.service.Get(1)
	require.NoError(t, err)
	assert.Equal(t, parcel.Packed, p.Status())
	f.world.AssertNotCalled(t, "Load", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	f.world.On("Load", mock.Anything, int32(3), int32(2), int64(1)).Return(int64(5), nil).Once()
	require.NoError(t, f.service.Handle(ctx, fulfillment.TruckArrived{Seq: 3, PackageID: 1, TruckID: 2, WarehouseID: 3}))
	p, err = f.service.Get(1)
	require.NoError(t, err)
	assert.Equal(t, parcel.Loading, p.Status())

	f.carrier.On("NotifyLoadReady", mock.Anything, int64(1)).Return(int64(6), nil).Once()
	require.NoError(t, f.service.Handle(ctx, fulfillment.PackageLoaded{Seq: 4, PackageID: 1}))
	p, err = f.service.Get(1)
	require.NoError(t, err)
	assert.Equal(t, parcel.Loaded, p.Status())

	// straight from Loaded, no delivery start reported
	require.NoError(t, f.service.Handle(ctx, fulfillment.DeliveryCompleted{Seq: 5, PackageID: 1}))
	_, err = f.service.Get(1)
	require.ErrorIs(t, err, errs.ErrObjectNotFound)

	f.world.AssertExpectations(t)
	f.carrier.AssertExpectations(t)
	f.store.AssertCalled(t, "UpdateStatus", mock.Anything, int64(1), parcel.Packed)
	f.store.AssertCalled(t, "UpdateStatus", mock.Anything, int64(1), parcel.Loaded)
	f.store.AssertCalled(t, "UpdateStatus", mock.Anything, int64(1), parcel.Delivered)
}

func TestService_DeliveryCompletedRemovesRecordInAnyStatus(t *testing.T) {
	t.Run("while_loading", func(t *testing.T) {
		ctx := t.Context()
		f := newFixture(t)
		f.purchased(t, 1, 3)
		f.world.On("Load", mock.Anything, int32(3), int32(2), int64(1)).Return(int64(5), nil).Once()
		require.NoError(t, f.service.Handle(ctx, fulfillment.PackagePacked{Seq: 2, PackageID: 1}))
		require.NoError(t, f.service.Handle(ctx, fulfillment.TruckArrived{Seq: 3, PackageID: 1, TruckID: 2, WarehouseID: 3}))

		require.NoError(t, f.service.Handle(ctx, fulfillment.DeliveryCompleted{Seq: 4, PackageID: 1}))

		_, err := f.service.Get(1)
		require.ErrorIs(t, err, errs.ErrObjectNotFound)
		f.store.AssertCalled(t, "UpdateStatus", mock.Anything, int64(1), parcel.Delivered)

		err = f.service.Handle(ctx, fulfillment.PackageLoaded{Seq: 5, PackageID: 1})
		require.ErrorIs(t, err, errs.ErrUnknownPackage)
	})

	t.Run("after_error", func(t *testing.T) {
		ctx := t.Context()
		f := newFixture(t)
		f.purchased(t, 1, 3)
		require.NoError(t, f.service.Handle(ctx, fulfillment.CommandExpired{Peer: "world", Seq: 2, PackageID: 1, Attempts: 5}))

		require.NoError(t, f.service.Handle(ctx, fulfillment.DeliveryCompleted{Seq: 3, PackageID: 1}))

		_, err := f.service.Get(1)
		require.ErrorIs(t, err, errs.ErrObjectNotFound)
	})

	t.Run("unknown_package", func(t *testing.T) {
		f := newFixture(t)

		err := f.service.Handle(t.Context(), fulfillment.DeliveryCompleted{Seq: 1, PackageID: 77})
		require.ErrorIs(t, err, errs.ErrUnknownPackage)
	})
}

func TestService_LoadingStartsOnceInEitherOrder(t *testing.T) {
	t.Run("packed_then_truck", func(t *testing.T) {
		ctx := t.Context()
		f := newFixture(t)
		f.purchased(t, 1, 3)
		f.world.On("Load", mock.Anything, int32(3), int32(4), int64(1)).Return(int64(5), nil).Once()

		require.NoError(t, f.service.Handle(ctx, fulfillment.PackagePacked{Seq: 2, PackageID: 1}))
		f.world.AssertNotCalled(t, "Load", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		require.NoError(t, f.service.Handle(ctx, fulfillment.TruckArrived{Seq: 3, PackageID: 1, TruckID: 4}))

		// redelivered events do not load again
		require.ErrorIs(t, f.service.Handle(ctx, fulfillment.TruckArrived{Seq: 3, PackageID: 1, TruckID: 4}),
			errs.ErrValueIsInvalid)
		require.ErrorIs(t, f.service.Handle(ctx, fulfillment.PackagePacked{Seq: 2, PackageID: 1}),
			errs.ErrValueIsInvalid)

		f.world.AssertNumberOfCalls(t, "Load", 1)
	})

	t.Run("concurrent_arrivals", func(t *testing.T) {
		ctx := t.Context()
		f := newFixture(t)
		const packages = 20
		for id := int64(1); id <= packages; id++ {
			f.purchased(t, id, int32(id))
			f.world.On("Load", mock.Anything, int32(id), int32(50), id).Return(int64(5), nil).Once()
		}

		var wg sync.WaitGroup
		for id := int64(1); id <= packages; id++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				_ = f.service.Handle(ctx, fulfillment.PackagePacked{PackageID: id})
			}()
			go func() {
				defer wg.Done()
				_ = f.service.Handle(ctx, fulfillment.TruckArrived{PackageID: id, TruckID: 50})
			}()
		}
		wg.Wait()

		f.world.AssertNumberOfCalls(t, "Load", packages)
		for _, p := range f.service.List() {
			assert.Equal(t, parcel.Loading, p.Status(), "package %d", p.ID())
		}
	})
}

func TestService_PickupResponseOnlyRecordsTruck(t *testing.T) {
	ctx := t.Context()
	f := newFixture(t)
	f.purchased(t, 1, 3)

	require.NoError(t, f.service.Handle(ctx, fulfillment.PickupScheduled{Seq: 2, PackageID: 1, TruckID: 6}))

	p, err := f.service.Get(1)
	require.NoError(t, err)
	truck, ok := p.TruckID()
	assert.True(t, ok)
	assert.Equal(t, int32(6), truck)
	assert.Equal(t, parcel.Packing, p.Status())
	f.world.AssertNotCalled(t, "Load", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	// packing completes: the recorded truck is loaded without waiting for an arrival
	f.world.On("Load", mock.Anything, int32(3), int32(6), int64(1)).Return(int64(5), nil).Once()
	require.NoError(t, f.service.Handle(ctx, fulfillment.PackagePacked{Seq: 3, PackageID: 1}))

	p, err = f.service.Get(1)
	require.NoError(t, err)
	assert.Equal(t, parcel.Loading, p.Status())
	f.world.AssertNumberOfCalls(t, "Load", 1)
}

func TestService_UnmatchedArrivalIsSynthesized(t *testing.T) {
	ctx := t.Context()
	f := newFixture(t)
	f.seq.n.Store(41)

	f.store.On("PurchaseOrder", mock.Anything, int64(10042)).
		Return(ports.PurchaseOrder{}, errs.NewObjectNotFoundError("packageID", int64(10042))).Once()
	f.carrier.On("RequestPickup", mock.Anything, mock.MatchedBy(func(r ports.PickupRequest) bool {
		return r.PackageID == 10042 && r.WarehouseID == 5
	})).Return(int64(1), nil).Once()
	f.world.On("Pack", mock.Anything, mock.MatchedBy(func(pi parcel.PackInstruction) bool {
		return pi.ShipID() == 10042 && pi.WarehouseID() == 5
	})).Return(int64(2), nil).Once()

	require.NoError(t, f.service.Handle(ctx, fulfillment.PurchaseArrived{Seq: 1, WarehouseID: 5, Items: apples(t)}))

	p, err := f.service.Get(10042)
	require.NoError(t, err)
	assert.Equal(t, parcel.Packing, p.Status())
	f.world.AssertExpectations(t)
	f.carrier.AssertExpectations(t)
}

func TestService_ArrivalForOtherWarehouseDoesNotClaim(t *testing.T) {
	ctx := t.Context()
	f := newFixture(t)

	f.store.On("PurchaseOrder", mock.Anything, int64(1)).Return(ports.PurchaseOrder{
		PackageID: 1, WarehouseID: 3, Items: apples(t), Destination: kernel.NewLocation(1, 1),
	}, nil).Once()
	f.world.On("Purchase", mock.Anything, int32(3), mock.Anything, int64(1)).Return(int64(10), nil).Once()
	require.NoError(t, f.service.Purchase(ctx, 1))

	f.store.On("PurchaseOrder", mock.Anything, mock.Anything).
		Return(ports.PurchaseOrder{}, errs.NewObjectNotFoundError("packageID", 0)).Once()
	f.carrier.On("RequestPickup", mock.Anything, mock.Anything).Return(int64(1), nil).Once()
	f.world.On("Pack", mock.Anything, mock.Anything).Return(int64(2), nil).Once()

	require.NoError(t, f.service.Handle(ctx, fulfillment.PurchaseArrived{Seq: 1, WarehouseID: 4, Items: apples(t)}))

	p, err := f.service.Get(1)
	require.NoError(t, err)
	assert.Equal(t, parcel.Purchasing, p.Status())
	assert.Len(t, f.service.List(), 2)
}

func TestService_Purchase(t *testing.T) {
	t.Run("rejects_invalid_id", func(t *testing.T) {
		f := newFixture(t)
		require.ErrorIs(t, f.service.Purchase(t.Context(), 0), errs.ErrValueIsInvalid)
	})

	t.Run("rejects_package_already_tracked", func(t *testing.T) {
		f := newFixture(t)
		f.purchased(t, 1, 3)

		require.ErrorIs(t, f.service.Purchase(t.Context(), 1), errs.ErrValueIsInvalid)
	})

	t.Run("unknown_storefront_package_is_not_tracked", func(t *testing.T) {
		f := newFixture(t)
		f.store.On("PurchaseOrder", mock.Anything, int64(8)).
			Return(ports.PurchaseOrder{}, errs.NewObjectNotFoundError("packageID", int64(8))).Once()

		require.NoError(t, f.service.Purchase(t.Context(), 8))

		_, err := f.service.Get(8)
		require.ErrorIs(t, err, errs.ErrObjectNotFound)
		f.world.AssertNotCalled(t, "Purchase", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestService_CommandExpiredFailsPackage(t *testing.T) {
	ctx := t.Context()
	f := newFixture(t)
	f.purchased(t, 1, 3)

	require.NoError(t, f.service.Handle(ctx, fulfillment.CommandExpired{Peer: "world", Seq: 2, PackageID: 1, Attempts: 5}))

	p, err := f.service.Get(1)
	require.NoError(t, err)
	assert.Equal(t, parcel.Error, p.Status())
	assert.Contains(t, p.Failure(), "unacknowledged after 5 attempts")
}

func TestService_CommandRejectedKeepsStatus(t *testing.T) {
	ctx := t.Context()
	f := newFixture(t)
	f.purchased(t, 1, 3)

	require.NoError(t, f.service.Handle(ctx, fulfillment.CommandRejected{Peer: "world", OriginSeq: 2, PackageID: 1, Reason: "bad"}))

	p, err := f.service.Get(1)
	require.NoError(t, err)
	assert.Equal(t, parcel.Packing, p.Status())
}

func TestService_StatusQueries(t *testing.T) {
	ctx := t.Context()
	f := newFixture(t)
	f.purchased(t, 1, 3)
	f.world.On("Query", mock.Anything, int64(1)).Return(int64(9), nil).Once()

	require.NoError(t, f.service.QueryStatus(ctx, 1))
	require.NoError(t, f.service.Handle(ctx, fulfillment.PackageStatusReported{Seq: 3, PackageID: 1, Status: "packing"}))

	p, err := f.service.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "packing", p.LastReported())
	assert.Len(t, f.service.InFlight(), 1)
	require.ErrorIs(t, f.service.QueryStatus(ctx, 2), errs.ErrObjectNotFound)
}
