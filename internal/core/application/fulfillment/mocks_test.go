package fulfillment_test

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/parcel"
	"fulfillment/internal/core/ports"

	"github.com/stretchr/testify/mock"
)

type MockWorldGateway struct{ mock.Mock }

func (m *MockWorldGateway) Purchase(ctx context.Context, warehouseID int32, items []kernel.Item, packageID int64) (int64, error) {
	args := m.Called(ctx, warehouseID, items, packageID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockWorldGateway) Pack(ctx context.Context, instruction parcel.PackInstruction) (int64, error) {
	args := m.Called(ctx, instruction)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockWorldGateway) Load(ctx context.Context, warehouseID int32, truckID int32, packageID int64) (int64, error) {
	args := m.Called(ctx, warehouseID, truckID, packageID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockWorldGateway) Query(ctx context.Context, packageID int64) (int64, error) {
	args := m.Called(ctx, packageID)
	return args.Get(0).(int64), args.Error(1)
}

type MockCarrierGateway struct{ mock.Mock }

func (m *MockCarrierGateway) RequestPickup(ctx context.Context, req ports.PickupRequest) (int64, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCarrierGateway) NotifyLoadReady(ctx context.Context, packageID int64) (int64, error) {
	args := m.Called(ctx, packageID)
	return args.Get(0).(int64), args.Error(1)
}

type MockMetadataStore struct{ mock.Mock }

func (m *MockMetadataStore) PurchaseOrder(ctx context.Context, packageID int64) (ports.PurchaseOrder, error) {
	args := m.Called(ctx, packageID)
	return args.Get(0).(ports.PurchaseOrder), args.Error(1)
}

func (m *MockMetadataStore) Warehouses(ctx context.Context) ([]kernel.Warehouse, error) {
	args := m.Called(ctx)
	return args.Get(0).([]kernel.Warehouse), args.Error(1)
}

func (m *MockMetadataStore) UpdateStatus(ctx context.Context, packageID int64, status parcel.Status) error {
	args := m.Called(ctx, packageID, status)
	return args.Error(0)
}

// inlineDispatcher runs tasks on the submitting goroutine.
type inlineDispatcher struct{}

func (inlineDispatcher) Submit(ctx context.Context, task ports.Task) error {
	task(ctx)
	return nil
}

type counter struct{ n atomic.Int64 }

func (c *counter) Next() int64 { return c.n.Add(1) }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
