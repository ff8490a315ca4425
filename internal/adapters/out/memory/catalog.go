// Package memory provides a metadata store seeded from a YAML catalog file. It
// stands in for the storefront database in local runs and tests.
//
// Catalog format:
//
//	warehouses:
//	  - {id: 1, x: 10, y: 20}
//	packages:
//	  - id: 7
//	    warehouse: 1
//	    destination: {x: 3, y: 4}
//	    ups_user: alice
//	    items:
//	      - {id: 100, description: apple, count: 2}
package memory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/parcel"
	"fulfillment/internal/core/ports"
	"fulfillment/internal/pkg/errs"

	"gopkg.in/yaml.v3"
)

var _ ports.MetadataStore = (*Catalog)(nil)

type catalogFile struct {
	Warehouses []warehouseEntry `yaml:"warehouses"`
	Packages   []packageEntry   `yaml:"packages"`
}

type warehouseEntry struct {
	ID int32 `yaml:"id"`
	X  int32 `yaml:"x"`
	Y  int32 `yaml:"y"`
}

type packageEntry struct {
	ID          int64      `yaml:"id"`
	Warehouse   int32      `yaml:"warehouse"`
	Destination pointEntry `yaml:"destination"`
	UPSUser     string     `yaml:"ups_user"`
	Items       []itemLine `yaml:"items"`
}

type pointEntry struct {
	X int32 `yaml:"x"`
	Y int32 `yaml:"y"`
}

type itemLine struct {
	ID          int64  `yaml:"id"`
	Description string `yaml:"description"`
	Count       int32  `yaml:"count"`
}

// Catalog is an in-memory ports.MetadataStore. Purchases and warehouses are fixed
// at load time; statuses are kept in memory.
type Catalog struct {
	warehouses []kernel.Warehouse
	orders     map[int64]ports.PurchaseOrder

	mu       sync.RWMutex
	statuses map[int64]parcel.Status
}

// Load reads a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return FromYAML(data)
}

// FromYAML parses and validates a catalog. Unknown keys are rejected.
func FromYAML(data []byte) (*Catalog, error) {
	var file catalogFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, errs.NewValueIsInvalidErrorWithCause("catalog", err)
	}

	c := &Catalog{
		warehouses: make([]kernel.Warehouse, 0, len(file.Warehouses)),
		orders:     make(map[int64]ports.PurchaseOrder, len(file.Packages)),
		statuses:   make(map[int64]parcel.Status),
	}

	seen := make(map[int32]struct{}, len(file.Warehouses))
	for _, w := range file.Warehouses {
		if _, dup := seen[w.ID]; dup {
			return nil, errs.NewValueIsInvalidErrorWithCause("warehouses",
				fmt.Errorf("warehouse %d listed twice", w.ID))
		}
		seen[w.ID] = struct{}{}

		wh, err := kernel.NewWarehouse(w.ID, kernel.NewLocation(w.X, w.Y))
		if err != nil {
			return nil, err
		}
		c.warehouses = append(c.warehouses, wh)
	}

	for _, p := range file.Packages {
		order, err := p.toPurchaseOrder()
		if err != nil {
			return nil, fmt.Errorf("package %d: %w", p.ID, err)
		}
		if _, dup := c.orders[p.ID]; dup {
			return nil, errs.NewValueIsInvalidErrorWithCause("packages",
				fmt.Errorf("package %d listed twice", p.ID))
		}
		c.orders[p.ID] = order
	}

	return c, nil
}

func (p packageEntry) toPurchaseOrder() (ports.PurchaseOrder, error) {
	if len(p.Items) == 0 {
		return ports.PurchaseOrder{}, errs.NewValueIsRequiredError("items")
	}

	items := make([]kernel.Item, 0, len(p.Items))
	for _, line := range p.Items {
		item, err := kernel.NewItem(line.ID, line.Description, line.Count)
		if err != nil {
			return ports.PurchaseOrder{}, err
		}
		items = append(items, item)
	}

	return ports.PurchaseOrder{
		PackageID:      p.ID,
		WarehouseID:    p.Warehouse,
		Items:          items,
		Destination:    kernel.NewLocation(p.Destination.X, p.Destination.Y),
		CarrierAccount: p.UPSUser,
	}, nil
}

func (c *Catalog) PurchaseOrder(_ context.Context, packageID int64) (ports.PurchaseOrder, error) {
	order, ok := c.orders[packageID]
	if !ok {
		return ports.PurchaseOrder{}, errs.NewObjectNotFoundError("packageID", packageID)
	}
	return order, nil
}

func (c *Catalog) Warehouses(_ context.Context) ([]kernel.Warehouse, error) {
	return append([]kernel.Warehouse(nil), c.warehouses...), nil
}

// UpdateStatus records a status for a catalog package.
func (c *Catalog) UpdateStatus(_ context.Context, packageID int64, status parcel.Status) error {
	if err := status.Validate(); err != nil {
		return err
	}
	if _, ok := c.orders[packageID]; !ok {
		return errs.NewObjectNotFoundError("packageID", packageID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses[packageID] = status
	return nil
}

// Status returns the last recorded status of a package, Unknown if none was
// recorded yet.
func (c *Catalog) Status(_ context.Context, packageID int64) (parcel.Status, error) {
	if _, ok := c.orders[packageID]; !ok {
		return parcel.Unknown, errs.NewObjectNotFoundError("packageID", packageID)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.statuses[packageID], nil
}

// Ping always succeeds.
func (c *Catalog) Ping(context.Context) error {
	return nil
}
