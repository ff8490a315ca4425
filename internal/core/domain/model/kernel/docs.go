// Package kernel provides the value objects shared by the fulfillment domain model.
//
// The package includes:
//   - Location: a point on the World simulator grid (package destinations, warehouse positions)
//   - Item: a product line of a purchase (product id, description, count)
//   - Warehouse: a warehouse known to the World simulator
//
// All types are immutable and must be created through their constructors; the zero
// values fail validation. They are safe for concurrent use.
package kernel
