// Package parcel provides the Package aggregate tracked by the fulfillment coordinator.
//
// The package includes:
//   - Package: one shipment from purchase to delivery, keyed by the id shared with
//     the World simulator (its shipid) and the carrier
//   - Status: the fulfillment state machine enforcing legal transitions
//   - PackInstruction: the immutable pack request derived from a package
//
// Lifecycle:
//
//	Purchasing -> Processed -> Packing -> Packed -> Loading -> Loaded -> Delivering -> Delivered
//	                                          ^
//	                       truck assigned ----┘ (Loading requires Packed and a truck)
//
// Any non-terminal status may move to Error. Delivered and Error are terminal.
//
// Package is not safe for concurrent use; the fulfillment service serializes access
// to each record.
package parcel
