// Package fulfillment drives every package from purchase to delivery.
//
// Service owns the in-flight Package records. Inbound peer events reach it through
// Handle as a closed set of Event types; each handler mutates one record under that
// record's lock and hands outbound commands to the task dispatcher after the lock is
// released. The two peers report independently, so the check for "packed and a
// truck is waiting" runs on both the World packed path and the carrier truck-arrived
// path, and whichever arrives second starts loading.
//
// Records are kept in memory only. Delivered packages are dropped; packages whose
// commands could not be delivered stay visible in Error.
package fulfillment
