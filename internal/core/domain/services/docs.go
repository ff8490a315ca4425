// Package services provides domain services that span several Package aggregates.
//
// The package includes:
//   - PurchaseMatcher: attributes stock that arrived at a warehouse to the local
//     purchase that requested it
package services
