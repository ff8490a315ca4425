package services

import (
	"errors"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/parcel"
)

// ErrNoMatchingPurchase is returned when no purchasing package claims an arrival.
var ErrNoMatchingPurchase = errors.New("no matching purchase")

// PurchaseMatcher decides which purchasing package an arrival belongs to.
//
// Business rules:
//   - the package must still be Purchasing
//   - warehouse ids must be equal
//   - the item lists must carry the same products in the same quantities
//   - among several candidates the one whose purchase was sent first wins, ties
//     broken by the lower package id
//
// World echoes a purchase with its own sequence number, so identical purchases at
// one warehouse are interchangeable and first-sent-first-matched keeps attribution
// deterministic.
type PurchaseMatcher struct{}

func NewPurchaseMatcher() PurchaseMatcher {
	return PurchaseMatcher{}
}

// Match returns the package the arrival belongs to or ErrNoMatchingPurchase.
// The candidates are not modified.
func (PurchaseMatcher) Match(warehouseID int32, items []kernel.Item, candidates []*parcel.Package) (*parcel.Package, error) {
	var best *parcel.Package
	for _, p := range candidates {
		if p.Validate() != nil || !p.MatchesArrival(warehouseID, items) {
			continue
		}
		if best == nil || earlier(p, best) {
			best = p
		}
	}
	if best == nil {
		return nil, ErrNoMatchingPurchase
	}
	return best, nil
}

func earlier(a, b *parcel.Package) bool {
	if a.BuySeq() != b.BuySeq() {
		return a.BuySeq() < b.BuySeq()
	}
	return a.ID() < b.ID()
}
