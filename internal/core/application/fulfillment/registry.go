package fulfillment

import (
	"cmp"
	"fmt"
	"slices"
	"sync"

	"fulfillment/internal/core/domain/model/parcel"
	"fulfillment/internal/pkg/errs"
)

type record struct {
	mu  sync.Mutex
	pkg *parcel.Package
}

// registry is the concurrent map of in-flight packages. The map lock only guards
// membership; each record has its own lock for state changes.
type registry struct {
	mu      sync.RWMutex
	records map[int64]*record
}

func newRegistry() *registry {
	return &registry{records: make(map[int64]*record)}
}

func (r *registry) add(p *parcel.Package) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[p.ID()]; ok {
		return errs.NewValueIsInvalidErrorWithCause("packageID",
			fmt.Errorf("package %d is already being fulfilled", p.ID()))
	}
	r.records[p.ID()] = &record{pkg: p}
	return nil
}

func (r *registry) lookup(id int64) (*record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	return rec, ok
}

// update runs fn with exclusive access to the package. Unknown ids yield
// errs.UnknownPackageError naming the event.
func (r *registry) update(id int64, event string, fn func(p *parcel.Package) error) error {
	rec, ok := r.lookup(id)
	if !ok {
		return errs.NewUnknownPackageError(id, event)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	return fn(rec.pkg)
}

func (r *registry) remove(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, id)
}

func (r *registry) get(id int64) (*parcel.Package, bool) {
	rec, ok := r.lookup(id)
	if !ok {
		return nil, false
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.pkg.Clone(), true
}

// snapshot returns copies of the packages accepted by keep, ordered by id.
func (r *registry) snapshot(keep func(p *parcel.Package) bool) []*parcel.Package {
	r.mu.RLock()
	recs := make([]*record, 0, len(r.records))
	for _, rec := range r.records {
		recs = append(recs, rec)
	}
	r.mu.RUnlock()

	out := make([]*parcel.Package, 0, len(recs))
	for _, rec := range recs {
		rec.mu.Lock()
		if keep == nil || keep(rec.pkg) {
			out = append(out, rec.pkg.Clone())
		}
		rec.mu.Unlock()
	}
	slices.SortFunc(out, func(a, b *parcel.Package) int { return cmp.Compare(a.ID(), b.ID()) })
	return out
}

func (r *registry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}
