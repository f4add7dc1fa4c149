package core

import "context"

// LoadFunc fetches the entities of a relation list.
type LoadFunc func(ctx context.Context) ([]*Entity, error)

// Relation is the cell behind a relation list field. It is either resolved,
// holding the related entities, or unresolved with a loader that runs on
// the first Get. A resolved cell is never refreshed.
type Relation struct {
	items    []*Entity
	resolved bool
	load     LoadFunc
}

// Resolved returns a cell that already holds items.
func Resolved(items []*Entity) *Relation {
	return &Relation{items: items, resolved: true}
}

// Deferred returns an unresolved cell backed by load.
func Deferred(load LoadFunc) *Relation {
	return &Relation{load: load}
}

// IsResolved reports whether the related entities have been fetched.
func (r *Relation) IsResolved() bool { return r.resolved }

// Get returns the related entities, running the loader once if needed.
// A failed load leaves the cell unresolved.
func (r *Relation) Get(ctx context.Context) ([]*Entity, error) {
	if r.resolved {
		return r.items, nil
	}
	items, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	r.items = items
	r.resolved = true
	r.load = nil
	return items, nil
}
