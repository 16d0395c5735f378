package store

import (
	"slices"
	"sync"
	"time"

	"github.com/dmitrijs2005/medscribe/internal/client/models"
)

// Change describes one published mutation.
type Change struct {
	Kind      models.Kind
	PatientID string
	Version   uint64
}

// Collection is a copy-on-write map from patient id to records of one kind.
type Collection[T models.Record[T]] struct {
	kind   models.Kind
	notify func(Change)

	mu    sync.RWMutex
	lists map[string][]T
	vers  map[string]uint64
}

func newCollection[T models.Record[T]](kind models.Kind, notify func(Change)) *Collection[T] {
	return &Collection[T]{
		kind:   kind,
		notify: notify,
		lists:  make(map[string][]T),
		vers:   make(map[string]uint64),
	}
}

func (c *Collection[T]) Kind() models.Kind { return c.kind }

// Get returns a copy of the records of patientID.
func (c *Collection[T]) Get(patientID string) []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.lists[patientID])
}

// Find returns the record with id.
func (c *Collection[T]) Find(patientID, id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, r := range c.lists[patientID] {
		if r.RecordID() == id {
			return r, true
		}
	}
	var zero T
	return zero, false
}

// Version increases on every published change to patientID.
func (c *Collection[T]) Version(patientID string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vers[patientID]
}

func (c *Collection[T]) Patients() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.lists))
	for pid := range c.lists {
		out = append(out, pid)
	}
	slices.Sort(out)
	return out
}

// SetAll replaces the list of patientID.
func (c *Collection[T]) SetAll(patientID string, records []T) {
	next := slices.Clone(records)
	c.mutate(patientID, func([]T) ([]T, bool) { return next, true })
}

// Update replaces the list of patientID with fn(prev). fn receives its own
// copy and runs under the collection lock, so it must not call back into the
// store.
func (c *Collection[T]) Update(patientID string, fn func(prev []T) []T) {
	c.mutate(patientID, func(prev []T) ([]T, bool) {
		return fn(slices.Clone(prev)), true
	})
}

// Modify is Update for callers that may find nothing to change: when fn
// reports false the list, version and subscribers are left alone.
func (c *Collection[T]) Modify(patientID string, fn func(prev []T) ([]T, bool)) bool {
	return c.mutate(patientID, func(prev []T) ([]T, bool) {
		return fn(slices.Clone(prev))
	})
}

func (c *Collection[T]) Append(patientID string, rec T) {
	c.mutate(patientID, func(prev []T) ([]T, bool) {
		return append(slices.Clip(prev), rec), true
	})
}

// UpdateStatus sets the status of the record with id and applies patches to
// it. It reports false, and changes nothing, when id is not present.
func (c *Collection[T]) UpdateStatus(patientID, id string, status models.Status, patches ...func(T) T) bool {
	return c.Patch(patientID, id, func(r T) T {
		r = r.WithStatus(status)
		for _, p := range patches {
			r = p(r)
		}
		return r
	})
}

// Patch replaces the record with id by fn(record).
func (c *Collection[T]) Patch(patientID, id string, fn func(T) T) bool {
	return c.mutate(patientID, func(prev []T) ([]T, bool) {
		i := slices.IndexFunc(prev, func(r T) bool { return r.RecordID() == id })
		if i < 0 {
			return nil, false
		}
		next := slices.Clone(prev)
		next[i] = fn(prev[i])
		return next, true
	})
}

// Reset drops every list.
func (c *Collection[T]) Reset() {
	for _, pid := range c.Patients() {
		c.mutate(pid, func(prev []T) ([]T, bool) { return nil, len(prev) > 0 })
	}
}

// restore installs records without emitting a change.
func (c *Collection[T]) restore(patientID string, records []T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lists[patientID] = records
	c.vers[patientID]++
}

// expire fails pending records whose timestamp is at least staleAfter before
// now and that live does not claim.
func (c *Collection[T]) expire(now time.Time, staleAfter time.Duration, live func(id string) bool) int {
	n := 0
	for _, pid := range c.Patients() {
		c.mutate(pid, func(prev []T) ([]T, bool) {
			var next []T
			for i, r := range prev {
				if r.RecordStatus() != models.StatusPending || now.Sub(r.RecordTime()) < staleAfter {
					continue
				}
				if live != nil && live(r.RecordID()) {
					continue
				}
				if next == nil {
					next = slices.Clone(prev)
				}
				next[i] = r.WithStatus(models.StatusFailed)
				n++
			}
			return next, next != nil
		})
	}
	return n
}

func (c *Collection[T]) mutate(patientID string, fn func(prev []T) ([]T, bool)) bool {
	c.mu.Lock()
	next, changed := fn(c.lists[patientID])
	if !changed {
		c.mu.Unlock()
		return false
	}
	c.lists[patientID] = next
	c.vers[patientID]++
	ch := Change{Kind: c.kind, PatientID: patientID, Version: c.vers[patientID]}
	c.mu.Unlock()

	if c.notify != nil {
		c.notify(ch)
	}
	return true
}
