// Package collection provides the ordered, id-keyed store shared by the
// settings and originator collections.
//
// Ordered keeps insertion order for stable iteration and serialization while
// lookups go through a map. A single mutex guards all state; observers are
// invoked after the lock is released so they may safely read the collection.
package collection

import (
	"slices"
	"sync"
)

// Entry pairs a value with the id it is stored under.
type Entry[V any] struct {
	ID    int
	Value V
}

// Change describes one mutation batch.
// A single Change is delivered per public call, however many items it touched.
type Change struct {
	Added   []int
	Removed []int
}

// Empty reports whether the change touched nothing.
func (c Change) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0
}

// Ordered is an insertion-ordered map from id to value.
//
// The zero value is not usable; create one with New.
type Ordered[V any] struct {
	mu        sync.RWMutex
	order     []int
	items     map[int]V
	observers map[int]func(Change)
	nextObs   int
}

// New creates an empty collection.
func New[V any]() *Ordered[V] {
	return &Ordered[V]{
		items:     make(map[int]V),
		observers: make(map[int]func(Change)),
	}
}

// Subscribe registers fn for change notifications.
// The returned function removes the subscription; calling it twice is harmless.
func (o *Ordered[V]) Subscribe(fn func(Change)) (unsubscribe func()) {
	o.mu.Lock()
	id := o.nextObs
	o.nextObs++
	o.observers[id] = fn
	o.mu.Unlock()

	return func() {
		o.mu.Lock()
		delete(o.observers, id)
		o.mu.Unlock()
	}
}

// Add stores v under id. It returns false, leaving the collection untouched,
// when id is already present.
func (o *Ordered[V]) Add(id int, v V) bool {
	o.mu.Lock()
	if _, exists := o.items[id]; exists {
		o.mu.Unlock()
		return false
	}
	o.insertLocked(id, v)
	observers := o.observersLocked()
	o.mu.Unlock()

	notify(observers, Change{Added: []int{id}})
	return true
}

// AddAll stores every entry whose id is not yet present and returns how many
// were added. Observers are notified once for the whole batch.
func (o *Ordered[V]) AddAll(entries []Entry[V]) int {
	o.mu.Lock()
	var change Change
	for _, e := range entries {
		if _, exists := o.items[e.ID]; exists {
			continue
		}
		o.insertLocked(e.ID, e.Value)
		change.Added = append(change.Added, e.ID)
	}
	observers := o.observersLocked()
	o.mu.Unlock()

	if !change.Empty() {
		notify(observers, change)
	}
	return len(change.Added)
}

// Set replaces the whole content with entries, in order. Later duplicates of
// an id are ignored. Observers are notified once.
func (o *Ordered[V]) Set(entries []Entry[V]) {
	o.mu.Lock()
	change := Change{Removed: slices.Clone(o.order)}
	o.order = o.order[:0]
	o.items = make(map[int]V, len(entries))
	for _, e := range entries {
		if _, exists := o.items[e.ID]; exists {
			continue
		}
		o.insertLocked(e.ID, e.Value)
		change.Added = append(change.Added, e.ID)
	}
	observers := o.observersLocked()
	o.mu.Unlock()

	if !change.Empty() {
		notify(observers, change)
	}
}

// Remove deletes id when match reports true for the stored value (a nil
// match removes unconditionally).
func (o *Ordered[V]) Remove(id int, match func(V) bool) bool {
	o.mu.Lock()
	v, ok := o.items[id]
	if !ok || (match != nil && !match(v)) {
		o.mu.Unlock()
		return false
	}
	o.deleteLocked(id)
	observers := o.observersLocked()
	o.mu.Unlock()

	notify(observers, Change{Removed: []int{id}})
	return true
}

// RemoveAll deletes every listed id that is present and returns how many were
// removed. Observers are notified once.
func (o *Ordered[V]) RemoveAll(ids []int, match func(V) bool) int {
	o.mu.Lock()
	var change Change
	for _, id := range ids {
		v, ok := o.items[id]
		if !ok || (match != nil && !match(v)) {
			continue
		}
		o.deleteLocked(id)
		change.Removed = append(change.Removed, id)
	}
	observers := o.observersLocked()
	o.mu.Unlock()

	if !change.Empty() {
		notify(observers, change)
	}
	return len(change.Removed)
}

// Clear empties the collection.
func (o *Ordered[V]) Clear() {
	o.Set(nil)
}

// Get returns the value stored under id.
func (o *Ordered[V]) Get(id int) (V, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	v, ok := o.items[id]
	return v, ok
}

// Contains reports whether id is present.
func (o *Ordered[V]) Contains(id int) bool {
	_, ok := o.Get(id)
	return ok
}

// Len returns the number of stored values.
func (o *Ordered[V]) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.order)
}

// IDs returns the ids in insertion order.
func (o *Ordered[V]) IDs() []int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return slices.Clone(o.order)
}

// Values returns the values in insertion order.
func (o *Ordered[V]) Values() []V {
	o.mu.RLock()
	defer o.mu.RUnlock()
	values := make([]V, 0, len(o.order))
	for _, id := range o.order {
		values = append(values, o.items[id])
	}
	return values
}

func (o *Ordered[V]) insertLocked(id int, v V) {
	o.items[id] = v
	o.order = append(o.order, id)
}

func (o *Ordered[V]) deleteLocked(id int) {
	delete(o.items, id)
	if i := slices.Index(o.order, id); i >= 0 {
		o.order = slices.Delete(o.order, i, i+1)
	}
}

func (o *Ordered[V]) observersLocked() []func(Change) {
	if len(o.observers) == 0 {
		return nil
	}
	keys := make([]int, 0, len(o.observers))
	for k := range o.observers {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	fns := make([]func(Change), 0, len(keys))
	for _, k := range keys {
		fns = append(fns, o.observers[k])
	}
	return fns
}

func notify(observers []func(Change), change Change) {
	for _, fn := range observers {
		fn(change)
	}
}
