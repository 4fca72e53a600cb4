package originator

import (
	"reflect"
	"sync"

	"github.com/nerrad567/gray-logic-topology/internal/collection"
)

// ChildrenChanged is delivered to observers once per mutating call.
type ChildrenChanged = collection.Change

// Collection holds originators in construction order with an id index and a
// type index.
//
// The type index is rebuilt lazily after a mutation. All methods are safe for
// concurrent use.
type Collection struct {
	items *collection.Ordered[Originator]

	mu     sync.Mutex
	dirty  bool
	byType map[reflect.Type][]int
}

// NewCollection creates an empty collection.
func NewCollection() *Collection {
	return &Collection{
		items: collection.New[Originator](),
		dirty: true,
	}
}

// OnChildrenChanged registers fn for change notifications.
func (c *Collection) OnChildrenChanged(fn func(ChildrenChanged)) (unsubscribe func()) {
	return c.items.Subscribe(fn)
}

// Add inserts o. It returns false when o's id is already present.
func (c *Collection) Add(o Originator) bool {
	if o == nil {
		return false
	}
	ok := c.items.Add(o.ID(), o)
	c.invalidate()
	return ok
}

// AddChildren inserts every originator whose id is free.
func (c *Collection) AddChildren(items ...Originator) int {
	n := c.items.AddAll(entries(items))
	c.invalidate()
	return n
}

// SetChildren replaces the content with items, in order.
func (c *Collection) SetChildren(items ...Originator) {
	c.items.Set(entries(items))
	c.invalidate()
}

// Remove deletes o when it is the instance stored under its id.
func (c *Collection) Remove(o Originator) bool {
	if o == nil {
		return false
	}
	ok := c.items.Remove(o.ID(), func(stored Originator) bool { return stored == o })
	c.invalidate()
	return ok
}

// RemoveChildren deletes every listed originator.
func (c *Collection) RemoveChildren(items ...Originator) int {
	ids := make([]int, 0, len(items))
	want := make(map[int]Originator, len(items))
	for _, o := range items {
		if o == nil {
			continue
		}
		ids = append(ids, o.ID())
		want[o.ID()] = o
	}
	n := c.items.RemoveAll(ids, func(stored Originator) bool {
		return want[stored.ID()] == stored
	})
	c.invalidate()
	return n
}

// Clear removes every originator without disposing it.
func (c *Collection) Clear() {
	c.items.Clear()
	c.invalidate()
}

// Get returns the originator stored under id.
func (c *Collection) Get(id int) (Originator, bool) {
	return c.items.Get(id)
}

// Count returns the number of originators.
func (c *Collection) Count() int {
	return c.items.Len()
}

// IDs returns ids in collection order.
func (c *Collection) IDs() []int {
	return c.items.IDs()
}

// All returns every originator in collection order.
func (c *Collection) All() []Originator {
	return c.items.Values()
}

// ByType returns the originators whose concrete type is exactly t.
func (c *Collection) ByType(t reflect.Type) []Originator {
	ids := c.typeIndex()[t]
	out := make([]Originator, 0, len(ids))
	for _, id := range ids {
		if o, ok := c.items.Get(id); ok {
			out = append(out, o)
		}
	}
	return out
}

// OfType returns every originator in c assignable to T, in collection order.
// T may be a concrete pointer type or an interface.
func OfType[T any](c *Collection) []T {
	want := reflect.TypeOf((*T)(nil)).Elem()
	matching := make(map[reflect.Type]bool)
	for typ := range c.typeIndex() {
		if typ.AssignableTo(want) {
			matching[typ] = true
		}
	}

	var out []T
	for _, o := range c.items.Values() {
		if matching[reflect.TypeOf(o)] {
			out = append(out, o.(T))
		}
	}
	return out
}

func (c *Collection) invalidate() {
	c.mu.Lock()
	c.dirty = true
	c.mu.Unlock()
}

func (c *Collection) typeIndex() map[reflect.Type][]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return c.byType
	}
	index := make(map[reflect.Type][]int)
	for _, o := range c.items.Values() {
		t := reflect.TypeOf(o)
		index[t] = append(index[t], o.ID())
	}
	c.byType = index
	c.dirty = false
	return index
}

func entries(items []Originator) []collection.Entry[Originator] {
	out := make([]collection.Entry[Originator], 0, len(items))
	for _, o := range items {
		if o == nil {
			continue
		}
		out = append(out, collection.Entry[Originator]{ID: o.ID(), Value: o})
	}
	return out
}
