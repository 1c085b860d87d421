package store

import (
	"slices"
	"sync"
)

// Collection is a copy-on-write list of entities keyed by an id accessor.
//
// Every mutation swaps in a freshly built backing slice; the slice a reader
// obtained earlier is never written again, so it always reflects one complete
// state of the collection.
type Collection[K comparable, T any] struct {
	mu      sync.RWMutex
	items   []T
	idOf    func(T) K
	onApply func(op string)
}

// NewCollection creates an empty collection.
func NewCollection[K comparable, T any](idOf func(T) K) *Collection[K, T] {
	return &Collection[K, T]{idOf: idOf}
}

// Set replaces the whole collection.
func (c *Collection[K, T]) Set(items []T) {
	next := slices.Clone(items)
	c.mu.Lock()
	c.items = next
	c.mu.Unlock()
	c.applied("set")
}

// Insert appends item. Ids are not checked for uniqueness.
func (c *Collection[K, T]) Insert(item T) {
	c.mu.Lock()
	next := make([]T, len(c.items), len(c.items)+1)
	copy(next, c.items)
	c.items = append(next, item)
	c.mu.Unlock()
	c.applied("insert")
}

// Update replaces the first entity with the given id by apply's result.
// It reports whether an entity matched; an unknown id leaves the collection as is.
func (c *Collection[K, T]) Update(id K, apply func(T) T) bool {
	c.mu.Lock()
	idx := c.indexLocked(id)
	if idx < 0 {
		c.mu.Unlock()
		return false
	}
	next := slices.Clone(c.items)
	next[idx] = apply(next[idx])
	c.items = next
	c.mu.Unlock()
	c.applied("update")
	return true
}

// Remove deletes every entity with the given id and reports whether any matched.
func (c *Collection[K, T]) Remove(id K) bool {
	c.mu.Lock()
	if c.indexLocked(id) < 0 {
		c.mu.Unlock()
		return false
	}
	next := make([]T, 0, len(c.items))
	for _, item := range c.items {
		if c.idOf(item) != id {
			next = append(next, item)
		}
	}
	c.items = next
	c.mu.Unlock()
	c.applied("remove")
	return true
}

// Get returns the first entity with the given id.
func (c *Collection[K, T]) Get(id K) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if idx := c.indexLocked(id); idx >= 0 {
		return c.items[idx], true
	}
	var zero T
	return zero, false
}

// Snapshot returns the current entities. The result is a private copy.
func (c *Collection[K, T]) Snapshot() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of cached entities.
func (c *Collection[K, T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Collection[K, T]) indexLocked(id K) int {
	for i, item := range c.items {
		if c.idOf(item) == id {
			return i
		}
	}
	return -1
}

func (c *Collection[K, T]) applied(op string) {
	if c.onApply != nil {
		c.onApply(op)
	}
}
