// Package lrucache is a small fixed-capacity LRU, used in front of the
// BlockStore exactly the way daglabs-btcd's domain/consensus
// datastores use their own lrucache.LRUCache: Stage/Commit populate it,
// Get consults it before falling through to the underlying store.
//
// A synchronous container/list-backed cache is used here rather than an
// async cache library (e.g. ristretto, seen elsewhere in the pack)
// because spec §4.1 requires that a reader never observe a torn or
// stale view of a just-committed block; an async write-back cache would
// reintroduce exactly that race at the cache layer.
package lrucache

import "container/list"

// Cache is a fixed-capacity, not safe for concurrent use without an
// external lock (the stores that embed it already hold one).
type Cache struct {
	capacity int
	items    map[interface{}]*list.Element
	order    *list.List
}

type entry struct {
	key   interface{}
	value interface{}
}

// New returns a Cache holding at most capacity entries.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = 1
	}
	return &Cache{
		capacity: capacity,
		items:    make(map[interface{}]*list.Element),
		order:    list.New(),
	}
}

// Add inserts or updates key, evicting the least-recently-used entry if
// the cache is at capacity.
func (c *Cache) Add(key, value interface{}) {
	if el, ok := c.items[key]; ok {
		c.order.MoveToFront(el)
		el.Value.(*entry).value = value
		return
	}
	el := c.order.PushFront(&entry{key: key, value: value})
	c.items[key] = el
	if c.order.Len() > c.capacity {
		c.evictOldest()
	}
}

// Get returns the value for key, marking it most-recently-used.
func (c *Cache) Get(key interface{}) (interface{}, bool) {
	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*entry).value, true
}

// Remove evicts key, if present.
func (c *Cache) Remove(key interface{}) {
	if el, ok := c.items[key]; ok {
		c.order.Remove(el)
		delete(c.items, key)
	}
}

func (c *Cache) evictOldest() {
	oldest := c.order.Back()
	if oldest == nil {
		return
	}
	c.order.Remove(oldest)
	delete(c.items, oldest.Value.(*entry).key)
}
