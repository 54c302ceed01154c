package cache

import (
	"container/list"
	"sync"
	"time"
)

// Item represents a cached value with expiration
type Item[V any] struct {
	Value      V
	Expiration int64
}

// Expired checks if the cache item has expired
func (item Item[V]) Expired(now time.Time) bool {
	if item.Expiration == 0 {
		return false
	}
	return now.UnixNano() > item.Expiration
}

type entry[K comparable, V any] struct {
	key  K
	item Item[V]
}

// FIFO is a thread-safe bounded cache that evicts in insertion order.
// Reads never change an entry's position.
type FIFO[K comparable, V any] struct {
	mu                sync.Mutex
	items             map[K]*list.Element
	order             *list.List
	capacity          int
	defaultExpiration time.Duration
	onEvicted         func(K, V)
	now               func() time.Time
}

// Option configures a FIFO
type Option[K comparable, V any] func(*FIFO[K, V])

// WithExpiration gives every entry a time-to-live
func WithExpiration[K comparable, V any](d time.Duration) Option[K, V] {
	return func(c *FIFO[K, V]) { c.defaultExpiration = d }
}

// WithOnEvicted registers a callback run for evicted or deleted entries
func WithOnEvicted[K comparable, V any](f func(K, V)) Option[K, V] {
	return func(c *FIFO[K, V]) { c.onEvicted = f }
}

// NewFIFO creates a cache holding at most capacity entries. A capacity
// below one means unbounded.
func NewFIFO[K comparable, V any](capacity int, opts ...Option[K, V]) *FIFO[K, V] {
	c := &FIFO[K, V]{
		items:    make(map[K]*list.Element),
		order:    list.New(),
		capacity: capacity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Set adds an item with the default expiration. Overwriting a key keeps its
// original insertion position.
func (c *FIFO[K, V]) Set(key K, value V) {
	c.SetWithExpiration(key, value, c.defaultExpiration)
}

// SetWithExpiration adds an item with a specific time-to-live
func (c *FIFO[K, V]) SetWithExpiration(key K, value V, d time.Duration) {
	var exp int64
	if d > 0 {
		exp = c.now().Add(d).UnixNano()
	}
	item := Item[V]{Value: value, Expiration: exp}

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*entry[K, V]).item = item
		return
	}

	if c.capacity > 0 && c.order.Len() >= c.capacity {
		c.evictOldest()
	}

	c.items[key] = c.order.PushBack(&entry[K, V]{key: key, item: item})
}

// Get retrieves an item from the cache
func (c *FIFO[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.items[key]
	if !ok {
		return zero, false
	}

	e := el.Value.(*entry[K, V])
	if e.item.Expired(c.now()) {
		c.remove(el)
		return zero, false
	}

	return e.item.Value, true
}

// Delete removes an item from the cache
func (c *FIFO[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.remove(el)
	}
}

// Flush removes all items from the cache
func (c *FIFO[K, V]) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for el := c.order.Front(); el != nil; {
		next := el.Next()
		c.remove(el)
		el = next
	}
}

// Len returns the number of items in the cache, including expired ones
func (c *FIFO[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Keys returns the cached keys oldest first
func (c *FIFO[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]K, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*entry[K, V]).key)
	}
	return keys
}

func (c *FIFO[K, V]) evictOldest() {
	if el := c.order.Front(); el != nil {
		c.remove(el)
	}
}

func (c *FIFO[K, V]) remove(el *list.Element) {
	e := c.order.Remove(el).(*entry[K, V])
	delete(c.items, e.key)
	if c.onEvicted != nil {
		c.onEvicted(e.key, e.item.Value)
	}
}
