// Package cache provides the memoization primitives used on the hot
// sampling path. Latency in these calls is critical: every transect
// sample funnels through the elevation memo.
package cache

import "sync"

// Memo is a mutex-guarded map with an optional entry limit. When the
// limit is reached the map is cleared wholesale rather than evicted
// entry-by-entry, which keeps Put cost flat on the hot path.
type Memo[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]V
	limit   int
}

// NewMemo creates a memo holding at most limit entries. A limit of 0
// disables the bound.
func NewMemo[K comparable, V any](limit int) *Memo[K, V] {
	return &Memo[K, V]{
		entries: make(map[K]V),
		limit:   limit,
	}
}

// Get retrieves a memoized value.
func (m *Memo[K, V]) Get(k K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[k]
	return v, ok
}

// Put stores a value, clearing the memo first when it is full.
func (m *Memo[K, V]) Put(k K, v V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.limit > 0 && len(m.entries) >= m.limit {
		m.entries = make(map[K]V)
	}
	m.entries[k] = v
}

// Len returns the current number of entries.
func (m *Memo[K, V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Reset clears all entries.
func (m *Memo[K, V]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[K]V)
}

// SafeCounter is a thread-safe counter
type SafeCounter struct {
	mu sync.Mutex
	v  int
}

func (c *SafeCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *SafeCounter) Set(v int) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

func (c *SafeCounter) Inc() {
	c.mu.Lock()
	c.v++
	c.mu.Unlock()
}
