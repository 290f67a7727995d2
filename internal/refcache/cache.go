// Package refcache memoizes workspace display name to reference lookups for
// the lifetime of the process.
package refcache

import (
	"sync"

	"faultline/internal/tracker"
)

// Cache maps workspace display names to references. Entries are never
// evicted or expired. Reads do not take a lock; concurrent Puts of the same
// name are safe and the last writer wins, which is harmless because every
// writer stores the same resolved reference.
type Cache struct {
	m sync.Map // string -> tracker.Ref
}

// New returns an empty Cache.
func New() *Cache { return &Cache{} }

// Get returns the cached reference for name.
func (c *Cache) Get(name string) (tracker.Ref, bool) {
	v, ok := c.m.Load(name)
	if !ok {
		return "", false
	}
	return v.(tracker.Ref), true
}

// Put stores ref under name.
func (c *Cache) Put(name string, ref tracker.Ref) {
	c.m.Store(name, ref)
}

// Len returns the number of cached names.
func (c *Cache) Len() int {
	n := 0
	c.m.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
