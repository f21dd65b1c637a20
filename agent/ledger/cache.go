package ledger

import "sync"

// cache keeps ledger artifacts that never change once written, schemas and
// cred defs. Only successful reads are added.
type cache[T any] struct {
	sync.RWMutex
	m map[string]T
}

func (c *cache[T]) add(id string, v T) {
	c.Lock()
	defer c.Unlock()

	if c.m == nil {
		c.m = make(map[string]T)
	}
	c.m[id] = v
}

func (c *cache[T]) get(id string) (v T, ok bool) {
	c.RLock()
	defer c.RUnlock()

	v, ok = c.m[id]
	return v, ok
}

func (c *cache[T]) len() int {
	c.RLock()
	defer c.RUnlock()
	return len(c.m)
}
