package stats

import (
	"sync"

	"github.com/zaidkom/net-zero/internal/table"
)

// Cache stores computed statistics per table key. Recomputation replaces
// a table's entry wholesale so readers never observe a half-updated table.
type Cache struct {
	mu     sync.RWMutex
	tables map[string]Table
}

// NewCache creates an empty statistics cache.
func NewCache() *Cache {
	return &Cache{tables: make(map[string]Table)}
}

// Recompute calculates fresh statistics for the source's rows, stamps the
// advisory DataType back onto each column, and stores the result under key.
func (c *Cache) Recompute(key string, src *table.Source) Table {
	stats := Compute(src.Columns, src.Rows)
	for i := range src.Columns {
		if cs, ok := stats[src.Columns[i].DataIndex]; ok {
			src.Columns[i].DataType = cs.DataType
		}
	}

	c.mu.Lock()
	c.tables[key] = stats
	c.mu.Unlock()
	return stats
}

// Get returns the cached statistics for a table key.
func (c *Cache) Get(key string) (Table, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tables[key]
	return t, ok
}

// Delete drops the cached statistics for a table key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.tables, key)
	c.mu.Unlock()
}

// Rename moves cached statistics from one table key to another.
func (c *Cache) Rename(oldKey, newKey string) {
	c.mu.Lock()
	if t, ok := c.tables[oldKey]; ok {
		delete(c.tables, oldKey)
		c.tables[newKey] = t
	}
	c.mu.Unlock()
}

// Snapshot returns a copy of the full cache contents.
func (c *Cache) Snapshot() map[string]Table {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]Table, len(c.tables))
	for k, v := range c.tables {
		out[k] = v
	}
	return out
}

// Restore replaces the cache contents with a persisted snapshot.
func (c *Cache) Restore(tables map[string]Table) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tables = make(map[string]Table, len(tables))
	for k, v := range tables {
		c.tables[k] = v
	}
}
