package rowstore

import (
	"context"
	"sync"
)

// Cache keeps the last full read of each table. Writes go through to the
// underlying store and drop the cached copy of the table they touched;
// Refresh reloads a table on demand.
type Cache struct {
	store Store

	mu     sync.Mutex
	tables map[string][]Row
	// gen counts invalidations per table. A read only fills the cache when
	// no invalidation happened while it was in flight.
	gen map[string]uint64
}

func NewCache(store Store) *Cache {
	return &Cache{store: store, tables: make(map[string][]Row), gen: make(map[string]uint64)}
}

func (c *Cache) ReadAll(ctx context.Context, table string) ([]Row, error) {
	c.mu.Lock()
	rows, ok := c.tables[table]
	c.mu.Unlock()
	if ok {
		return copyRows(rows), nil
	}
	return c.Refresh(ctx, table)
}

func (c *Cache) Refresh(ctx context.Context, table string) ([]Row, error) {
	c.mu.Lock()
	gen := c.gen[table]
	c.mu.Unlock()

	rows, err := c.store.ReadAll(ctx, table)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.gen[table] == gen {
		c.tables[table] = copyRows(rows)
	}
	c.mu.Unlock()
	return rows, nil
}

func (c *Cache) Invalidate(table string) {
	c.mu.Lock()
	delete(c.tables, table)
	c.gen[table]++
	c.mu.Unlock()
}

func (c *Cache) UpdateFields(ctx context.Context, table string, ref int64, fields map[string]string) error {
	defer c.Invalidate(table)
	return c.store.UpdateFields(ctx, table, ref, fields)
}

func (c *Cache) Append(ctx context.Context, table string, values map[string]string) (int64, error) {
	defer c.Invalidate(table)
	return c.store.Append(ctx, table, values)
}
