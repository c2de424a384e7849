package rowstore

import (
	"context"
	"sync"
)

// MemoryStore keeps tables in process memory. Refs are row indexes.
type MemoryStore struct {
	mu     sync.Mutex
	tables map[string][]map[string]string
	writes int
	swaps  int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string][]map[string]string)}
}

func (m *MemoryStore) ReadAll(ctx context.Context, table string) ([]Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := make([]Row, 0, len(m.tables[table]))
	for i, values := range m.tables[table] {
		rows = append(rows, Row{Ref: int64(i), Values: copyValues(values)})
	}
	return rows, nil
}

func (m *MemoryStore) UpdateFields(ctx context.Context, table string, ref int64, fields map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, err := m.row(table, ref)
	if err != nil {
		return err
	}
	for k, v := range fields {
		row[k] = v
	}
	m.writes++
	return nil
}

func (m *MemoryStore) Append(ctx context.Context, table string, values map[string]string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tables[table] = append(m.tables[table], copyValues(values))
	m.writes++
	return int64(len(m.tables[table]) - 1), nil
}

func (m *MemoryStore) CompareAndSwap(ctx context.Context, table string, ref int64, field, old, value string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, err := m.row(table, ref)
	if err != nil {
		return false, err
	}
	if row[field] != old {
		return false, nil
	}
	row[field] = value
	m.swaps++
	return true, nil
}

// Writes counts UpdateFields and Append calls.
func (m *MemoryStore) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// Swaps counts successful CompareAndSwap calls.
func (m *MemoryStore) Swaps() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.swaps
}

func (m *MemoryStore) row(table string, ref int64) (map[string]string, error) {
	rows := m.tables[table]
	if ref < 0 || ref >= int64(len(rows)) {
		return nil, ErrRowNotFound
	}
	return rows[ref], nil
}
