// Package rowstore is the table collaborator the scheduler reads and writes.
// A table is an ordered list of rows, each a set of named string fields.
// Writes are last-write-wins and nothing is transactional.
package rowstore

import (
	"context"
	"errors"
	"sort"
)

var ErrRowNotFound = errors.New("row not found")

// Row is one record of a table. Ref identifies the row inside its table and
// is only meaningful to the store that returned it.
type Row struct {
	Ref    int64
	Values map[string]string
}

func (r Row) Get(field string) string {
	return r.Values[field]
}

type Store interface {
	ReadAll(ctx context.Context, table string) ([]Row, error)
	UpdateFields(ctx context.Context, table string, ref int64, fields map[string]string) error
	Append(ctx context.Context, table string, values map[string]string) (int64, error)
}

// Swapper is implemented by stores that can conditionally replace one field.
// CompareAndSwap writes value only when the field currently equals old and
// reports whether the write happened.
type Swapper interface {
	CompareAndSwap(ctx context.Context, table string, ref int64, field, old, value string) (bool, error)
}

func UpdateField(ctx context.Context, s Store, table string, ref int64, field, value string) error {
	return s.UpdateFields(ctx, table, ref, map[string]string{field: value})
}

func copyRows(rows []Row) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = Row{Ref: r.Ref, Values: copyValues(r.Values)}
	}
	return out
}

func copyValues(values map[string]string) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
