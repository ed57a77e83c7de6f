package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"winshirt-sync/internal/naming"
)

// LoadRows returns the raw rows of a table entry. A missing entry yields an
// empty list; an entry that is not a JSON array of objects yields an empty
// list and ErrMalformed.
func LoadRows(ctx context.Context, store Store, table string) ([]map[string]any, error) {
	data, err := store.Get(ctx, table)
	if errors.Is(err, ErrMissing) {
		return []map[string]any{}, nil
	}
	if err != nil {
		return []map[string]any{}, err
	}

	rows, err := naming.ParseRows(data)
	if err != nil {
		return []map[string]any{}, fmt.Errorf("%w: %s: %v", ErrMalformed, table, err)
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	return rows, nil
}

// Load returns the entities of a table entry, normalized to application naming.
// Rows that cannot be decoded into T are skipped.
func Load[T any](ctx context.Context, store Store, table string) ([]T, error) {
	rows, err := LoadRows(ctx, store, table)
	items := make([]T, 0, len(rows))
	if err != nil {
		return items, err
	}

	schema := naming.ForTable(table)
	for _, row := range rows {
		item, err := naming.DecodeLoose[T](schema, row)
		if err != nil {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// Save overwrites a table entry with items.
func Save[T any](ctx context.Context, store Store, table string, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", table, err)
	}
	return store.Set(ctx, table, data)
}

// SaveRows overwrites a table entry with raw rows.
func SaveRows(ctx context.Context, store Store, table string, rows []map[string]any) error {
	return Save(ctx, store, table, rows)
}
