// Package mirror is the local mirror of remote tables. Each entry holds the
// JSON array of one table's rows in application naming; the store itself
// enforces no schema and the last writer wins.
package mirror

import (
	"context"
	"errors"
)

// Store persists one opaque JSON payload per table key.
type Store interface {
	// Get returns the payload of a table. Returns ErrMissing if absent.
	Get(ctx context.Context, table string) ([]byte, error)

	// Set overwrites the payload of a table.
	Set(ctx context.Context, table string, payload []byte) error

	// Delete removes a table entry. Deleting an absent entry is not an error.
	Delete(ctx context.Context, table string) error

	// Keys lists the stored table keys.
	Keys(ctx context.Context) ([]string, error)

	// Stats returns backend statistics for the admin API.
	Stats(ctx context.Context) (map[string]interface{}, error)

	// Close releases the backend.
	Close() error
}

var (
	// ErrMissing indicates the table has no mirror entry.
	ErrMissing = errors.New("mirror entry missing")

	// ErrMalformed indicates the entry exists but is not a JSON array of objects.
	ErrMalformed = errors.New("mirror entry malformed")
)
