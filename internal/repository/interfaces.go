package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"winshirt-sync/internal/model"
)

// Row is one remote record in remote (snake_case) naming. The "id" key holds
// the backend-assigned identifier.
type Row = map[string]any

// Filter is an equality condition on one column.
type Filter struct {
	Column string
	Value  any
}

// Eq builds an equality filter.
func Eq(column string, value any) Filter {
	return Filter{Column: column, Value: value}
}

// RemoteRepository is the table-scoped remote data service.
type RemoteRepository interface {
	// Probe performs a minimal read against table.
	Probe(ctx context.Context, table string) error

	// Select returns the rows matching every filter, ordered by id.
	Select(ctx context.Context, table string, filters ...Filter) ([]Row, error)

	// Insert stores a new row and returns it with its assigned id.
	Insert(ctx context.Context, table string, row Row) (Row, error)

	// Update merges patch into the row with the given id. Returns ErrNotFound if absent.
	Update(ctx context.Context, table string, id int64, patch Row) (Row, error)

	// Upsert inserts row, or merges it into the row whose conflictColumn matches.
	Upsert(ctx context.Context, table string, row Row, conflictColumn string) (Row, error)

	// Delete removes the rows matching every filter. At least one filter is required.
	Delete(ctx context.Context, table string, filters ...Filter) (int64, error)

	// DeleteAll removes every row of table.
	DeleteAll(ctx context.Context, table string) (int64, error)

	// Increment adds delta to a numeric column in a single server-side update.
	Increment(ctx context.Context, table string, id int64, column string, delta int64) (Row, error)

	// Stats returns backend statistics for the admin API.
	Stats(ctx context.Context) (map[string]interface{}, error)

	// Close releases the backend.
	Close() error
}

// AccountRepository stores storefront accounts.
type AccountRepository interface {
	CreateAccount(ctx context.Context, account *model.Account) (int64, error)
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
	GetByID(ctx context.Context, id int64) (*model.Account, error)
	SetConfirmToken(ctx context.Context, id int64, token string) error
	Confirm(ctx context.Context, token string) (*model.Account, error)
	List(ctx context.Context, limit, offset int) ([]model.Account, int64, error)
	SetRole(ctx context.Context, id int64, role string) error
	DeleteAccount(ctx context.Context, id int64) error
}

var (
	ErrNotFound      = errors.New("record not found")
	ErrDuplicate     = errors.New("duplicate record")
	ErrUnknownTable  = errors.New("unknown table")
	ErrInvalidColumn = errors.New("invalid column name")
	ErrNoFilter      = errors.New("delete requires at least one filter")
	ErrUnavailable   = errors.New("remote unavailable")
)

var columnPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

func checkTable(table string) error {
	if !model.IsKnownTable(table) {
		return fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	return nil
}

func checkColumn(column string) error {
	if !columnPattern.MatchString(column) {
		return fmt.Errorf("%w: %q", ErrInvalidColumn, column)
	}
	return nil
}

func checkFilters(filters []Filter) error {
	for _, f := range filters {
		if err := checkColumn(f.Column); err != nil {
			return err
		}
	}
	return nil
}

// RowID extracts the integer id of a row.
func RowID(row Row) (int64, bool) {
	return toInt64(row["id"])
}
