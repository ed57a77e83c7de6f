package repository

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Dialect renders the SQL that differs between the JSON row stores.
type Dialect interface {
	// Name identifies the dialect in logs and stats.
	Name() string

	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder(n int) string

	// CreateTable returns the DDL statements for one table.
	CreateTable(table string) []string

	// Field renders an expression reading column from the JSON data.
	Field(column string) string

	// Param wraps a bind parameter that carries a JSON document.
	Param(placeholder string) string

	// Merge renders the new data expression for a top-level merge of patch.
	Merge(patch Row, next int) (string, []any, error)

	// Increment renders the new data expression adding the bind parameter to column.
	Increment(column, placeholder string) string

	// FilterArg converts a filter value to its bind form.
	FilterArg(v any) any

	// SyncSequence returns a statement resetting the id sequence after an explicit id, or "".
	SyncSequence(table string) string
}

// PostgresDialect stores rows as JSONB and publishes changes with pg_notify.
type PostgresDialect struct{}

// ChangeChannel is the LISTEN/NOTIFY channel the row triggers publish to.
const ChangeChannel = "winshirt_changes"

func (PostgresDialect) Name() string { return "postgres" }

func (PostgresDialect) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (PostgresDialect) CreateTable(table string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			data JSONB NOT NULL DEFAULT '{}'::jsonb,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, table),
		`CREATE OR REPLACE FUNCTION winshirt_notify_change() RETURNS trigger AS $$
		DECLARE
			rec RECORD;
		BEGIN
			IF TG_OP = 'DELETE' THEN
				rec := OLD;
			ELSE
				rec := NEW;
			END IF;
			PERFORM pg_notify('` + ChangeChannel + `', json_build_object('table', TG_TABLE_NAME, 'action', TG_OP, 'id', rec.id)::text);
			RETURN rec;
		END;
		$$ LANGUAGE plpgsql`,
		fmt.Sprintf(`DROP TRIGGER IF EXISTS %s_changes ON %s`, table, table),
		fmt.Sprintf(`CREATE TRIGGER %s_changes AFTER INSERT OR UPDATE OR DELETE ON %s
			FOR EACH ROW EXECUTE FUNCTION winshirt_notify_change()`, table, table),
	}
}

func (PostgresDialect) Field(column string) string {
	if column == "id" {
		return "id::text"
	}
	return fmt.Sprintf("data->>'%s'", column)
}

func (PostgresDialect) Param(placeholder string) string { return placeholder + "::jsonb" }

func (d PostgresDialect) Merge(patch Row, next int) (string, []any, error) {
	data, err := json.Marshal(withoutID(patch))
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal patch: %w", err)
	}
	return "data || " + d.Param(d.Placeholder(next)), []any{string(data)}, nil
}

func (PostgresDialect) Increment(column, placeholder string) string {
	return fmt.Sprintf("jsonb_set(data, '{%s}', to_jsonb(COALESCE((data->>'%s')::bigint, 0) + %s::bigint))",
		column, column, placeholder)
}

// FilterArg renders every value as text; ->> yields text.
func (PostgresDialect) FilterArg(v any) any {
	return fmt.Sprint(scalar(v))
}

func (PostgresDialect) SyncSequence(table string) string {
	return fmt.Sprintf(`SELECT setval(pg_get_serial_sequence('%s', 'id'), GREATEST((SELECT MAX(id) FROM %s), 1))`, table, table)
}

// LibSQLDialect stores rows as JSON text in a hosted SQLite (libSQL) database.
type LibSQLDialect struct{}

func (LibSQLDialect) Name() string { return "libsql" }

func (LibSQLDialect) Placeholder(int) string { return "?" }

func (LibSQLDialect) CreateTable(table string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			data TEXT NOT NULL DEFAULT '{}',
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`, table),
	}
}

func (LibSQLDialect) Field(column string) string {
	if column == "id" {
		return "id"
	}
	return fmt.Sprintf("json_extract(data, '$.%s')", column)
}

func (LibSQLDialect) Param(placeholder string) string { return "json(" + placeholder + ")" }

// Merge renders json_set over every patched key so nested objects are replaced, not merged.
func (d LibSQLDialect) Merge(patch Row, next int) (string, []any, error) {
	patch = withoutID(patch)
	if len(patch) == 0 {
		return "data", nil, nil
	}

	keys := make([]string, 0, len(patch))
	for k := range patch {
		if err := checkColumn(k); err != nil {
			return "", nil, err
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("json_set(data")
	args := make([]any, 0, len(keys))
	for _, k := range keys {
		value, err := json.Marshal(patch[k])
		if err != nil {
			return "", nil, fmt.Errorf("failed to marshal %s: %w", k, err)
		}
		fmt.Fprintf(&b, ", '$.%s', json(?)", k)
		args = append(args, string(value))
	}
	b.WriteString(")")
	return b.String(), args, nil
}

func (LibSQLDialect) Increment(column, placeholder string) string {
	return fmt.Sprintf("json_set(data, '$.%s', COALESCE(json_extract(data, '$.%s'), 0) + %s)", column, column, placeholder)
}

func (LibSQLDialect) FilterArg(v any) any {
	switch t := scalar(v).(type) {
	case bool:
		if t {
			return int64(1)
		}
		return int64(0)
	default:
		return t
	}
}

func (LibSQLDialect) SyncSequence(string) string { return "" }

var (
	_ Dialect = PostgresDialect{}
	_ Dialect = LibSQLDialect{}
)
