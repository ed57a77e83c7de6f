package mirror

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// SQLiteStore is the default Store: one row per table key in a local SQLite file.
type SQLiteStore struct {
	db  *sql.DB
	mu  sync.RWMutex
	log zerolog.Logger
}

// NewSQLiteStore opens (or creates) the mirror database at dbPath.
func NewSQLiteStore(dbPath string, logger zerolog.Logger) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite only supports 1 writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := createMirrorTable(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", dbPath).Msg("sqlite mirror initialized")
	return &SQLiteStore{db: db, log: logger}, nil
}

func createMirrorTable(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS mirror_entries (
		table_name TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);`
	_, err := db.Exec(query)
	return err
}

// Get returns the payload of a table.
func (s *SQLiteStore) Get(ctx context.Context, table string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM mirror_entries WHERE table_name = ?`, table).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMissing
		}
		return nil, fmt.Errorf("failed to get mirror entry %s: %w", table, err)
	}
	return []byte(payload), nil
}

// Set overwrites the payload of a table.
func (s *SQLiteStore) Set(ctx context.Context, table string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO mirror_entries (table_name, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(table_name) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at`

	if _, err := s.db.ExecContext(ctx, query, table, string(payload), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to set mirror entry %s: %w", table, err)
	}
	return nil
}

// Delete removes a table entry.
func (s *SQLiteStore) Delete(ctx context.Context, table string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM mirror_entries WHERE table_name = ?`, table); err != nil {
		return fmt.Errorf("failed to delete mirror entry %s: %w", table, err)
	}
	return nil
}

// Keys lists the stored table keys.
func (s *SQLiteStore) Keys(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT table_name FROM mirror_entries ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list mirror entries: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("failed to scan mirror key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Stats returns statistics about the mirror database.
func (s *SQLiteStore) Stats(ctx context.Context) (map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{"backend": "sqlite"}

	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM mirror_entries").Scan(&count); err != nil {
		return nil, err
	}
	stats["total_entries"] = count

	var lastWrite sql.NullString
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(updated_at) FROM mirror_entries").Scan(&lastWrite); err == nil && lastWrite.Valid {
		stats["last_write"] = lastWrite.String
	}

	// Database file size (approximate from page count)
	var pageCount, pageSize int64
	s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount)
	s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
	stats["db_size_bytes"] = pageCount * pageSize

	return stats, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
