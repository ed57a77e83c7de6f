package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"winshirt-sync/internal/model"
)

// Operation names used by MemoryRemote failure injection and call counting.
const (
	OpProbe     = "probe"
	OpSelect    = "select"
	OpInsert    = "insert"
	OpUpdate    = "update"
	OpUpsert    = "upsert"
	OpDelete    = "delete"
	OpDeleteAll = "delete_all"
	OpIncrement = "increment"
)

// MemoryRemote is an in-process RemoteRepository. It backs the "memory"
// deploy mode and tests, and supports failure injection.
type MemoryRemote struct {
	mu      sync.Mutex
	tables  map[string]map[int64]Row
	seq     map[string]int64
	offline bool
	failing map[string][]error
	calls   map[string]int
}

// NewMemoryRemote creates an empty in-memory remote.
func NewMemoryRemote() *MemoryRemote {
	r := &MemoryRemote{
		tables:  make(map[string]map[int64]Row),
		seq:     make(map[string]int64),
		failing: make(map[string][]error),
		calls:   make(map[string]int),
	}
	for _, t := range model.KnownTables {
		r.tables[t] = make(map[int64]Row)
	}
	return r
}

// SetOffline makes every operation fail with ErrUnavailable.
func (r *MemoryRemote) SetOffline(offline bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.offline = offline
}

// FailNext makes the next call of op fail with err. Calls queue up.
func (r *MemoryRemote) FailNext(op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failing[op] = append(r.failing[op], err)
}

// Calls returns the total number of operations attempted.
func (r *MemoryRemote) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, n := range r.calls {
		total += n
	}
	return total
}

// CallsFor returns the number of attempts of one operation.
func (r *MemoryRemote) CallsFor(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[op]
}

// Seed stores rows with their ids, bypassing counting and failure injection.
func (r *MemoryRemote) Seed(table string, rows ...Row) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range rows {
		id, ok := RowID(row)
		if !ok {
			r.seq[table]++
			id = r.seq[table]
		}
		stored := cloneRow(row)
		stored["id"] = id
		r.tables[table][id] = stored
		if id > r.seq[table] {
			r.seq[table] = id
		}
	}
}

// begin records a call and returns the injected error, if any. Caller holds mu.
func (r *MemoryRemote) begin(op, table string) error {
	r.calls[op]++
	if r.offline {
		return ErrUnavailable
	}
	if queue := r.failing[op]; len(queue) > 0 {
		r.failing[op] = queue[1:]
		return queue[0]
	}
	return checkTable(table)
}

func (r *MemoryRemote) sorted(table string) []Row {
	rows := make([]Row, 0, len(r.tables[table]))
	for _, row := range r.tables[table] {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		a, _ := RowID(rows[i])
		b, _ := RowID(rows[j])
		return a < b
	})
	return rows
}

func matches(row Row, filters []Filter) bool {
	for _, f := range filters {
		v, ok := row[f.Column]
		if !ok || !sameValue(v, f.Value) {
			return false
		}
	}
	return true
}

// Probe succeeds unless offline or failing.
func (r *MemoryRemote) Probe(ctx context.Context, table string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.begin(OpProbe, table)
}

// Select returns copies of the matching rows.
func (r *MemoryRemote) Select(ctx context.Context, table string, filters ...Filter) ([]Row, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.begin(OpSelect, table); err != nil {
		return nil, err
	}

	out := make([]Row, 0)
	for _, row := range r.sorted(table) {
		if matches(row, filters) {
			out = append(out, cloneRow(row))
		}
	}
	return out, nil
}

// Insert stores row under the next id.
func (r *MemoryRemote) Insert(ctx context.Context, table string, row Row) (Row, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.begin(OpInsert, table); err != nil {
		return nil, err
	}
	return r.insert(table, row), nil
}

func (r *MemoryRemote) insert(table string, row Row) Row {
	r.seq[table]++
	stored := cloneRow(withoutID(row))
	stored["id"] = r.seq[table]
	r.tables[table][r.seq[table]] = stored
	return cloneRow(stored)
}

// Update merges patch into the stored row.
func (r *MemoryRemote) Update(ctx context.Context, table string, id int64, patch Row) (Row, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.begin(OpUpdate, table); err != nil {
		return nil, err
	}
	return r.update(table, id, patch)
}

func (r *MemoryRemote) update(table string, id int64, patch Row) (Row, error) {
	stored, ok := r.tables[table][id]
	if !ok {
		return nil, fmt.Errorf("%s %d: %w", table, id, ErrNotFound)
	}
	for k, v := range withoutID(patch) {
		stored[k] = cloneValue(v)
	}
	return cloneRow(stored), nil
}

// Upsert inserts row or merges it into the row matching conflictColumn.
func (r *MemoryRemote) Upsert(ctx context.Context, table string, row Row, conflictColumn string) (Row, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.begin(OpUpsert, table); err != nil {
		return nil, err
	}

	if conflictColumn == "id" {
		id, ok := RowID(row)
		if !ok {
			return r.insert(table, row), nil
		}
		if _, exists := r.tables[table][id]; exists {
			return r.update(table, id, row)
		}
		stored := cloneRow(withoutID(row))
		stored["id"] = id
		r.tables[table][id] = stored
		if id > r.seq[table] {
			r.seq[table] = id
		}
		return cloneRow(stored), nil
	}

	value, ok := row[conflictColumn]
	if ok {
		for _, existing := range r.sorted(table) {
			if sameValue(existing[conflictColumn], value) {
				id, _ := RowID(existing)
				return r.update(table, id, row)
			}
		}
	}
	return r.insert(table, row), nil
}

// Delete removes the matching rows.
func (r *MemoryRemote) Delete(ctx context.Context, table string, filters ...Filter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.begin(OpDelete, table); err != nil {
		return 0, err
	}
	if len(filters) == 0 {
		return 0, ErrNoFilter
	}

	var n int64
	for id, row := range r.tables[table] {
		if matches(row, filters) {
			delete(r.tables[table], id)
			n++
		}
	}
	return n, nil
}

// DeleteAll removes every row of table.
func (r *MemoryRemote) DeleteAll(ctx context.Context, table string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.begin(OpDeleteAll, table); err != nil {
		return 0, err
	}
	n := int64(len(r.tables[table]))
	r.tables[table] = make(map[int64]Row)
	return n, nil
}

// Increment adds delta to column under the remote lock.
func (r *MemoryRemote) Increment(ctx context.Context, table string, id int64, column string, delta int64) (Row, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.begin(OpIncrement, table); err != nil {
		return nil, err
	}
	stored, ok := r.tables[table][id]
	if !ok {
		return nil, fmt.Errorf("%s %d: %w", table, id, ErrNotFound)
	}
	current, _ := toInt64(stored[column])
	stored[column] = current + delta
	return cloneRow(stored), nil
}

// Stats returns row counts per table.
func (r *MemoryRemote) Stats(ctx context.Context) (map[string]interface{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[string]int64, len(r.tables))
	for t, rows := range r.tables {
		counts[t] = int64(len(rows))
	}
	return map[string]interface{}{"backend": "memory", "rows": counts}, nil
}

// Close is a no-op.
func (r *MemoryRemote) Close() error {
	return nil
}

var _ RemoteRepository = (*MemoryRemote)(nil)
