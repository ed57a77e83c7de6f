package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"winshirt-sync/internal/model"
)

// StatusKey is the reserved mirror key holding sync bookkeeping.
const StatusKey = "sync_status"

// StatusBook records the last SyncStatus of every table in the mirror.
type StatusBook struct {
	store Store
	mu    sync.Mutex
}

// NewStatusBook creates a status book on top of store.
func NewStatusBook(store Store) *StatusBook {
	return &StatusBook{store: store}
}

func (b *StatusBook) load(ctx context.Context) (map[string]model.SyncStatus, error) {
	statuses := make(map[string]model.SyncStatus)
	data, err := b.store.Get(ctx, StatusKey)
	if errors.Is(err, ErrMissing) {
		return statuses, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &statuses); err != nil {
		// Corrupt bookkeeping is discarded.
		return make(map[string]model.SyncStatus), nil
	}
	return statuses, nil
}

// Record stores the status of one table.
func (b *StatusBook) Record(ctx context.Context, status model.SyncStatus) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	statuses, err := b.load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load sync status: %w", err)
	}
	statuses[status.Table] = status

	data, err := json.Marshal(statuses)
	if err != nil {
		return fmt.Errorf("failed to marshal sync status: %w", err)
	}
	return b.store.Set(ctx, StatusKey, data)
}

// Get returns the status of one table.
func (b *StatusBook) Get(ctx context.Context, table string) (model.SyncStatus, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	statuses, err := b.load(ctx)
	if err != nil {
		return model.SyncStatus{}, false, err
	}
	s, ok := statuses[table]
	return s, ok, nil
}

// All returns every recorded status sorted by table.
func (b *StatusBook) All(ctx context.Context) ([]model.SyncStatus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	statuses, err := b.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.SyncStatus, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Table < out[j].Table })
	return out, nil
}

// Clear drops all bookkeeping.
func (b *StatusBook) Clear(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.store.Delete(ctx, StatusKey)
}
