package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"winshirt-sync/internal/mirror"
	"winshirt-sync/internal/model"
	"winshirt-sync/internal/notify"
	"winshirt-sync/internal/repository"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	remote *repository.MemoryRemote
	store  *mirror.MemoryStore
	feed   *notify.Feed
	deps   Deps
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	remote := repository.NewMemoryRemote()
	store := mirror.NewMemoryStore()
	feed := notify.NewFeed(100)
	return &testEnv{
		remote: remote,
		store:  store,
		feed:   feed,
		deps: Deps{
			Remote:   remote,
			Mirror:   store,
			Probe:    NewProbe(remote, model.TableLotteries, zerolog.Nop()),
			Notifier: feed,
			Status:   mirror.NewStatusBook(store),
			Logger:   zerolog.Nop(),
			Now:      func() time.Time { return testNow },
		},
	}
}

func (e *testEnv) offline() {
	e.remote.SetOffline(true)
}

func (e *testEnv) setMirror(t *testing.T, table, payload string) {
	t.Helper()
	require.NoError(t, e.store.Set(context.Background(), table, []byte(payload)))
}

func (e *testEnv) mirrorRows(t *testing.T, table string) []map[string]any {
	t.Helper()
	rows, err := mirror.LoadRows(context.Background(), e.store, table)
	require.NoError(t, err)
	return rows
}

func (e *testEnv) remoteRows(t *testing.T, table string) []repository.Row {
	t.Helper()
	e.remote.SetOffline(false)
	rows, err := e.remote.Select(context.Background(), table)
	require.NoError(t, err)
	return rows
}

func (e *testEnv) hasNotification(level notify.Level) bool {
	for _, n := range e.feed.Recent(0) {
		if n.Level == level {
			return true
		}
	}
	return false
}

func mirrorIDs[T any](t *testing.T, e *testEnv, table string, idOf func(*T) int64) []int64 {
	t.Helper()
	items, err := mirror.Load[T](context.Background(), e.store, table)
	require.NoError(t, err)
	ids := make([]int64, 0, len(items))
	for i := range items {
		ids = append(ids, idOf(&items[i]))
	}
	return ids
}

// failingTableStore rejects writes of one table key.
type failingTableStore struct {
	*mirror.MemoryStore
	table string
}

func (s *failingTableStore) Set(ctx context.Context, table string, payload []byte) error {
	if table == s.table {
		return errors.New("mirror disk full")
	}
	return s.MemoryStore.Set(ctx, table, payload)
}
