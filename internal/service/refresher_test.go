package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"winshirt-sync/internal/model"
	"winshirt-sync/internal/realtime"
	"winshirt-sync/internal/repository"
)

type fakeSource struct {
	ch     chan realtime.Change
	mu     sync.Mutex
	tables []string
	once   sync.Once
}

func newFakeSource() *fakeSource {
	return &fakeSource{ch: make(chan realtime.Change, 8)}
}

func (f *fakeSource) Subscribe(ctx context.Context, tables []string) (<-chan realtime.Change, error) {
	f.mu.Lock()
	f.tables = tables
	f.mu.Unlock()
	return f.ch, nil
}

func (f *fakeSource) Close() error {
	f.once.Do(func() { close(f.ch) })
	return nil
}

func TestRefresherReloadsOnChange(t *testing.T) {
	env := newTestEnv(t)
	catalog := NewCatalog(env.deps)
	source := newFakeSource()

	r := NewRefresher(source, []string{model.TableLotteries, model.TableProducts}, zerolog.Nop(), catalog.Tables()...)
	require.NoError(t, r.Start(context.Background()))
	defer r.Stop()

	assert.ElementsMatch(t, []string{
		model.TableLotteries,
		model.TableProducts,
		model.TableLotteryParticipants,
		model.TableLotteryWinners,
	}, source.tables)

	env.remote.Seed(model.TableLotteries, repository.Row{"id": int64(1), "title": "Bike", "status": "active"})
	env.remote.Seed(model.TableLotteryParticipants, repository.Row{"lottery_id": int64(1), "name": "Ana"})
	source.ch <- realtime.Change{Table: model.TableLotteryParticipants, Action: realtime.ActionInsert}

	require.Eventually(t, func() bool {
		rows, _, err := catalog.Backup.ExportSnapshot(context.Background())
		return err == nil && len(rows[model.TableLotteries]) == 1
	}, 2*time.Second, 10*time.Millisecond)

	env.remote.Seed(model.TableProducts, repository.Row{"id": int64(1), "name": "Tee", "price": "20"})
	source.ch <- realtime.Change{Table: model.TableProducts, Action: realtime.ActionResync}

	require.Eventually(t, func() bool {
		rows, _, err := catalog.Backup.ExportSnapshot(context.Background())
		return err == nil && len(rows[model.TableProducts]) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRefresherIgnoresUnknownTables(t *testing.T) {
	env := newTestEnv(t)
	source := newFakeSource()

	r := NewRefresher(source, []string{model.TableLotteries}, zerolog.Nop(), NewLotteryAdapter(env.deps))
	require.NoError(t, r.Start(context.Background()))

	source.ch <- realtime.Change{Table: "audit_log", Action: realtime.ActionUpdate}
	r.Stop()
	assert.Zero(t, env.remote.CallsFor(repository.OpSelect))
}

func TestRefresherStopIsIdempotent(t *testing.T) {
	r := NewRefresher(newFakeSource(), []string{model.TableLotteries}, zerolog.Nop())
	require.NoError(t, r.Start(context.Background()))
	r.Stop()
	r.Stop()
}
