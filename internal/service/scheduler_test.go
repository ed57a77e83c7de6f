package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"winshirt-sync/internal/model"
	"winshirt-sync/internal/repository"
)

func TestResyncRunNow(t *testing.T) {
	env := newTestEnv(t)
	catalog := NewCatalog(env.deps)
	env.remote.Seed(model.TableProducts, repository.Row{"id": int64(1), "name": "Tee", "price": "20"})

	s := NewResyncScheduler(env.deps.Probe, ResyncConfig{}, zerolog.Nop(), catalog.Tables()...)
	n, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(catalog.Tables()), n)
	assert.Len(t, env.mirrorRows(t, model.TableProducts), 1)
}

func TestResyncRunNowOffline(t *testing.T) {
	env := newTestEnv(t)
	env.offline()
	s := NewResyncScheduler(env.deps.Probe, ResyncConfig{}, zerolog.Nop(), NewCatalog(env.deps).Tables()...)

	n, err := s.RunNow(context.Background())
	assert.ErrorIs(t, err, ErrOffline)
	assert.Zero(t, n)
	assert.Zero(t, env.remote.CallsFor(repository.OpSelect))
}

func TestResyncSchedulerTicks(t *testing.T) {
	env := newTestEnv(t)
	env.remote.Seed(model.TableProducts, repository.Row{"id": int64(1), "name": "Tee", "price": "20"})

	s := NewResyncScheduler(env.deps.Probe, ResyncConfig{Interval: 20 * time.Millisecond, Timeout: time.Second}, zerolog.Nop(), NewProductAdapter(env.deps))
	s.Start()
	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool {
		return env.remote.CallsFor(repository.OpSelect) >= 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.Len(t, env.mirrorRows(t, model.TableProducts), 1)
}

func TestDefaultResyncConfig(t *testing.T) {
	s := NewResyncScheduler(nil, ResyncConfig{}, zerolog.Nop())
	assert.Equal(t, DefaultResyncConfig().Interval, s.config.Interval)
	assert.Equal(t, DefaultResyncConfig().Timeout, s.config.Timeout)
}
