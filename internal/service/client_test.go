package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"winshirt-sync/internal/model"
)

func TestUpsertByEmailOnline(t *testing.T) {
	env := newTestEnv(t)
	clients := NewClientAdapter(env.deps)
	ctx := context.Background()

	first, err := clients.UpsertByEmail(ctx, model.Client{Name: "Ana", Email: "Ana@Example.com", City: "Lyon"})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", first.Email)

	second, err := clients.UpsertByEmail(ctx, model.Client{Name: "Ana Lima", Email: "ana@example.com", City: "Paris", OrderCount: 1, TotalSpent: decimal.NewFromInt(30)})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Paris", second.City)

	assert.Len(t, env.remoteRows(t, model.TableClients), 1)
	assert.Len(t, env.mirrorRows(t, model.TableClients), 1)
}

func TestUpsertByEmailOffline(t *testing.T) {
	env := newTestEnv(t)
	env.offline()
	env.setMirror(t, model.TableClients, `[{"id":3,"name":"Bo","email":"bo@example.com","createdAt":"2024-01-01T00:00:00Z"}]`)
	clients := NewClientAdapter(env.deps)
	ctx := context.Background()

	updated, err := clients.UpsertByEmail(ctx, model.Client{Name: "Bo Chen", Email: "bo@example.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), updated.ID)
	assert.Equal(t, 2024, updated.CreatedAt.Year())

	added, err := clients.UpsertByEmail(ctx, model.Client{Name: "Cy", Email: "cy@example.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), added.ID)

	rows := env.mirrorRows(t, model.TableClients)
	require.Len(t, rows, 2)
	assert.Equal(t, "Bo Chen", rows[0]["name"])
}

func TestUpsertByEmailValidation(t *testing.T) {
	env := newTestEnv(t)

	_, err := NewClientAdapter(env.deps).UpsertByEmail(context.Background(), model.Client{Name: "Ana", Email: "nope"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "email")
	assert.Zero(t, env.remote.Calls())
}

func TestFindByEmail(t *testing.T) {
	env := newTestEnv(t)
	env.offline()
	env.setMirror(t, model.TableClients, `[{"id":3,"name":"Bo","email":"bo@example.com"}]`)
	clients := NewClientAdapter(env.deps)

	c, err := clients.FindByEmail(context.Background(), " BO@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(3), c.ID)

	_, err = clients.FindByEmail(context.Background(), "zed@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}
