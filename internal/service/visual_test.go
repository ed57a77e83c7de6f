package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"winshirt-sync/internal/model"
)

func TestVisualCreateFillsCategoryName(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	categories := NewVisualCategoryAdapter(env.deps)
	visuals := NewVisualAdapter(env.deps, categories)

	animals, err := categories.Create(ctx, model.VisualCategory{Name: "Animals"})
	require.NoError(t, err)

	v, err := visuals.Create(ctx, model.Visual{Name: "Fox", Image: "fox.png", CategoryID: animals.ID, Tags: []string{"forest"}})
	require.NoError(t, err)
	assert.Equal(t, "Animals", v.CategoryName)

	rows := env.remoteRows(t, model.TableVisuals)
	require.Len(t, rows, 1)
	assert.Equal(t, "Animals", rows[0]["category_name"])
}

func TestVisualCreateUnknownCategory(t *testing.T) {
	env := newTestEnv(t)
	categories := NewVisualCategoryAdapter(env.deps)

	_, err := NewVisualAdapter(env.deps, categories).Create(context.Background(), model.Visual{Name: "Fox", Image: "fox.png", CategoryID: 9})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCategoryDeleteBlockedWhileInUse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	categories := NewVisualCategoryAdapter(env.deps)
	visuals := NewVisualAdapter(env.deps, categories)

	animals, err := categories.Create(ctx, model.VisualCategory{Name: "Animals"})
	require.NoError(t, err)
	sports, err := categories.Create(ctx, model.VisualCategory{Name: "Sports"})
	require.NoError(t, err)
	_, err = visuals.Create(ctx, model.Visual{Name: "Fox", Image: "fox.png", CategoryID: animals.ID})
	require.NoError(t, err)

	err = categories.Delete(ctx, animals.ID)
	assert.ErrorIs(t, err, ErrCategoryInUse)
	assert.Len(t, env.remoteRows(t, model.TableVisualCategories), 2)

	require.NoError(t, categories.Delete(ctx, sports.ID))
	remaining, err := categories.FetchAll(ctx, false)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "Animals", remaining[0].Name)
}
