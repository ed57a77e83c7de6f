package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"winshirt-sync/internal/model"
	"winshirt-sync/internal/repository"
)

func TestProductCreateNormalizesPrintAreas(t *testing.T) {
	env := newTestEnv(t)

	created, err := NewProductAdapter(env.deps).Create(context.Background(), model.Product{
		Name:         "Tee",
		Price:        decimal.RequireFromString("19.90"),
		Customizable: true,
		PrintAreas: []model.PrintArea{
			{Name: "Chest", Position: "FRONT", Format: "A4", Bounds: model.Bounds{X: 10, Y: 20, Width: 1, Height: 1}},
			{Name: "Back", Position: model.PositionBack, Format: model.FormatCustom, Bounds: model.Bounds{Width: 333, Height: 111}},
		},
	})
	require.NoError(t, err)
	require.Len(t, created.PrintAreas, 2)

	chest := created.PrintAreas[0]
	assert.Equal(t, int64(1), chest.ID)
	assert.Equal(t, model.PositionFront, chest.Position)
	assert.Equal(t, model.FormatA4, chest.Format)
	assert.Equal(t, model.Bounds{X: 10, Y: 20, Width: 210, Height: 297}, chest.Bounds)

	back := created.PrintAreas[1]
	assert.Equal(t, int64(2), back.ID)
	assert.Equal(t, 333, back.Bounds.Width)

	rows := env.remoteRows(t, model.TableProducts)
	require.Len(t, rows, 1)
	areas, ok := rows[0]["print_areas"].([]any)
	require.True(t, ok)
	require.Len(t, areas, 2)
	bounds := areas[0].(map[string]any)["bounds"].(map[string]any)
	assert.Equal(t, "297", bounds["height"].(interface{ String() string }).String())
}

func TestProductValidation(t *testing.T) {
	env := newTestEnv(t)
	products := NewProductAdapter(env.deps)

	tests := []struct {
		name    string
		product model.Product
		field   string
	}{
		{"zero price", model.Product{Name: "Tee"}, "price"},
		{"negative price", model.Product{Name: "Tee", Price: decimal.NewFromInt(-1)}, "price"},
		{"blank name", model.Product{Name: "  ", Price: decimal.NewFromInt(5)}, "name"},
		{"bad position", model.Product{Name: "Tee", Price: decimal.NewFromInt(5), PrintAreas: []model.PrintArea{{Position: "side", Format: model.FormatA3}}}, "printAreas[0].position"},
		{"bad format", model.Product{Name: "Tee", Price: decimal.NewFromInt(5), PrintAreas: []model.PrintArea{{Position: model.PositionFront, Format: "a5"}}}, "printAreas[0].format"},
		{"negative bounds", model.Product{Name: "Tee", Price: decimal.NewFromInt(5), PrintAreas: []model.PrintArea{{Position: model.PositionFront, Format: model.FormatCustom, Bounds: model.Bounds{X: -3}}}}, "printAreas[0].bounds.x"},
		{"duplicate area id", model.Product{Name: "Tee", Price: decimal.NewFromInt(5), PrintAreas: []model.PrintArea{
			{ID: 1, Position: model.PositionFront, Format: model.FormatA4},
			{ID: 1, Position: model.PositionBack, Format: model.FormatA4},
		}}, "printAreas[1].id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := products.Create(context.Background(), tt.product)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, ve.Fields, tt.field)
		})
	}
	assert.Zero(t, env.remote.Calls())
}

func TestProductToggleFeatured(t *testing.T) {
	env := newTestEnv(t)
	env.remote.Seed(model.TableProducts, repository.Row{"id": int64(1), "name": "Tee", "price": "20"})

	out, err := NewProductAdapter(env.deps).ToggleFeatured(context.Background(), 1, true)
	require.NoError(t, err)
	assert.True(t, out.Featured)
	assert.Equal(t, "Tee", out.Name)
}
