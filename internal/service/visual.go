package service

import (
	"context"
	"fmt"

	"winshirt-sync/internal/model"
	"winshirt-sync/internal/naming"
	"winshirt-sync/internal/notify"
)

// VisualCategoryAdapter mirrors visual categories.
type VisualCategoryAdapter struct {
	*Adapter[model.VisualCategory]
	visuals *VisualAdapter
}

// NewVisualCategoryAdapter creates the category adapter.
func NewVisualCategoryAdapter(deps Deps) *VisualCategoryAdapter {
	return &VisualCategoryAdapter{Adapter: newAdapter(deps, entitySpec[model.VisualCategory]{
		table:  model.TableVisualCategories,
		entity: "visual category",
		schema: naming.VisualCategories,
		idOf:   func(c *model.VisualCategory) int64 { return c.ID },
		setID:  func(c *model.VisualCategory, id int64) { c.ID = id },
	})}
}

// VisualAdapter mirrors visuals. The category name is denormalized onto each visual.
type VisualAdapter struct {
	*Adapter[model.Visual]
	categories *VisualCategoryAdapter
}

// NewVisualAdapter creates the visual adapter and links it with categories for
// name lookups and delete checks.
func NewVisualAdapter(deps Deps, categories *VisualCategoryAdapter) *VisualAdapter {
	a := &VisualAdapter{
		Adapter: newAdapter(deps, entitySpec[model.Visual]{
			table:  model.TableVisuals,
			entity: "visual",
			schema: naming.Visuals,
			idOf:   func(v *model.Visual) int64 { return v.ID },
			setID:  func(v *model.Visual, id int64) { v.ID = id },
		}),
		categories: categories,
	}
	if categories != nil {
		categories.visuals = a
	}
	return a
}

// fillCategory sets CategoryName from the referenced category.
func (a *VisualAdapter) fillCategory(ctx context.Context, v *model.Visual) error {
	if v.CategoryID == 0 || a.categories == nil {
		return nil
	}
	c, err := a.categories.FetchByID(ctx, v.CategoryID)
	if err != nil {
		return fmt.Errorf("visual category: %w", err)
	}
	v.CategoryName = c.Name
	return nil
}

// Create stores a visual with its category name filled in.
func (a *VisualAdapter) Create(ctx context.Context, v model.Visual) (model.Visual, error) {
	if err := a.fillCategory(ctx, &v); err != nil {
		return model.Visual{}, err
	}
	return a.Adapter.Create(ctx, v)
}

// Update replaces a visual with its category name refreshed.
func (a *VisualAdapter) Update(ctx context.Context, v model.Visual) (model.Visual, error) {
	if err := a.fillCategory(ctx, &v); err != nil {
		return model.Visual{}, err
	}
	return a.Adapter.Update(ctx, v)
}

// Delete removes a category unless a visual still references it.
func (a *VisualCategoryAdapter) Delete(ctx context.Context, id int64) error {
	if a.visuals != nil {
		visuals, err := a.visuals.FetchAll(ctx, false)
		if err != nil {
			return err
		}
		for _, v := range visuals {
			if v.CategoryID == id {
				a.deps.notify(ctx, notify.Warning, a.spec.table, fmt.Sprintf("Category %d is used by visual %q", id, v.Name))
				return fmt.Errorf("visual category %d: %w", id, ErrCategoryInUse)
			}
		}
	}
	return a.Adapter.Delete(ctx, id)
}
