package service

import (
	"context"
	"fmt"
	"strings"

	"winshirt-sync/internal/model"
	"winshirt-sync/internal/naming"
	"winshirt-sync/internal/repository"
)

// ProductAdapter mirrors products.
type ProductAdapter struct {
	*Adapter[model.Product]
}

// NewProductAdapter creates the product adapter.
func NewProductAdapter(deps Deps) *ProductAdapter {
	return &ProductAdapter{Adapter: newAdapter(deps, entitySpec[model.Product]{
		table:    model.TableProducts,
		entity:   "product",
		schema:   naming.Products,
		idOf:     func(p *model.Product) int64 { return p.ID },
		setID:    func(p *model.Product, id int64) { p.ID = id },
		prepare:  normalizePrintAreas,
		validate: validateProduct,
	})}
}

// normalizePrintAreas numbers new print areas and snaps fixed-format areas to
// their fixed dimensions.
func normalizePrintAreas(p *model.Product) {
	var maxID int64
	for _, area := range p.PrintAreas {
		if area.ID > maxID {
			maxID = area.ID
		}
	}
	for i := range p.PrintAreas {
		if p.PrintAreas[i].ID == 0 {
			maxID++
			p.PrintAreas[i].ID = maxID
		}
	}

	for i := range p.PrintAreas {
		area := &p.PrintAreas[i]
		area.Format = model.PrintFormat(strings.ToLower(string(area.Format)))
		area.Position = model.PrintPosition(strings.ToLower(string(area.Position)))
		if w, h, ok := area.Format.FixedSize(); ok {
			area.Bounds.Width = w
			area.Bounds.Height = h
		}
	}
}

func validateProduct(p *model.Product, ve *ValidationError) {
	if strings.TrimSpace(p.Name) == "" {
		ve.Add("name", "required")
	}
	if !p.Price.IsPositive() {
		ve.Add("price", "must be greater than 0")
	}
	seen := make(map[int64]bool, len(p.PrintAreas))
	for i, area := range p.PrintAreas {
		if seen[area.ID] {
			ve.Add(fmt.Sprintf("printAreas[%d].id", i), "duplicate")
		}
		seen[area.ID] = true
	}
}

// ToggleFeatured sets the featured flag.
func (a *ProductAdapter) ToggleFeatured(ctx context.Context, id int64, featured bool) (model.Product, error) {
	return a.patch(ctx, id, repository.Row{"featured": featured}, func(p *model.Product) error {
		p.Featured = featured
		return nil
	})
}
