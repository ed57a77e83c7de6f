package handler

import (
	"net/http"

	"winshirt-sync/internal/model"
	"winshirt-sync/internal/service"
	"winshirt-sync/pkg/response"
)

// ProductHandler serves the product routes.
type ProductHandler struct {
	*Resource[model.Product]
	products *service.ProductAdapter
}

// NewProductHandler creates a product handler.
func NewProductHandler(products *service.ProductAdapter) *ProductHandler {
	return &ProductHandler{
		Resource: NewResource[model.Product](products, func(p *model.Product, id int64) { p.ID = id }),
		products: products,
	}
}

// Featured handles POST /products/{id}/featured
func (h *ProductHandler) Featured(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req featuredRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}

	current := false
	if req.Featured == nil {
		p, err := h.products.FetchByID(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		current = p.Featured
	}

	p, err := h.products.ToggleFeatured(r.Context(), id, req.resolve(current))
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, p)
}
