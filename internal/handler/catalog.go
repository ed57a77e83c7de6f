package handler

import (
	"net/http"
	"strings"

	"winshirt-sync/internal/model"
	"winshirt-sync/internal/service"
	"winshirt-sync/pkg/response"
)

// NewVisualHandler creates the CRUD handler of visuals.
func NewVisualHandler(visuals *service.VisualAdapter) *Resource[model.Visual] {
	return NewResource[model.Visual](visuals, func(v *model.Visual, id int64) { v.ID = id })
}

// NewCategoryHandler creates the CRUD handler of visual categories.
func NewCategoryHandler(categories *service.VisualCategoryAdapter) *Resource[model.VisualCategory] {
	return NewResource[model.VisualCategory](categories, func(c *model.VisualCategory, id int64) { c.ID = id })
}

// ClientHandler serves the client routes.
type ClientHandler struct {
	*Resource[model.Client]
	clients *service.ClientAdapter
}

// NewClientHandler creates a client handler.
func NewClientHandler(clients *service.ClientAdapter) *ClientHandler {
	return &ClientHandler{
		Resource: NewResource[model.Client](clients, func(c *model.Client, id int64) { c.ID = id }),
		clients:  clients,
	}
}

// List handles GET /clients[?email=...][&refresh=true]
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		h.Resource.List(w, r)
		return
	}
	c, err := h.clients.FindByEmail(r.Context(), email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, []model.Client{c})
}
