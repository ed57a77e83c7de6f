package handler

import (
	"context"
	"net/http"

	"winshirt-sync/pkg/response"
)

// Store is the CRUD surface every entity adapter offers.
type Store[T any] interface {
	FetchAll(ctx context.Context, forceRefresh bool) ([]T, error)
	FetchByID(ctx context.Context, id int64) (T, error)
	Create(ctx context.Context, item T) (T, error)
	Update(ctx context.Context, item T) (T, error)
	Delete(ctx context.Context, id int64) error
}

// Resource serves the list/get/create/update/delete routes of one entity.
type Resource[T any] struct {
	store   Store[T]
	setID   func(*T, int64)
	present func(*T)
}

// NewResource creates a CRUD handler. setID writes the path id into an
// update body.
func NewResource[T any](store Store[T], setID func(*T, int64)) *Resource[T] {
	return &Resource[T]{store: store, setID: setID}
}

// WithPresent sets a function that shapes each entity before it is written out.
func (h *Resource[T]) WithPresent(present func(*T)) *Resource[T] {
	h.present = present
	return h
}

func (h *Resource[T]) view(item T) T {
	if h.present != nil {
		h.present(&item)
	}
	return item
}

// List handles GET /{entity}[?refresh=true]
func (h *Resource[T]) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.FetchAll(r.Context(), queryBool(r, "refresh"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]T, len(items))
	for i := range items {
		out[i] = h.view(items[i])
	}
	response.OK(w, out)
}

// Get handles GET /{entity}/{id}
func (h *Resource[T]) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	item, err := h.store.FetchByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, h.view(item))
}

// Create handles POST /{entity}
func (h *Resource[T]) Create(w http.ResponseWriter, r *http.Request) {
	var item T
	if err := decodeJSON(w, r, &item); err != nil {
		writeError(w, r, err)
		return
	}
	created, err := h.store.Create(r.Context(), item)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.Created(w, h.view(created))
}

// Update handles PUT /{entity}/{id}
func (h *Resource[T]) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var item T
	if err := decodeJSON(w, r, &item); err != nil {
		writeError(w, r, err)
		return
	}
	h.setID(&item, id)

	updated, err := h.store.Update(r.Context(), item)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, h.view(updated))
}

// Delete handles DELETE /{entity}/{id}
func (h *Resource[T]) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.store.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	response.NoContent(w)
}

// CRUD is the untyped route surface of a Resource.
type CRUD interface {
	List(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Create(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
}
