package handler

import (
	"net/http"

	"winshirt-sync/internal/model"
	"winshirt-sync/internal/service"
	"winshirt-sync/pkg/response"
)

// OrderHandler serves the order routes. Creating an order runs checkout.
type OrderHandler struct {
	*Resource[model.Order]
	orders   *service.OrderAdapter
	checkout *service.CheckoutService
}

// NewOrderHandler creates an order handler.
func NewOrderHandler(orders *service.OrderAdapter, checkout *service.CheckoutService) *OrderHandler {
	return &OrderHandler{
		Resource: NewResource[model.Order](orders, func(o *model.Order, id int64) { o.ID = id }).WithPresent(presentOrder),
		orders:   orders,
		checkout: checkout,
	}
}

// presentOrder lists the delivery history newest first.
func presentOrder(o *model.Order) {
	if o.Delivery == nil {
		return
	}
	d := *o.Delivery
	d.History = d.SortedHistory()
	o.Delivery = &d
}

// Checkout handles POST /orders
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var order model.Order
	if err := decodeJSON(w, r, &order); err != nil {
		writeError(w, r, err)
		return
	}
	receipt, err := h.checkout.PlaceOrder(r.Context(), order)
	if err != nil {
		writeError(w, r, err)
		return
	}
	presentOrder(&receipt.Order)
	response.Created(w, receipt)
}

// statusRequest is the body of POST /orders/{id}/status.
type statusRequest struct {
	Status model.OrderStatus `json:"status"`
}

// UpdateStatus handles POST /orders/{id}/status
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.orders.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	presentOrder(&o)
	response.OK(w, o)
}

// AddDeliveryEvent handles POST /orders/{id}/delivery/events
func (h *OrderHandler) AddDeliveryEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var event model.DeliveryEvent
	if err := decodeJSON(w, r, &event); err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.orders.AddDeliveryEvent(r.Context(), id, event)
	if err != nil {
		writeError(w, r, err)
		return
	}
	presentOrder(&o)
	response.Created(w, o)
}

// SetTracking handles PUT /orders/{id}/delivery
func (h *OrderHandler) SetTracking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var d model.Delivery
	if err := decodeJSON(w, r, &d); err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.orders.SetTracking(r.Context(), id, d)
	if err != nil {
		writeError(w, r, err)
		return
	}
	presentOrder(&o)
	response.OK(w, o)
}
