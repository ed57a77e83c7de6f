package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"winshirt-sync/internal/model"
	"winshirt-sync/internal/naming"
	"winshirt-sync/internal/notify"
	"winshirt-sync/internal/repository"
)

// OrderAdapter mirrors orders with their line items.
type OrderAdapter struct {
	*Adapter[model.Order]
}

// NewOrderAdapter creates the order adapter.
func NewOrderAdapter(deps Deps) *OrderAdapter {
	a := &OrderAdapter{}
	a.Adapter = newAdapter(deps, entitySpec[model.Order]{
		table:  model.TableOrders,
		entity: "order",
		schema: naming.Orders,
		idOf:   func(o *model.Order) int64 { return o.ID },
		setID: func(o *model.Order, id int64) {
			o.ID = id
			for i := range o.Items {
				o.Items[i].OrderID = id
			}
		},
		prepare: func(o *model.Order) {
			if o.Status == "" {
				o.Status = model.OrderPending
			}
			if o.Payment.Status == "" {
				o.Payment.Status = "pending"
			}
			if o.CreatedAt.IsZero() {
				o.CreatedAt = deps.now()
			}
		},
		children: []string{model.TableOrderItems},
		fk:       "order_id",
		assemble: func(o *model.Order, children map[string][]repository.Row) {
			o.Items = decodeItems(children[model.TableOrderItems])
		},
		preserve: func(fresh, prior *model.Order) {
			fresh.Items = prior.Items
		},
		childRows: func(o *model.Order) map[string][]any {
			rows := make([]any, 0, len(o.Items))
			for _, item := range o.Items {
				rows = append(rows, item)
			}
			return map[string][]any{model.TableOrderItems: rows}
		},
		pushChildren: a.pushItems,
		localChildIDs: func(o *model.Order, existing []model.Order) {
			var maxID int64
			for i := range existing {
				for _, item := range existing[i].Items {
					if item.ID > maxID {
						maxID = item.ID
					}
				}
			}
			for i := range o.Items {
				if o.Items[i].ID == 0 {
					maxID++
					o.Items[i].ID = maxID
				}
			}
		},
	})
	return a
}

func decodeItems(rows []repository.Row) []model.OrderItem {
	items := make([]model.OrderItem, 0, len(rows))
	for _, row := range rows {
		item, err := naming.DecodeLoose[model.OrderItem](naming.OrderItems, row)
		if err != nil {
			continue
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items
}

// pushItems inserts the line items of a newly created order.
func (a *OrderAdapter) pushItems(ctx context.Context, created, input *model.Order) error {
	items := make([]model.OrderItem, 0, len(input.Items))
	var errs []error
	for _, item := range input.Items {
		item.OrderID = created.ID
		row, err := naming.Encode(naming.OrderItems, item)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		inserted, err := a.deps.Remote.Insert(ctx, model.TableOrderItems, row)
		if err != nil {
			errs = append(errs, remoteErr("insert", model.TableOrderItems, err))
			continue
		}
		stored, err := naming.DecodeLoose[model.OrderItem](naming.OrderItems, inserted)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		items = append(items, stored)
	}
	created.Items = items
	return errors.Join(errs...)
}

// Create computes the order totals and stores it.
func (a *OrderAdapter) Create(ctx context.Context, o model.Order) (model.Order, error) {
	o.ComputeTotals()
	return a.Adapter.Create(ctx, o)
}

// Update replaces the order fields. Line items are fixed at creation: an update
// without items keeps the stored ones and an update with different items is rejected.
func (a *OrderAdapter) Update(ctx context.Context, o model.Order) (model.Order, error) {
	prior, err := a.FetchByID(ctx, o.ID)
	if err != nil {
		return model.Order{}, err
	}
	if len(o.Items) > 0 && !sameItems(prior.Items, o.Items) {
		ve := &ValidationError{Entity: "order"}
		ve.Add("items", "cannot change after creation")
		a.deps.notify(ctx, notify.Error, a.spec.table, ve.Error())
		return model.Order{}, ve
	}
	o.Items = prior.Items
	o.ComputeTotals()
	return a.Adapter.Update(ctx, o)
}

func sameItems(stored, next []model.OrderItem) bool {
	if len(stored) != len(next) {
		return false
	}
	for i := range stored {
		s, n := stored[i], next[i]
		if n.ID != 0 && n.ID != s.ID {
			return false
		}
		if n.ProductID != s.ProductID || n.Quantity != s.Quantity || !n.Price.Equal(s.Price) ||
			n.Size != s.Size || n.Color != s.Color {
			return false
		}
	}
	return true
}

// UpdateStatus changes the fulfilment status.
func (a *OrderAdapter) UpdateStatus(ctx context.Context, id int64, status model.OrderStatus) (model.Order, error) {
	if !status.Valid() {
		ve := &ValidationError{Entity: "order"}
		ve.Add("status", "oneof")
		return model.Order{}, ve
	}
	return a.patch(ctx, id, repository.Row{"status": string(status)}, func(o *model.Order) error {
		o.Status = status
		return nil
	})
}

// AddDeliveryEvent appends a tracking event and moves the delivery to its status.
func (a *OrderAdapter) AddDeliveryEvent(ctx context.Context, id int64, event model.DeliveryEvent) (model.Order, error) {
	if !event.Status.Valid() {
		ve := &ValidationError{Entity: "delivery event"}
		ve.Add("status", "oneof")
		return model.Order{}, ve
	}
	if event.Date.IsZero() {
		event.Date = a.deps.now()
	}

	order, err := a.FetchByID(ctx, id)
	if err != nil {
		return model.Order{}, err
	}
	d := model.Delivery{}
	if order.Delivery != nil {
		d = *order.Delivery
	}
	d.History = append(append([]model.DeliveryEvent(nil), d.History...), event)
	d.Status = event.Status
	return a.setDelivery(ctx, id, d)
}

// SetTracking replaces the carrier details. The recorded history is kept.
func (a *OrderAdapter) SetTracking(ctx context.Context, id int64, d model.Delivery) (model.Order, error) {
	if d.Status == "" {
		d.Status = model.DeliveryPreparing
	}
	if !d.Status.Valid() {
		ve := &ValidationError{Entity: "delivery"}
		ve.Add("status", "oneof")
		return model.Order{}, ve
	}

	order, err := a.FetchByID(ctx, id)
	if err != nil {
		return model.Order{}, err
	}
	if order.Delivery != nil {
		d.History = order.Delivery.History
	} else {
		d.History = nil
	}
	return a.setDelivery(ctx, id, d)
}

func (a *OrderAdapter) setDelivery(ctx context.Context, id int64, d model.Delivery) (model.Order, error) {
	row, err := naming.Encode(naming.Orders, map[string]any{"delivery": d})
	if err != nil {
		return model.Order{}, fmt.Errorf("failed to encode delivery: %w", err)
	}
	return a.patch(ctx, id, row, func(o *model.Order) error {
		o.Delivery = &d
		return nil
	})
}
