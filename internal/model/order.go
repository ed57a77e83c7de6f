package model

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
	OrderRefunded   OrderStatus = "refunded"
)

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled, OrderRefunded:
		return true
	}
	return false
}

// DeliveryStatus is the carrier-side state of a shipment.
type DeliveryStatus string

const (
	DeliveryPreparing      DeliveryStatus = "preparing"
	DeliveryInTransit      DeliveryStatus = "in_transit"
	DeliveryOutForDelivery DeliveryStatus = "out_for_delivery"
	DeliveryDelivered      DeliveryStatus = "delivered"
	DeliveryFailed         DeliveryStatus = "failed"
	DeliveryReturned       DeliveryStatus = "returned"
)

// Valid reports whether s is a known delivery status.
func (s DeliveryStatus) Valid() bool {
	switch s {
	case DeliveryPreparing, DeliveryInTransit, DeliveryOutForDelivery, DeliveryDelivered, DeliveryFailed, DeliveryReturned:
		return true
	}
	return false
}

// OrderItem is one line of an order.
type OrderItem struct {
	ID            int64           `json:"id"`
	OrderID       int64           `json:"orderId"`
	ProductID     int64           `json:"productId" validate:"gt=0"`
	ProductName   string          `json:"productName"`
	Quantity      int             `json:"quantity" validate:"gt=0"`
	Price         decimal.Decimal `json:"price"`
	Size          string          `json:"size"`
	Color         string          `json:"color"`
	Customization json.RawMessage `json:"customization,omitempty"`
	LotteryIDs    []int64         `json:"lotteryIds"`
}

// LineTotal returns price × quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Shipping describes where and how an order ships.
type Shipping struct {
	Address string          `json:"address"`
	Method  string          `json:"method"`
	Cost    decimal.Decimal `json:"cost"`
}

// Payment describes how an order is paid.
type Payment struct {
	Method string `json:"method"`
	Status string `json:"status"`
}

// DeliveryEvent is one entry of the append-only tracking history.
type DeliveryEvent struct {
	Date        time.Time      `json:"date"`
	Location    string         `json:"location"`
	Status      DeliveryStatus `json:"status"`
	Description string         `json:"description"`
}

// Delivery is the tracking sub-record of an order.
type Delivery struct {
	Carrier           string          `json:"carrier"`
	TrackingNumber    string          `json:"trackingNumber"`
	TrackingURL       string          `json:"trackingUrl"`
	Status            DeliveryStatus  `json:"status"`
	EstimatedDate     *time.Time      `json:"estimatedDate,omitempty"`
	SignatureRequired bool            `json:"signatureRequired"`
	History           []DeliveryEvent `json:"history"`
}

// SortedHistory returns the history sorted by date, newest first. The stored order is untouched.
func (d *Delivery) SortedHistory() []DeliveryEvent {
	out := make([]DeliveryEvent, len(d.History))
	copy(out, d.History)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	return out
}

// Order is a customer purchase.
type Order struct {
	ID          int64           `json:"id"`
	ClientName  string          `json:"clientName" validate:"required"`
	ClientEmail string          `json:"clientEmail" validate:"required,email"`
	Status      OrderStatus     `json:"status" validate:"oneof=pending processing shipped delivered cancelled refunded"`
	Items       []OrderItem     `json:"items" validate:"dive"`
	Shipping    Shipping        `json:"shipping"`
	Payment     Payment         `json:"payment"`
	Delivery    *Delivery       `json:"delivery,omitempty"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Total       decimal.Decimal `json:"total"`
	Notes       string          `json:"notes"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// ComputeTotals sets Subtotal from the items and Total to Subtotal + shipping cost.
func (o *Order) ComputeTotals() {
	subtotal := decimal.Zero
	for _, item := range o.Items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	o.Subtotal = subtotal
	o.Total = subtotal.Add(o.Shipping.Cost)
}
