package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Client is a storefront customer, keyed by email.
type Client struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name" validate:"required"`
	Email      string          `json:"email" validate:"required,email"`
	Phone      string          `json:"phone"`
	Address    string          `json:"address"`
	City       string          `json:"city"`
	PostalCode string          `json:"postalCode"`
	Country    string          `json:"country"`
	OrderCount int             `json:"orderCount" validate:"gte=0"`
	TotalSpent decimal.Decimal `json:"totalSpent"`
	CreatedAt  time.Time       `json:"createdAt"`
}
