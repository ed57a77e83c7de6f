package model

import "time"

// Role constants for storefront accounts.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// Account is a storefront login.
type Account struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Confirmed    bool      `json:"confirmed"`
	ConfirmToken string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// IsAdmin reports whether the account may use the admin API.
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}
