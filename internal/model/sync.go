package model

import "time"

// SyncStatus is the bookkeeping of the last mirror operation for a table.
type SyncStatus struct {
	Table       string     `json:"table"`
	Success     bool       `json:"success"`
	LastSync    *time.Time `json:"lastSync,omitempty"`
	Message     string     `json:"message,omitempty"`
	Error       string     `json:"error,omitempty"`
	Quarantined int        `json:"quarantined,omitempty"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}
