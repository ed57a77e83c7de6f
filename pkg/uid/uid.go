// Package uid generates the identifiers of requests and notifications.
package uid

import "github.com/google/uuid"

// New returns a random UUID string.
func New() string {
	return uuid.NewString()
}

// IsValid reports whether id is a UUID in its canonical 36-character form.
// Braced and URN forms are rejected.
func IsValid(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}
