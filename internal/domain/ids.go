package domain

import "github.com/google/uuid"

// NewID returns a random UUID v4 string for sessions and messages.
func NewID() string {
	return uuid.NewString()
}
